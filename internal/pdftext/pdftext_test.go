package pdftext

import (
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.7\n...")))
	assert.False(t, IsPDF([]byte("Date, Amount, Balance, Description")))
	assert.False(t, IsPDF(nil))
}

func TestRowLines(t *testing.T) {
	rows := pdf.Rows{
		{Position: 700, Content: pdf.TextHorizontal{{S: "2024/01/15"}, {S: "Starbucks"}, {S: "-45.00"}}},
		{Position: 680, Content: pdf.TextHorizontal{{S: " "}}},
		{Position: 660, Content: pdf.TextHorizontal{{S: "Account:"}, {S: "62812345678"}}},
	}

	assert.Equal(t, []string{"2024/01/15 Starbucks -45.00", "Account: 62812345678"}, rowLines(rows))
	assert.Empty(t, rowLines(nil))
}

func TestExtractMissingFile(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open pdf")
}

func TestExtractBytesNotPDF(t *testing.T) {
	_, err := ExtractBytes([]byte("this is not a pdf document at all"))
	require.Error(t, err)
}
