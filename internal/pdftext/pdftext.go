// Package pdftext turns a text-based PDF statement into plain text lines the
// extractor can read.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNoPages is returned for a PDF without pages.
	ErrNoPages = errors.New("pdf has no pages")
	// ErrNoText is returned when no page yields text, usually a scanned PDF.
	ErrNoText = errors.New("pdf contains no extractable text")
)

// IsPDF reports whether data starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// Extract reads the PDF at path. Rows become lines; pages are separated by a
// blank line.
func Extract(path string) (text string, err error) {
	defer guard(&err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	return extract(r)
}

// ExtractReader is Extract for an in-memory or uploaded document.
func ExtractReader(ra io.ReaderAt, size int64) (text string, err error) {
	defer guard(&err)

	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	return extract(r)
}

// ExtractBytes is ExtractReader over data.
func ExtractBytes(data []byte) (string, error) {
	return ExtractReader(bytes.NewReader(data), int64(len(data)))
}

// guard turns a panic inside the pdf library into an error.
func guard(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("pdf library panic: %v", r)
	}
}

func extract(r *pdf.Reader) (string, error) {
	n := r.NumPage()
	if n == 0 {
		return "", ErrNoPages
	}

	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if lines := rowLines(rows); len(lines) > 0 {
			pages = append(pages, strings.Join(lines, "\n"))
		}
	}

	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n\n"), nil
}

// rowLines joins the words of each row with a space and drops blank rows.
func rowLines(rows pdf.Rows) []string {
	var lines []string
	for _, row := range rows {
		parts := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
