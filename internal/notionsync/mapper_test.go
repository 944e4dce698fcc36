package notionsync

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-extractor/internal/domain"
)

func TestTransactionToNotionProperties(t *testing.T) {
	balance := 955.0
	tx := domain.Transaction{
		ID:            "tx-1",
		Date:          civil.Date{Year: 2024, Month: 1, Day: 15},
		Amount:        45,
		Description:   "Coffee",
		Store:         "Starbucks",
		Category:      "Food",
		Balance:       &balance,
		AccountNumber: "62812345678",
		BankName:      "FNB",
		Source:        domain.SourceStatement,
	}

	props := TransactionToNotionProperties(tx)

	title, ok := props[PropDescription].(notionapi.TitleProperty)
	require.True(t, ok)
	assert.Equal(t, "Coffee", title.Title[0].Text.Content)

	amount, ok := props[PropAmount].(notionapi.NumberProperty)
	require.True(t, ok)
	assert.Equal(t, -45.0, amount.Number)

	date, ok := props[PropDate].(notionapi.DateProperty)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), time.Time(*date.Date.Start))

	assert.Equal(t, notionapi.SelectProperty{Select: notionapi.Option{Name: "OUT"}}, props[PropDirection])
	assert.Equal(t, notionapi.SelectProperty{Select: notionapi.Option{Name: "Food"}}, props[PropCategory])
	assert.Equal(t, notionapi.NumberProperty{Number: 955}, props[PropBalance])
	assert.Contains(t, props, PropAccount)
	assert.Contains(t, props, PropBank)
	assert.NotContains(t, props, PropNotes)
}

func TestTransactionToNotionPropertiesIncomeMinimal(t *testing.T) {
	props := TransactionToNotionProperties(domain.Transaction{
		ID:          "tx-2",
		Date:        civil.Date{Year: 2024, Month: 1, Day: 25},
		Amount:      25000,
		IsIncome:    true,
		Description: "Salary",
	})

	assert.Equal(t, notionapi.NumberProperty{Number: 25000}, props[PropAmount])
	assert.Equal(t, notionapi.SelectProperty{Select: notionapi.Option{Name: "IN"}}, props[PropDirection])
	for _, name := range []string{PropStore, PropCategory, PropBalance, PropAccount, PropBank, PropSource, PropNotes} {
		assert.NotContains(t, props, name)
	}
}

func TestTransactionIDOf(t *testing.T) {
	tests := []struct {
		name string
		page notionapi.Page
		want string
	}{
		{
			name: "plain text",
			page: pageWithTxID("p1", "tx-1"),
			want: "tx-1",
		},
		{
			name: "text content only",
			page: notionapi.Page{Properties: notionapi.Properties{
				PropTransactionID: &notionapi.RichTextProperty{RichText: richText("tx-2")},
			}},
			want: "tx-2",
		},
		{
			name: "missing",
			page: notionapi.Page{Properties: notionapi.Properties{}},
		},
		{
			name: "empty rich text",
			page: notionapi.Page{Properties: notionapi.Properties{
				PropTransactionID: &notionapi.RichTextProperty{},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transactionIDOf(tt.page))
		})
	}
}

func pageWithTxID(pageID, txID string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(pageID),
		Properties: notionapi.Properties{
			PropTransactionID: &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: txID}},
			},
		},
	}
}
