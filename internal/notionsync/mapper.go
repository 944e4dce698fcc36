package notionsync

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/dvloznov/statement-extractor/internal/domain"
)

// Property names of the transactions database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropDirection     = "Direction"
	PropStore         = "Store"
	PropCategory      = "Category"
	PropBalance       = "Balance After"
	PropAccount       = "Account"
	PropBank          = "Bank"
	PropSource        = "Source"
	PropNotes         = "Notes"
)

// TransactionToNotionProperties maps a transaction to database properties.
// Empty optional fields are left out so an update does not clear them.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: richText(tx.Description),
		},
		PropTransactionID: notionapi.RichTextProperty{
			RichText: richText(tx.ID),
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: notionDate(tx.Date)},
		},
		PropAmount: notionapi.NumberProperty{
			Number: tx.SignedAmount(),
		},
		PropDirection: notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Direction()},
		},
	}

	if tx.Store != "" {
		props[PropStore] = notionapi.RichTextProperty{RichText: richText(tx.Store)}
	}
	if tx.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Category}}
	}
	if tx.Balance != nil {
		props[PropBalance] = notionapi.NumberProperty{Number: *tx.Balance}
	}
	if tx.AccountNumber != "" {
		props[PropAccount] = notionapi.RichTextProperty{RichText: richText(tx.AccountNumber)}
	}
	if tx.BankName != "" {
		props[PropBank] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.BankName}}
	}
	if tx.Source != "" {
		props[PropSource] = notionapi.SelectProperty{Select: notionapi.Option{Name: string(tx.Source)}}
	}
	if tx.Notes != "" {
		props[PropNotes] = notionapi.RichTextProperty{RichText: richText(tx.Notes)}
	}
	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

func notionDate(d civil.Date) *notionapi.Date {
	nd := notionapi.Date(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
	return &nd
}

// transactionIDOf reads the Transaction ID property of a page, or "".
func transactionIDOf(page notionapi.Page) string {
	prop, ok := page.Properties[PropTransactionID]
	if !ok {
		return ""
	}
	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rt.RichText) == 0 {
		return ""
	}
	if rt.RichText[0].PlainText != "" {
		return rt.RichText[0].PlainText
	}
	if rt.RichText[0].Text != nil {
		return rt.RichText[0].Text.Content
	}
	return ""
}
