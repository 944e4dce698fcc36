// Package bigquery stores extracted transactions in a BigQuery table.
package bigquery

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/statement-extractor/internal/domain"
)

// DefaultCurrency is written for every row; statements are ZAR only.
const DefaultCurrency = "ZAR"

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC, signed
	Currency string   `bigquery:"currency"` // REQUIRED

	BalanceAfter *big.Rat `bigquery:"balance_after"` // NULLABLE NUMERIC

	Direction string `bigquery:"direction"` // IN or OUT

	RawDescription string              `bigquery:"raw_description"` // REQUIRED
	Description    string              `bigquery:"description"`     // REQUIRED
	Store          bigquery.NullString `bigquery:"store"`
	CategoryName   bigquery.NullString `bigquery:"category_name"`
	Notes          bigquery.NullString `bigquery:"notes"`

	AccountNumber bigquery.NullString `bigquery:"account_number"`
	AccountName   bigquery.NullString `bigquery:"account_name"`
	AccountType   bigquery.NullString `bigquery:"account_type"`
	BankName      bigquery.NullString `bigquery:"bank_name"`

	Source   string              `bigquery:"source"`
	Strategy bigquery.NullString `bigquery:"strategy"`

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// ToRow maps a transaction to its table row.
func ToRow(tx domain.Transaction, createdAt time.Time) *TransactionRow {
	raw := tx.RawDescription
	if raw == "" {
		raw = tx.Description
	}
	row := &TransactionRow{
		TransactionID:   tx.ID,
		TransactionDate: tx.Date,
		Amount:          ratFromFloat(tx.SignedAmount()),
		Currency:        DefaultCurrency,
		Direction:       tx.Direction(),
		RawDescription:  raw,
		Description:     tx.Description,
		Store:           nullString(tx.Store),
		CategoryName:    nullString(tx.Category),
		Notes:           nullString(tx.Notes),
		AccountNumber:   nullString(tx.AccountNumber),
		AccountName:     nullString(tx.AccountName),
		AccountType:     nullString(tx.AccountType),
		BankName:        nullString(tx.BankName),
		Source:          string(tx.Source),
		Strategy:        nullString(tx.Strategy),
		CreatedTS:       createdAt,
	}
	if tx.Balance != nil {
		row.BalanceAfter = ratFromFloat(*tx.Balance)
	}
	return row
}

// ToTransaction maps a row back to a transaction.
func (r *TransactionRow) ToTransaction() domain.Transaction {
	tx := domain.Transaction{
		ID:            r.TransactionID,
		Date:          r.TransactionDate,
		IsIncome:      r.Direction == "IN",
		Description:   r.Description,
		Store:         r.Store.StringVal,
		Category:      r.CategoryName.StringVal,
		Notes:         r.Notes.StringVal,
		AccountNumber: r.AccountNumber.StringVal,
		AccountName:   r.AccountName.StringVal,
		AccountType:   r.AccountType.StringVal,
		BankName:      r.BankName.StringVal,
		Source:        domain.Source(r.Source),
		Strategy:      r.Strategy.StringVal,
	}
	if r.RawDescription != r.Description {
		tx.RawDescription = r.RawDescription
	}
	if r.Amount != nil {
		f, _ := r.Amount.Float64()
		if f < 0 {
			f = -f
		}
		tx.Amount = f
	}
	if r.BalanceAfter != nil {
		f, _ := r.BalanceAfter.Float64()
		tx.Balance = &f
	}
	return tx
}

// ratFromFloat converts through the two-decimal string form so the value
// fits NUMERIC scale.
func ratFromFloat(v float64) *big.Rat {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'f', 2, 64))
	if !ok {
		panic(fmt.Sprintf("ratFromFloat: cannot represent %v", v))
	}
	return r
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
