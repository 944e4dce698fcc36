package bigquery

import (
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-extractor/internal/domain"
)

func TestToRow(t *testing.T) {
	balance := 1000.5
	created := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)
	tx := domain.Transaction{
		ID:             "tx-1",
		Date:           civil.Date{Year: 2024, Month: 1, Day: 15},
		Amount:         45.1,
		Description:    "Starbucks Coffee",
		RawDescription: "STARBUCKS SANDTON 4411",
		Store:          "Starbucks",
		Category:       "Food",
		Balance:        &balance,
		BankName:       "FNB",
		Source:         domain.SourceStatement,
		Strategy:       "standard",
	}

	row := ToRow(tx, created)

	assert.Equal(t, "tx-1", row.TransactionID)
	assert.Equal(t, tx.Date, row.TransactionDate)
	assert.Equal(t, "-45.10", row.Amount.FloatString(2))
	assert.Equal(t, "1000.50", row.BalanceAfter.FloatString(2))
	assert.Equal(t, DefaultCurrency, row.Currency)
	assert.Equal(t, "OUT", row.Direction)
	assert.Equal(t, "STARBUCKS SANDTON 4411", row.RawDescription)
	assert.Equal(t, bigquery.NullString{StringVal: "Food", Valid: true}, row.CategoryName)
	assert.False(t, row.Notes.Valid)
	assert.False(t, row.AccountNumber.Valid)
	assert.Equal(t, "statement", row.Source)
	assert.Equal(t, created, row.CreatedTS)
}

func TestRowRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tx   domain.Transaction
	}{
		{
			name: "expense without raw description",
			tx: domain.Transaction{
				ID: "a", Date: civil.Date{Year: 2024, Month: 2, Day: 1}, Amount: 853,
				Description: "Pick n Pay", Store: "Pick n Pay", Category: "Shopping", Source: domain.SourceSMS,
			},
		},
		{
			name: "income with account",
			tx: domain.Transaction{
				ID: "b", Date: civil.Date{Year: 2024, Month: 2, Day: 25}, Amount: 25000, IsIncome: true,
				Description: "Salary", RawDescription: "ACME PAYROLL FEB", Store: "ACME PAYROLL",
				Category: "Salary", AccountNumber: "62812345678", AccountType: "Cheque",
				Source: domain.SourceStatement, Notes: "Imported from bank statement",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToRow(tt.tx, time.Now()).ToTransaction()
			assert.Equal(t, tt.tx, got)
		})
	}
}

func TestInferSchema(t *testing.T) {
	schema, err := bigquery.InferSchema(TransactionRow{})
	require.NoError(t, err)

	types := map[string]bigquery.FieldType{}
	for _, f := range schema {
		types[f.Name] = f.Type
	}
	assert.Equal(t, bigquery.DateFieldType, types["transaction_date"])
	assert.Equal(t, bigquery.NumericFieldType, types["amount"])
	assert.Equal(t, bigquery.StringFieldType, types["store"])
	assert.Equal(t, bigquery.TimestampFieldType, types["created_ts"])
}
