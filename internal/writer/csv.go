// Package writer exports extracted transactions.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dvloznov/statement-extractor/internal/domain"
)

var csvHeader = []string{
	"Date", "Description", "Store", "Category", "Type", "Amount", "Balance", "Account", "Bank", "Notes",
}

// CSVWriter writes transactions as CSV.
type CSVWriter struct {
	// IncludeAccount prefixes the rows with "# field,value" lines for the
	// statement's account info.
	IncludeAccount bool
}

// WriteToFile writes to a new file at path.
func (w *CSVWriter) WriteToFile(path string, info domain.AccountInfo, txs []domain.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, info, txs)
}

// Write writes the header and one row per transaction to out.
func (w *CSVWriter) Write(out io.Writer, info domain.AccountInfo, txs []domain.Transaction) error {
	cw := csv.NewWriter(out)

	if w.IncludeAccount {
		meta := [][2]string{
			{"# Bank", info.BankName},
			{"# Account Number", info.AccountNumber},
			{"# Account Name", info.AccountName},
			{"# Account Type", info.AccountType},
			{"# Balance", formatOptional(info.Balance)},
			{"# Available Balance", formatOptional(info.AvailableBalance)},
		}
		for _, m := range meta {
			if m[1] == "" {
				continue
			}
			if err := cw.Write(m[:]); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, tx := range txs {
		row := []string{
			tx.Date.String(),
			tx.Description,
			tx.Store,
			tx.Category,
			tx.Direction(),
			formatAmount(tx.SignedAmount()),
			formatOptional(tx.Balance),
			tx.AccountNumber,
			tx.BankName,
			tx.Notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatAmount(*v)
}
