package extraction

import (
	"github.com/google/uuid"

	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/normalize"
)

// Resolved is a Record after merchant resolution and categorization.
type Resolved struct {
	Record
	Store          string
	Category       string
	RawDescription string
}

// Enhancer turns resolved records into final transactions, attaching the
// account metadata found for the same input and a unique id.
type Enhancer struct {
	newID func() string
}

// NewEnhancer returns an Enhancer that assigns random UUIDs.
func NewEnhancer() *Enhancer {
	return &Enhancer{newID: uuid.NewString}
}

// Enhance builds the transaction for r. bankName is used when the text did
// not name a bank itself.
func (e *Enhancer) Enhance(r Resolved, strategy string, info domain.AccountInfo, bankName string) domain.Transaction {
	tx := domain.Transaction{
		ID:             e.newID(),
		Date:           r.Date,
		Amount:         normalize.Round2(r.Amount),
		IsIncome:       r.IsIncome,
		Description:    normalize.CollapseSpaces(r.Description),
		RawDescription: r.RawDescription,
		Store:          r.Store,
		Category:       r.Category,
		Notes:          r.Notes,
		Balance:        r.Balance,
		AccountNumber:  info.AccountNumber,
		AccountName:    info.AccountName,
		AccountType:    info.AccountType,
		BankName:       info.BankName,
		Source:         domain.SourceStatement,
		Strategy:       strategy,
	}
	if tx.BankName == "" {
		tx.BankName = bankName
	}
	if tx.RawDescription == tx.Description {
		tx.RawDescription = ""
	}
	return tx
}
