package domain

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// DefaultCategory is assigned when neither the merchant dictionary nor the
// keyword patterns classify a description.
const DefaultCategory = "Other"

// Supported date range for transactions: [MinYear, MaxYear).
const (
	MinYear = 2000
	MaxYear = 2030
)

// Source identifies the input path a transaction came from.
type Source string

const (
	SourceStatement    Source = "statement"
	SourceSMS          Source = "sms"
	SourceNotification Source = "notification"
	SourceManual       Source = "manual"
)

// Transaction is the normalized output unit. Amount is always a positive
// magnitude; direction lives in IsIncome.
type Transaction struct {
	ID             string     `json:"id"`
	Date           civil.Date `json:"date"`
	Amount         float64    `json:"amount"`
	IsIncome       bool       `json:"is_income"`
	Description    string     `json:"description"`
	RawDescription string     `json:"raw_description,omitempty"`
	Store          string     `json:"store"`
	Category       string     `json:"category"`
	Notes          string     `json:"notes,omitempty"`
	Balance        *float64   `json:"balance,omitempty"`

	AccountNumber string `json:"account_number,omitempty"`
	AccountName   string `json:"account_name,omitempty"`
	AccountType   string `json:"account_type,omitempty"`
	BankName      string `json:"bank_name,omitempty"`

	Source   Source `json:"source"`
	Strategy string `json:"strategy,omitempty"`
}

// SignedAmount returns the amount with expenses negative.
func (t Transaction) SignedAmount() float64 {
	if t.IsIncome {
		return t.Amount
	}
	return -t.Amount
}

// Direction returns "IN" for income and "OUT" for expenses.
func (t Transaction) Direction() string {
	if t.IsIncome {
		return "IN"
	}
	return "OUT"
}

// Validate checks the invariants every produced transaction must hold.
func (t Transaction) Validate() error {
	var errs []error
	if t.Amount <= 0 {
		errs = append(errs, fmt.Errorf("amount must be positive, got %v", t.Amount))
	}
	if !t.Date.IsValid() {
		errs = append(errs, fmt.Errorf("invalid date %v", t.Date))
	} else if !InSupportedRange(t.Date) {
		errs = append(errs, fmt.Errorf("date %s outside supported range", t.Date))
	}
	if strings.TrimSpace(t.Description) == "" {
		errs = append(errs, errors.New("description is empty"))
	}
	return errors.Join(errs...)
}

// InSupportedRange reports whether d falls in [MinYear, MaxYear).
func InSupportedRange(d civil.Date) bool {
	return d.Year >= MinYear && d.Year < MaxYear
}

// AccountInfo holds header-level facts found anywhere in a statement. Every
// field is optional and discovered independently.
type AccountInfo struct {
	AccountNumber    string   `json:"account_number,omitempty"`
	AccountName      string   `json:"account_name,omitempty"`
	AccountType      string   `json:"account_type,omitempty"`
	BankName         string   `json:"bank_name,omitempty"`
	Balance          *float64 `json:"balance,omitempty"`
	AvailableBalance *float64 `json:"available_balance,omitempty"`
}

// Empty reports whether no field was found.
func (a AccountInfo) Empty() bool {
	return a.AccountNumber == "" && a.AccountName == "" && a.AccountType == "" &&
		a.BankName == "" && a.Balance == nil && a.AvailableBalance == nil
}
