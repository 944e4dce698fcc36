// Package aiparser is the optional language-model collaborator: given raw
// statement or message text it returns a best guess, or fails.
package aiparser

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty response from model")

// KnownCategories are the categories a model may assign.
var KnownCategories = []string{
	"Food", "Transport", "Shopping", "Bills", "Entertainment",
	"Healthcare", "Rent", "Salary", "Transfers", "Other",
}

// Parser parses text with a language model. Implementations must honour ctx
// cancellation; callers bound every call with a timeout.
type Parser interface {
	ParseStatement(ctx context.Context, text string) ([]StatementRow, error)
	ParseMessage(ctx context.Context, text string) (*MessageGuess, error)
}

// StatementRow is one transaction as guessed by the model. Amount is signed:
// positive for money in, negative for money out.
type StatementRow struct {
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Store       string   `json:"store,omitempty"`
	Category    string   `json:"category,omitempty"`
	Amount      float64  `json:"amount"`
	Balance     *float64 `json:"balance_after,omitempty"`
}

// MessageGuess is the model's reading of one SMS or notification.
type MessageGuess struct {
	IsExpense   bool    `json:"isExpense"`
	Amount      float64 `json:"amount"`
	Store       string  `json:"store"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
}

// ValidateMessageGuess checks that g is usable. Confidence must lie in
// [0, 1]; an expense also needs a positive amount, a store and a known
// category.
func ValidateMessageGuess(g *MessageGuess) error {
	if g == nil {
		return errors.New("nil guess")
	}
	if g.Confidence < 0 || g.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0, 1]", g.Confidence)
	}
	if !g.IsExpense {
		return nil
	}
	if g.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %v", g.Amount)
	}
	if strings.TrimSpace(g.Store) == "" {
		return errors.New("store is empty")
	}
	if !slices.Contains(KnownCategories, g.Category) {
		return fmt.Errorf("unknown category %q", g.Category)
	}
	return nil
}
