package extraction

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-extractor/internal/aiparser"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/learning"
	"github.com/dvloznov/statement-extractor/internal/merchants"
)

type MockAIParser struct {
	ParseStatementFunc func(ctx context.Context, text string) ([]aiparser.StatementRow, error)
	ParseMessageFunc   func(ctx context.Context, text string) (*aiparser.MessageGuess, error)
}

func (m *MockAIParser) ParseStatement(ctx context.Context, text string) ([]aiparser.StatementRow, error) {
	return m.ParseStatementFunc(ctx, text)
}

func (m *MockAIParser) ParseMessage(ctx context.Context, text string) (*aiparser.MessageGuess, error) {
	return m.ParseMessageFunc(ctx, text)
}

type MockLearned struct {
	FindSimilarStoreFunc func(name string) (learning.Match, bool)
}

func (m *MockLearned) FindSimilarStore(name string) (learning.Match, bool) {
	return m.FindSimilarStoreFunc(name)
}

type staticDictionary struct {
	dict *merchants.Dictionary
}

func (s staticDictionary) Current() *merchants.Dictionary { return s.dict }

func newTestExtractor() *Extractor {
	return New(staticDictionary{merchants.Default()}, zerolog.Nop())
}

func TestParseCSVStatement(t *testing.T) {
	text := "Date, Amount, Balance, Description\n2024/01/15,-45.00,1000.00,Starbucks Sandton, ref 123"

	res := newTestExtractor().Parse(context.Background(), text, Options{})

	require.Len(t, res.Transactions, 1)
	tx := res.Transactions[0]
	assert.Equal(t, StrategyCSV, res.Strategy)
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 15}, tx.Date)
	assert.Equal(t, 45.00, tx.Amount)
	assert.False(t, tx.IsIncome)
	require.NotNil(t, tx.Balance)
	assert.Equal(t, 1000.00, *tx.Balance)
	assert.Contains(t, tx.Description, "Starbucks Sandton, ref 123")
	assert.Equal(t, "Starbucks", tx.Store)
	assert.Equal(t, "Imported from CSV bank statement", tx.Notes)
	assert.Equal(t, domain.SourceStatement, tx.Source)
	assert.NotEmpty(t, tx.ID)
}

func TestParseStandardStatement(t *testing.T) {
	res := newTestExtractor().Parse(context.Background(), "2024/03/02  R450.00 Shell Garage Sandton", Options{})

	require.Len(t, res.Transactions, 1)
	tx := res.Transactions[0]
	assert.Equal(t, StrategyStandard, res.Strategy)
	assert.Equal(t, "2024-03-02", tx.Date.String())
	assert.Equal(t, 450.00, tx.Amount)
	assert.Equal(t, "Shell", tx.Store)
	assert.Equal(t, "Transport", tx.Category)
	assert.Equal(t, "Shell Garage Sandton", tx.Description)
	assert.Empty(t, tx.RawDescription)
}

func TestParseNoTransactions(t *testing.T) {
	var buf bytes.Buffer
	e := New(staticDictionary{merchants.Default()}, zerolog.New(&buf))

	res := e.Parse(context.Background(), "Dear customer\nThank you for banking with us\nBalance: 250.00", Options{})

	require.NotNil(t, res)
	assert.Empty(t, res.Transactions)
	assert.NotNil(t, res.Transactions)
	assert.Empty(t, res.Strategy)
	require.NotNil(t, res.AccountInfo.Balance)
	assert.Equal(t, 250.0, *res.AccountInfo.Balance)
	require.Len(t, res.Attempts, 4)
	for _, a := range res.Attempts {
		assert.Equal(t, OutcomeEmpty, a.Outcome, a.Strategy)
	}
	assert.Contains(t, buf.String(), "No parsing strategy found transactions")
}

func TestParseEmptyText(t *testing.T) {
	res := newTestExtractor().Parse(context.Background(), " \n\r\n ", Options{})
	assert.Empty(t, res.Transactions)
	assert.Empty(t, res.Attempts)
	assert.True(t, res.AccountInfo.Empty())
}

func TestParseFallsBackToTable(t *testing.T) {
	res := newTestExtractor().Parse(context.Background(), "2024/01/05  POS  1200", Options{})

	require.Len(t, res.Transactions, 1)
	assert.Equal(t, StrategyTable, res.Strategy)
	assert.Equal(t, "Imported from table format bank statement", res.Transactions[0].Notes)
	require.Len(t, res.Attempts, 3)
	assert.Equal(t, StrategyStandard, res.Attempts[0].Strategy)
	assert.Equal(t, StrategyCSV, res.Attempts[1].Strategy)
}

func TestParseAttachesAccountInfo(t *testing.T) {
	text := strings.Join([]string{
		"Capitec Bank statement",
		"Account: 1234567890 [Savings]",
		"Name: Thandi Mokoena",
		"2024/03/02  R450.00 Shell Garage Sandton",
		"2024/03/03  R99.99 Netflix subscription",
	}, "\n")

	res := newTestExtractor().Parse(context.Background(), text, Options{BankName: "Ignored Bank"})

	require.Len(t, res.Transactions, 2)
	ids := map[string]bool{}
	for _, tx := range res.Transactions {
		assert.Equal(t, "1234567890", tx.AccountNumber)
		assert.Equal(t, "Savings", tx.AccountType)
		assert.Equal(t, "Thandi Mokoena", tx.AccountName)
		assert.Equal(t, "Capitec", tx.BankName)
		ids[tx.ID] = true
	}
	assert.Len(t, ids, 2)
	assert.Equal(t, "Entertainment", res.Transactions[1].Category)
}

func TestParseUsesBankNameOption(t *testing.T) {
	res := newTestExtractor().Parse(context.Background(), "2024/03/02  R450.00 Shell Garage Sandton", Options{BankName: "Investec"})
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "Investec", res.Transactions[0].BankName)
}

func TestParseTransactionsHoldInvariants(t *testing.T) {
	text := strings.Join([]string{
		"2024/03/02  -R450.00 Shell Garage Sandton",
		"2024/03/03  +R1,500.00 Refund from Takealot",
		"1999/03/03  R10.00 Too old",
		"2024/02/30  R10.00 No such day",
	}, "\n")

	res := newTestExtractor().Parse(context.Background(), text, Options{})

	require.Len(t, res.Transactions, 2)
	for _, tx := range res.Transactions {
		assert.Greater(t, tx.Amount, 0.0)
		assert.NoError(t, tx.Validate())
	}
	assert.False(t, res.Transactions[0].IsIncome)
	assert.True(t, res.Transactions[1].IsIncome)
	assert.Equal(t, 1500.0, res.Transactions[1].Amount)
}

func TestParseReusesLearnedDescription(t *testing.T) {
	learned := &MockLearned{
		FindSimilarStoreFunc: func(name string) (learning.Match, bool) {
			switch name {
			case "Shell":
				return learning.Match{Key: "shell", Similarity: 1, Entry: learning.LearnedDescription{
					Description: "Fuel", Category: "Car", IsManual: true,
				}}, true
			case "Corner Deli":
				return learning.Match{Key: "corner deli", Similarity: 1, Entry: learning.LearnedDescription{
					Description: "Lunch", Category: "Food",
				}}, true
			case "Netflix":
				return learning.Match{Key: "netflix", Similarity: 1, Entry: learning.LearnedDescription{
					Description: "Streaming", Category: "Bills",
				}}, true
			}
			return learning.Match{}, false
		},
	}
	e := newTestExtractor().WithLearned(learned)

	text := strings.Join([]string{
		"2024/03/02  R450.00 Shell Garage Sandton",
		"2024/03/03  R85.00 Corner Deli Rosebank",
		"2024/03/04  R99.00 Netflix subscription",
	}, "\n")
	res := e.Parse(context.Background(), text, Options{})

	require.Len(t, res.Transactions, 3)

	shell := res.Transactions[0]
	assert.Equal(t, "Fuel", shell.Description)
	assert.Equal(t, "Shell Garage Sandton", shell.RawDescription)
	assert.Equal(t, "Car", shell.Category, "manual entries override the dictionary")

	deli := res.Transactions[1]
	assert.Equal(t, "Lunch", deli.Description)
	assert.Equal(t, "Food", deli.Category, "learned category fills in for Other")

	netflix := res.Transactions[2]
	assert.Equal(t, "Streaming", netflix.Description)
	assert.Equal(t, "Entertainment", netflix.Category, "automatic entries do not override the dictionary")
}

func TestParseWithAI(t *testing.T) {
	balance := 900.0
	ai := &MockAIParser{
		ParseStatementFunc: func(ctx context.Context, text string) ([]aiparser.StatementRow, error) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return []aiparser.StatementRow{
				{Date: "2024-03-02", Description: "SHELL GARAGE SANDTON", Store: "Shell", Category: "Transport", Amount: -450, Balance: &balance},
				{Date: "2024-03-05", Description: "ACME PAYROLL", Amount: 25000},
				{Date: "not a date", Description: "skipped", Amount: 10},
				{Date: "2024-03-06", Description: "zero", Amount: 0},
			}, nil
		},
	}
	e := newTestExtractor().WithAI(ai, time.Second)

	res := e.Parse(context.Background(), "anything the model can read 2024/03/02 R450.00 Shell", Options{UseAI: true})

	assert.Equal(t, StrategyAI, res.Strategy)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, 450.0, res.Transactions[0].Amount)
	assert.False(t, res.Transactions[0].IsIncome)
	assert.Equal(t, "Shell", res.Transactions[0].Store)
	assert.Equal(t, &balance, res.Transactions[0].Balance)
	assert.True(t, res.Transactions[1].IsIncome)
	assert.Equal(t, "ACME PAYROLL", res.Transactions[1].Store)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, 2, res.Attempts[0].Count)
}

func TestParseAIFailureFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		parse func(ctx context.Context, text string) ([]aiparser.StatementRow, error)
		want  Outcome
	}{
		{
			name: "error",
			parse: func(ctx context.Context, text string) ([]aiparser.StatementRow, error) {
				return nil, errors.New("quota exceeded")
			},
			want: OutcomeFailure,
		},
		{
			name: "timeout",
			parse: func(ctx context.Context, text string) ([]aiparser.StatementRow, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			want: OutcomeFailure,
		},
		{
			name: "no usable rows",
			parse: func(ctx context.Context, text string) ([]aiparser.StatementRow, error) {
				return []aiparser.StatementRow{{Date: "2031-01-01", Description: "x", Amount: 5}}, nil
			},
			want: OutcomeEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor().WithAI(&MockAIParser{ParseStatementFunc: tt.parse}, 20*time.Millisecond)

			res := e.Parse(context.Background(), "2024/03/02  R450.00 Shell Garage Sandton", Options{UseAI: true})

			assert.Equal(t, StrategyStandard, res.Strategy)
			require.Len(t, res.Transactions, 1)
			require.GreaterOrEqual(t, len(res.Attempts), 2)
			assert.Equal(t, StrategyAI, res.Attempts[0].Strategy)
			assert.Equal(t, tt.want, res.Attempts[0].Outcome)
		})
	}
}

func TestParseIgnoresAIUnlessRequested(t *testing.T) {
	ai := &MockAIParser{
		ParseStatementFunc: func(ctx context.Context, text string) ([]aiparser.StatementRow, error) {
			t.Fatal("AI parser must not be called")
			return nil, nil
		},
	}
	res := newTestExtractor().WithAI(ai, time.Second).Parse(context.Background(), "2024/03/02  R450.00 Shell Garage Sandton", Options{})
	assert.Len(t, res.Transactions, 1)
}

func TestNilDictionaryUsesDefault(t *testing.T) {
	res := New(nil, zerolog.Nop()).Parse(context.Background(), "2024/03/02  R450.00 Shell Garage Sandton", Options{})
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "Transport", res.Transactions[0].Category)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, SplitLines(" a \r\n\n  b c\n"))
	assert.Empty(t, SplitLines(""))
}

func TestEnhancer(t *testing.T) {
	n := 0
	e := &Enhancer{newID: func() string { n++; return "id-" + string(rune('0'+n)) }}
	balance := 10.0
	info := domain.AccountInfo{AccountNumber: "123", AccountName: "Me", AccountType: "Cheque"}

	tx := e.Enhance(Resolved{
		Record: Record{
			Date:        civil.Date{Year: 2024, Month: 5, Day: 1},
			Amount:      12.3456,
			Description: "  Spar   Menlyn ",
			Balance:     &balance,
			Notes:       notesStatement,
		},
		Store:          "Spar",
		Category:       "Shopping",
		RawDescription: "Spar Menlyn",
	}, StrategyStandard, info, "FNB")

	assert.Equal(t, "id-1", tx.ID)
	assert.Equal(t, 12.35, tx.Amount)
	assert.Equal(t, "Spar Menlyn", tx.Description)
	assert.Empty(t, tx.RawDescription)
	assert.Equal(t, "FNB", tx.BankName)
	assert.Equal(t, "123", tx.AccountNumber)
	assert.Equal(t, StrategyStandard, tx.Strategy)
	assert.Equal(t, &balance, tx.Balance)
}
