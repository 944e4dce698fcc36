package aiparser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(response string, err error) *GeminiParser {
	return &GeminiParser{
		generate: func(ctx context.Context, prompt string) (string, error) {
			return response, err
		},
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare array", `[{"a":1}]`, `[{"a":1}]`},
		{"fenced json", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"fenced object", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose", "Here you go:\n[1,2]\nThanks", `[1,2]`},
		{"object with nested array", `Result: {"a":[1]} done`, `{"a":[1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.raw))
		})
	}
}

func TestParseStatement(t *testing.T) {
	p := newTestParser("```json\n"+`[
		{"date":"2024-03-02","description":"SHELL GARAGE SANDTON","store":"Shell","amount":-450.0,"balance_after":1200.5,"category":"Transport"},
		{"date":"2024-03-05","description":"SALARY","store":null,"amount":25000,"balance_after":null,"category":"Salary"}
	]`+"\n```", nil)

	rows, err := p.ParseStatement(context.Background(), "statement text")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2024-03-02", rows[0].Date)
	assert.Equal(t, "Shell", rows[0].Store)
	assert.Equal(t, -450.0, rows[0].Amount)
	require.NotNil(t, rows[0].Balance)
	assert.Equal(t, 1200.5, *rows[0].Balance)

	assert.Empty(t, rows[1].Store)
	assert.Nil(t, rows[1].Balance)
}

func TestParseStatementErrors(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		wantErr  string
	}{
		{"model error", "", errors.New("quota exceeded"), "quota exceeded"},
		{"empty response", "  ", nil, "empty response"},
		{"not json", "sorry, I cannot", nil, "unmarshal"},
		{"missing amount", `[{"date":"2024-03-02","description":"x"}]`, nil, `"amount"`},
		{"wrong type", `[{"date":"2024-03-02","description":"x","amount":"12"}]`, nil, "want number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestParser(tt.response, tt.err).ParseStatement(context.Background(), "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseMessage(t *testing.T) {
	p := newTestParser(`{"isExpense":true,"amount":85.5,"store":"Vida e Caffe","description":"Coffee","category":"Food","confidence":0.92}`, nil)

	g, err := p.ParseMessage(context.Background(), "You spent R85.50 at Vida e Caffe")
	require.NoError(t, err)
	assert.Equal(t, &MessageGuess{
		IsExpense:   true,
		Amount:      85.5,
		Store:       "Vida e Caffe",
		Description: "Coffee",
		Category:    "Food",
		Confidence:  0.92,
	}, g)
}

func TestParseMessageNotExpense(t *testing.T) {
	p := newTestParser(`{"isExpense":false,"amount":null,"store":null,"description":null,"category":null,"confidence":0.1}`, nil)

	g, err := p.ParseMessage(context.Background(), "Your OTP is 1234")
	require.NoError(t, err)
	assert.False(t, g.IsExpense)
}

func TestParseMessageRejectsInvalidGuess(t *testing.T) {
	p := newTestParser(`{"isExpense":true,"amount":85,"store":"Shop","description":"x","category":"Groceries","confidence":0.9}`, nil)

	_, err := p.ParseMessage(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}

func TestValidateMessageGuess(t *testing.T) {
	valid := MessageGuess{IsExpense: true, Amount: 10, Store: "Spar", Category: "Food", Confidence: 0.8}

	tests := []struct {
		name    string
		mutate  func(g *MessageGuess)
		wantErr bool
	}{
		{"valid", func(g *MessageGuess) {}, false},
		{"zero amount", func(g *MessageGuess) { g.Amount = 0 }, true},
		{"blank store", func(g *MessageGuess) { g.Store = " " }, true},
		{"unknown category", func(g *MessageGuess) { g.Category = "Misc" }, true},
		{"confidence above one", func(g *MessageGuess) { g.Confidence = 1.2 }, true},
		{"negative confidence", func(g *MessageGuess) { g.Confidence = -0.1 }, true},
		{"not an expense needs no store", func(g *MessageGuess) { g.IsExpense = false; g.Store = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := valid
			tt.mutate(&g)
			err := ValidateMessageGuess(&g)
			assert.Equal(t, tt.wantErr, err != nil, err)
		})
	}
	assert.Error(t, ValidateMessageGuess(nil))
}

func TestPromptsIncludeInput(t *testing.T) {
	assert.True(t, strings.HasSuffix(buildStatementPrompt("LINE ONE"), "LINE ONE"))
	assert.Contains(t, buildMessagePrompt(`You spent R5 at "Kiosk"`), `\"Kiosk\"`)
}
