// Package extraction turns raw statement text into normalized transactions.
// It tries an ordered list of parsing strategies, resolves a merchant and a
// category per row, and attaches the account details found in the header.
package extraction

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/aiparser"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/learning"
	"github.com/dvloznov/statement-extractor/internal/merchants"
	"github.com/dvloznov/statement-extractor/internal/normalize"
)

// DefaultAITimeout bounds one AI parsing call.
const DefaultAITimeout = 10 * time.Second

// DictionarySource supplies the current merchant dictionary.
type DictionarySource interface {
	Current() *merchants.Dictionary
}

// LearnedLookup finds previously learned descriptions. Extraction only reads
// from it.
type LearnedLookup interface {
	FindSimilarStore(name string) (learning.Match, bool)
}

// Options controls one Parse call.
type Options struct {
	// BankName is used when the text does not name a bank.
	BankName string
	// UseAI asks the configured AI parser first.
	UseAI bool
}

// ParseResult is the output of one Parse call. An empty Transactions slice
// is a valid outcome, not an error.
type ParseResult struct {
	AccountInfo  domain.AccountInfo   `json:"account_info"`
	Transactions []domain.Transaction `json:"transactions"`
	Strategy     string               `json:"strategy,omitempty"`
	Attempts     []Result             `json:"attempts"`
	Skipped      int                  `json:"skipped,omitempty"`
}

// Extractor is the statement extraction engine.
type Extractor struct {
	dict      DictionarySource
	learned   LearnedLookup
	ai        aiparser.Parser
	aiTimeout time.Duration
	enhancer  *Enhancer
	log       zerolog.Logger
}

// New creates an Extractor backed by dict.
func New(dict DictionarySource, log zerolog.Logger) *Extractor {
	return &Extractor{
		dict:      dict,
		aiTimeout: DefaultAITimeout,
		enhancer:  NewEnhancer(),
		log:       log,
	}
}

// WithLearned lets the extractor reuse learned descriptions and categories.
func (e *Extractor) WithLearned(l LearnedLookup) *Extractor {
	e.learned = l
	return e
}

// WithAI enables the AI parser for calls that set Options.UseAI.
func (e *Extractor) WithAI(p aiparser.Parser, timeout time.Duration) *Extractor {
	e.ai = p
	if timeout > 0 {
		e.aiTimeout = timeout
	}
	return e
}

// SplitLines splits text into trimmed, non-empty lines.
func SplitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Parse extracts the account details and transactions from text. It never
// fails: when no strategy finds a row the result has no transactions.
func (e *Extractor) Parse(ctx context.Context, text string, opts Options) *ParseResult {
	lines := SplitLines(text)
	res := &ParseResult{
		AccountInfo:  ExtractAccountInfo(lines),
		Transactions: []domain.Transaction{},
	}
	if len(lines) == 0 {
		return res
	}

	dict := e.dictionary()

	if opts.UseAI && e.ai != nil {
		records, attempt := e.parseWithAI(ctx, text, dict)
		res.Attempts = append(res.Attempts, attempt)
		if attempt.Outcome == OutcomeSuccess {
			e.finish(res, records, StrategyAI, opts)
			return res
		}
	}

	winner, attempts := RunChain(DefaultStrategies(lines), lines)
	res.Attempts = append(res.Attempts, attempts...)
	for _, a := range attempts {
		if a.Outcome == OutcomeFailure {
			e.log.Warn().Str("strategy", a.Strategy).Str("reason", a.Reason).Msg("Parsing strategy failed")
		}
	}
	if winner.Outcome != OutcomeSuccess {
		e.log.Info().Int("lines", len(lines)).Msg("No parsing strategy found transactions")
		return res
	}

	resolved := make([]Resolved, 0, len(winner.Records))
	for _, r := range winner.Records {
		resolved = append(resolved, e.resolve(r, "", "", dict))
	}
	e.finish(res, resolved, winner.Strategy, opts)
	return res
}

func (e *Extractor) finish(res *ParseResult, records []Resolved, strategy string, opts Options) {
	res.Strategy = strategy
	for _, r := range records {
		tx := e.enhancer.Enhance(r, strategy, res.AccountInfo, opts.BankName)
		if err := tx.Validate(); err != nil {
			res.Skipped++
			e.log.Debug().Err(err).Str("line", r.Line).Msg("Dropping invalid transaction")
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	e.log.Info().
		Str("strategy", strategy).
		Int("transactions", len(res.Transactions)).
		Int("skipped", res.Skipped).
		Msg("Statement parsed")
}

func (e *Extractor) dictionary() *merchants.Dictionary {
	if e.dict != nil {
		if d := e.dict.Current(); d != nil {
			return d
		}
	}
	return merchants.Default()
}

// resolve picks the store and category for r. A store or category already
// supplied (by the AI parser) is kept. A learned entry replaces the
// description, and its category wins when it was set by hand or when the
// dictionary has no opinion.
func (e *Extractor) resolve(r Record, store, category string, dict *merchants.Dictionary) Resolved {
	out := Resolved{Record: r, Store: store, Category: category, RawDescription: r.Description}
	if out.Store == "" {
		out.Store = dict.ResolveStore(r.Description)
	}
	if out.Category == "" {
		out.Category = dict.Categorize(r.Description)
	}

	if e.learned == nil || out.Store == merchants.UnknownStore {
		return out
	}
	m, ok := e.learned.FindSimilarStore(out.Store)
	if !ok {
		return out
	}
	if m.Entry.Description != "" {
		out.Description = m.Entry.Description
	}
	if m.Entry.Category != "" && (m.Entry.IsManual || out.Category == domain.DefaultCategory) {
		out.Category = m.Entry.Category
	}
	return out
}

func (e *Extractor) parseWithAI(ctx context.Context, text string, dict *merchants.Dictionary) ([]Resolved, Result) {
	ctx, cancel := context.WithTimeout(ctx, e.aiTimeout)
	defer cancel()

	rows, err := e.ai.ParseStatement(ctx, text)
	if err != nil {
		e.log.Warn().Err(err).Dur("timeout", e.aiTimeout).Msg("AI parsing failed, falling back to strategies")
		return nil, Failure(StrategyAI, err.Error())
	}

	var out []Resolved
	for _, row := range rows {
		date, ok := normalize.ParseDate(row.Date)
		if !ok || row.Amount == 0 || strings.TrimSpace(row.Description) == "" {
			continue
		}
		magnitude, negative := normalize.Magnitude(row.Amount)
		r := Record{
			Date:        date,
			Amount:      magnitude,
			IsIncome:    !negative,
			Description: normalize.CollapseSpaces(row.Description),
			Balance:     row.Balance,
			Notes:       notesAI,
		}
		out = append(out, e.resolve(r, strings.TrimSpace(row.Store), strings.TrimSpace(row.Category), dict))
	}
	if len(out) == 0 {
		e.log.Warn().Int("rows", len(rows)).Msg("AI parser returned no usable rows, falling back to strategies")
		return nil, Empty(StrategyAI)
	}
	res := Success(StrategyAI, nil)
	res.Count = len(out)
	return out, res
}
