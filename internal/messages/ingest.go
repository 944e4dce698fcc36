package messages

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/aiparser"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/learning"
	"github.com/dvloznov/statement-extractor/internal/merchants"
	"github.com/dvloznov/statement-extractor/internal/normalize"
)

// MinAIConfidence is the confidence an AI guess must exceed to be used.
const MinAIConfidence = 0.7

const defaultAITimeout = 10 * time.Second

// ErrUnparsed is returned when neither the AI parser nor the alert shapes
// understood a message. The message is kept in the FailedStore.
var ErrUnparsed = errors.New("message not recognized as a transaction")

// ErrInvalidAmount is returned for a manual entry without a positive amount.
var ErrInvalidAmount = errors.New("amount must be positive")

// UnparsedError carries the id of the failed attempt a message was stored as.
type UnparsedError struct {
	AttemptID string
}

func (e *UnparsedError) Error() string {
	return fmt.Sprintf("attempt %s: %v", e.AttemptID, ErrUnparsed)
}

// Unwrap lets errors.Is match ErrUnparsed.
func (e *UnparsedError) Unwrap() error {
	return ErrUnparsed
}

// DictionarySource supplies the current merchant dictionary.
type DictionarySource interface {
	Current() *merchants.Dictionary
}

// TransactionSink receives every transaction the ingestor produces.
type TransactionSink interface {
	InsertTransactions(ctx context.Context, txs []domain.Transaction) error
}

// Message is one captured SMS or notification.
type Message struct {
	Text       string        `json:"text"`
	Source     domain.Source `json:"source"`
	ReceivedAt time.Time     `json:"received_at"`
}

// ManualEntry is a transaction typed in by the user, usually for a message
// that could not be parsed.
type ManualEntry struct {
	Store       string        `json:"store"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Amount      float64       `json:"amount"`
	IsIncome    bool          `json:"is_income"`
	Date        civil.Date    `json:"date"`
	Notes       string        `json:"notes"`
	Source      domain.Source `json:"source"`
}

// Ingestor runs the message feedback loop.
type Ingestor struct {
	learned   *learning.Store
	dict      DictionarySource
	failed    *FailedStore
	ai        aiparser.Parser
	aiTimeout time.Duration
	sink      TransactionSink
	log       zerolog.Logger
	now       func() time.Time
}

// NewIngestor wires an Ingestor. dict may be nil to use the built-in
// dictionary.
func NewIngestor(learned *learning.Store, dict DictionarySource, failed *FailedStore, log zerolog.Logger) *Ingestor {
	return &Ingestor{
		learned:   learned,
		dict:      dict,
		failed:    failed,
		aiTimeout: defaultAITimeout,
		log:       log,
		now:       time.Now,
	}
}

// WithAI enables AI parsing of messages.
func (in *Ingestor) WithAI(p aiparser.Parser, timeout time.Duration) *Ingestor {
	in.ai = p
	if timeout > 0 {
		in.aiTimeout = timeout
	}
	return in
}

// WithSink sends produced transactions to sink.
func (in *Ingestor) WithSink(sink TransactionSink) *Ingestor {
	in.sink = sink
	return in
}

type reading struct {
	amount   float64
	store    string
	isIncome bool
	method   string
}

// Process parses msg into a transaction. Unrecognized messages are stored
// as failed attempts and ErrUnparsed is returned.
func (in *Ingestor) Process(ctx context.Context, msg Message) (*domain.Transaction, error) {
	text := strings.TrimSpace(msg.Text)
	if msg.Source == "" {
		msg.Source = domain.SourceNotification
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = in.now()
	}

	r, ok := in.guessWithAI(ctx, text)
	if !ok {
		p, found := Parse(text)
		if !found {
			return nil, in.recordFailure(ctx, msg)
		}
		r = reading{amount: p.Amount, store: p.Store, isIncome: p.IsIncome, method: "regex"}
	}

	description, err := in.learned.GetDescription(ctx, r.store, r.amount)
	if err != nil {
		in.log.Warn().Err(err).Str("store", r.store).Msg("Learned description not persisted")
	}

	tx := domain.Transaction{
		ID:             uuid.NewString(),
		Date:           civil.DateOf(msg.ReceivedAt),
		Amount:         normalize.Round2(r.amount),
		IsIncome:       r.isIncome,
		Description:    description,
		RawDescription: text,
		Store:          r.store,
		Category:       in.category(r.store),
		Notes:          fmt.Sprintf("Auto-detected from %s (%s): %q", msg.Source, r.method, truncate(text, 100)),
		Source:         msg.Source,
	}
	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("message transaction: %w", err)
	}

	if err := in.emit(ctx, tx); err != nil {
		return &tx, err
	}
	in.log.Info().
		Str("store", tx.Store).
		Float64("amount", tx.Amount).
		Str("method", r.method).
		Str("source", string(msg.Source)).
		Msg("Message ingested")
	return &tx, nil
}

func (in *Ingestor) guessWithAI(ctx context.Context, text string) (reading, bool) {
	if in.ai == nil {
		return reading{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, in.aiTimeout)
	defer cancel()

	g, err := in.ai.ParseMessage(ctx, text)
	if err != nil {
		in.log.Warn().Err(err).Msg("AI message parsing failed, using alert shapes")
		return reading{}, false
	}
	if err := aiparser.ValidateMessageGuess(g); err != nil {
		in.log.Warn().Err(err).Msg("AI message guess rejected")
		return reading{}, false
	}
	if !g.IsExpense || g.Confidence <= MinAIConfidence {
		return reading{}, false
	}
	return reading{
		amount: g.Amount,
		store:  normalize.CollapseSpaces(g.Store),
		method: fmt.Sprintf("AI confidence: %d%%", int(math.Round(g.Confidence*100))),
	}, true
}

func (in *Ingestor) recordFailure(ctx context.Context, msg Message) error {
	a, err := in.failed.Add(ctx, msg.Text, msg.Source, msg.ReceivedAt)
	if err != nil {
		in.log.Warn().Err(err).Msg("Failed attempt not persisted")
	}
	in.log.Info().Str("id", a.ID).Str("source", string(msg.Source)).Msg("Message not recognized, stored for manual entry")
	return &UnparsedError{AttemptID: a.ID}
}

// category prefers the learned category and falls back to the dictionary
// when nothing better than the default was learned.
func (in *Ingestor) category(store string) string {
	if m, ok := in.learned.FindSimilarStore(store); ok && m.Entry.Category != "" && m.Entry.Category != domain.DefaultCategory {
		return m.Entry.Category
	}
	return in.dictionary().Categorize(store)
}

func (in *Ingestor) dictionary() *merchants.Dictionary {
	if in.dict != nil {
		if d := in.dict.Current(); d != nil {
			return d
		}
	}
	return merchants.Default()
}

func (in *Ingestor) emit(ctx context.Context, tx domain.Transaction) error {
	if in.sink == nil {
		return nil
	}
	if err := in.sink.InsertTransactions(ctx, []domain.Transaction{tx}); err != nil {
		return fmt.Errorf("store transaction: %w", err)
	}
	return nil
}

// RecordManual builds a transaction from a manual entry and teaches the
// learned store its description and category.
func (in *Ingestor) RecordManual(ctx context.Context, e ManualEntry) (*domain.Transaction, error) {
	store := normalize.CollapseSpaces(e.Store)
	if store == "" {
		return nil, learning.ErrEmptyStore
	}
	if e.Amount <= 0 {
		return nil, fmt.Errorf("%w, got %v", ErrInvalidAmount, e.Amount)
	}
	if e.Source == "" {
		e.Source = domain.SourceManual
	}
	if e.Date == (civil.Date{}) {
		e.Date = civil.DateOf(in.now())
	}

	category := strings.TrimSpace(e.Category)
	if category == "" {
		category = in.category(store)
	}
	description := strings.TrimSpace(e.Description)
	if description == "" {
		d, err := in.learned.GetDescription(ctx, store, e.Amount)
		if err != nil {
			in.log.Warn().Err(err).Str("store", store).Msg("Learned description not persisted")
		}
		description = d
	}
	if err := in.learned.LearnDescription(ctx, store, description, category, e.Amount); err != nil {
		in.log.Warn().Err(err).Str("store", store).Msg("Manual entry not learned")
	}

	tx := domain.Transaction{
		ID:          uuid.NewString(),
		Date:        e.Date,
		Amount:      normalize.Round2(e.Amount),
		IsIncome:    e.IsIncome,
		Description: description,
		Store:       store,
		Category:    category,
		Notes:       e.Notes,
		Source:      e.Source,
	}
	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("manual transaction: %w", err)
	}
	if err := in.emit(ctx, tx); err != nil {
		return &tx, err
	}
	return &tx, nil
}

// ResolveFailed records a manual entry for a failed attempt and marks the
// attempt processed.
func (in *Ingestor) ResolveFailed(ctx context.Context, id string, e ManualEntry) (*domain.Transaction, error) {
	a, err := in.failed.Get(id)
	if err != nil {
		return nil, err
	}
	if e.Source == "" {
		e.Source = a.Source
	}
	if e.Date == (civil.Date{}) {
		e.Date = civil.DateOf(a.Timestamp)
	}
	if e.Notes == "" {
		e.Notes = fmt.Sprintf("Manually entered from %s: %q", a.Source, truncate(a.OriginalText, 100))
	}

	tx, err := in.RecordManual(ctx, e)
	if err != nil {
		return tx, err
	}
	if err := in.failed.MarkProcessed(ctx, id); err != nil {
		return tx, err
	}
	return tx, nil
}

// Failed exposes the failed-attempt store.
func (in *Ingestor) Failed() *FailedStore {
	return in.failed
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
