package messages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/blob"
	"github.com/dvloznov/statement-extractor/internal/domain"
)

// DefaultFailedKey is the blob key of the failed-message list.
const DefaultFailedKey = "failed_parsing_attempts"

// ErrFailedNotFound is returned for an unknown failed attempt id.
var ErrFailedNotFound = errors.New("failed attempt not found")

// FailedAttempt is a message that could not be parsed, kept for manual entry.
type FailedAttempt struct {
	ID           string        `json:"id"`
	OriginalText string        `json:"originalText"`
	Source       domain.Source `json:"source"`
	Timestamp    time.Time     `json:"timestamp"`
	Processed    bool          `json:"processed"`
	CreatedAt    time.Time     `json:"createdAt"`
	ProcessedAt  *time.Time    `json:"processedAt,omitempty"`
}

// FailedStats summarizes the failed list.
type FailedStats struct {
	Total       int                   `json:"total"`
	Unprocessed int                   `json:"unprocessed"`
	Processed   int                   `json:"processed"`
	BySource    map[domain.Source]int `json:"by_source"`
}

// FailedStore keeps failed attempts newest first and persists the whole list
// on every change.
type FailedStore struct {
	blobs blob.Store
	key   string
	log   zerolog.Logger
	now   func() time.Time

	mu       sync.RWMutex
	attempts []FailedAttempt

	saveMu sync.Mutex
}

// NewFailedStore creates an empty store persisted under key.
func NewFailedStore(blobs blob.Store, key string, log zerolog.Logger) *FailedStore {
	if key == "" {
		key = DefaultFailedKey
	}
	return &FailedStore{blobs: blobs, key: key, log: log, now: time.Now}
}

// Load reads the persisted list. A missing or malformed blob gives an empty
// list.
func (s *FailedStore) Load(ctx context.Context) error {
	data, err := s.blobs.Get(ctx, s.key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load failed attempts: %w", err)
	}

	var attempts []FailedAttempt
	if err := json.Unmarshal(data, &attempts); err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("Failed attempts blob is malformed, starting empty")
		attempts = nil
	}

	s.mu.Lock()
	s.attempts = attempts
	s.mu.Unlock()
	return nil
}

// Add records text as a failed attempt. A zero timestamp means now.
func (s *FailedStore) Add(ctx context.Context, text string, source domain.Source, timestamp time.Time) (FailedAttempt, error) {
	now := s.now()
	if timestamp.IsZero() {
		timestamp = now
	}
	a := FailedAttempt{
		ID:           uuid.NewString(),
		OriginalText: text,
		Source:       source,
		Timestamp:    timestamp,
		CreatedAt:    now,
	}

	s.mu.Lock()
	s.attempts = append([]FailedAttempt{a}, s.attempts...)
	s.mu.Unlock()

	return a, s.persist(ctx)
}

// Get returns the attempt with id.
func (s *FailedStore) Get(id string) (FailedAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.attempts {
		if a.ID == id {
			return a, nil
		}
	}
	return FailedAttempt{}, fmt.Errorf("%s: %w", id, ErrFailedNotFound)
}

// Unprocessed lists attempts still waiting for manual entry, newest first.
// An empty source matches every source.
func (s *FailedStore) Unprocessed(source domain.Source) []FailedAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []FailedAttempt{}
	for _, a := range s.attempts {
		if !a.Processed && (source == "" || a.Source == source) {
			out = append(out, a)
		}
	}
	return out
}

// MarkProcessed flags the attempt as handled.
func (s *FailedStore) MarkProcessed(ctx context.Context, id string) error {
	now := s.now()

	s.mu.Lock()
	found := false
	for i := range s.attempts {
		if s.attempts[i].ID == id {
			s.attempts[i].Processed = true
			s.attempts[i].ProcessedAt = &now
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return fmt.Errorf("%s: %w", id, ErrFailedNotFound)
	}
	return s.persist(ctx)
}

// Cleanup drops processed attempts created before now minus maxAge and
// returns how many were removed.
func (s *FailedStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	kept := s.attempts[:0:0]
	for _, a := range s.attempts {
		if !a.Processed || a.CreatedAt.After(cutoff) {
			kept = append(kept, a)
		}
	}
	removed := len(s.attempts) - len(kept)
	s.attempts = kept
	s.mu.Unlock()

	if removed == 0 {
		return 0, nil
	}
	return removed, s.persist(ctx)
}

// Stats counts attempts by state and source.
func (s *FailedStore) Stats() FailedStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := FailedStats{Total: len(s.attempts), BySource: map[domain.Source]int{}}
	for _, a := range s.attempts {
		if a.Processed {
			st.Processed++
		} else {
			st.Unprocessed++
		}
		st.BySource[a.Source]++
	}
	return st
}

func (s *FailedStore) persist(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	attempts := s.attempts
	if attempts == nil {
		attempts = []FailedAttempt{}
	}
	data, err := json.Marshal(attempts)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode failed attempts: %w", err)
	}

	if err := s.blobs.Put(ctx, s.key, data); err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("Failed to persist failed attempts")
		return fmt.Errorf("save failed attempts: %w", err)
	}
	return nil
}
