// Package learning remembers a human friendly description and category per
// merchant and finds them again for near-duplicate store names.
package learning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/blob"
	"github.com/dvloznov/statement-extractor/internal/domain"
)

// DefaultBlobKey is the blob key the table is persisted under.
const DefaultBlobKey = "learned_descriptions"

var (
	// ErrDuplicateStore is matched by DuplicateStoreError.
	ErrDuplicateStore = errors.New("store already exists")
	// ErrStoreNotFound is returned by edits of an unknown store.
	ErrStoreNotFound = errors.New("store not found")
	// ErrEmptyStore is returned when the store name is blank.
	ErrEmptyStore = errors.New("store name is empty")
)

// DuplicateStoreError reports an attempt to create a manual store whose
// normalized key already exists.
type DuplicateStoreError struct {
	Key string
}

func (e *DuplicateStoreError) Error() string {
	return fmt.Sprintf("store %q already exists", e.Key)
}

// Unwrap lets errors.Is match ErrDuplicateStore.
func (e *DuplicateStoreError) Unwrap() error {
	return ErrDuplicateStore
}

// LearnedDescription is one remembered merchant. The JSON names match the
// persisted blob format.
type LearnedDescription struct {
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Amount        float64   `json:"amount"`
	Count         int       `json:"count"`
	LastUsed      time.Time `json:"lastUsed"`
	OriginalStore string    `json:"originalStore"`
	IsManual      bool      `json:"isManual"`
}

// Entry is a LearnedDescription together with its normalized key.
type Entry struct {
	Key string `json:"key"`
	LearnedDescription
}

// Match is a FindSimilarStore hit.
type Match struct {
	Key        string             `json:"key"`
	Similarity float64            `json:"similarity"`
	Entry      LearnedDescription `json:"entry"`
}

// Store is the learned-description table. Reads and similarity lookups are
// in memory; every mutation rewrites the whole table to the blob store, one
// write at a time.
type Store struct {
	blobs blob.Store
	key   string
	log   zerolog.Logger
	now   func() time.Time

	mu      sync.RWMutex
	order   []string
	entries map[string]*LearnedDescription

	saveMu sync.Mutex
	// unloaded is set while the persisted table could not be read; saving
	// then would overwrite it with a partial table.
	unloaded bool
}

// NewStore creates an empty Store persisted under key in blobs. Call Load to
// read the existing table.
func NewStore(blobs blob.Store, key string, log zerolog.Logger) *Store {
	if key == "" {
		key = DefaultBlobKey
	}
	return &Store{
		blobs:   blobs,
		key:     key,
		log:     log,
		now:     time.Now,
		entries: make(map[string]*LearnedDescription),
	}
}

// Load replaces the in-memory table with the persisted one. A missing blob
// gives an empty table. A malformed blob is logged and also gives an empty
// table. A failing read starts an empty, unsaved table and returns the
// error; mutations are kept in memory until a later Load succeeds.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.blobs.Get(ctx, s.key)
	if errors.Is(err, blob.ErrNotFound) {
		s.reset(nil, nil, false)
		return nil
	}
	if err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("Cannot read learned descriptions, starting with an unsaved empty table")
		s.reset(nil, nil, true)
		return fmt.Errorf("load learned descriptions: %w", err)
	}

	order, entries, err := decodePairs(data)
	if err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("Learned descriptions blob is malformed, starting with an empty table")
		s.reset(nil, nil, false)
		return nil
	}

	s.reset(order, entries, false)
	s.log.Info().Int("stores", len(order)).Msg("Learned descriptions loaded")
	return nil
}

func (s *Store) reset(order []string, entries map[string]*LearnedDescription, unloaded bool) {
	if entries == nil {
		entries = make(map[string]*LearnedDescription)
	}
	s.saveMu.Lock()
	s.unloaded = unloaded
	s.saveMu.Unlock()

	s.mu.Lock()
	s.order = order
	s.entries = entries
	s.mu.Unlock()
}

// FindSimilarStore returns the entry for name. An exact key wins; otherwise
// the first stored key, in insertion order, scoring at least
// SimilarityThreshold is returned.
func (s *Store) FindSimilarStore(name string) (Match, bool) {
	key := NormalizeKey(name)
	if key == "" {
		return Match{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	k, score, ok := s.findLocked(key)
	if !ok {
		return Match{}, false
	}
	return Match{Key: k, Similarity: score, Entry: *s.entries[k]}, true
}

func (s *Store) findLocked(key string) (string, float64, bool) {
	if _, ok := s.entries[key]; ok {
		return key, 1, true
	}
	for _, k := range s.order {
		if score := Similarity(key, k); score >= SimilarityThreshold {
			return k, score, true
		}
	}
	return "", 0, false
}

// GetDescription returns the learned description for store and records the
// reuse. An unseen store gets a generated description and category, which
// are learned before returning. The description is returned even when
// persisting fails.
func (s *Store) GetDescription(ctx context.Context, store string, amount float64) (string, error) {
	key := NormalizeKey(store)
	if key == "" {
		return UnknownDescription, nil
	}

	s.mu.Lock()
	var description string
	if k, _, ok := s.findLocked(key); ok {
		e := s.entries[k]
		e.Count++
		e.LastUsed = s.now()
		e.Amount = amount
		description = e.Description
	} else {
		description = DefaultDescription(store, amount)
		s.insertLocked(key, &LearnedDescription{
			Description:   description,
			Category:      DefaultCategory(store),
			Amount:        amount,
			Count:         1,
			LastUsed:      s.now(),
			OriginalStore: strings.TrimSpace(store),
		})
	}
	s.mu.Unlock()

	return description, s.persist(ctx)
}

// LearnDescription records an explicit description and category for store.
// An existing entry keeps its manual flag and has its count, last use and
// amount updated; a new entry starts with count 1.
func (s *Store) LearnDescription(ctx context.Context, store, description, category string, amount float64) error {
	return s.learn(ctx, store, description, category, amount, true)
}

// Observe reinforces the entry for an automatically derived store. A store
// similar to a learned one counts as a reuse of that entry, so near-duplicate
// names converge on one key. The description and category are only filled in
// for new entries and replaced on exact, non-manual matches.
func (s *Store) Observe(ctx context.Context, store, description, category string, amount float64) error {
	return s.learn(ctx, store, description, category, amount, false)
}

func (s *Store) learn(ctx context.Context, store, description, category string, amount float64, explicit bool) error {
	key := NormalizeKey(store)
	if key == "" {
		return ErrEmptyStore
	}
	if category == "" {
		category = domain.DefaultCategory
	}

	s.mu.Lock()
	found, exact := key, true
	_, ok := s.entries[key]
	if !ok && !explicit {
		var k string
		if k, _, ok = s.findLocked(key); ok {
			found, exact = k, false
		}
	}

	if ok {
		e := s.entries[found]
		e.Count++
		e.LastUsed = s.now()
		e.Amount = amount
		if exact && (explicit || !e.IsManual) {
			if description != "" {
				e.Description = description
			}
			e.Category = category
			e.OriginalStore = strings.TrimSpace(store)
		}
	} else {
		s.insertLocked(key, &LearnedDescription{
			Description:   description,
			Category:      category,
			Amount:        amount,
			Count:         1,
			LastUsed:      s.now(),
			OriginalStore: strings.TrimSpace(store),
		})
	}
	s.mu.Unlock()

	return s.persist(ctx)
}

// UpdateDescription edits the description and category of an existing store.
// Empty arguments leave the field unchanged.
func (s *Store) UpdateDescription(ctx context.Context, store, description, category string) error {
	key := NormalizeKey(store)

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("update %q: %w", store, ErrStoreNotFound)
	}
	if description != "" {
		e.Description = description
	}
	if category != "" {
		e.Category = category
	}
	e.LastUsed = s.now()
	s.mu.Unlock()

	return s.persist(ctx)
}

// DeleteDescription removes store from the table.
func (s *Store) DeleteDescription(ctx context.Context, store string) error {
	key := NormalizeKey(store)

	s.mu.Lock()
	if _, ok := s.entries[key]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete %q: %w", store, ErrStoreNotFound)
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	return s.persist(ctx)
}

// CreateManualStore adds a user-defined store. It fails with a
// *DuplicateStoreError when the normalized name is already present.
func (s *Store) CreateManualStore(ctx context.Context, store, description, category string) error {
	key := NormalizeKey(store)
	if key == "" {
		return ErrEmptyStore
	}
	if category == "" {
		category = domain.DefaultCategory
	}

	s.mu.Lock()
	if _, ok := s.entries[key]; ok {
		s.mu.Unlock()
		return &DuplicateStoreError{Key: key}
	}
	s.insertLocked(key, &LearnedDescription{
		Description:   description,
		Category:      category,
		Count:         0,
		LastUsed:      s.now(),
		OriginalStore: strings.TrimSpace(store),
		IsManual:      true,
	})
	s.mu.Unlock()

	return s.persist(ctx)
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.order = nil
	s.entries = make(map[string]*LearnedDescription)
	s.mu.Unlock()
	return s.persist(ctx)
}

func (s *Store) insertLocked(key string, e *LearnedDescription) {
	s.entries[key] = e
	s.order = append(s.order, key)
}

// Len returns the number of stored merchants.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// All lists the entries in insertion order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, Entry{Key: k, LearnedDescription: *s.entries[k]})
	}
	return out
}

// Stats summarizes the table.
type Stats struct {
	TotalStores                 int            `json:"total_stores"`
	TotalTransactions           int            `json:"total_transactions"`
	ManualStores                int            `json:"manual_stores"`
	LearnedStores               int            `json:"learned_stores"`
	Categories                  map[string]int `json:"categories"`
	AverageTransactionsPerStore float64        `json:"average_transactions_per_store"`
}

// Stats computes usage statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{TotalStores: len(s.entries), Categories: map[string]int{}}
	for _, e := range s.entries {
		st.Categories[e.Category]++
		st.TotalTransactions += e.Count
		if e.IsManual {
			st.ManualStores++
		}
	}
	st.LearnedStores = st.TotalStores - st.ManualStores
	if st.TotalStores > 0 {
		st.AverageTransactionsPerStore = float64(st.TotalTransactions) / float64(st.TotalStores)
	}
	return st
}

var baseCategories = []string{"Food", "Transport", "Shopping", "Bills", "Entertainment", domain.DefaultCategory}

// Categories returns the base categories plus every category in use, sorted.
func (s *Store) Categories() []string {
	set := map[string]bool{}
	for _, c := range baseCategories {
		set[c] = true
	}

	s.mu.RLock()
	for _, e := range s.entries {
		if e.Category != "" {
			set[e.Category] = true
		}
	}
	s.mu.RUnlock()

	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// persist writes the current table. saveMu is taken before the snapshot so
// that writes land in mutation order.
func (s *Store) persist(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if s.unloaded {
		s.log.Warn().Str("key", s.key).Msg("Learned descriptions were not loaded, keeping changes in memory only")
		return nil
	}

	s.mu.RLock()
	data, err := encodePairs(s.order, s.entries)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode learned descriptions: %w", err)
	}

	if err := s.blobs.Put(ctx, s.key, data); err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("Failed to persist learned descriptions")
		return fmt.Errorf("save learned descriptions: %w", err)
	}
	return nil
}

// The blob is a JSON array of [key, record] pairs.
func encodePairs(order []string, entries map[string]*LearnedDescription) ([]byte, error) {
	pairs := make([][2]interface{}, 0, len(order))
	for _, k := range order {
		pairs = append(pairs, [2]interface{}{k, entries[k]})
	}
	return json.Marshal(pairs)
}

func decodePairs(data []byte) ([]string, map[string]*LearnedDescription, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}

	order := make([]string, 0, len(raw))
	entries := make(map[string]*LearnedDescription, len(raw))
	for i, item := range raw {
		var pair []json.RawMessage
		if err := json.Unmarshal(item, &pair); err != nil {
			return nil, nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if len(pair) != 2 {
			return nil, nil, fmt.Errorf("entry %d: want [key, record], got %d elements", i, len(pair))
		}

		var key string
		if err := json.Unmarshal(pair[0], &key); err != nil {
			return nil, nil, fmt.Errorf("entry %d key: %w", i, err)
		}
		var rec LearnedDescription
		if err := json.Unmarshal(pair[1], &rec); err != nil {
			return nil, nil, fmt.Errorf("entry %d record: %w", i, err)
		}

		key = NormalizeKey(key)
		if key == "" {
			return nil, nil, fmt.Errorf("entry %d: empty key", i)
		}
		if _, dup := entries[key]; !dup {
			order = append(order, key)
		}
		entries[key] = &rec
	}
	return order, entries, nil
}
