package merchants

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultReloadInterval is how long a loaded dictionary is considered fresh.
const DefaultReloadInterval = 5 * time.Minute

const fetchTimeout = 30 * time.Second

type snapshot struct {
	dict     *Dictionary
	loadedAt time.Time
}

// Service owns the current dictionary snapshot. Readers never block: they get
// the last good snapshot (or the built-in default) while a stale snapshot is
// refreshed in the background.
type Service struct {
	source   Source
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	current     atomic.Pointer[snapshot]
	lastAttempt atomic.Int64
	reloading   atomic.Bool
}

// NewService creates a Service. A nil source serves the default dictionary
// forever.
func NewService(source Source, interval time.Duration, log zerolog.Logger) *Service {
	if interval <= 0 {
		interval = DefaultReloadInterval
	}
	return &Service{
		source:   source,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Load performs the initial synchronous fetch. On failure the default
// dictionary stays in effect and the error is returned for the caller to log.
func (s *Service) Load(ctx context.Context) error {
	return s.Reload(ctx)
}

// Reload fetches the source now, replacing the snapshot on success.
func (s *Service) Reload(ctx context.Context) error {
	if s.source == nil {
		return nil
	}
	s.lastAttempt.Store(s.now().UnixNano())

	doc, err := s.source.Fetch(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Merchant dictionary fetch failed, keeping previous dictionary")
		return fmt.Errorf("reload merchants: %w", err)
	}

	dict, err := NewDictionary(*doc)
	if err != nil {
		s.log.Warn().Err(err).Msg("Merchant dictionary rejected, keeping previous dictionary")
		return fmt.Errorf("reload merchants: %w", err)
	}

	s.current.Store(&snapshot{dict: dict, loadedAt: s.now()})
	s.log.Info().
		Int("merchants", len(dict.merchants)).
		Int("patterns", len(dict.patterns)).
		Msg("Merchant dictionary loaded")
	return nil
}

// Current returns the latest dictionary and schedules a background reload
// when it is older than the reload interval.
func (s *Service) Current() *Dictionary {
	snap := s.current.Load()
	if s.stale() {
		s.reloadAsync()
	}
	if snap == nil {
		return Default()
	}
	return snap.dict
}

// LoadedAt reports when the current snapshot was fetched; zero means the
// default dictionary is in use.
func (s *Service) LoadedAt() time.Time {
	if snap := s.current.Load(); snap != nil {
		return snap.loadedAt
	}
	return time.Time{}
}

func (s *Service) stale() bool {
	if s.source == nil {
		return false
	}
	last := s.lastAttempt.Load()
	return last == 0 || s.now().Sub(time.Unix(0, last)) > s.interval
}

func (s *Service) reloadAsync() {
	if !s.reloading.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.reloading.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		_ = s.Reload(ctx)
	}()
}
