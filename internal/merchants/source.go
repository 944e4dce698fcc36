package merchants

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/statement-extractor/internal/blob"
)

// Source fetches the current merchant dictionary document.
type Source interface {
	Fetch(ctx context.Context) (*Document, error)
}

// HTTPSource reads the dictionary from the configuration service, which
// serves merchants and patterns from two endpoints.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates an HTTPSource for baseURL (e.g. http://localhost:3001).
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch implements Source. Both endpoints must answer.
func (s *HTTPSource) Fetch(ctx context.Context) (*Document, error) {
	var merchantsPart, patternsPart Document
	if err := s.get(ctx, "/api/merchants", &merchantsPart); err != nil {
		return nil, err
	}
	if err := s.get(ctx, "/api/categorization-patterns", &patternsPart); err != nil {
		return nil, err
	}
	return &Document{
		Merchants: merchantsPart.Merchants,
		Patterns:  patternsPart.Patterns,
	}, nil
}

func (s *HTTPSource) get(ctx context.Context, path string, out *Document) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("merchant source: build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("merchant source: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("merchant source: GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("merchant source: decode %s: %w", path, err)
	}
	return nil
}

// BlobSource reads one combined dictionary document from a blob store.
type BlobSource struct {
	store blob.Store
	key   string
}

// NewBlobSource creates a BlobSource reading key from store.
func NewBlobSource(store blob.Store, key string) *BlobSource {
	return &BlobSource{store: store, key: key}
}

// Fetch implements Source.
func (s *BlobSource) Fetch(ctx context.Context) (*Document, error) {
	data, err := s.store.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("merchant source: read %s: %w", s.key, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("merchant source: decode %s: %w", s.key, err)
	}
	return &doc, nil
}
