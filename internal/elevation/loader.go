package elevation

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrMalformedGrid is wrapped by LoadError when the document parses but the
// grid is unusable.
var ErrMalformedGrid = errors.New("malformed elevation grid")

// LoadError reports an unreachable or malformed elevation source. Callers are
// expected to substitute a fallback field.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load elevation %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// document is the on-disk JSON layout.
type document struct {
	Metadata   Metadata     `json:"metadata"`
	Elevations [][]*float64 `json:"elevations"`
}

// Loader reads an elevation grid once and caches it for the process lifetime.
// Failed loads are not cached.
type Loader struct {
	source   string
	sampling Sampling
	client   *http.Client
	log      zerolog.Logger

	mu    sync.Mutex
	field *Field
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient overrides the client used for http(s) sources.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) {
		l.client = c
	}
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(log zerolog.Logger) LoaderOption {
	return func(l *Loader) {
		l.log = log
	}
}

// NewLoader creates a loader for a local path or http(s) URL. Sources ending
// in .gz are gunzipped.
func NewLoader(source string, sampling Sampling, opts ...LoaderOption) *Loader {
	l := &Loader{
		source:   source,
		sampling: sampling,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the cached field, reading the source on first use.
func (l *Loader) Load(ctx context.Context) (*Field, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.field != nil {
		return l.field, nil
	}

	start := time.Now()
	f, err := l.read(ctx)
	if err != nil {
		return nil, &LoadError{Source: l.source, Err: err}
	}
	l.field = f

	meta := f.Metadata()
	l.log.Info().
		Str("source", l.source).
		Int("gridSize", meta.GridSize).
		Float64("minElevation", meta.MinElevation).
		Float64("maxElevation", meta.MaxElevation).
		Dur("took", time.Since(start)).
		Msg("Elevation grid loaded")
	return f, nil
}

// Cached returns the loaded field, or nil before a successful Load.
func (l *Loader) Cached() *Field {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.field
}

func (l *Loader) read(ctx context.Context) (*Field, error) {
	rc, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if strings.HasSuffix(strings.ToLower(l.source), ".gz") {
		gz, err := gzip.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	return Decode(r, l.sampling)
}

func (l *Loader) open(ctx context.Context) (io.ReadCloser, error) {
	if !strings.HasPrefix(l.source, "http://") && !strings.HasPrefix(l.source, "https://") {
		return os.Open(l.source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Decode parses an elevation document. null samples become NaN.
func Decode(r io.Reader, sampling Sampling) (*Field, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode elevation document: %w", err)
	}

	n := len(doc.Elevations)
	if n == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrMalformedGrid)
	}
	if doc.Metadata.GridSize != 0 && doc.Metadata.GridSize != n {
		return nil, fmt.Errorf("%w: gridSize %d but %d rows", ErrMalformedGrid, doc.Metadata.GridSize, n)
	}

	grid := Grid{Size: n, Samples: make([]float64, 0, n*n)}
	for i, row := range doc.Elevations {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d samples, want %d", ErrMalformedGrid, i, len(row), n)
		}
		for _, s := range row {
			if s == nil {
				grid.Samples = append(grid.Samples, nan)
				continue
			}
			grid.Samples = append(grid.Samples, *s)
		}
	}

	meta := doc.Metadata
	if meta.MinElevation == 0 && meta.MaxElevation == 0 {
		computeStats(&meta, grid)
	}
	return NewField(meta, grid, sampling), nil
}
