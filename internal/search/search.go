// Package search implements location autocomplete: a cached, gated geocoding
// lookup and a debounced typing session on top of it.
package search

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/i474232898/weather-widgets/internal/cache"
	"github.com/i474232898/weather-widgets/internal/common"
	"github.com/i474232898/weather-widgets/internal/weather"
)

const (
	// MinQueryLength is the shortest trimmed query that is ever dispatched.
	MinQueryLength = 2
	// MaxResults caps the suggestions surfaced to the user.
	MaxResults = 5

	DefaultStaleTime = 10 * time.Minute
	DefaultDebounce  = 300 * time.Millisecond
)

// Config tunes the search cache.
type Config struct {
	StaleTime time.Duration
	Timeout   time.Duration
	Logger    *log.Logger
	Now       func() time.Time
}

// Service answers location queries through a staleness-bounded cache.
type Service struct {
	geocoder weather.Geocoder
	query    *cache.Query[string, []weather.GeoCandidate]
	logger   *log.Logger
}

// NewService creates a search Service over g.
func NewService(g weather.Geocoder, cfg Config) *Service {
	if cfg.StaleTime <= 0 {
		cfg.StaleTime = DefaultStaleTime
	}
	if cfg.Logger == nil {
		cfg.Logger = common.DiscardLogger()
	}

	s := &Service{geocoder: g, logger: cfg.Logger}
	s.query = cache.New(cache.Config[string]{
		Name:      "locations",
		StaleTime: cfg.StaleTime,
		Timeout:   cfg.Timeout,
		Enabled:   Eligible,
		Now:       cfg.Now,
		Logger:    cfg.Logger,
	}, s.lookup)
	return s
}

// Normalize turns raw input into a cache key.
func Normalize(q string) string {
	return strings.TrimSpace(q)
}

// Eligible reports whether q is long enough to dispatch.
func Eligible(q string) bool {
	return utf8.RuneCountInString(Normalize(q)) >= MinQueryLength
}

// Shape keeps candidates with both a name and a country, in provider order,
// up to MaxResults.
func Shape(candidates []weather.GeoCandidate) []weather.GeoCandidate {
	out := make([]weather.GeoCandidate, 0, MaxResults)
	for _, c := range candidates {
		if !c.Valid() {
			continue
		}
		out = append(out, c)
		if len(out) == MaxResults {
			break
		}
	}
	return out
}

func (s *Service) lookup(ctx context.Context, key string) ([]weather.GeoCandidate, error) {
	candidates, err := s.geocoder.SearchGeocode(ctx, key)
	if err != nil {
		return nil, err
	}
	return Shape(candidates), nil
}

// Search returns shaped suggestions for raw. Ineligible queries return an
// empty list without dispatching.
func (s *Service) Search(ctx context.Context, raw string) ([]weather.GeoCandidate, error) {
	key := Normalize(raw)
	if !Eligible(key) {
		return []weather.GeoCandidate{}, nil
	}

	res, err := s.query.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []weather.GeoCandidate{}
	}
	return res, nil
}

// State reports the cache state of a query without dispatching.
func (s *Service) State(raw string) cache.Entry[[]weather.GeoCandidate] {
	return s.query.Peek(Normalize(raw))
}

// Sweep drops expired search results.
func (s *Service) Sweep() int {
	return s.query.Sweep()
}
