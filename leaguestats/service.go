// Package leaguestats looks up the league's season-average O-Contact% and Z-Contact%, the
// contact rates the plate discipline estimate is solved with.
package leaguestats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const (
	// League averages used when no source answers
	DefaultOContact = 0.63
	DefaultZContact = 0.85

	defaultCacheTTL = 24 * time.Hour

	defaultTimeout = 10 * time.Second

	cleanupInterval = 15 * time.Minute
)

// Source formats
const (
	FormatJSON = "json"
	FormatHTML = "html"
)

var (
	// ErrInvalidRates is returned when a source reports rates outside (0,1)
	ErrInvalidRates = errors.New("invalid contact rates")
	// ErrNoRates is returned when a leaderboard has no usable row for the season
	ErrNoRates = errors.New("no contact rates for season")
	// ErrNotConfigured is returned by ValidateSource when no source URL is set
	ErrNotConfigured = errors.New("league stats source not configured")
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leaguestats_cache_lookups_total",
	Help: "League contact rate lookups by result",
}, []string{"result"})

// Rates are one season's league contact rates, as fractions
type Rates struct {
	Season   int     `json:"season" yaml:"season"`
	OContact float64 `json:"o_contact" yaml:"o_contact"`
	ZContact float64 `json:"z_contact" yaml:"z_contact"`
	Source   string  `json:"source,omitempty" yaml:"-"`
}

// Validate checks both rates lie strictly between 0 and 1
func (r Rates) Validate() error {
	if r.OContact <= 0 || r.OContact >= 1 || r.ZContact <= 0 || r.ZContact >= 1 {
		return fmt.Errorf("%w: season %d o-contact %.3f z-contact %.3f", ErrInvalidRates, r.Season, r.OContact, r.ZContact)
	}
	return nil
}

// Config configures where rates come from
type Config struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Format   string        `yaml:"format"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// Static rates win over any remote source
	Static []Rates `yaml:"static"`
}

// Service handles contact rate lookup and caching
type Service struct {
	cfg        Config
	static     map[int]Rates
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	cache      *ratesCache
}

// ratesCache stores fetched rates with expiration
type ratesCache struct {
	data   map[int]*cachedRates
	hits   int
	misses int
	mu     sync.RWMutex
}

type cachedRates struct {
	rates     Rates
	expiresAt time.Time
}

// NewService creates a new league stats service
func NewService(cfg Config) *Service {
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	static := make(map[int]Rates, len(cfg.Static))
	for _, r := range cfg.Static {
		r.Source = "static"
		static[r.Season] = r
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "leaguestats",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("League stats circuit changed state")
		},
	})

	return &Service{
		cfg:        cfg,
		static:     static,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		cache: &ratesCache{
			data: make(map[int]*cachedRates),
		},
	}
}

// GetContactRates returns the season's contact rates. Static rates are used first, then the
// cache, then the remote source. When none of them answers the league defaults are returned.
func (s *Service) GetContactRates(ctx context.Context, season int) (Rates, error) {
	if r, ok := s.static[season]; ok {
		return r, nil
	}

	if cached, ok := s.getCachedRates(season); ok {
		log.Debug().Int("season", season).Msg("Using cached contact rates")
		return cached, nil
	}

	if s.cfg.BaseURL == "" {
		log.Warn().Int("season", season).Msg("No league stats source configured, using default contact rates")
		return defaultRates(season), nil
	}

	rates, err := s.fetchRates(ctx, season)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Rates{}, ctxErr
		}
		log.Warn().Err(err).Int("season", season).Msg("Failed to fetch contact rates, using defaults")
		return defaultRates(season), nil
	}

	s.cacheRates(season, rates)
	return rates, nil
}

func defaultRates(season int) Rates {
	return Rates{Season: season, OContact: DefaultOContact, ZContact: DefaultZContact, Source: "default"}
}

// fetchRates calls the remote source through the circuit breaker
func (s *Service) fetchRates(ctx context.Context, season int) (Rates, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.requestRates(ctx, season)
	})
	if err != nil {
		return Rates{}, err
	}
	return result.(Rates), nil
}

func (s *Service) requestRates(ctx context.Context, season int) (Rates, error) {
	apiURL, err := s.seasonURL(season)
	if err != nil {
		return Rates{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return Rates{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Rates{}, fmt.Errorf("league stats request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Rates{}, fmt.Errorf("league stats returned status %d: %s", resp.StatusCode, string(body))
	}

	var rates Rates
	switch s.cfg.Format {
	case FormatHTML:
		rates, err = parseLeaderboard(resp.Body, season)
	default:
		rates, err = parseJSON(resp.Body, season)
	}
	if err != nil {
		return Rates{}, err
	}

	rates.Season = season
	rates.Source = s.cfg.BaseURL
	if err := rates.Validate(); err != nil {
		return Rates{}, err
	}
	return rates, nil
}

func (s *Service) seasonURL(season int) (string, error) {
	u, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid league stats URL: %w", err)
	}
	q := u.Query()
	q.Set("season", strconv.Itoa(season))
	if s.cfg.APIKey != "" {
		q.Set("api_key", s.cfg.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// jsonRates accepts either fractions or percentages
type jsonRates struct {
	Season   int     `json:"season"`
	OContact float64 `json:"o_contact"`
	ZContact float64 `json:"z_contact"`
}

func parseJSON(r io.Reader, season int) (Rates, error) {
	var body jsonRates
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return Rates{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if body.Season != 0 && body.Season != season {
		return Rates{}, fmt.Errorf("%w: source answered for season %d", ErrNoRates, body.Season)
	}
	return Rates{OContact: fraction(body.OContact), ZContact: fraction(body.ZContact)}, nil
}

// parseLeaderboard reads the first HTML table with O-Contact% and Z-Contact% columns. A row
// whose Season column matches is preferred; a table without a Season column uses its first row.
func parseLeaderboard(r io.Reader, season int) (Rates, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Rates{}, fmt.Errorf("failed to parse leaderboard: %w", err)
	}

	var (
		rates Rates
		found bool
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		cols := make(map[string]int)
		table.Find("tr").First().Find("th,td").Each(func(i int, cell *goquery.Selection) {
			cols[strings.ToLower(strings.TrimSpace(cell.Text()))] = i
		})

		oCol, okO := cols["o-contact%"]
		zCol, okZ := cols["z-contact%"]
		if !okO || !okZ {
			return true
		}
		seasonCol, hasSeason := cols["season"]

		table.Find("tr").Slice(1, goquery.ToEnd).EachWithBreak(func(_ int, row *goquery.Selection) bool {
			cells := row.Find("td")
			if cells.Length() == 0 {
				return true
			}
			if hasSeason && cellText(cells, seasonCol) != strconv.Itoa(season) {
				return true
			}

			o, errO := parsePercent(cellText(cells, oCol))
			z, errZ := parsePercent(cellText(cells, zCol))
			if errO != nil || errZ != nil {
				return true
			}
			rates = Rates{OContact: o, ZContact: z}
			found = true
			return false
		})
		return !found
	})

	if !found {
		return Rates{}, fmt.Errorf("%w: %d", ErrNoRates, season)
	}
	return rates, nil
}

func cellText(cells *goquery.Selection, idx int) string {
	if idx < 0 || idx >= cells.Length() {
		return ""
	}
	return strings.TrimSpace(cells.Eq(idx).Text())
}

// parsePercent reads "63.2 %", "63.2" or "0.632" as a fraction
func parsePercent(text string) (float64, error) {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "%"))
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	return fraction(v), nil
}

func fraction(v float64) float64 {
	if v > 1 {
		return v / 100
	}
	return v
}

// getCachedRates retrieves cached rates if not expired
func (s *Service) getCachedRates(season int) (Rates, bool) {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	if cached, ok := s.cache.data[season]; ok && time.Now().Before(cached.expiresAt) {
		s.cache.hits++
		cacheLookups.WithLabelValues("hit").Inc()
		return cached.rates, true
	}

	s.cache.misses++
	cacheLookups.WithLabelValues("miss").Inc()
	return Rates{}, false
}

// cacheRates stores rates in the cache
func (s *Service) cacheRates(season int, rates Rates) {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	s.cache.data[season] = &cachedRates{
		rates:     rates,
		expiresAt: time.Now().Add(s.cfg.CacheTTL),
	}
}

// CleanExpiredCache removes expired entries from cache
func (s *Service) CleanExpiredCache() {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	now := time.Now()
	for season, cached := range s.cache.data {
		if now.After(cached.expiresAt) {
			delete(s.cache.data, season)
		}
	}
}

// StartCacheCleanup cleans expired cache entries in the background until ctx is done
func (s *Service) StartCacheCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanExpiredCache()
				log.Debug().Int("entries", s.cacheLen()).Msg("League stats cache cleaned")
			}
		}
	}()
}

func (s *Service) cacheLen() int {
	s.cache.mu.RLock()
	defer s.cache.mu.RUnlock()
	return len(s.cache.data)
}

// GetCacheStats returns cache statistics for monitoring
func (s *Service) GetCacheStats() map[string]interface{} {
	s.cache.mu.RLock()
	defer s.cache.mu.RUnlock()

	return map[string]interface{}{
		"entries":       len(s.cache.data),
		"hits":          s.cache.hits,
		"misses":        s.cache.misses,
		"static":        len(s.static),
		"breaker_state": s.breaker.State().String(),
	}
}

// ValidateSource checks the remote source answers for a season
func (s *Service) ValidateSource(ctx context.Context, season int) error {
	if s.cfg.BaseURL == "" {
		return ErrNotConfigured
	}

	rates, err := s.requestRates(ctx, season)
	if err != nil {
		return fmt.Errorf("league stats source validation failed: %w", err)
	}

	log.Info().Int("season", season).Float64("o_contact", rates.OContact).Float64("z_contact", rates.ZContact).Msg("League stats source validated")
	return nil
}
