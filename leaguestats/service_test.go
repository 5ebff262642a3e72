package leaguestats

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leaderboard = `<html><body>
<table id="nav"><tr><th>Team</th></tr><tr><td>ANA</td></tr></table>
<table>
<thead><tr><th>Season</th><th>O-Swing%</th><th>O-Contact%</th><th>Z-Contact%</th></tr></thead>
<tbody>
<tr><td>2018</td><td>30.9 %</td><td>62.0 %</td><td>85.9 %</td></tr>
<tr><td>2019</td><td>31.6 %</td><td>63.2 %</td><td>85.4 %</td></tr>
</tbody>
</table>
</body></html>`

func TestNewServiceDefaults(t *testing.T) {
	service := NewService(Config{})

	assert.Equal(t, FormatJSON, service.cfg.Format)
	assert.Equal(t, defaultTimeout, service.cfg.Timeout)
	assert.Equal(t, defaultCacheTTL, service.cfg.CacheTTL)
	require.NotNil(t, service.cache)
	require.NotNil(t, service.httpClient)
}

func TestGetContactRatesStatic(t *testing.T) {
	service := NewService(Config{Static: []Rates{{Season: 2019, OContact: 0.6, ZContact: 0.8}}})

	rates, err := service.GetContactRates(context.Background(), 2019)
	require.NoError(t, err)
	assert.Equal(t, 0.6, rates.OContact)
	assert.Equal(t, 0.8, rates.ZContact)
	assert.Equal(t, "static", rates.Source)
}

func TestGetContactRatesWithoutSource(t *testing.T) {
	service := NewService(Config{})

	rates, err := service.GetContactRates(context.Background(), 2019)
	require.NoError(t, err)
	assert.Equal(t, DefaultOContact, rates.OContact)
	assert.Equal(t, DefaultZContact, rates.ZContact)
	assert.Equal(t, "default", rates.Source)
}

func TestGetContactRatesJSONIsCached(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		assert.Equal(t, "2019", r.URL.Query().Get("season"))
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		fmt.Fprint(w, `{"season":2019,"o_contact":63.2,"z_contact":0.854}`)
	}))
	defer server.Close()

	service := NewService(Config{BaseURL: server.URL, APIKey: "secret"})

	for i := 0; i < 3; i++ {
		rates, err := service.GetContactRates(context.Background(), 2019)
		require.NoError(t, err)
		assert.InDelta(t, 0.632, rates.OContact, 1e-12)
		assert.InDelta(t, 0.854, rates.ZContact, 1e-12)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
	stats := service.GetCacheStats()
	assert.Equal(t, 1, stats["entries"])
	assert.Equal(t, 2, stats["hits"])
	assert.Equal(t, 1, stats["misses"])
}

func TestGetContactRatesHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, leaderboard)
	}))
	defer server.Close()

	service := NewService(Config{BaseURL: server.URL, Format: FormatHTML})

	rates, err := service.GetContactRates(context.Background(), 2019)
	require.NoError(t, err)
	assert.InDelta(t, 0.632, rates.OContact, 1e-12)
	assert.InDelta(t, 0.854, rates.ZContact, 1e-12)
	assert.Equal(t, server.URL, rates.Source)

	fallback, err := service.GetContactRates(context.Background(), 1999)
	require.NoError(t, err)
	assert.Equal(t, "default", fallback.Source)
}

func TestGetContactRatesFallsBackOnError(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusInternalServerError)
		}},
		{"bad body", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "not json")
		}},
		{"rates out of range", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"o_contact":0,"z_contact":0.85}`)
		}},
		{"wrong season", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"season":2018,"o_contact":0.6,"z_contact":0.85}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			service := NewService(Config{BaseURL: server.URL})
			rates, err := service.GetContactRates(context.Background(), 2019)
			require.NoError(t, err)
			assert.Equal(t, "default", rates.Source)
			assert.Equal(t, 0, service.GetCacheStats()["entries"])
		})
	}
}

func TestValidateSource(t *testing.T) {
	assert.ErrorIs(t, NewService(Config{}).ValidateSource(context.Background(), 2019), ErrNotConfigured)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "good" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"o_contact":0.63,"z_contact":0.85}`)
	}))
	defer server.Close()

	assert.NoError(t, NewService(Config{BaseURL: server.URL, APIKey: "good"}).ValidateSource(context.Background(), 2019))
	assert.Error(t, NewService(Config{BaseURL: server.URL, APIKey: "bad"}).ValidateSource(context.Background(), 2019))
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		wantErr  bool
	}{
		{"63.2 %", 0.632, false},
		{"85.4%", 0.854, false},
		{"0.61", 0.61, false},
		{"n/a", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parsePercent(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}
}

func TestCleanExpiredCache(t *testing.T) {
	service := NewService(Config{})
	service.cacheRates(2019, Rates{Season: 2019, OContact: 0.6, ZContact: 0.8})
	service.cache.data[2019].expiresAt = service.cache.data[2019].expiresAt.Add(-2 * defaultCacheTTL)

	service.CleanExpiredCache()
	assert.Equal(t, 0, service.GetCacheStats()["entries"])
}
