package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/baseball-sim/strategy-engine/leaguestats"
	"github.com/baseball-sim/strategy-engine/simulation"
)

type Server struct {
	router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
	config     *Config
	engine     *simulation.Engine
	stats      *leaguestats.Service
	limiter    *clientLimiter
	startTime  time.Time
}

func NewServer(config *Config, engine *simulation.Engine, stats *leaguestats.Service) *Server {
	s := &Server{
		config:    config,
		router:    mux.NewRouter(),
		engine:    engine,
		stats:     stats,
		startTime: time.Now(),
	}
	if config.RateLimit > 0 {
		s.limiter = newClientLimiter(rate.Limit(config.RateLimit), config.RateBurst)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.healthHandler).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/teams", s.teamsHandler).Methods("GET")
	api.HandleFunc("/teams/{year:[0-9]{4}}/{team}/{side}/profile", s.profileHandler).Methods("GET")
	api.HandleFunc("/teams/{year:[0-9]{4}}/{team}/{side}/scenarios", s.scenarioHandler).Methods("POST")
	api.HandleFunc("/simulations", s.simulateHandler).Methods("POST")
	api.HandleFunc("/simulations/{id}/status", s.simulationStatusHandler).Methods("GET")
	api.HandleFunc("/simulations/{id}/result", s.simulationResultHandler).Methods("GET")
	api.Use(s.rateLimitMiddleware)

	s.router.Use(s.loggingMiddleware)

	c := cors.New(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         86400,
	})

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(false),
	)
	s.handler = c.Handler(recovery(handlers.CompressHandler(s.router)))
}

// ServeHTTP exposes the fully wrapped handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Str("port", s.config.Port).Int("workers", s.config.Workers).Msg("Starting strategy engine")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down strategy engine...")
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Middleware
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		observeRequest(r, lrw.statusCode, duration)
		log.Debug().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Int("status", lrw.statusCode).
			Dur("duration", duration).
			Msg("Request")
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.allow(clientIP(r)) {
			rateLimited.Inc()
			w.Header().Set("Retry-After", "1")
			writeError(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error().Msg(fmt.Sprint(v...))
}

// clientLimiter hands every client address its own token bucket
type clientLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(limit rate.Limit, burst int) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		limit:   limit,
		burst:   burst,
		clients: make(map[string]*clientBucket),
	}
}

func (c *clientLimiter) allow(client string) bool {
	c.mu.Lock()
	bucket, ok := c.clients[client]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[client] = bucket
	}
	bucket.lastSeen = time.Now()
	c.mu.Unlock()
	return bucket.limiter.Allow()
}

// evictIdle drops clients not seen since before maxIdle ago
func (c *clientLimiter) evictIdle(maxIdle time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for client, bucket := range c.clients {
		if bucket.lastSeen.Before(cutoff) {
			delete(c.clients, client)
			removed++
		}
	}
	return removed
}

func (c *clientLimiter) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// StartLimiterCleanup evicts idle rate limit clients periodically until ctx is done
func (s *Server) StartLimiterCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	if s.limiter == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.limiter.evictIdle(maxIdle); n > 0 {
					log.Debug().Int("removed", n).Int("clients", s.limiter.size()).Msg("Evicted idle rate limit clients")
				}
			}
		}
	}()
}
