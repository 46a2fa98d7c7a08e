// Package server exposes the word list, the AI operations and the live
// practice session over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"codeberg.org/snonux/lexilive/internal/live"
	"codeberg.org/snonux/lexilive/internal/metrics"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

// WordService is the part of vocab.Service the API serves
type WordService interface {
	Lookup(ctx context.Context, word string) (vocab.WordRecord, error)
	Save(ctx context.Context, record vocab.WordRecord) (vocab.SavedWord, bool, error)
	List(ctx context.Context) ([]vocab.SavedWord, error)
	Get(ctx context.Context, id string) (vocab.SavedWord, error)
	Delete(ctx context.Context, id string) error
	Speak(ctx context.Context, text string) (vocab.Media, error)
	Label(ctx context.Context, image []byte, mimeType string) ([]vocab.Label, error)
	GenerateImage(ctx context.Context, id string) (vocab.SavedWord, error)
	GenerateVideo(ctx context.Context, id string) (vocab.SavedWord, error)
}

// MediaResolver maps a stored media reference to a file on disk
type MediaResolver interface {
	Path(ref string) string
}

// Config holds the listener settings
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64 // largest accepted image for labeling
}

// DefaultConfig returns a loopback listener with a 10 second shutdown grace period
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:8080",
		ShutdownTimeout: 10 * time.Second,
		MaxUploadBytes:  20 << 20,
	}
}

// Server serves the HTTP API
type Server struct {
	config  Config
	words   WordService
	media   MediaResolver
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics

	rndMu sync.Mutex // *rand.Rand is not safe for concurrent use
	rnd   *rand.Rand

	transport    live.Transport
	liveConfig   live.Config
	frameSamples int

	// liveCtx ends every live relay when the server shuts down, since
	// hijacked connections are not tracked by http.Server
	liveCtx    context.Context
	liveCancel context.CancelFunc
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request and session logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records request metrics and mounts /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMedia enables serving generated images and videos
func WithMedia(media MediaResolver) Option {
	return func(s *Server) {
		s.media = media
	}
}

// WithLive enables the live practice relay on /api/v1/live
func WithLive(transport live.Transport, cfg live.Config, frameSamples int) Option {
	return func(s *Server) {
		s.transport = transport
		s.liveConfig = cfg
		s.frameSamples = frameSamples
	}
}

// WithRand sets the source used to shuffle review decks
func WithRand(rnd *rand.Rand) Option {
	return func(s *Server) {
		s.rnd = rnd
	}
}

// deckRand returns a shuffle source for one request, seeded from the
// configured source. It returns nil without WithRand.
func (s *Server) deckRand() *rand.Rand {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	if s.rnd == nil {
		return nil
	}
	return rand.New(rand.NewPCG(s.rnd.Uint64(), s.rnd.Uint64()))
}

// New creates a server for words
func New(cfg Config, words WordService, opts ...Option) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}

	s := &Server{
		config:     cfg,
		words:      words,
		logger:     zap.NewNop().Sugar(),
		liveConfig: live.DefaultConfig(),
	}
	s.liveCtx, s.liveCancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(s.requestID)
	r.Use(s.accessLog)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/lookup", s.handleLookup)

		r.Route("/words", func(r chi.Router) {
			r.Get("/", s.handleListWords)
			r.Post("/", s.handleSaveWord)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetWord)
				r.Delete("/", s.handleDeleteWord)
				r.Post("/image", s.handleGenerate(vocab.KindImage))
				r.Post("/video", s.handleGenerate(vocab.KindVideo))
				r.Get("/media/{kind}", s.handleMedia)
			})
		})

		r.Get("/deck", s.handleDeck)
		r.Post("/speech", s.handleSpeech)
		r.Post("/label", s.handleLabel)

		if s.transport != nil {
			r.Get("/live", s.handleLive)
		}
	})

	return r
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:     s.Handler(),
		IdleTimeout: 120 * time.Second,
	}
	httpServer.RegisterOnShutdown(s.liveCancel)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("http server listening", "addr", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Infow("shutting down http server", "timeout", s.config.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
