package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"

	"iifvs/internal/firmware"
	"iifvs/internal/metrics"
	"iifvs/internal/model"
	"iifvs/internal/nvd"
)

const (
	defaultMaxUploadSize = 256 << 20
	shutdownTimeout      = 10 * time.Second
)

// Analyzer runs the firmware pipeline on an upload.
type Analyzer interface {
	Analyze(ctx context.Context, filename string, content io.Reader) (*firmware.Report, error)
}

// Searcher looks up CVEs by keyword.
type Searcher interface {
	Search(ctx context.Context, keyword string) (*nvd.SearchResult, error)
}

// ScanStore is the read side of the scan history.
type ScanStore interface {
	ListScans(ctx context.Context, limit int) ([]model.ScanRecord, error)
	GetScan(ctx context.Context, id string) (*model.ScanRecord, error)
}

// FindingNotifier is told about critical CVEs returned by a search.
type FindingNotifier interface {
	NotifyCriticalFindings(ctx context.Context, keyword string, findings []model.Finding) error
}

// Config holds the listener settings.
type Config struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	CORSOrigins   []string
	MaxUploadSize int64
}

// Server exposes the firmware analysis and CVE search API.
type Server struct {
	cfg      Config
	analyzer Analyzer
	searcher Searcher
	store    ScanStore
	notifier FindingNotifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables the scan history routes.
func WithStore(s ScanStore) Option { return func(srv *Server) { srv.store = s } }

func WithNotifier(n FindingNotifier) Option { return func(srv *Server) { srv.notifier = n } }
func WithMetrics(m *metrics.Metrics) Option { return func(srv *Server) { srv.metrics = m } }
func WithLogger(l *slog.Logger) Option      { return func(srv *Server) { srv.logger = l } }

// NewServer creates a Server.
func NewServer(cfg Config, analyzer Analyzer, searcher Searcher, opts ...Option) *Server {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = defaultMaxUploadSize
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	s := &Server{
		cfg:      cfg,
		analyzer: analyzer,
		searcher: searcher,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API wrapped in CORS, logging and metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /nvd-search", s.handleSearch)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("GET /api/scans", s.handleListScans)
	mux.HandleFunc("GET /api/scans/{id}", s.handleGetScan)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	return s.metrics.RequestTrackingMiddleware(c.Handler(s.logRequests(mux)))
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
