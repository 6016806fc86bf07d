// Package http exposes the import workflow over REST: upload a spreadsheet
// for a preview, then confirm to replace the owner's data.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"finanze/internal/cache"
	"finanze/internal/core"
	applog "finanze/internal/log"
	"finanze/internal/spreadsheet"
	"finanze/internal/storage"
)

// Importer replaces an owner's data with a document.
type Importer interface {
	Import(ctx context.Context, ownerID string, doc *core.ImportDocument) (*core.ImportResult, error)
}

// StatsReader reports what an import would wipe.
type StatsReader interface {
	Stats(ctx context.Context, ownerID string) (storage.OwnerStats, error)
}

// WorkbookSource opens a remote spreadsheet by id.
type WorkbookSource interface {
	Open(ctx context.Context, spreadsheetID string) (spreadsheet.Workbook, error)
}

type Options struct {
	Logger             *applog.Logger
	MaxUploadBytes     int64
	DefaultFormat      spreadsheet.Format
	PreviewTTL         time.Duration
	PreviewCacheSize   int
	RateLimitPerMinute int
	// Stats is optional; previews then omit the existing-data counts.
	Stats StatsReader
	// Sheets is optional; without it the Google preview route answers 501.
	Sheets WorkbookSource
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = applog.New(applog.DefaultConfig())
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 10 << 20
	}
	if o.DefaultFormat == "" {
		o.DefaultFormat = spreadsheet.FormatStandard
	}
	if o.PreviewTTL <= 0 {
		o.PreviewTTL = 15 * time.Minute
	}
	if o.PreviewCacheSize <= 0 {
		o.PreviewCacheSize = 100
	}
	if o.RateLimitPerMinute <= 0 {
		o.RateLimitPerMinute = 30
	}
}

// preview is a parsed upload waiting for the owner's confirmation.
type preview struct {
	Document  *core.ImportDocument
	Format    spreadsheet.Format
	ExpiresAt time.Time
}

type Server struct {
	http.Server
	importer    Importer
	opts        Options
	logger      *applog.Logger
	previews    *cache.LRUCache[preview]
	caches      *cache.Manager
	rateLimiter *rateLimiter
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, imp Importer, opts Options) *Server {
	opts.setDefaults()

	s := &Server{
		importer:    imp,
		opts:        opts,
		logger:      opts.Logger.WithComponent(applog.ComponentHTTP),
		previews:    cache.NewLRUCache[preview](opts.PreviewCacheSize, opts.PreviewTTL),
		caches:      cache.NewManager(),
		rateLimiter: newRateLimiter(opts.RateLimitPerMinute),
		started:     time.Now(),
	}
	s.caches.Register(s.previews)
	s.caches.StartCleanup(time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/imports/preview", s.limited(s.handlePreview))
	mux.HandleFunc("POST /api/imports/preview/google", s.limited(s.handleGooglePreview))
	mux.HandleFunc("POST /api/imports", s.limited(s.handleImport))

	var handler http.Handler = withSecurityHeaders(mux)
	handler = applog.AccessLogMiddleware(handler)
	handler = applog.RequestIDMiddleware(handler)
	handler = applog.Middleware(s.logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		s.caches.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w.Header())
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		if !s.rateLimiter.allow(clientIP) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"uptime":          time.Since(s.started).Round(time.Second).String(),
		"pendingPreviews": s.previews.Size(),
		"rateLimitHits":   s.rateLimiter.hitCount(),
		"activeClients":   s.rateLimiter.activeClients(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
