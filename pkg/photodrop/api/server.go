package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tendant/photodrop/pkg/eventtoken"
	"github.com/tendant/photodrop/pkg/photodrop"
	"github.com/tendant/photodrop/web"
)

const (
	// DefaultMaxUploadBytes bounds the body of one upload request
	DefaultMaxUploadBytes = 50 << 20

	// DefaultRequestTimeout matches the chi Timeout used for every route
	DefaultRequestTimeout = 60 * time.Second

	// multipartMemory is kept in memory per request; larger parts spill to temp files
	multipartMemory = 8 << 20

	// formTokenMaxBytes bounds uploads whose token is only in a form field. Such a body
	// stays within multipartMemory and never spills to disk.
	formTokenMaxBytes = multipartMemory
)

// Issuer mints upload tokens
type Issuer interface {
	IssueClaims(eventID string, ttl time.Duration) (eventtoken.Claims, error)
}

// Authorizer decides whether a request may upload and to which event
type Authorizer interface {
	Authorize(token, explicitEventID string) photodrop.Decision
}

// Uploader stores an authorized batch
type Uploader interface {
	UploadBatch(ctx context.Context, eventID string, files []photodrop.File) ([]photodrop.StoredObject, error)
}

// Server exposes the upload relay over HTTP
type Server struct {
	issuer     Issuer
	authorizer Authorizer
	uploader   Uploader

	publicBaseURL    string
	adminEnabled     bool
	adminKeyDigest   string
	requireHTTPS     bool
	maxUploadBytes   int64
	requireImageType bool
	allowedOrigins   []string
	trustedProxies   []string
	requestTimeout   time.Duration
	metrics          http.Handler
	onIssue          func()

	limiter *limiterStore
}

// Option configures a Server
type Option func(*Server)

// WithPublicBaseURL sets the base of shareable links. Without it the request host is used.
func WithPublicBaseURL(base string) Option {
	return func(s *Server) {
		s.publicBaseURL = base
	}
}

// WithAdmin mounts the link issuing routes. An empty digest leaves them unprotected.
func WithAdmin(keyDigest string) Option {
	return func(s *Server) {
		s.adminEnabled = true
		s.adminKeyDigest = keyDigest
	}
}

// WithRequireHTTPS adds HSTS on TLS connections
func WithRequireHTTPS(require bool) Option {
	return func(s *Server) {
		s.requireHTTPS = require
	}
}

// WithMaxUploadBytes limits the body of an upload request
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithRequireImageType rejects parts whose content type is not image/*
func WithRequireImageType(require bool) Option {
	return func(s *Server) {
		s.requireImageType = require
	}
}

// WithRateLimit limits token gated routes per client. Zero disables limiting.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.limiter = newLimiterStore(perMinute)
		}
	}
}

// WithAllowedOrigins sets the CORS origins
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithTrustedProxies lists the proxy CIDRs whose X-Forwarded-For and X-Real-IP headers
// are believed. Without it every client is identified by its socket address.
func WithTrustedProxies(cidrs []string) Option {
	return func(s *Server) {
		s.trustedProxies = cidrs
	}
}

// WithRequestTimeout bounds the handling of one request
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithMetricsHandler serves h at /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithIssueObserver is called for every issued token
func WithIssueObserver(fn func()) Option {
	return func(s *Server) {
		s.onIssue = fn
	}
}

// NewServer creates the HTTP server
func NewServer(issuer Issuer, authorizer Authorizer, uploader Uploader, opts ...Option) *Server {
	s := &Server{
		issuer:           issuer,
		authorizer:       authorizer,
		uploader:         uploader,
		maxUploadBytes:   DefaultMaxUploadBytes,
		requireImageType: true,
		allowedOrigins:   []string{"*"},
		requestTimeout:   DefaultRequestTimeout,
		onIssue:          func() {},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Close stops background work started by the server
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Routes sets up the HTTP routes
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(TrustedRealIP(s.trustedProxies))
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))
	r.Use(SecurityHeaders(s.requireHTTPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	// Guest upload page
	r.Get("/upload", s.handleUploadPage)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	// Token gated
	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Post("/upload", s.handleUpload)
		r.Get("/api/v1/authorize", s.handleAuthorize)
	})

	if s.adminEnabled {
		r.Group(func(r chi.Router) {
			r.Use(RequireAdminKey(s.adminKeyDigest))
			r.Post("/api/v1/links", s.handleCreateLink)
			r.Get("/admin", s.handleAdmin)
		})
	}

	return r
}
