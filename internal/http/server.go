package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tourledger/internal/cache"
	"tourledger/internal/core"
	applog "tourledger/internal/log"
	"tourledger/internal/middleware/ratelimit"
	"tourledger/internal/middleware/security"
	"tourledger/internal/middleware/trace"
	"tourledger/internal/services"
)

const showsCacheKey = "shows"

type Options struct {
	Addr               string
	Logger             *applog.Logger
	RateLimitPerMinute int
	CORSAllowedOrigin  string
	// TrustedProxies are CIDRs, beyond loopback and private ranges, whose
	// forwarding headers are believed.
	TrustedProxies []string
	// ShowCacheTTL of zero disables caching of the show list.
	ShowCacheTTL time.Duration
	Now          func() time.Time
}

type Server struct {
	http.Server

	records     *services.RecordService
	settlements *services.SettlementService

	logger     *applog.Logger
	structured *applog.StructuredLogger
	now        func() time.Time

	showsCache   *cache.LRUCache[[]core.Show]
	cacheManager *cache.Manager
	rateLimiter  *ratelimit.Limiter
	tracer       *trace.Middleware
	detector     *security.Detector

	shutdownOnce sync.Once
}

func NewServer(opts Options, records *services.RecordService, settlements *services.SettlementService) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		records:     records,
		settlements: settlements,
		logger:      logger,
		structured:  applog.NewStructuredLogger(logger),
		now:         now,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:    security.NewDetector(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.cacheManager = cache.NewManager(logger)
	if opts.ShowCacheTTL > 0 {
		s.showsCache = cache.NewLRUCache[[]core.Show](1, opts.ShowCacheTTL)
		s.cacheManager.Register(s.showsCache)
		s.cacheManager.StartCleanup(10 * time.Minute)
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = trace.Recover(mux)
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP)(h)
	h = s.detector.Middleware(h)
	h = security.CORS(opts.CORSAllowedOrigin)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(h)
	h = s.tracer.Middleware(h)
	h = applog.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/shows", s.handleListShows)
	mux.HandleFunc("POST /api/shows", s.handleCreateShow)
	mux.HandleFunc("GET /api/shows/{id}", s.handleGetShow)

	mux.HandleFunc("POST /api/revenue", s.handleCreateRevenue)
	mux.HandleFunc("GET /api/revenue/{show_id}", s.handleListRevenue)

	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses/{show_id}", s.handleListExpenses)

	mux.HandleFunc("POST /api/settlements/calculate/{show_id}", s.handleCalculateSettlement)
	mux.HandleFunc("POST /api/settlements/post", s.handlePostSettlement)
	mux.HandleFunc("GET /api/settlements", s.handleListSettlements)

	mux.HandleFunc("/", handleNotFound)
}

// Shutdown stops background goroutines and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.showsCache != nil {
			stats := s.showsCache.Stats()
			s.logger.Info("Show cache statistics", "hits", stats.Hits, "misses", stats.Misses)
		}
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) invalidateShows() {
	if s.showsCache != nil {
		s.showsCache.Delete(showsCacheKey)
	}
}

func (s *Server) listShows(ctx context.Context) ([]core.Show, error) {
	if s.showsCache == nil {
		return s.records.ListShows(ctx)
	}
	shows, err := s.showsCache.GetOrLoad(showsCacheKey, func() ([]core.Show, error) {
		return s.records.ListShows(ctx)
	})
	if err != nil {
		return nil, err
	}
	out := make([]core.Show, len(shows))
	copy(out, shows)
	return out, nil
}
