package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/generativelabs/stakeserver/internal/metrics"
	"github.com/generativelabs/stakeserver/internal/staking"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func init() {
	// amounts travel as JSON numbers, as the dashboard sends them
	decimal.MarshalJSONWithoutQuotes = true
}

type Server struct {
	staking  *staking.Coordinator
	auth     Authenticator
	metrics  *metrics.Collector
	logger   zerolog.Logger
	now      func() time.Time
	health   func(ctx context.Context) error
	limiters *limiterSet
	engine   *gin.Engine
}

type Option func(*Server)

func WithAuthenticator(auth Authenticator) Option {
	return func(s *Server) { s.auth = auth }
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Server) { s.metrics = collector }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithClock replaces the wall clock used as "now" for lifecycle checks.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithHealthCheck adds a storage probe to GET /health.
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(s *Server) { s.health = check }
}

// WithRateLimit limits each client IP to perMinute requests with the given
// burst. perMinute <= 0 disables limiting.
func WithRateLimit(perMinute, burst int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.limiters = newLimiterSet(perMinute, burst)
		}
	}
}

func New(coordinator *staking.Coordinator, opts ...Option) *Server {
	server := &Server{
		staking: coordinator,
		auth:    StaticTokens(nil),
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.metrics == nil {
		server.metrics = metrics.NewCollector()
	}

	r := gin.New()
	// client IPs come from the TCP peer, never from forwarding headers
	_ = r.SetTrustedProxies(nil)
	r.Use(gin.Recovery(), server.observe())
	if server.limiters != nil {
		r.Use(server.rateLimit())
	}

	r.GET("/health", server.Health)
	r.GET("/metrics", gin.WrapH(server.metrics.Handler()))

	r.GET("/plans", server.ListPlans)
	r.POST("/plans", server.requireAuth(true), server.CreatePlan)

	r.POST("/stake", server.requireAuth(false), server.CreateStake)
	r.GET("/stake/:userId", server.requireAuth(false), server.GetStakesByUser)
	r.POST("/update-stake", server.requireAuth(false), server.Unstake)
	r.POST("/claim-rewards", server.requireAuth(false), server.ClaimRewards)

	r.GET("/auth/stake", server.requireAuth(true), server.ListStakes)

	server.engine = r
	return server
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(servicePort int) error {
	return s.engine.Run(fmt.Sprintf(":%d", servicePort))
}
