package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// observe logs every request once and records it in the metrics collector.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		s.metrics.ObserveRequest(route, c.Request.Method, status, elapsed)

		event := s.logger.Debug()
		if status >= http.StatusInternalServerError {
			event = s.logger.Error()
		} else if status >= http.StatusBadRequest {
			event = s.logger.Warn()
		}
		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Str("client", c.ClientIP()).
			Msg("request")
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiters.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "rate_limited",
				"message": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

const (
	limiterIdle     = 10 * time.Minute
	limiterPruneLen = 4096
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet keeps one token bucket per client. Idle buckets are pruned
// when the set grows past limiterPruneLen.
type limiterSet struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*limiterEntry
}

func newLimiterSet(perMinute, burst int) *limiterSet {
	if burst <= 0 {
		burst = perMinute
	}
	return &limiterSet{
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
		clients: make(map[string]*limiterEntry),
	}
}

func (l *limiterSet) get(client string) *rate.Limiter {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.clients[client]; ok {
		e.lastSeen = now
		return e.limiter
	}
	if len(l.clients) >= limiterPruneLen {
		for k, e := range l.clients {
			if now.Sub(e.lastSeen) > limiterIdle {
				delete(l.clients, k)
			}
		}
	}
	e := &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
	l.clients[client] = e
	return e.limiter
}
