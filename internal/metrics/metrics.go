package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "stakeserver"

// Collector holds the server's Prometheus metrics in a dedicated registry so
// they do not interfere with the global one.
type Collector struct {
	registry *prometheus.Registry

	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	plansCreated     prometheus.Counter
	stakesCreated    prometheus.Counter
	unstakes         prometheus.Counter
	claims           prometheus.Counter
	rewardsClaimed   prometheus.Counter
	lifecycleRejects *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"route"}),
		plansCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_created_total",
			Help:      "Plans created.",
		}),
		stakesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stakes_created_total",
			Help:      "Stakes created.",
		}),
		unstakes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unstakes_total",
			Help:      "Successful unstake operations.",
		}),
		claims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reward_claims_total",
			Help:      "Successful reward claims.",
		}),
		rewardsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_claimed_amount_total",
			Help:      "Sum of claimed reward amounts.",
		}),
		lifecycleRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_rejections_total",
			Help:      "Rejected lifecycle operations by operation and reason.",
		}, []string{"op", "reason"}),
	}

	reg.MustRegister(
		c.requestCount,
		c.requestDuration,
		c.plansCreated,
		c.stakesCreated,
		c.unstakes,
		c.claims,
		c.rewardsClaimed,
		c.lifecycleRejects,
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	c.requestCount.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	c.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (c *Collector) PlanCreated() { c.plansCreated.Inc() }

func (c *Collector) StakeCreated() { c.stakesCreated.Inc() }

func (c *Collector) Unstaked() { c.unstakes.Inc() }

// RewardClaimed counts a claim and adds its amount. The amount total is a
// float approximation and is only meant for dashboards.
func (c *Collector) RewardClaimed(amount decimal.Decimal) {
	c.claims.Inc()
	c.rewardsClaimed.Add(amount.InexactFloat64())
}

func (c *Collector) Rejected(op, reason string) {
	c.lifecycleRejects.WithLabelValues(op, reason).Inc()
}
