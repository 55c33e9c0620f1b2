package staking

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxDurationMinutes is the longest lock period whose maturity instant still
// fits in a time.Duration.
const MaxDurationMinutes = math.MaxInt64 / int64(time.Minute)

// Plan is an immutable reward tier.
type Plan struct {
	ID               string          `json:"_id"`
	Name             string          `json:"planName"`
	DurationMinutes  int64           `json:"duration"`
	MinimumAmount    decimal.Decimal `json:"minimumAmount"`
	RewardPercentage decimal.Decimal `json:"rewardPercentage"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// LockPeriod returns the plan duration as a fixed-point duration.
func (p Plan) LockPeriod() time.Duration {
	return time.Duration(p.DurationMinutes) * time.Minute
}

// PlanParams carries the administrator input for a new plan.
type PlanParams struct {
	Name             string
	DurationMinutes  int64
	MinimumAmount    decimal.Decimal
	RewardPercentage decimal.Decimal
}

// Validate checks the params and returns a *ValidationError on the first
// offending field.
func (p PlanParams) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return &ValidationError{Field: "planName", Reason: "is required"}
	case p.DurationMinutes < 0:
		return &ValidationError{Field: "duration", Reason: "must be non-negative"}
	case p.DurationMinutes > MaxDurationMinutes:
		return &ValidationError{Field: "duration", Reason: "is too long"}
	case p.MinimumAmount.IsNegative():
		return &ValidationError{Field: "minimumAmount", Reason: "must be non-negative"}
	case p.RewardPercentage.IsNegative():
		return &ValidationError{Field: "rewardPercentage", Reason: "must be non-negative"}
	}
	return nil
}

// NewPlan validates params and builds a plan with a fresh identifier.
func NewPlan(params PlanParams, now time.Time) (Plan, error) {
	if err := params.Validate(); err != nil {
		return Plan{}, err
	}
	return Plan{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(params.Name),
		DurationMinutes:  params.DurationMinutes,
		MinimumAmount:    params.MinimumAmount,
		RewardPercentage: params.RewardPercentage,
		CreatedAt:        now.UTC().Truncate(time.Millisecond),
	}, nil
}

// PlanCatalog stores plan definitions. Plans are append-only.
type PlanCatalog interface {
	CreatePlan(ctx context.Context, params PlanParams) (Plan, error)
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlan(ctx context.Context, id string) (Plan, error)
}

// MemoryCatalog is an in-process PlanCatalog.
type MemoryCatalog struct {
	mu    sync.RWMutex
	plans []Plan
	index map[string]int
	now   func() time.Time
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		index: make(map[string]int),
		now:   time.Now,
	}
}

func (c *MemoryCatalog) CreatePlan(_ context.Context, params PlanParams) (Plan, error) {
	plan, err := NewPlan(params, c.now())
	if err != nil {
		return Plan{}, err
	}

	c.mu.Lock()
	c.index[plan.ID] = len(c.plans)
	c.plans = append(c.plans, plan)
	c.mu.Unlock()

	return plan, nil
}

func (c *MemoryCatalog) ListPlans(_ context.Context) ([]Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Plan, len(c.plans))
	copy(out, c.plans)
	return out, nil
}

func (c *MemoryCatalog) GetPlan(_ context.Context, id string) (Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return Plan{}, &NotFoundError{Kind: "plan", ID: id}
	}
	return c.plans[i], nil
}
