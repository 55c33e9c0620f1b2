package staking

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Coordinator drives the stake lifecycle against a plan catalog and a stake
// ledger. Unstake and ClaimRewards run as one read-check-mutate step per
// stake id; different stakes never wait on each other.
type Coordinator struct {
	plans  PlanCatalog
	stakes StakeLedger
	locks  *keyLock
	logger zerolog.Logger
}

type Option func(*Coordinator)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func NewCoordinator(plans PlanCatalog, stakes StakeLedger, opts ...Option) *Coordinator {
	c := &Coordinator{
		plans:  plans,
		stakes: stakes,
		locks:  newKeyLock(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) CreatePlan(ctx context.Context, params PlanParams) (Plan, error) {
	plan, err := c.plans.CreatePlan(ctx, params)
	if err != nil {
		return Plan{}, err
	}

	c.logger.Info().
		Str("plan", plan.ID).
		Str("name", plan.Name).
		Int64("duration_minutes", plan.DurationMinutes).
		Msg("plan created")
	return plan, nil
}

func (c *Coordinator) ListPlans(ctx context.Context) ([]Plan, error) {
	return c.plans.ListPlans(ctx)
}

func (c *Coordinator) ListStakesForUser(ctx context.Context, userID string) ([]StakeRecord, error) {
	return c.stakes.ListStakesForUser(ctx, userID)
}

func (c *Coordinator) ListStakes(ctx context.Context) ([]StakeRecord, error) {
	return c.stakes.ListStakes(ctx)
}

func (c *Coordinator) GetStake(ctx context.Context, stakeID string) (StakeRecord, error) {
	return c.stakes.GetStake(ctx, stakeID)
}

// ParseAmount parses a textual amount as sent by form input.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, &ValidationError{Field: field, Reason: "is required"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &ValidationError{Field: field, Reason: "is not a valid number"}
	}
	return d, nil
}

// CreateStakeFromString is CreateStake for a textual amount.
func (c *Coordinator) CreateStakeFromString(ctx context.Context, userID, planID, amount string, now time.Time) (StakeRecord, error) {
	d, err := ParseAmount("amount", amount)
	if err != nil {
		return StakeRecord{}, err
	}
	return c.CreateStake(ctx, userID, planID, d, now)
}

// CreateStake records a new stake of amount against planID, created at now.
func (c *Coordinator) CreateStake(ctx context.Context, userID, planID string, amount decimal.Decimal, now time.Time) (StakeRecord, error) {
	switch {
	case strings.TrimSpace(userID) == "":
		return StakeRecord{}, &ValidationError{Field: "userId", Reason: "is required"}
	case strings.TrimSpace(planID) == "":
		return StakeRecord{}, &ValidationError{Field: "planId", Reason: "is required"}
	case amount.IsNegative():
		return StakeRecord{}, &ValidationError{Field: "amount", Reason: "must be non-negative"}
	}

	plan, err := c.plans.GetPlan(ctx, planID)
	if err != nil {
		return StakeRecord{}, err
	}
	if amount.LessThan(plan.MinimumAmount) {
		return StakeRecord{}, &ValidationError{
			Field:  "amount",
			Reason: "below plan minimum of " + plan.MinimumAmount.String(),
		}
	}

	stake, err := c.stakes.AppendStake(ctx, userID, plan.ID, amount, now.UTC().Truncate(time.Millisecond))
	if err != nil {
		return StakeRecord{}, err
	}

	c.logger.Info().
		Str("stake", stake.ID).
		Str("user", userID).
		Str("plan", plan.ID).
		Str("amount", amount.String()).
		Msg("stake created")
	return stake, nil
}

// Unstake marks the principal of a mature stake as withdrawable.
func (c *Coordinator) Unstake(ctx context.Context, stakeID string, now time.Time) (StakeRecord, error) {
	unlock := c.locks.Lock(stakeID)
	defer unlock()

	stake, _, err := c.matureStake(ctx, stakeID, now)
	if err != nil {
		return StakeRecord{}, err
	}
	if stake.IsUnstaked {
		return StakeRecord{}, &AlreadyUnstakedError{StakeID: stakeID}
	}

	updated, err := c.stakes.MarkUnstaked(ctx, stakeID)
	if err != nil {
		return StakeRecord{}, err
	}

	c.logger.Info().
		Str("stake", stakeID).
		Str("user", updated.UserID).
		Msg("stake unstaked")
	return updated, nil
}

// ClaimRewards pays out the plan reward of a mature stake once. Claiming does
// not require a prior unstake.
func (c *Coordinator) ClaimRewards(ctx context.Context, stakeID string, now time.Time) (decimal.Decimal, StakeRecord, error) {
	unlock := c.locks.Lock(stakeID)
	defer unlock()

	stake, plan, err := c.matureStake(ctx, stakeID, now)
	if err != nil {
		return decimal.Zero, StakeRecord{}, err
	}
	if stake.IsRewardClaimed {
		return decimal.Zero, StakeRecord{}, &AlreadyClaimedError{StakeID: stakeID}
	}

	reward := ComputeReward(stake.AmountStaked, plan.RewardPercentage)
	updated, err := c.stakes.MarkRewardClaimed(ctx, stakeID, reward)
	if err != nil {
		return decimal.Zero, StakeRecord{}, err
	}

	c.logger.Info().
		Str("stake", stakeID).
		Str("user", updated.UserID).
		Str("reward", reward.String()).
		Msg("rewards claimed")
	return reward, updated, nil
}

// matureStake loads a stake with its plan and fails with *NotMatureError
// when the lock has not elapsed at now.
func (c *Coordinator) matureStake(ctx context.Context, stakeID string, now time.Time) (StakeRecord, Plan, error) {
	stake, err := c.stakes.GetStake(ctx, stakeID)
	if err != nil {
		return StakeRecord{}, Plan{}, err
	}
	plan, err := c.plans.GetPlan(ctx, stake.PlanID)
	if err != nil {
		return StakeRecord{}, Plan{}, err
	}
	if !IsMature(stake, plan, now) {
		return StakeRecord{}, Plan{}, &NotMatureError{StakeID: stakeID, MaturesAt: MaturesAt(stake, plan)}
	}
	return stake, plan, nil
}
