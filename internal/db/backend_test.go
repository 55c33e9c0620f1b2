package db_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/generativelabs/stakeserver/internal/db"
	"github.com/generativelabs/stakeserver/internal/staking"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var (
	_ staking.PlanCatalog = (*db.Backend)(nil)
	_ staking.StakeLedger = (*db.Backend)(nil)
)

func newBackend(t *testing.T) *db.Backend {
	t.Helper()
	b, err := db.OpenMemSQLite()
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

// newFileBackend opens a SQLite file so that writers use separate pooled
// connections, as they do in a deployed server.
func newFileBackend(t *testing.T) *db.Backend {
	t.Helper()
	b, err := db.OpenSQLite(filepath.Join(t.TempDir(), "stakes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	require.NoError(t, b.Migrate(context.Background()))
	return b
}

func TestBackendPlans(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	plans, err := b.ListPlans(ctx)
	require.NoError(t, err)
	assert.Empty(t, plans)

	gold, err := b.CreatePlan(ctx, staking.PlanParams{
		Name:             "gold",
		DurationMinutes:  60,
		MinimumAmount:    decimal.RequireFromString("10.5"),
		RewardPercentage: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	silver, err := b.CreatePlan(ctx, staking.PlanParams{Name: "silver", DurationMinutes: 1})
	require.NoError(t, err)

	_, err = b.CreatePlan(ctx, staking.PlanParams{Name: "bad", DurationMinutes: -1})
	assert.ErrorIs(t, err, staking.ErrValidation)

	plans, err = b.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, gold.ID, plans[0].ID)
	assert.Equal(t, silver.ID, plans[1].ID)

	got, err := b.GetPlan(ctx, gold.ID)
	require.NoError(t, err)
	assert.Equal(t, "gold", got.Name)
	assert.Equal(t, int64(60), got.DurationMinutes)
	assert.True(t, got.MinimumAmount.Equal(decimal.RequireFromString("10.5")))
	assert.True(t, got.RewardPercentage.Equal(decimal.NewFromInt(5)))
	assert.True(t, got.CreatedAt.Equal(gold.CreatedAt))

	_, err = b.GetPlan(ctx, "missing")
	assert.ErrorIs(t, err, staking.ErrNotFound)
}

func TestBackendStakes(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	plan, err := b.CreatePlan(ctx, staking.PlanParams{Name: "gold", DurationMinutes: 1})
	require.NoError(t, err)

	late, err := b.AppendStake(ctx, "alice", plan.ID, decimal.NewFromInt(20), t0.Add(time.Minute))
	require.NoError(t, err)
	early, err := b.AppendStake(ctx, "alice", plan.ID, decimal.NewFromInt(10), t0)
	require.NoError(t, err)
	_, err = b.AppendStake(ctx, "bob", plan.ID, decimal.NewFromInt(30), t0)
	require.NoError(t, err)

	got, err := b.GetStake(ctx, early.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, plan.ID, got.PlanID)
	assert.True(t, got.AmountStaked.Equal(decimal.NewFromInt(10)))
	assert.True(t, got.CreatedAt.Equal(t0))
	assert.Equal(t, staking.StateActive, got.State())
	assert.True(t, got.TotalClaimedRewards.IsZero())

	stakes, err := b.ListStakesForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, stakes, 2)
	assert.Equal(t, early.ID, stakes[0].ID)
	assert.Equal(t, late.ID, stakes[1].ID)

	all, err := b.ListStakes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = b.GetStake(ctx, "missing")
	assert.ErrorIs(t, err, staking.ErrNotFound)
}

func TestBackendTransitionsOnce(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	plan, _ := b.CreatePlan(ctx, staking.PlanParams{Name: "gold"})
	stake, err := b.AppendStake(ctx, "alice", plan.ID, decimal.NewFromInt(100), t0)
	require.NoError(t, err)

	updated, err := b.MarkUnstaked(ctx, stake.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsUnstaked)

	_, err = b.MarkUnstaked(ctx, stake.ID)
	assert.ErrorIs(t, err, staking.ErrAlreadyUnstaked)

	updated, err = b.MarkRewardClaimed(ctx, stake.ID, decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.Equal(t, staking.StateUnstakedAndClaimed, updated.State())
	assert.True(t, updated.TotalClaimedRewards.Equal(decimal.RequireFromString("2.5")))

	_, err = b.MarkRewardClaimed(ctx, stake.ID, decimal.RequireFromString("2.5"))
	assert.ErrorIs(t, err, staking.ErrAlreadyClaimed)

	got, err := b.GetStake(ctx, stake.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalClaimedRewards.Equal(decimal.RequireFromString("2.5")))

	_, err = b.MarkUnstaked(ctx, "missing")
	assert.ErrorIs(t, err, staking.ErrNotFound)
	_, err = b.MarkRewardClaimed(ctx, "missing", decimal.Zero)
	assert.ErrorIs(t, err, staking.ErrNotFound)
}

func TestBackendCoordinatorScenario(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	c := staking.NewCoordinator(b, b)

	plan, err := c.CreatePlan(ctx, staking.PlanParams{
		Name:             "hourly",
		DurationMinutes:  60,
		MinimumAmount:    decimal.NewFromInt(10),
		RewardPercentage: decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	_, err = c.CreateStake(ctx, "alice", plan.ID, decimal.NewFromInt(5), t0)
	assert.ErrorIs(t, err, staking.ErrValidation)

	stake, err := c.CreateStake(ctx, "alice", plan.ID, decimal.NewFromInt(100), t0)
	require.NoError(t, err)

	_, err = c.Unstake(ctx, stake.ID, t0.Add(59*time.Minute))
	assert.ErrorIs(t, err, staking.ErrNotMature)

	_, err = c.Unstake(ctx, stake.ID, t0.Add(60*time.Minute))
	require.NoError(t, err)

	reward, updated, err := c.ClaimRewards(ctx, stake.ID, t0.Add(60*time.Minute))
	require.NoError(t, err)
	assert.True(t, reward.Equal(decimal.NewFromInt(5)))
	assert.True(t, updated.TotalClaimedRewards.Equal(decimal.NewFromInt(5)))

	_, _, err = c.ClaimRewards(ctx, stake.ID, t0.Add(60*time.Minute))
	assert.ErrorIs(t, err, staking.ErrAlreadyClaimed)
}

func TestBackendConcurrentDistinctStakes(t *testing.T) {
	ctx := context.Background()
	b := newFileBackend(t)
	c := staking.NewCoordinator(b, b)

	plan, err := c.CreatePlan(ctx, staking.PlanParams{Name: "instant", RewardPercentage: decimal.NewFromInt(10)})
	require.NoError(t, err)

	const n = 40
	ids := make([]string, n)
	for i := range ids {
		stake, err := c.CreateStake(ctx, "alice", plan.ID, decimal.NewFromInt(100), t0)
		require.NoError(t, err)
		ids[i] = stake.ID
	}

	claimErrs := make([]error, n)
	unstakeErrs := make([]error, n)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(2)
		go func(i int, id string) {
			defer wg.Done()
			_, _, claimErrs[i] = c.ClaimRewards(ctx, id, t0)
		}(i, id)
		go func(i int, id string) {
			defer wg.Done()
			_, unstakeErrs[i] = c.Unstake(ctx, id, t0)
		}(i, id)
	}
	wg.Wait()

	for i := range ids {
		assert.NoError(t, claimErrs[i], "claim %d", i)
		assert.NoError(t, unstakeErrs[i], "unstake %d", i)
	}

	stakes, err := b.ListStakes(ctx)
	require.NoError(t, err)
	require.Len(t, stakes, n)
	for _, stake := range stakes {
		assert.Equal(t, staking.StateUnstakedAndClaimed, stake.State())
		assert.True(t, stake.TotalClaimedRewards.Equal(decimal.NewFromInt(10)), stake.TotalClaimedRewards.String())
	}
}

// Each goroutine gets its own Coordinator, so the per-stake lock does not
// serialize them and only the database decides the winner.
func TestBackendConcurrentSameStake(t *testing.T) {
	ctx := context.Background()
	b := newFileBackend(t)

	plan, err := b.CreatePlan(ctx, staking.PlanParams{Name: "instant", RewardPercentage: decimal.NewFromInt(10)})
	require.NoError(t, err)
	stake, err := b.AppendStake(ctx, "alice", plan.ID, decimal.NewFromInt(100), t0)
	require.NoError(t, err)

	const n = 16
	claimErrs := make([]error, n)
	unstakeErrs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _, claimErrs[i] = staking.NewCoordinator(b, b).ClaimRewards(ctx, stake.ID, t0)
		}(i)
		go func(i int) {
			defer wg.Done()
			_, unstakeErrs[i] = staking.NewCoordinator(b, b).Unstake(ctx, stake.ID, t0)
		}(i)
	}
	wg.Wait()

	var claimed, unstaked int
	for i := 0; i < n; i++ {
		if claimErrs[i] == nil {
			claimed++
		} else {
			assert.ErrorIs(t, claimErrs[i], staking.ErrAlreadyClaimed)
		}
		if unstakeErrs[i] == nil {
			unstaked++
		} else {
			assert.ErrorIs(t, unstakeErrs[i], staking.ErrAlreadyUnstaked)
		}
	}
	assert.Equal(t, 1, claimed)
	assert.Equal(t, 1, unstaked)

	got, err := b.GetStake(ctx, stake.ID)
	require.NoError(t, err)
	assert.Equal(t, staking.StateUnstakedAndClaimed, got.State())
	assert.True(t, got.TotalClaimedRewards.Equal(decimal.NewFromInt(10)), got.TotalClaimedRewards.String())
}
