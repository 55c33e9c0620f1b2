package staking

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedgerAppendAndGet(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	rec, err := l.AppendStake(ctx, "alice", "plan-1", decimal.NewFromInt(100), t0)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.IsUnstaked)
	assert.False(t, rec.IsRewardClaimed)
	assert.True(t, rec.TotalClaimedRewards.IsZero())
	assert.Equal(t, StateActive, rec.State())

	got, err := l.GetStake(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = l.GetStake(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryLedgerOrdering(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	late, _ := l.AppendStake(ctx, "alice", "p", decimal.NewFromInt(1), t0.Add(time.Minute))
	early, _ := l.AppendStake(ctx, "alice", "p", decimal.NewFromInt(2), t0)
	tieA, _ := l.AppendStake(ctx, "alice", "p", decimal.NewFromInt(3), t0.Add(2*time.Minute))
	tieB, _ := l.AppendStake(ctx, "alice", "p", decimal.NewFromInt(4), t0.Add(2*time.Minute))
	bob, _ := l.AppendStake(ctx, "bob", "p", decimal.NewFromInt(5), t0)

	stakes, err := l.ListStakesForUser(ctx, "alice")
	require.NoError(t, err)
	ids := make([]string, len(stakes))
	for i, s := range stakes {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{early.ID, late.ID, tieA.ID, tieB.ID}, ids)

	all, err := l.ListStakes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Contains(t, all, bob)

	none, err := l.ListStakesForUser(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryLedgerTransitionsOnce(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	rec, _ := l.AppendStake(ctx, "alice", "p", decimal.NewFromInt(100), t0)

	updated, err := l.MarkUnstaked(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StateUnstaked, updated.State())

	_, err = l.MarkUnstaked(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrAlreadyUnstaked)

	updated, err = l.MarkRewardClaimed(ctx, rec.ID, decimal.NewFromInt(7))
	require.NoError(t, err)
	assert.Equal(t, StateUnstakedAndClaimed, updated.State())
	assert.True(t, updated.TotalClaimedRewards.Equal(decimal.NewFromInt(7)))

	_, err = l.MarkRewardClaimed(ctx, rec.ID, decimal.NewFromInt(7))
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	got, _ := l.GetStake(ctx, rec.ID)
	assert.True(t, got.TotalClaimedRewards.Equal(decimal.NewFromInt(7)))

	_, err = l.MarkUnstaked(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.MarkRewardClaimed(ctx, "nope", decimal.Zero)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryLedgerReturnsCopies(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	rec, _ := l.AppendStake(ctx, "alice", "p", decimal.NewFromInt(100), t0)

	rec.IsUnstaked = true
	got, _ := l.GetStake(ctx, rec.ID)
	assert.False(t, got.IsUnstaked)
}
