package staking

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State names the position of a stake in its lifecycle.
type State string

const (
	StateActive             State = "active"
	StateUnstaked           State = "unstaked"
	StateRewardClaimed      State = "reward_claimed"
	StateUnstakedAndClaimed State = "unstaked_and_claimed"
)

// StakeRecord is a user's deposit against a plan.
type StakeRecord struct {
	ID                  string          `json:"_id"`
	UserID              string          `json:"userId"`
	PlanID              string          `json:"planId"`
	AmountStaked        decimal.Decimal `json:"amountStaked"`
	CreatedAt           time.Time       `json:"createdAt"`
	IsUnstaked          bool            `json:"isUnstaked"`
	IsRewardClaimed     bool            `json:"isRewardClaimed"`
	TotalClaimedRewards decimal.Decimal `json:"totalClaimedRewards"`
}

// State derives the lifecycle state from the two transition flags.
func (s StakeRecord) State() State {
	switch {
	case s.IsUnstaked && s.IsRewardClaimed:
		return StateUnstakedAndClaimed
	case s.IsUnstaked:
		return StateUnstaked
	case s.IsRewardClaimed:
		return StateRewardClaimed
	default:
		return StateActive
	}
}

// StakeLedger is the authoritative store of stake records. It performs no
// input validation; MarkUnstaked and MarkRewardClaimed refuse a second
// transition of the same flag.
type StakeLedger interface {
	AppendStake(ctx context.Context, userID, planID string, amount decimal.Decimal, createdAt time.Time) (StakeRecord, error)
	GetStake(ctx context.Context, id string) (StakeRecord, error)
	ListStakesForUser(ctx context.Context, userID string) ([]StakeRecord, error)
	ListStakes(ctx context.Context) ([]StakeRecord, error)
	MarkUnstaked(ctx context.Context, id string) (StakeRecord, error)
	MarkRewardClaimed(ctx context.Context, id string, amount decimal.Decimal) (StakeRecord, error)
}

// MemoryLedger is an in-process StakeLedger. Records never leave it by
// pointer; callers always receive copies.
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[string]*StakeRecord
	order   []string
	byUser  map[string][]string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records: make(map[string]*StakeRecord),
		byUser:  make(map[string][]string),
	}
}

func (l *MemoryLedger) AppendStake(_ context.Context, userID, planID string, amount decimal.Decimal, createdAt time.Time) (StakeRecord, error) {
	rec := &StakeRecord{
		ID:                  uuid.NewString(),
		UserID:              userID,
		PlanID:              planID,
		AmountStaked:        amount,
		CreatedAt:           createdAt,
		TotalClaimedRewards: decimal.Zero,
	}

	l.mu.Lock()
	l.records[rec.ID] = rec
	l.order = append(l.order, rec.ID)
	l.byUser[userID] = append(l.byUser[userID], rec.ID)
	l.mu.Unlock()

	return *rec, nil
}

func (l *MemoryLedger) GetStake(_ context.Context, id string) (StakeRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[id]
	if !ok {
		return StakeRecord{}, &NotFoundError{Kind: "stake", ID: id}
	}
	return *rec, nil
}

func (l *MemoryLedger) ListStakesForUser(_ context.Context, userID string) ([]StakeRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.collect(l.byUser[userID]), nil
}

func (l *MemoryLedger) ListStakes(_ context.Context) ([]StakeRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.collect(l.order), nil
}

// collect copies the records named by ids, ordered by creation time with
// insertion order breaking ties. Caller holds l.mu.
func (l *MemoryLedger) collect(ids []string) []StakeRecord {
	out := make([]StakeRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, *l.records[id])
	}
	slices.SortStableFunc(out, func(a, b StakeRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

func (l *MemoryLedger) MarkUnstaked(_ context.Context, id string) (StakeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok {
		return StakeRecord{}, &NotFoundError{Kind: "stake", ID: id}
	}
	if rec.IsUnstaked {
		return StakeRecord{}, &AlreadyUnstakedError{StakeID: id}
	}
	rec.IsUnstaked = true
	return *rec, nil
}

func (l *MemoryLedger) MarkRewardClaimed(_ context.Context, id string, amount decimal.Decimal) (StakeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok {
		return StakeRecord{}, &NotFoundError{Kind: "stake", ID: id}
	}
	if rec.IsRewardClaimed {
		return StakeRecord{}, &AlreadyClaimedError{StakeID: id}
	}
	rec.IsRewardClaimed = true
	rec.TotalClaimedRewards = rec.TotalClaimedRewards.Add(amount)
	return *rec, nil
}
