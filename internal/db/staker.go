package db

import (
	"context"
	"database/sql"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/generativelabs/stakeserver/internal/staking"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var stakeColumns = []string{
	"id", "user_id", "plan_id", "amount_staked", "created_at",
	"is_unstaked", "is_reward_claimed", "total_claimed_rewards",
}

func (c *Backend) AppendStake(
	ctx context.Context,
	userID string,
	planID string,
	amount decimal.Decimal,
	createdAt time.Time,
) (staking.StakeRecord, error) {
	stake := staking.StakeRecord{
		ID:                  uuid.NewString(),
		UserID:              userID,
		PlanID:              planID,
		AmountStaked:        amount,
		CreatedAt:           createdAt.UTC().Truncate(time.Millisecond),
		TotalClaimedRewards: decimal.Zero,
	}

	query, args := c.builder().Insert(stakesTable).
		Columns(stakeColumns...).
		Values(stake.ID, stake.UserID, stake.PlanID, stake.AmountStaked, stake.CreatedAt.UnixMilli(),
			false, false, stake.TotalClaimedRewards).
		Query()
	if _, err := c.drv.DB().ExecContext(ctx, query, args...); err != nil {
		return staking.StakeRecord{}, errors.Wrap(err, "insert stake")
	}

	return stake, nil
}

func (c *Backend) GetStake(ctx context.Context, id string) (staking.StakeRecord, error) {
	return c.getStake(ctx, c.drv.DB(), id)
}

func (c *Backend) getStake(ctx context.Context, q querier, id string) (staking.StakeRecord, error) {
	query, args := c.builder().Select(stakeColumns...).
		From(c.builder().Table(stakesTable)).
		Where(entsql.EQ("id", id)).
		Query()

	stake, err := scanStake(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return staking.StakeRecord{}, &staking.NotFoundError{Kind: "stake", ID: id}
	}
	return stake, err
}

func (c *Backend) ListStakesForUser(ctx context.Context, userID string) ([]staking.StakeRecord, error) {
	return c.queryStakes(ctx, entsql.EQ("user_id", userID))
}

func (c *Backend) ListStakes(ctx context.Context) ([]staking.StakeRecord, error) {
	return c.queryStakes(ctx, nil)
}

func (c *Backend) queryStakes(ctx context.Context, where *entsql.Predicate) ([]staking.StakeRecord, error) {
	selector := c.builder().Select(stakeColumns...).
		From(c.builder().Table(stakesTable)).
		OrderBy("created_at", "seq")
	if where != nil {
		selector.Where(where)
	}
	query, args := selector.Query()

	rows, err := c.drv.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query stakes")
	}
	defer rows.Close()

	stakes := []staking.StakeRecord{}
	for rows.Next() {
		stake, err := scanStake(rows)
		if err != nil {
			return nil, err
		}
		stakes = append(stakes, stake)
	}
	return stakes, errors.Wrap(rows.Err(), "query stakes")
}

// MarkUnstaked flips is_unstaked with a conditional update, so only one
// writer succeeds even across processes sharing the database.
func (c *Backend) MarkUnstaked(ctx context.Context, id string) (staking.StakeRecord, error) {
	var stake staking.StakeRecord
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		query, args := c.builder().Update(stakesTable).
			Set("is_unstaked", true).
			Where(entsql.And(
				entsql.EQ("id", id),
				entsql.EQ("is_unstaked", false),
			)).
			Query()
		flipped, err := execFlip(ctx, tx, query, args)
		if err != nil {
			return errors.Wrap(err, "update stake")
		}

		stake, err = c.getStake(ctx, tx, id)
		if err != nil {
			return err
		}
		if !flipped {
			return &staking.AlreadyUnstakedError{StakeID: id}
		}
		return nil
	})
	if err != nil {
		return staking.StakeRecord{}, err
	}
	return stake, nil
}

// MarkRewardClaimed sets is_reward_claimed with a conditional update, then
// adds amount to the claimed total. The flag is written before anything is
// read so the transaction holds the write lock from its first statement.
func (c *Backend) MarkRewardClaimed(ctx context.Context, id string, amount decimal.Decimal) (staking.StakeRecord, error) {
	var stake staking.StakeRecord
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		query, args := c.builder().Update(stakesTable).
			Set("is_reward_claimed", true).
			Where(entsql.And(
				entsql.EQ("id", id),
				entsql.EQ("is_reward_claimed", false),
			)).
			Query()
		flipped, err := execFlip(ctx, tx, query, args)
		if err != nil {
			return errors.Wrap(err, "update stake")
		}

		current, err := c.getStake(ctx, tx, id)
		if err != nil {
			return err
		}
		if !flipped {
			return &staking.AlreadyClaimedError{StakeID: id}
		}

		total := current.TotalClaimedRewards.Add(amount)
		query, args = c.builder().Update(stakesTable).
			Set("total_claimed_rewards", total).
			Where(entsql.EQ("id", id)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrap(err, "update claimed total")
		}

		current.TotalClaimedRewards = total
		stake = current
		return nil
	})
	if err != nil {
		return staking.StakeRecord{}, err
	}
	return stake, nil
}

// execFlip runs a conditional update and reports whether a row changed.
func execFlip(ctx context.Context, tx *sql.Tx, query string, args []any) (bool, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanStake(row scanner) (staking.StakeRecord, error) {
	var (
		stake     staking.StakeRecord
		createdAt int64
	)
	err := row.Scan(
		&stake.ID,
		&stake.UserID,
		&stake.PlanID,
		&stake.AmountStaked,
		&createdAt,
		&stake.IsUnstaked,
		&stake.IsRewardClaimed,
		&stake.TotalClaimedRewards,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return staking.StakeRecord{}, err
	}
	if err != nil {
		return staking.StakeRecord{}, errors.Wrap(err, "scan stake")
	}
	stake.CreatedAt = time.UnixMilli(createdAt).UTC()
	return stake, nil
}
