package db

import (
	"context"
	"database/sql"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/generativelabs/stakeserver/internal/staking"
	"github.com/pkg/errors"
)

var planColumns = []string{
	"id", "name", "duration_minutes", "minimum_amount", "reward_percentage", "created_at",
}

func (c *Backend) CreatePlan(ctx context.Context, params staking.PlanParams) (staking.Plan, error) {
	plan, err := staking.NewPlan(params, c.now())
	if err != nil {
		return staking.Plan{}, err
	}

	query, args := c.builder().Insert(plansTable).
		Columns(planColumns...).
		Values(plan.ID, plan.Name, plan.DurationMinutes, plan.MinimumAmount,
			plan.RewardPercentage, plan.CreatedAt.UnixMilli()).
		Query()
	if _, err := c.drv.DB().ExecContext(ctx, query, args...); err != nil {
		return staking.Plan{}, errors.Wrap(err, "insert plan")
	}

	return plan, nil
}

func (c *Backend) ListPlans(ctx context.Context) ([]staking.Plan, error) {
	query, args := c.builder().Select(planColumns...).
		From(c.builder().Table(plansTable)).
		OrderBy("seq").
		Query()
	rows, err := c.drv.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query plans")
	}
	defer rows.Close()

	plans := []staking.Plan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, errors.Wrap(rows.Err(), "query plans")
}

func (c *Backend) GetPlan(ctx context.Context, id string) (staking.Plan, error) {
	query, args := c.builder().Select(planColumns...).
		From(c.builder().Table(plansTable)).
		Where(entsql.EQ("id", id)).
		Query()

	plan, err := scanPlan(c.drv.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return staking.Plan{}, &staking.NotFoundError{Kind: "plan", ID: id}
	}
	return plan, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (staking.Plan, error) {
	var (
		plan      staking.Plan
		createdAt int64
	)
	err := row.Scan(
		&plan.ID,
		&plan.Name,
		&plan.DurationMinutes,
		&plan.MinimumAmount,
		&plan.RewardPercentage,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return staking.Plan{}, err
	}
	if err != nil {
		return staking.Plan{}, errors.Wrap(err, "scan plan")
	}
	plan.CreatedAt = time.UnixMilli(createdAt).UTC()
	return plan, nil
}
