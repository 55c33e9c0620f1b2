package staking

import "time"

// MaturesAt returns the instant the stake's time lock elapses.
func MaturesAt(stake StakeRecord, plan Plan) time.Time {
	return stake.CreatedAt.Add(plan.LockPeriod())
}

// IsMature reports whether the lock has elapsed at now. The boundary instant
// itself counts as mature.
func IsMature(stake StakeRecord, plan Plan, now time.Time) bool {
	return !now.Before(MaturesAt(stake, plan))
}
