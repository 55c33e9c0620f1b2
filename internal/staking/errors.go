package staking

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrNotMature       = errors.New("stake not mature")
	ErrAlreadyUnstaked = errors.New("stake already unstaked")
	ErrAlreadyClaimed  = errors.New("rewards already claimed")
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a missing plan or stake.
type NotFoundError struct {
	Kind string // "plan" or "stake"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotMatureError is returned while the time lock of a stake has not elapsed.
// MaturesAt is the first instant at which the operation becomes valid.
type NotMatureError struct {
	StakeID   string
	MaturesAt time.Time
}

func (e *NotMatureError) Error() string {
	return fmt.Sprintf("stake %q matures at %s", e.StakeID, e.MaturesAt.UTC().Format(time.RFC3339Nano))
}

func (e *NotMatureError) Is(target error) bool { return target == ErrNotMature }

type AlreadyUnstakedError struct {
	StakeID string
}

func (e *AlreadyUnstakedError) Error() string {
	return fmt.Sprintf("stake %q already unstaked", e.StakeID)
}

func (e *AlreadyUnstakedError) Is(target error) bool { return target == ErrAlreadyUnstaked }

type AlreadyClaimedError struct {
	StakeID string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("rewards of stake %q already claimed", e.StakeID)
}

func (e *AlreadyClaimedError) Is(target error) bool { return target == ErrAlreadyClaimed }
