package core

import "errors"

// Lookup errors: the caller referenced an id with no matching entity.
var (
	ErrUnknownAccount = errors.New("unknown account")
	ErrUnknownGoal    = errors.New("unknown goal")
	ErrUnknownChore   = errors.New("unknown chore")
	ErrUnknownMission = errors.New("unknown mission")
)

// Validation and state errors. None of them leave partial effects behind.
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEmptyTitle        = errors.New("empty title")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidTheme      = errors.New("invalid card theme")
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidKind       = errors.New("invalid transaction kind")
	ErrInvalidFrequency  = errors.New("invalid allowance frequency")
	ErrInvalidWeekday    = errors.New("invalid weekday")
)

// Spending policy outcomes reported by the authorization seam.
var (
	ErrCardFrozen         = errors.New("card is frozen")
	ErrCategoryBlocked    = errors.New("category is blocked")
	ErrDailyLimitExceeded = errors.New("daily limit exceeded")
)

// ErrExternalService marks a content generator failure. It is recovered with
// local fallback content and never reaches the end user.
var ErrExternalService = errors.New("external service error")
