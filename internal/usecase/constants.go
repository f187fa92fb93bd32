package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration of a unit of work.
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now returns the function's time.
func (f ClockFunc) Now() time.Time { return f() }

func systemNow() time.Time { return time.Now().UTC() }
