package security

const DefaultLockoutThreshold = 5

// LockoutDecision is the outcome of applying the policy to one login attempt.
type LockoutDecision struct {
	Attempts  int
	Locked    bool
	Remaining int
}

// LockoutPolicy is a plain counter with no time window. Attempts accumulate
// until a successful login resets them.
type LockoutPolicy struct {
	Threshold int
}

func NewLockoutPolicy(threshold int) LockoutPolicy {
	if threshold < 1 {
		threshold = DefaultLockoutThreshold
	}
	return LockoutPolicy{Threshold: threshold}
}

// Failure applies a wrong-password event to the current counter.
func (p LockoutPolicy) Failure(failedAttempts int) LockoutDecision {
	if failedAttempts < 0 {
		failedAttempts = 0
	}
	next := failedAttempts + 1
	remaining := p.Threshold - next
	if remaining < 0 {
		remaining = 0
	}
	return LockoutDecision{
		Attempts:  next,
		Locked:    next >= p.Threshold,
		Remaining: remaining,
	}
}

// Success resets the counter. It never clears an existing lock.
func (p LockoutPolicy) Success(locked bool) LockoutDecision {
	return LockoutDecision{
		Attempts:  0,
		Locked:    locked,
		Remaining: p.Threshold,
	}
}
