package realtime

import "time"

// ReconnectPolicy decides how long to wait before reconnection attempt n
// (0-indexed), and whether to attempt at all.
type ReconnectPolicy interface {
	// NextDelay returns the delay before the given attempt. ok is false
	// when the policy has given up and no further attempt may be made.
	NextDelay(attempt int) (delay time.Duration, ok bool)
}

// BackoffPolicy retries with bounded exponential backoff:
// delay = min(MaxDelay, Base * 2^attempt), giving up after MaxAttempts.
type BackoffPolicy struct {
	Base        time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

func (p BackoffPolicy) NextDelay(attempt int) (time.Duration, bool) {
	if attempt >= p.MaxAttempts {
		return 0, false
	}
	d := p.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay, true
		}
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d, true
}

// FixedPolicy retries forever at a constant interval. A channel under this
// policy never reaches a terminal disconnected state on its own.
type FixedPolicy struct {
	Interval time.Duration
}

func (p FixedPolicy) NextDelay(int) (time.Duration, bool) {
	return p.Interval, true
}
