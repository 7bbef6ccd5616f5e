package resilience

import "time"

// Policy bounds one class of outbound calls. RetryMaxAttempts of 1 means
// the call runs exactly once; enrichment lookups and usage reports must
// stay at 1 because their contract forbids automatic retries.
type Policy struct {
	RetryMaxAttempts int
	RetryBackoff     time.Duration
	RetryMultiplier  float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// SingleAttempt protects a call with a breaker but never retries it.
func SingleAttempt() Policy {
	return Policy{
		RetryMaxAttempts: 1,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// Retrying is for best-effort downloads where repeating the call is safe.
func Retrying(maxAttempts int) Policy {
	p := SingleAttempt()
	p.RetryMaxAttempts = maxAttempts
	p.RetryBackoff = 200 * time.Millisecond
	p.RetryMultiplier = 2.0
	return p
}

func (p Policy) normalize() Policy {
	out := p
	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = 1
	}
	if out.RetryMaxAttempts > 1 && out.RetryBackoff <= 0 {
		out.RetryBackoff = 200 * time.Millisecond
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = 1.0
	}
	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = 10
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = 0.5
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = 30 * time.Second
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = 2
	}
	return out
}
