package scheduler

import "time"

// Backoff returns the delay before the given retry attempt: base * 2^n,
// capped. Attempt 0 is the first retry.
func Backoff(base, cap time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	if d > cap {
		return cap
	}
	return d
}
