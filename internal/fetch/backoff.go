// SPDX-License-Identifier: MIT

package fetch

import (
	"math"
	"time"
)

// SleepCap is the longest single sleep between attempts. Reaching it has
// class-dependent consequences, see Decide.
const SleepCap = 60 * time.Second

// maxShift keeps the exponent clamped so the shift below stays defined for
// pathologically large attempt counts.
const maxShift = 62

// ComputeSleep returns the uncapped exponential backoff for the given
// 0-based attempt index: base * 2^attempt, saturating instead of wrapping.
// Pure, no I/O.
func ComputeSleep(base time.Duration, attempt int) time.Duration {
	if base < time.Second {
		base = time.Second
	}
	if attempt < 0 {
		attempt = 0
	}
	shift := uint(attempt)
	if shift > maxShift {
		shift = maxShift
	}
	if base > math.MaxInt64>>shift {
		return math.MaxInt64
	}
	return base << shift
}

// Decide applies the cap-interaction policy to a retryable failure.
//
// The asymmetry is deliberate and mirrors the documented upstream
// behavior: once the uncapped backoff reaches the cap, sustained HTTP
// status failures mean the remote side needs a cool-down longer than this
// engine will wait, so retries stop; transport and local I/O faults are
// assumed eventually self-resolving, so retries continue at the capped
// duration for the remaining attempt budget.
func Decide(class Class, base time.Duration, attempt int) Decision {
	raw := ComputeSleep(base, attempt)
	if raw >= SleepCap && class == ClassHTTPStatus {
		return Decision{Stop: true}
	}
	if raw > SleepCap {
		raw = SleepCap
	}
	return Decision{Sleep: raw}
}
