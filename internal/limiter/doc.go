// Package limiter implements Redis fixed-window attempt counters used to
// throttle OTP verification per subject.
package limiter
