package call

import (
	"errors"
	"fmt"
)

// Reason is the machine-readable cause of a failed call
type Reason string

const (
	ReasonTimeout        Reason = "timeout"
	ReasonRateLimited    Reason = "rate_limited"
	ReasonQuotaExhausted Reason = "quota_exhausted"
	ReasonNotFound       Reason = "not_found"
	ReasonUnauthorized   Reason = "unauthorized"
	ReasonUnknown        Reason = "unknown_error"
)

// Failure is the only error type returned by Caller
type Failure struct {
	Reason     Reason
	Upstream   string
	URL        string // query string stripped
	Attempts   int
	StatusCode int // zero when no response was received
	Err        error

	transient bool
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s: %s after %d attempt(s)", f.Upstream, f.Reason, f.Attempts)
	if f.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", f.StatusCode)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Transient reports whether the failed attempt may succeed if retried
func (f *Failure) Transient() bool {
	return f.transient
}

// AsFailure extracts a *Failure from err. Any other error becomes an unknown_error failure.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Reason: ReasonUnknown, Err: err}
}

// ReasonOf returns the failure reason of err, or "" for nil
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	return AsFailure(err).Reason
}

// classifyStatus maps a non-2xx HTTP status onto a reason and retry class
func classifyStatus(status int) (Reason, bool) {
	switch {
	case status == 429:
		return ReasonRateLimited, true
	case status >= 500:
		return ReasonUnknown, true
	case status == 401 || status == 403:
		return ReasonUnauthorized, false
	case status == 404 || status == 410:
		return ReasonNotFound, false
	default:
		return ReasonUnknown, false
	}
}
