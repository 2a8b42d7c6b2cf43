package entity

import "time"

// Outcome tells how a queued request was settled.
type Outcome int

const (
	// OutcomeOK means the provider was called and returned usable data.
	OutcomeOK Outcome = iota + 1
	// OutcomeCached means a live cache entry answered the request.
	OutcomeCached
	// OutcomeRateLimited means a quota was exhausted and the request was dropped.
	OutcomeRateLimited
	// OutcomeUpstreamError means the provider failed or returned an error payload.
	OutcomeUpstreamError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeCached:
		return "cached"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeUpstreamError:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// Result is the settled state of one processed queue item.
type Result struct {
	Key     string
	Request Request
	Outcome Outcome
	Data    *TimeSeries // nil unless Outcome is OK or Cached
	Err     error       // set for RateLimited and UpstreamError
	At      time.Time
}

// HasData reports whether the result carries time-series data.
func (r Result) HasData() bool {
	return r.Data != nil && (r.Outcome == OutcomeOK || r.Outcome == OutcomeCached)
}
