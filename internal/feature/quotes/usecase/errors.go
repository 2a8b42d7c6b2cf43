package usecase

import "errors"

var (
	// ErrEmptySymbol is returned when a request does not name a symbol.
	ErrEmptySymbol = errors.New("symbol is required")

	// ErrInvalidSymbol is returned when a symbol is not a well-formed ticker.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrRateLimited is recorded when a request is dropped because a call quota is exhausted.
	ErrRateLimited = errors.New("quote API call quota exhausted")

	// ErrUpstreamStatus is recorded when the provider answers with an error status.
	ErrUpstreamStatus = errors.New("quote API returned an error status")

	// ErrEmptyResponse is recorded when the provider returns neither data nor an error.
	ErrEmptyResponse = errors.New("quote API returned an empty response")

	// ErrFetchTimeout is recorded when a provider call exceeds the configured timeout.
	ErrFetchTimeout = errors.New("quote API call timed out")
)
