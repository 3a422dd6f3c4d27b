package contracts

import "errors"

var (
	// ErrInsufficientData marks a baseline too short to score against.
	// Non-fatal: detection yields a "not anomalous" result.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDataUnavailable marks a missing forecast for the requested
	// horizon. Blocks scenario generation only.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrComputationDegenerate marks guarded zero-variance or zero-mean
	// paths where the model cannot produce a meaningful result.
	ErrComputationDegenerate = errors.New("computation degenerate")

	// ErrExternalServiceTimeout marks a narrative or forecast call that
	// exceeded its deadline. The numeric pipeline proceeds without it.
	ErrExternalServiceTimeout = errors.New("external service timeout")

	// ErrDispatchFailure marks an unreachable alert channel. Logged,
	// never blocks persistence of the underlying record.
	ErrDispatchFailure = errors.New("dispatch failure")
)
