package simulation

import "errors"

var (
	// ErrEmptyHistory means the throughput window holds no completed work at all.
	// Simulating it would either forecast zero forever or never terminate.
	ErrEmptyHistory = errors.New("no completed items in the history window")

	// ErrInvalidRange is returned for a target date before the start date or a
	// non-positive number of remaining items.
	ErrInvalidRange = errors.New("invalid forecast range")

	// ErrInvalidConfig is returned for non-positive trial counts, history lengths
	// or percentile levels outside (0, 1].
	ErrInvalidConfig = errors.New("invalid simulation configuration")

	// ErrInvalidRecord is returned for a historical record with a negative item count.
	ErrInvalidRecord = errors.New("invalid throughput record")
)
