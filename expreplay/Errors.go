package expreplay

import "errors"

// ExpReplayError is an error from a replay buffer operation. Op names
// the failing operation and Err holds the cause.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

var errEmptyCache = errors.New("no stored experience")

var errInsufficientSamples = errors.New("fewer samples than minimum capacity")

var errNonFinitePriority = errors.New("priority magnitude is not finite")

var errUnknownIndex = errors.New("index does not refer to stored experience")

// IsInsufficientSamples reports whether err indicates that a buffer
// held fewer samples than its minimum capacity when sampled.
func IsInsufficientSamples(err error) bool {
	if replayErr, ok := err.(*ExpReplayError); ok {
		err = replayErr.Err
	}
	return err == errInsufficientSamples
}

// IsEmptyBuffer reports whether err indicates that a replay buffer
// held no experience at all.
func IsEmptyBuffer(err error) bool {
	if replayErr, ok := err.(*ExpReplayError); ok {
		err = replayErr.Err
	}
	return err == errEmptyCache
}

// IsNumericInstability reports whether err indicates that a priority
// update carried a non-finite magnitude.
func IsNumericInstability(err error) bool {
	if replayErr, ok := err.(*ExpReplayError); ok {
		err = replayErr.Err
	}
	return err == errNonFinitePriority
}

// IsUnknownIndex reports whether err indicates that a priority update
// referred to an index holding no stored experience.
func IsUnknownIndex(err error) bool {
	if replayErr, ok := err.(*ExpReplayError); ok {
		err = replayErr.Err
	}
	return err == errUnknownIndex
}
