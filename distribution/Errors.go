package distribution

import (
	"errors"

	"github.com/rwgardner2/cups-rl/utils/floatutils"
)

// DistributionError implements errors unique to categorical value
// distributions and their projection.
type DistributionError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *DistributionError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

var errTooFewAtoms = errors.New("support requires at least two atoms")

var errInvertedBounds = errors.New("support minimum must be below maximum")

var errNonFinite = errors.New("non-finite value encountered")

// IsInvalidConfiguration reports whether err indicates that a support
// was constructed from malformed parameters.
//
// A support is malformed if it has fewer than two atoms or if its
// minimum value does not lie strictly below its maximum value.
func IsInvalidConfiguration(err error) bool {
	if distErr, ok := err.(*DistributionError); ok {
		err = distErr.Err
	}
	return err == errTooFewAtoms || err == errInvertedBounds
}

// IsNumericInstability reports whether err indicates that a NaN or an
// Inf appeared in probability mass, returns, or losses. Such errors
// are fatal to a learning step and are never recovered from
// internally.
func IsNumericInstability(err error) bool {
	if distErr, ok := err.(*DistributionError); ok {
		err = distErr.Err
	}
	return err == errNonFinite
}

// CheckFinite returns a numeric instability error when any of the
// argument slices contains a NaN or an Inf. The op argument names the
// operation on whose behalf the check runs.
func CheckFinite(op string, values ...[]float64) error {
	for _, value := range values {
		if !floatutils.AllFinite(value) {
			return &DistributionError{Op: op, Err: errNonFinite}
		}
	}
	return nil
}
