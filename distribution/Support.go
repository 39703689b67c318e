// Package distribution implements categorical value distributions
// over a fixed support of atoms, as used by distributional value
// learning. A Support fixes the discrete set of returns a
// distribution can place mass on; probability mass itself travels as
// dense []float64 rows so that the package stays independent of any
// specific network library.
package distribution

import (
	"fmt"

	"github.com/rwgardner2/cups-rl/utils/floatutils"
	"gonum.org/v1/gonum/floats"
)

// Support is a fixed, ordered, evenly spaced grid of atom values on
// which categorical return distributions are represented. A Support
// is computed once at agent construction and is immutable afterwards.
type Support struct {
	atoms  int
	min    float64
	max    float64
	deltaZ float64
	values []float64
}

// NewSupport returns a Support of atoms evenly spaced atom values
// between min and max inclusive. The first atom value equals min and
// the last equals max.
func NewSupport(atoms int, min, max float64) (*Support, error) {
	if atoms < 2 {
		return nil, &DistributionError{Op: "newsupport", Err: errTooFewAtoms}
	}
	if min >= max {
		return nil, &DistributionError{Op: "newsupport", Err: errInvertedBounds}
	}

	deltaZ := (max - min) / float64(atoms-1)
	values := make([]float64, atoms)
	for i := range values {
		values[i] = min + float64(i)*deltaZ
	}

	// Spacing arithmetic must not drift past the upper bound
	values[atoms-1] = max

	return &Support{
		atoms:  atoms,
		min:    min,
		max:    max,
		deltaZ: deltaZ,
		values: values,
	}, nil
}

// Atoms returns the number of atoms in the support
func (s *Support) Atoms() int {
	return s.atoms
}

// Min returns the value of the lowest atom in the support
func (s *Support) Min() float64 {
	return s.min
}

// Max returns the value of the highest atom in the support
func (s *Support) Max() float64 {
	return s.max
}

// DeltaZ returns the spacing between adjacent atom values
func (s *Support) DeltaZ() float64 {
	return s.deltaZ
}

// Values returns the atom values of the support. The returned slice
// is the support's backing storage and must not be modified.
func (s *Support) Values() []float64 {
	return s.values
}

// ExpectedValues returns the expected value of each action's
// categorical distribution for a single state. The probs argument
// holds the distributions of all actions back-to-back, so that the
// atom block of action a occupies probs[a*atoms : (a+1)*atoms].
func (s *Support) ExpectedValues(probs []float64, actions int) []float64 {
	if len(probs) != actions*s.atoms {
		panic(fmt.Sprintf("expectedvalues: illegal probabilities length "+
			"\n\twant(%v)\n\thave(%v)", actions*s.atoms, len(probs)))
	}

	expected := make([]float64, actions)
	for a := 0; a < actions; a++ {
		block := probs[a*s.atoms : (a+1)*s.atoms]
		expected[a] = floats.Dot(s.values, block)
	}
	return expected
}

// GreedyAction returns the action whose categorical distribution has
// the highest expected value for a single state. Ties are broken by
// the lowest action index, so repeated calls on the same
// distributions return the same action. The probs argument is laid
// out as in ExpectedValues.
func (s *Support) GreedyAction(probs []float64, actions int) int {
	return floatutils.ArgMax(s.ExpectedValues(probs, actions))
}
