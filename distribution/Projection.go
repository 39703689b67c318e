package distribution

import (
	"fmt"
	"math"

	"github.com/rwgardner2/cups-rl/utils/floatutils"
)

// SelectTargets returns, for each batch row, the target network's
// distribution at the greedy action of the online network's
// distribution for the same row. Choosing the action with one network
// and evaluating it with the other reduces the overestimation bias of
// bootstrapping from a single network's own maximum.
//
// Both probability arguments are laid out row-major as
// [batch, actions*atoms], the atom block of action a within a row
// occupying columns [a*atoms, (a+1)*atoms). The returned slice is
// laid out [batch, atoms] and is suitable as the probs argument of
// Project.
func (s *Support) SelectTargets(onlineProbs, targetProbs []float64,
	batch, actions int) ([]float64, error) {
	rowLen := actions * s.atoms
	if len(onlineProbs) != batch*rowLen {
		return nil, fmt.Errorf("selecttargets: illegal online "+
			"probabilities length \n\twant(%v)\n\thave(%v)",
			batch*rowLen, len(onlineProbs))
	}
	if len(targetProbs) != batch*rowLen {
		return nil, fmt.Errorf("selecttargets: illegal target "+
			"probabilities length \n\twant(%v)\n\thave(%v)",
			batch*rowLen, len(targetProbs))
	}

	selected := make([]float64, batch*s.atoms)
	for j := 0; j < batch; j++ {
		onlineRow := onlineProbs[j*rowLen : (j+1)*rowLen]
		greedy := s.GreedyAction(onlineRow, actions)

		start := j*rowLen + greedy*s.atoms
		copy(selected[j*s.atoms:(j+1)*s.atoms],
			targetProbs[start:start+s.atoms])
	}
	return selected, nil
}

// Project computes the projection of an N-step Bellman backup onto
// the support, one projected distribution per batch row.
//
// The probs argument holds the target distribution of the selected
// action for each batch row back-to-back, row j occupying
// probs[j*atoms : (j+1)*atoms]. The returns argument holds each row's
// N-step return, nonterminal holds 1 for rows that bootstrap and 0
// for rows whose N-step window reached a terminal state, and discount
// is the N-step discount (the per-step discount raised to the N-th
// power).
//
// For each row the backed-up atom values Tz_i = R + nonterminal *
// discount * z_i are clamped into [Min, Max], and the source mass
// probs[i] is split between the two atoms bracketing each Tz_i in
// proportion to proximity. Splits accumulate, so source atoms landing
// on overlapping destinations sum. The projected mass of each row
// sums to the total mass of the source row.
//
// Terminal rows back up Tz_i = R for every atom. Their projected
// distribution concentrates at the clamped return regardless of the
// source distribution, which is the standard terminal-state backup.
//
// Any NaN or Inf in the inputs yields a numeric instability error
// identified by IsNumericInstability. Mass is never clamped or
// zero-filled to hide such values.
func (s *Support) Project(probs, returns, nonterminal []float64,
	discount float64) ([]float64, error) {
	batch := len(returns)
	if len(probs) != batch*s.atoms {
		return nil, fmt.Errorf("project: illegal probabilities length "+
			"\n\twant(%v)\n\thave(%v)", batch*s.atoms, len(probs))
	}
	if len(nonterminal) != batch {
		return nil, fmt.Errorf("project: illegal nonterminal length "+
			"\n\twant(%v)\n\thave(%v)", batch, len(nonterminal))
	}
	if err := CheckFinite("project", probs, returns, nonterminal,
		[]float64{discount}); err != nil {
		return nil, err
	}

	lastAtom := float64(s.atoms - 1)
	mass := make([]float64, batch*s.atoms)
	for j := 0; j < batch; j++ {
		sourceRow := probs[j*s.atoms : (j+1)*s.atoms]
		targetRow := mass[j*s.atoms : (j+1)*s.atoms]

		for i, z := range s.values {
			tz := returns[j] + nonterminal[j]*discount*z
			tz = floatutils.Clip(tz, s.min, s.max)

			// Clamping tz bounds b in [0, atoms-1] up to rounding in
			// the division, so guard the top edge
			b := floatutils.Clip((tz-s.min)/s.deltaZ, 0, lastAtom)
			lower := int(math.Floor(b))
			upper := int(math.Ceil(b))

			// When b lands exactly on an atom, lower == upper and both
			// proximity weights vanish. Shift one bound so the full
			// mass still lands on atom b. The second test must see the
			// first one's update or an integral b would project its
			// mass twice.
			if upper > 0 && lower == upper {
				lower--
			}
			if lower < s.atoms-1 && lower == upper {
				upper++
			}

			targetRow[lower] += sourceRow[i] * (float64(upper) - b)
			targetRow[upper] += sourceRow[i] * (b - float64(lower))
		}
	}

	return mass, nil
}
