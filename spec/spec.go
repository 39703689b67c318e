// Package spec implements specifications of environment attributes
package spec

import "gonum.org/v1/gonum/mat"

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an action, an observation, a discount, or a reward
type SpecType int

const (
	Action SpecType = iota
	Observation
	Discount
	Reward
)

// Cardinality denotes whether an environment attribute takes values
// from a continuous or a discrete set
type Cardinality int

const (
	Continuous Cardinality = iota
	Discrete
)

// Environment implements a specification, which tells the type, shape,
// bounds, and cardinality of an action, observation, discount, or
// reward in an environment. For discrete attributes the upper bound
// holds the largest legal value, so a discrete action attribute with
// upper bound N admits the N+1 actions 0, 1, ..., N.
type Environment struct {
	Shape       mat.Vector
	Type        SpecType
	LowerBound  mat.Vector
	UpperBound  mat.Vector
	Cardinality Cardinality
}

// NewEnvironment constructs a new environment specification
func NewEnvironment(shape mat.Vector, t SpecType, lowerBound,
	upperBound mat.Vector, cardinality Cardinality) Environment {
	return Environment{shape, t, lowerBound, upperBound, cardinality}
}
