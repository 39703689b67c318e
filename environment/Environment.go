// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/rwgardner2/cups-rl/spec"
	ts "github.com/rwgardner2/cups-rl/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() mat.Vector
}

// Ender determines when an episode ends
type Ender interface {
	// End takes the most recent timestep and checks whether it ends
	// the episode. If so, End modifies the timestep's StepType to
	// timestep.Last and returns true.
	End(*ts.TimeStep) bool
}

// Task implements the reward scheme, the starting scheme, and the
// ending scheme for taking actions in some environment
type Task interface {
	Starter
	Ender

	// GetReward returns the reward for a transition from state to
	// nextState under action
	GetReward(state, action, nextState mat.Vector) float64

	// AtGoal returns whether state is a goal state of the task
	AtGoal(state mat.Matrix) bool

	// Min and Max return the minimum and maximum attainable rewards
	Min() float64
	Max() float64

	RewardSpec() spec.Environment
}

// Environment implements a simulated environment, which includes a
// Task to complete
type Environment interface {
	Task
	Reset() ts.TimeStep
	Step(action mat.Vector) (ts.TimeStep, bool)
	CurrentTimeStep() ts.TimeStep
	DiscountSpec() spec.Environment
	ObservationSpec() spec.Environment
	ActionSpec() spec.Environment
}
