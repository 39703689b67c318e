// Package agent defines the interfaces satisfied by learning agents
package agent

import (
	"github.com/rwgardner2/cups-rl/timestep"
	"gonum.org/v1/gonum/mat"
)

// Agent is a complete learning algorithm, a Learner paired with the
// Policy it learns. The Policy picks actions, the Learner updates
// weights from the outcomes, and for a given agent the two share
// weights so that every learning step is reflected in the actions the
// Policy picks afterwards.
type Agent interface {
	Learner
	Policy
}

// Learner is the weight-updating half of an agent.
type Learner interface {
	// Step runs one update of the learner's weights
	Step() error

	// Observe records the timestep that followed taking action
	Observe(action mat.Vector, nextObs timestep.TimeStep) error

	// ObserveFirst records the starting timestep of an episode
	ObserveFirst(timestep.TimeStep) error

	// EndEpisode runs any cleanup needed between episodes
	EndEpisode()
}

// Policy determines how an agent selects actions. Agents switch their
// policy between a training mode, where actions explore, and an
// evaluation mode, where action selection is as close to greedy as the
// agent allows.
type Policy interface {
	SelectAction(t timestep.TimeStep) *mat.VecDense
	Eval()        // Switch to evaluation mode
	Train()       // Switch to training mode
	IsEval() bool // Reports whether in evaluation mode
}
