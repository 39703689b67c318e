package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/rwgardner2/cups-rl/timestep"
)

// StepLimit is an Ender that cuts episodes off after a fixed number
// of steps
type StepLimit struct {
	episodeSteps int
}

// NewStepLimit returns a StepLimit that cuts episodes off once they
// reach episodeSteps steps
func NewStepLimit(episodeSteps int) StepLimit {
	return StepLimit{episodeSteps}
}

// End reports whether t ends the current episode. When it does, End
// overwrites t's StepType with timestep.Last before returning.
func (s StepLimit) End(t *timestep.TimeStep) bool {
	if t.Number >= s.episodeSteps {
		t.StepType = timestep.Last
		return true
	}
	return false
}

// FunctionEnder ends an episode whenever a function of the step's
// observation vector returns true
type FunctionEnder struct {
	end func(mat.Vector) bool
}

// NewFunctionEnder returns a new FunctionEnder which ends episodes
// when f returns true
func NewFunctionEnder(f func(mat.Vector) bool) Ender {
	return &FunctionEnder{f}
}

// End reports whether t ends the current episode. When it does, End
// overwrites t's StepType with timestep.Last before returning.
func (f *FunctionEnder) End(t *timestep.TimeStep) bool {
	if f.end(t.Observation) {
		t.StepType = timestep.Last
		return true
	}
	return false
}
