// Package kitchen implements a discrete household environment. An
// agent walks the floor of a gridded kitchen, faces fixed receptacles
// such as the counter or the fridge, and picks household objects up
// or puts them down. There is no physics: every transition is an
// exact, deterministic update of the scene state.
package kitchen

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/rwgardner2/cups-rl/environment"
	"github.com/rwgardner2/cups-rl/spec"
	ts "github.com/rwgardner2/cups-rl/timestep"
)

// Kitchen implements the kitchen environment. The agent's ten actions
// move its body, turn its head, and interact with the faced
// receptacle:
//
//	Action	Meaning
//	  0		MoveAhead
//	  1		MoveBack
//	  2		MoveRight
//	  3		MoveLeft
//	  4		LookUp
//	  5		LookDown
//	  6		RotateRight
//	  7		RotateLeft
//	  8		PickupObject
//	  9		PutObject
//
// Moves that would leave the grid or enter a receptacle cell leave
// the state unchanged, as do pickups and puts whose preconditions
// fail. Observations are the scene's feature vector with every
// feature in [0, 1].
type Kitchen struct {
	env.Task
	scene    *Scene
	discount float64
	lastStep ts.TimeStep
}

// New constructs a new Kitchen environment on scene s with task t.
// Episodes discount future rewards by discount per step.
func New(t env.Task, s *Scene, discount float64) (*Kitchen, ts.TimeStep) {
	k := &Kitchen{
		Task:     t,
		scene:    s,
		discount: discount,
	}
	firstStep := k.Reset()
	return k, firstStep
}

// Reset resets the environment to a start state drawn from the task's
// Starter and returns the starting timestep. All objects return to
// their initial receptacles and the agent's hand is emptied.
func (k *Kitchen) Reset() ts.TimeStep {
	k.scene.reset()

	// The starter draws cells uniformly over the whole grid, so
	// redraw when it lands on a receptacle
	for try := 0; ; try++ {
		start := k.Start()
		row := int(start.AtVec(0))
		col := int(start.AtVec(1))
		facing := int(start.AtVec(2))

		if k.scene.Free(row, col) {
			k.scene.place(row, col, facing)
			break
		}
		if try >= 100 {
			row, col = k.firstFreeCell()
			k.scene.place(row, col, facing)
			break
		}
	}

	startStep := ts.New(ts.First, 0, k.discount, k.scene.observation(), 0)
	k.lastStep = startStep
	return startStep
}

// firstFreeCell scans the grid row-major for a free cell
func (k *Kitchen) firstFreeCell() (int, int) {
	for row := 0; row < k.scene.Rows(); row++ {
		for col := 0; col < k.scene.Cols(); col++ {
			if k.scene.Free(row, col) {
				return row, col
			}
		}
	}
	panic("reset: scene has no free cell")
}

// Step takes one environmental step given action a and returns the
// next state as a timestep.TimeStep and a bool indicating whether or
// not the episode has ended. Once an episode ends, the returned
// step's discount is 0 so that learners do not bootstrap past it.
func (k *Kitchen) Step(a mat.Vector) (ts.TimeStep, bool) {
	action := int(a.AtVec(0))

	// Ensure a legal action was selected
	if action < MinAction || action > MaxAction {
		panic(fmt.Sprintf("illegal action %v ∉ [0, 9]", action))
	}

	k.scene.apply(Action(action))

	obs := k.scene.observation()
	reward := k.GetReward(k.lastStep.Observation, a, obs)
	nextStep := ts.New(ts.Mid, reward, k.discount, obs,
		k.lastStep.Number+1)

	k.End(&nextStep)
	if nextStep.Last() {
		nextStep.Discount = 0.0
	}

	k.lastStep = nextStep
	return nextStep, nextStep.Last()
}

// CurrentTimeStep returns the timestep the environment is currently in
func (k *Kitchen) CurrentTimeStep() ts.TimeStep {
	return k.lastStep
}

// ActionSpec returns the action specification of the environment
func (k *Kitchen) ActionSpec() spec.Environment {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{float64(MinAction)})
	upperBound := mat.NewVecDense(1, []float64{float64(MaxAction)})

	return spec.NewEnvironment(shape, spec.Action, lowerBound, upperBound,
		spec.Discrete)
}

// ObservationSpec returns the observation specification of the
// environment
func (k *Kitchen) ObservationSpec() spec.Environment {
	features := k.scene.Features()
	shape := mat.NewVecDense(features, nil)

	lower := make([]float64, features)
	upper := make([]float64, features)
	for i := range upper {
		upper[i] = 1.0
	}
	lowerBound := mat.NewVecDense(features, lower)
	upperBound := mat.NewVecDense(features, upper)

	return spec.NewEnvironment(shape, spec.Observation, lowerBound,
		upperBound, spec.Continuous)
}

// DiscountSpec returns the discounting specification of the
// environment
func (k *Kitchen) DiscountSpec() spec.Environment {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{k.discount})
	upperBound := mat.NewVecDense(1, []float64{k.discount})

	return spec.NewEnvironment(shape, spec.Discount, lowerBound,
		upperBound, spec.Continuous)
}

// Scene returns the environment's scene
func (k *Kitchen) Scene() *Scene {
	return k.scene
}

func (k *Kitchen) String() string {
	row, col, facing, _ := k.scene.AgentPose()
	holding := "nothing"
	if held, ok := k.scene.Held(); ok {
		holding = held.String()
	}

	str := "Kitchen | At: (%d, %d)  |  Facing: %d  |  Holding: %v  |  " +
		"Bounds: (%d, %d)"
	return fmt.Sprintf(str, row, col, facing, holding, k.scene.Rows(),
		k.scene.Cols())
}
