package kitchen

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/rwgardner2/cups-rl/environment"
	"github.com/rwgardner2/cups-rl/spec"
	ts "github.com/rwgardner2/cups-rl/timestep"
)

// PickUp implements the object collection task. The agent is rewarded
// for taking any object of a target type out of a receptacle. Every
// body or head movement earns the movement reward, which is usually a
// small negative value so that shorter trajectories score higher.
//
// Episodes end after a step limit. When endOnPickup is set they also
// end as soon as the agent holds a target object, so each episode is
// a single fetch.
type PickUp struct {
	env.Starter
	scene          *Scene
	targets        map[ObjectType]bool
	stepLimiter    env.StepLimit
	pickupEnder    env.Ender
	endOnPickup    bool
	pickupReward   float64
	movementReward float64
}

// NewPickUp returns a new PickUp task on scene for the given target
// object types. Episodes run for at most episodeSteps steps.
func NewPickUp(scene *Scene, starter env.Starter, targets []ObjectType,
	episodeSteps int, pickupReward, movementReward float64,
	endOnPickup bool) (*PickUp, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("newpickup: no target object types")
	}

	targetSet := make(map[ObjectType]bool, len(targets))
	for _, target := range targets {
		if int(target) < 0 || int(target) >= numObjectTypes {
			return nil, fmt.Errorf("newpickup: unknown object type %v",
				int(target))
		}
		targetSet[target] = true
	}

	p := &PickUp{
		Starter:        starter,
		scene:          scene,
		targets:        targetSet,
		stepLimiter:    env.NewStepLimit(episodeSteps),
		endOnPickup:    endOnPickup,
		pickupReward:   pickupReward,
		movementReward: movementReward,
	}
	p.pickupEnder = env.NewFunctionEnder(p.holdingTarget)

	return p, nil
}

// End checks if a TimeStep is the last in an episode. If so, it
// adjusts the TimeStep's StepType to timestep.Last and returns true.
// Otherwise, the function does not adjust the TimeStep and returns
// false.
func (p *PickUp) End(t *ts.TimeStep) bool {
	if p.endOnPickup {
		if end := p.pickupEnder.End(t); end {
			return true
		}
	}
	return p.stepLimiter.End(t)
}

// GetReward returns the reward for an action taken in some state,
// resulting in a transition to the next state nextState. A transition
// that moves a target object into the agent's empty hand earns the
// pickup reward. Movement actions earn the movement reward. Anything
// else earns nothing.
func (p *PickUp) GetReward(state, action, nextState mat.Vector) float64 {
	heldNow, holdingNow := p.scene.HeldType(nextState)
	_, heldBefore := p.scene.HeldType(state)

	a := Action(int(action.AtVec(0)))
	if a == PickupObject && holdingNow && !heldBefore && p.targets[heldNow] {
		return p.pickupReward
	}
	if a >= MoveAhead && a <= RotateLeft {
		return p.movementReward
	}
	return 0.0
}

// AtGoal returns whether or not the agent holds a target object in
// state
func (p *PickUp) AtGoal(state mat.Matrix) bool {
	return p.holdingTarget(state.(mat.Vector))
}

// holdingTarget reads the carried object out of an observation vector
func (p *PickUp) holdingTarget(obs mat.Vector) bool {
	held, holding := p.scene.HeldType(obs)
	return holding && p.targets[held]
}

// Min returns the minimum possible reward that can be received in the
// environment
func (p *PickUp) Min() float64 {
	if p.movementReward < 0.0 {
		return p.movementReward
	}
	return 0.0
}

// Max returns the maximum possible reward that can be received in the
// environment
func (p *PickUp) Max() float64 {
	if p.pickupReward > p.movementReward {
		return p.pickupReward
	}
	return p.movementReward
}

// RewardSpec returns the reward specification for the environment
func (p *PickUp) RewardSpec() spec.Environment {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{p.Min()})
	upperBound := mat.NewVecDense(1, []float64{p.Max()})

	return spec.NewEnvironment(shape, spec.Reward, lowerBound, upperBound,
		spec.Continuous)
}
