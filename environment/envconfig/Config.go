// Package envconfig provides configuration structs for configuring
// environments with default layouts and tasks. Environment
// configurations in this package are JSON serializable.
package envconfig

import (
	"fmt"

	env "github.com/rwgardner2/cups-rl/environment"
	"github.com/rwgardner2/cups-rl/environment/kitchen"
	ts "github.com/rwgardner2/cups-rl/timestep"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	Kitchen EnvName = "Kitchen"
)

// TaskName stores the tasks that can be configured with this package.
// Note that not all tasks can be used with all environments. The tasks
// that can be used with each environment are as follows:
//
//	Environment			Task
//	Kitchen				PickUp
type TaskName string

// Tasks available for configuration
const (
	PickUp TaskName = "PickUp"
)

// Config implements a specific configuration of a specific environment
// and specific task. Not all environments can have all tasks.
//
// The task fields below the cutoff apply to the PickUp task only:
// Targets names the object types whose pickup the task rewards,
// PickupReward and MovementReward set the reward scheme, and
// EndOnPickup ends the episode as soon as a target is in hand.
type Config struct {
	Environment   EnvName
	Task          TaskName
	Rows          int
	Cols          int
	EpisodeCutoff uint
	Discount      float64

	Targets        []kitchen.ObjectType
	PickupReward   float64
	MovementReward float64
	EndOnPickup    bool
}

// NewConfig returns a new environment Config with the default PickUp
// reward scheme: +1 for lifting a target, -0.01 per movement, episodes
// ending on the first successful pickup.
func NewConfig(envName EnvName, taskName TaskName, rows, cols int,
	episodeCutoff uint, discount float64) Config {
	return Config{
		Environment:   envName,
		Task:          taskName,
		Rows:          rows,
		Cols:          cols,
		EpisodeCutoff: episodeCutoff,
		Discount:      discount,

		Targets:        []kitchen.ObjectType{kitchen.Mug},
		PickupReward:   1.0,
		MovementReward: -0.01,
		EndOnPickup:    true,
	}
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment.
func (c Config) Create(seed uint64) (env.Environment, ts.TimeStep) {
	switch c.Environment {
	case Kitchen:
		return CreateKitchen(c, seed)
	}

	panic(fmt.Sprintf("create: cannot create environment %v, no such "+
		"environment", c.Environment))
}

// CreateKitchen is a factory for creating the Kitchen environment
// with the default scene layout and the task parameters of c.
func CreateKitchen(c Config, seed uint64) (env.Environment, ts.TimeStep) {
	scene, err := kitchen.NewScene(c.Rows, c.Cols)
	if err != nil {
		panic(fmt.Sprintf("createKitchen: %v", err))
	}

	// Starting cells are drawn over the full grid and rejected until
	// free, so the starter's bounds are simply the grid dimensions.
	s := env.NewCategoricalStarter([]int{c.Rows, c.Cols, 4}, seed)

	var task env.Task
	switch c.Task {
	case PickUp:
		task, err = kitchen.NewPickUp(scene, s, c.Targets,
			int(c.EpisodeCutoff), c.PickupReward, c.MovementReward,
			c.EndOnPickup)
		if err != nil {
			panic(fmt.Sprintf("createKitchen: %v", err))
		}

	default:
		panic(fmt.Sprintf("createKitchen: Kitchen environment has "+
			"no task %v", c.Task))
	}

	environment, firstStep := kitchen.New(task, scene, c.Discount)
	return environment, firstStep
}
