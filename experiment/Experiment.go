// Package experiment ties agents, environments, trackers, and
// checkpointers together into runnable experiments
package experiment

import (
	"fmt"

	"github.com/rwgardner2/cups-rl/agent"
	"github.com/rwgardner2/cups-rl/environment/envconfig"
	"github.com/rwgardner2/cups-rl/experiment/checkpointer"
	"github.com/rwgardner2/cups-rl/experiment/tracker"
	ts "github.com/rwgardner2/cups-rl/timestep"
)

// Experiment runs an agent on an environment. Run() runs episodes
// back to back until a step limit or another ending condition is
// reached, while RunEpisode() runs one episode.
//
// Data generated while running is cached in RAM by Trackers, which
// decide which parts of each TimeStep to keep. The Experiment sends
// every TimeStep to each registered Tracker through the Tracker's
// Track() method, and Save() writes the cached data to disk once the
// run ends. Trackers are registered at construction or later through
// Register().
//
// Experiments may also checkpoint agent state periodically using
// checkpointer.Checkpointers, so that a later experiment can resume
// from the last saved checkpoint.
type Experiment interface {
	Run() error

	// RunEpisode returns whether or not the experiment's step limit
	// was reached during the episode
	RunEpisode() (bool, error)

	// Tracks current timestep by sending it to Trackers
	track(ts.TimeStep)

	// Write all cached data to disk
	Save()

	// Adds a new tracker.Tracker to the (possibly already running)
	// experiment. Useful if you want to track data only after a
	// specified event.
	Register(t tracker.Tracker)

	// Checkpoint the agent's current state
	checkpoint(ts.TimeStep) error
}

type Type string

const (
	OnlineExp Type = "OnlineExperiment"
)

// Config describes a runnable experiment.
type Config struct {
	Type
	MaxSteps  uint
	EnvConf   envconfig.Config
	AgentConf agent.TypedConfigList
}

// CreateExp returns the experiment the Config describes, run with the
// i'th agent configuration of the Config's sweep, the argument
// trackers, and the argument checkpointers.
func (c Config) CreateExp(i int, seed uint64, t []tracker.Tracker,
	check []checkpointer.Checkpointer) Experiment {
	env, _ := c.EnvConf.Create(seed)
	agent, err := c.AgentConf.At(i).CreateAgent(env, seed)
	if err != nil {
		panic(fmt.Sprintf("createexp: could not create agent: %v", err))
	}

	switch c.Type {
	case OnlineExp:
		return NewOnline(env, agent, c.MaxSteps, t, check)
	}

	panic(fmt.Sprintf("createexp: no such experiment type %v", c.Type))
}
