package experiment

import (
	"fmt"

	"github.com/samuelfneumann/progressbar"

	"github.com/rwgardner2/cups-rl/agent"
	env "github.com/rwgardner2/cups-rl/environment"
	"github.com/rwgardner2/cups-rl/experiment/checkpointer"
	"github.com/rwgardner2/cups-rl/experiment/tracker"
	ts "github.com/rwgardner2/cups-rl/timestep"
)

// progressWidth is the width in characters of the progress bar
// displayed by Run
const progressWidth = 65

// Online is an Experiment that runs an agent online only. No offline
// evaluation is performed.
type Online struct {
	env.Environment
	agent.Agent
	maxSteps      uint
	currentSteps  uint
	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer

	// Progress bar for Run, nil outside of Run
	pbar *progressbar.ManualProgressBar
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The steps parameter determines how
// many timesteps the experiment is run for, the t parameter the
// trackers determining which data is saved, and the c parameter the
// checkpointers periodically saving agent state.
func NewOnline(e env.Environment, a agent.Agent, steps uint,
	t []tracker.Tracker, c []checkpointer.Checkpointer) *Online {
	return &Online{e, a, steps, 0, t, c, nil}
}

// Register registers a tracker.Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// RunEpisode runs a single episode of the experiment and returns
// whether the experiment's step limit was reached during the episode
func (o *Online) RunEpisode() (bool, error) {
	step := o.Environment.Reset()
	if err := o.Agent.ObserveFirst(step); err != nil {
		return false, fmt.Errorf("runepisode: could not observe first "+
			"timestep: %v", err)
	}
	o.track(step)

	// Run the next timestep
	for !step.Last() && o.currentSteps < o.maxSteps {
		o.currentSteps++
		if o.pbar != nil {
			o.pbar.Increment()
			o.pbar.Display()
		}

		// Select action, step in environment
		action := o.Agent.SelectAction(step)
		step, _ = o.Environment.Step(action)

		// Cache the environment step in each Tracker
		o.track(step)

		// Observe the timestep and step the agent
		if err := o.Agent.Observe(action, step); err != nil {
			return false, fmt.Errorf("runepisode: could not observe "+
				"timestep: %v", err)
		}
		if err := o.Agent.Step(); err != nil {
			return false, fmt.Errorf("runepisode: could not step "+
				"agent: %v", err)
		}

		if err := o.checkpoint(step); err != nil {
			return false, fmt.Errorf("runepisode: %v", err)
		}
	}

	if step.Last() {
		o.Agent.EndEpisode()
	}

	// Return whether or not the max timestep limit has been reached
	return o.currentSteps >= o.maxSteps, nil
}

// Run runs the entire experiment for all timesteps, displaying a
// progress bar in the terminal as the experiment progresses
func (o *Online) Run() error {
	o.pbar = progressbar.NewManualProgressBar(progressWidth,
		int(o.maxSteps))
	defer func() {
		o.pbar = nil
		fmt.Println() // Jump to the line after the progress bar
	}()

	ended := false
	for !ended {
		var err error
		ended, err = o.RunEpisode()
		if err != nil {
			return fmt.Errorf("run: %v", err)
		}
	}
	return nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() {
	for _, t := range o.trackers {
		t.Save()
	}
}

// track tracks the current timestep by caching its data in each
// tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tracker := range o.trackers {
		tracker.Track(t)
	}
}

// checkpoint offers the current timestep to each checkpointer
func (o *Online) checkpoint(t ts.TimeStep) error {
	for _, c := range o.checkpointers {
		if err := c.Checkpoint(t); err != nil {
			return fmt.Errorf("checkpoint: %v", err)
		}
	}
	return nil
}
