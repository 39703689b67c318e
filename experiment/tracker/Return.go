package tracker

import (
	"encoding/gob"
	"fmt"
	"log"
	"os"

	ts "github.com/rwgardner2/cups-rl/timestep"
)

// Return tracks the episodic returns of an experiment. Each tracked
// timestep's reward is added to the running return of the current
// episode, and the total is cached when the episode's last timestep
// arrives.
//
// Only finished episodes are saved. If the last episode of an
// experiment is cut off by the experiment's step limit before the
// environment ends it, that episode's return is dropped.
type Return struct {
	lastTimeStep   int
	currentReturn  float64
	episodeReturns []float64
	filename       string
}

// NewReturn returns a Tracker caching episodic returns, saved to
// filename
func NewReturn(filename string) Tracker {
	var saver Return
	saver.lastTimeStep = -1
	saver.filename = filename
	return &saver
}

// Track adds the timestep's reward to the current episode's return.
// On an episode's last timestep the episode's return is cached and a
// new episode's accumulation begins.
//
// Track panics when steps arrive out of sequence
func (r *Return) Track(step ts.TimeStep) {
	if r.lastTimeStep+1 != step.Number {
		msg := fmt.Sprintf("track: non-sequential timesteps: timestep %v "+
			"--> timestep %v", r.lastTimeStep, step.Number)
		panic(msg)
	}

	r.currentReturn += step.Reward

	if step.Last() {
		r.episodeReturns = append(r.episodeReturns, r.currentReturn)
		r.currentReturn = 0.0
		r.lastTimeStep = -1
	} else {
		r.lastTimeStep = step.Number
	}
}

// Save saves the cached episodic returns to disk
func (r *Return) Save() {
	file, err := os.Create(r.filename)
	if err != nil {
		log.Fatalf("could not create return data file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err = en.Encode(r.episodeReturns); err != nil {
		log.Fatalf("could not encode return data: %v", err)
	}
}
