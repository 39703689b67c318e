package experiment

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/rwgardner2/cups-rl/environment/envconfig"
	"github.com/rwgardner2/cups-rl/experiment/checkpointer"
	"github.com/rwgardner2/cups-rl/experiment/tracker"
	ts "github.com/rwgardner2/cups-rl/timestep"
)

// countingAgent is an agent that selects a fixed action and counts its
// interface calls
type countingAgent struct {
	observeFirsts int
	observes      int
	steps         int
	endEpisodes   int
	eval          bool

	observeErr error // Returned by Observe when set
}

func (c *countingAgent) ObserveFirst(ts.TimeStep) error {
	c.observeFirsts++
	return nil
}

func (c *countingAgent) Observe(mat.Vector, ts.TimeStep) error {
	if c.observeErr != nil {
		return c.observeErr
	}
	c.observes++
	return nil
}

func (c *countingAgent) Step() error { c.steps++; return nil }
func (c *countingAgent) EndEpisode() { c.endEpisodes++ }

func (c *countingAgent) SelectAction(ts.TimeStep) *mat.VecDense {
	return mat.NewVecDense(1, []float64{0})
}

func (c *countingAgent) Eval()        { c.eval = true }
func (c *countingAgent) Train()       { c.eval = false }
func (c *countingAgent) IsEval() bool { return c.eval }

// countingTracker counts Track and Save calls
type countingTracker struct {
	tracks int
	saves  int
}

func (c *countingTracker) Track(ts.TimeStep) { c.tracks++ }
func (c *countingTracker) Save()             { c.saves++ }

// countingCheckpointer counts Checkpoint calls
type countingCheckpointer struct {
	checkpoints int
}

func (c *countingCheckpointer) Checkpoint(ts.TimeStep) error {
	c.checkpoints++
	return nil
}

func TestOnlineRunsToStepLimit(t *testing.T) {
	config := envconfig.NewConfig(envconfig.Kitchen, envconfig.PickUp,
		4, 4, 5, 0.99)
	e, _ := config.Create(14)

	a := &countingAgent{}
	track := &countingTracker{}
	check := &countingCheckpointer{}

	exp := NewOnline(e, a, 12, []tracker.Tracker{track},
		[]checkpointer.Checkpointer{check})
	if err := exp.Run(); err != nil {
		t.Fatalf("could not run experiment: %v", err)
	}
	exp.Save()

	if a.observes != 12 {
		t.Errorf("incorrect number of observed steps "+
			"\n\twant(%v)\n\thave(%v)", 12, a.observes)
	}
	if a.steps != 12 {
		t.Errorf("incorrect number of agent update steps "+
			"\n\twant(%v)\n\thave(%v)", 12, a.steps)
	}
	if check.checkpoints != 12 {
		t.Errorf("incorrect number of checkpoint offers "+
			"\n\twant(%v)\n\thave(%v)", 12, check.checkpoints)
	}

	// Each episode tracks its first step plus one step per action
	if want := 12 + a.observeFirsts; track.tracks != want {
		t.Errorf("incorrect number of tracked steps "+
			"\n\twant(%v)\n\thave(%v)", want, track.tracks)
	}

	// Episodes last at most five steps, so at least two of the twelve
	// steps' episodes finished; the last episode may have been cut off
	// by the experiment's step limit
	if a.endEpisodes < 2 {
		t.Errorf("incorrect number of finished episodes "+
			"\n\twant(>=2)\n\thave(%v)", a.endEpisodes)
	}
	if a.observeFirsts != a.endEpisodes &&
		a.observeFirsts != a.endEpisodes+1 {
		t.Errorf("mismatched episode starts and ends: %v starts, %v ends",
			a.observeFirsts, a.endEpisodes)
	}

	if track.saves != 1 {
		t.Errorf("incorrect number of tracker saves "+
			"\n\twant(%v)\n\thave(%v)", 1, track.saves)
	}
}

func TestOnlineRegister(t *testing.T) {
	config := envconfig.NewConfig(envconfig.Kitchen, envconfig.PickUp,
		4, 4, 5, 0.99)
	e, _ := config.Create(14)

	a := &countingAgent{}
	exp := NewOnline(e, a, 3, nil, nil)

	track := &countingTracker{}
	exp.Register(track)

	if _, err := exp.RunEpisode(); err != nil {
		t.Fatalf("could not run episode: %v", err)
	}
	if track.tracks == 0 {
		t.Error("registered tracker received no timesteps")
	}
}

func TestOnlinePropagatesAgentErrors(t *testing.T) {
	config := envconfig.NewConfig(envconfig.Kitchen, envconfig.PickUp,
		4, 4, 5, 0.99)
	e, _ := config.Create(14)

	a := &countingAgent{observeErr: errors.New("cannot observe")}
	exp := NewOnline(e, a, 3, nil, nil)

	if err := exp.Run(); err == nil {
		t.Error("expected an agent error to end the experiment")
	}
}
