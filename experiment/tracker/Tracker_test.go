package tracker

import (
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/rwgardner2/cups-rl/environment/envconfig"
	ts "github.com/rwgardner2/cups-rl/timestep"
)

// step returns a synthetic timestep with the argument type, reward,
// and episode step number
func step(stepType ts.StepType, reward float64, number int) ts.TimeStep {
	obs := mat.NewVecDense(1, nil)
	return ts.New(stepType, reward, 0.99, obs, number)
}

func TestReturnTracksEpisodicReturns(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	tracker := NewReturn(filename)

	// First episode: rewards 1, 2, 3
	tracker.Track(step(ts.First, 0, 0))
	tracker.Track(step(ts.Mid, 1, 1))
	tracker.Track(step(ts.Mid, 2, 2))
	tracker.Track(step(ts.Last, 3, 3))

	// Second episode: a single reward of 5
	tracker.Track(step(ts.First, 0, 0))
	tracker.Track(step(ts.Last, 5, 1))

	tracker.Save()
	data := LoadData(filename)

	want := []float64{6, 5}
	if len(data) != len(want) {
		t.Fatalf("incorrect number of episodes \n\twant(%v)\n\thave(%v)",
			len(want), len(data))
	}
	for i := range want {
		if math.Abs(data[i]-want[i]) > 1e-12 {
			t.Errorf("incorrect return for episode %v "+
				"\n\twant(%v)\n\thave(%v)", i, want[i], data[i])
		}
	}
}

func TestReturnPanicsOnNonSequentialTimesteps(t *testing.T) {
	tracker := NewReturn(filepath.Join(t.TempDir(), "returns.bin"))
	tracker.Track(step(ts.First, 0, 0))

	defer func() {
		if recover() == nil {
			t.Error("expected a panic tracking non-sequential timesteps")
		}
	}()
	tracker.Track(step(ts.Mid, 1, 5))
}

func TestEpisodeLengthTracksLengths(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "lengths.bin")
	tracker := NewEpisodeLength(filename)

	tracker.Track(step(ts.First, 0, 0))
	tracker.Track(step(ts.Mid, 0, 1))
	tracker.Track(step(ts.Mid, 0, 2))
	tracker.Track(step(ts.Last, 0, 3))

	tracker.Track(step(ts.First, 0, 0))
	tracker.Track(step(ts.Last, 0, 1))

	tracker.Save()
	data := LoadData(filename)

	want := []float64{3, 1}
	if len(data) != len(want) {
		t.Fatalf("incorrect number of episodes \n\twant(%v)\n\thave(%v)",
			len(want), len(data))
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("incorrect length for episode %v "+
				"\n\twant(%v)\n\thave(%v)", i, want[i], data[i])
		}
	}
}

// TestRegisterTracksRegisteredEnvironment runs a short kitchen episode
// and checks that a tracker registered with the environment records
// the environment's own timesteps, ignoring the timesteps it is
// handed.
func TestRegisterTracksRegisteredEnvironment(t *testing.T) {
	config := envconfig.NewConfig(envconfig.Kitchen, envconfig.PickUp,
		4, 4, 2, 0.99)
	e, _ := config.Create(14)

	underlying := NewReturn(filepath.Join(t.TempDir(), "returns.bin"))
	registered := Register(underlying, e)

	// The argument timestep is ignored by a registered tracker
	registered.Track(ts.TimeStep{})

	action := mat.NewVecDense(1, []float64{0})
	wantReturn := 0.0
	last := false
	for i := 0; !last; i++ {
		if i >= 10 {
			t.Fatal("episode did not end at the step limit")
		}
		var next ts.TimeStep
		next, last = e.Step(action)
		wantReturn += next.Reward
		registered.Track(ts.TimeStep{})
	}

	returns := underlying.(*Return).episodeReturns
	if len(returns) != 1 {
		t.Fatalf("incorrect number of episodes \n\twant(1)\n\thave(%v)",
			len(returns))
	}
	if math.Abs(returns[0]-wantReturn) > 1e-12 {
		t.Errorf("incorrect episodic return \n\twant(%v)\n\thave(%v)",
			wantReturn, returns[0])
	}
}
