package expreplay

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/rwgardner2/cups-rl/timestep"
)

// testTransition constructs the k'th transition of a synthetic
// trajectory. Every state feature equals k, every next state feature
// k+1, the action is k modulo 10, and the reward is reward.
func testTransition(k, features int, reward, discount float64,
	end bool) timestep.Transition {
	state := make([]float64, features)
	nextState := make([]float64, features)
	for i := 0; i < features; i++ {
		state[i] = float64(k)
		nextState[i] = float64(k + 1)
	}

	return timestep.Transition{
		State:     mat.NewVecDense(features, state),
		Action:    mat.NewVecDense(1, []float64{float64(k % 10)}),
		Reward:    reward,
		Discount:  discount,
		NextState: mat.NewVecDense(features, nextState),
		End:       end,
	}
}

func TestCacheAddAndSample(t *testing.T) {
	const features = 3

	buffer, err := Factory(Fifo, Uniform, 1, 4, features, 1, 2, 14)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}

	for k := 0; k < 3; k++ {
		trans := testTransition(k, features, float64(k)*10.0, 0.99, false)
		if err := buffer.Add(trans); err != nil {
			t.Fatalf("could not add transition %v: %v", k, err)
		}
	}
	if cap := buffer.Capacity(); cap != 3 {
		t.Fatalf("unexpected capacity \n\twant(%v)\n\thave(%v)", 3, cap)
	}

	batch, err := buffer.Sample()
	if err != nil {
		t.Fatalf("could not sample: %v", err)
	}

	if len(batch.States) != 2*features ||
		len(batch.NextStates) != 2*features {
		t.Fatalf("unexpected state lengths \n\twant(%v)\n\thave(%v, %v)",
			2*features, len(batch.States), len(batch.NextStates))
	}

	// Sampled rows must be internally consistent with the synthetic
	// trajectory no matter which transitions were drawn
	for i := 0; i < buffer.BatchSize(); i++ {
		k := batch.States[i*features]
		if action := batch.Actions[i]; action != int(k)%10 {
			t.Errorf("row %v: unexpected action \n\twant(%v)\n\thave(%v)",
				i, int(k)%10, action)
		}
		if ret := batch.Returns[i]; ret != k*10.0 {
			t.Errorf("row %v: unexpected return \n\twant(%v)\n\thave(%v)",
				i, k*10.0, ret)
		}
		if next := batch.NextStates[i*features]; next != k+1 {
			t.Errorf("row %v: unexpected next state \n\twant(%v)"+
				"\n\thave(%v)", i, k+1, next)
		}
		if batch.Nonterminal[i] != 1.0 {
			t.Errorf("row %v: unexpected nonterminal mask \n\twant(%v)"+
				"\n\thave(%v)", i, 1.0, batch.Nonterminal[i])
		}
		if batch.Weights[i] != 1.0 {
			t.Errorf("row %v: uniform weight should be 1, got %v", i,
				batch.Weights[i])
		}
	}
}

func TestCacheSampleErrors(t *testing.T) {
	buffer, err := Factory(Fifo, Uniform, 3, 8, 2, 1, 2, 14)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}

	_, err = buffer.Sample()
	if !IsEmptyBuffer(err) {
		t.Errorf("sampling an empty buffer should report emptiness, "+
			"got %v", err)
	}

	if err := buffer.Add(testTransition(0, 2, 1.0, 0.99,
		false)); err != nil {
		t.Fatalf("could not add transition: %v", err)
	}
	_, err = buffer.Sample()
	if !IsInsufficientSamples(err) {
		t.Errorf("sampling below minimum capacity should report "+
			"insufficient samples, got %v", err)
	}
}

func TestCacheFifoRemoval(t *testing.T) {
	const features = 2

	// Max capacity 2 with a FiFo remover: adding a third transition
	// evicts the oldest
	buffer, err := Factory(Fifo, Fifo, 1, 2, features, 1, 2, 14)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}

	for k := 0; k < 2; k++ {
		if err := buffer.Add(testTransition(k+1, features, 0.0, 0.99,
			false)); err != nil {
			t.Fatalf("could not add transition %v: %v", k, err)
		}
	}
	if err := buffer.Add(testTransition(3, features, 0.0, 0.0,
		true)); err != nil {
		t.Fatalf("could not add transition after eviction: %v", err)
	}
	if cap := buffer.Capacity(); cap != 2 {
		t.Fatalf("unexpected capacity after eviction \n\twant(%v)"+
			"\n\thave(%v)", 2, cap)
	}

	// A FiFo sampler returns the survivors in insertion order
	batch, err := buffer.Sample()
	if err != nil {
		t.Fatalf("could not sample: %v", err)
	}
	if batch.States[0] != 2.0 || batch.States[features] != 3.0 {
		t.Errorf("oldest transition not evicted \n\twant(%v, %v)"+
			"\n\thave(%v, %v)", 2.0, 3.0, batch.States[0],
			batch.States[features])
	}
	if batch.Nonterminal[0] != 1.0 || batch.Nonterminal[1] != 0.0 {
		t.Errorf("unexpected nonterminal masks \n\twant(%v, %v)"+
			"\n\thave(%v, %v)", 1.0, 0.0, batch.Nonterminal[0],
			batch.Nonterminal[1])
	}
}

func TestCacheUpdatePrioritiesIsNoop(t *testing.T) {
	buffer, err := Factory(Fifo, Uniform, 1, 4, 2, 1, 1, 14)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}
	if err := buffer.Add(testTransition(0, 2, 0.0, 0.99,
		false)); err != nil {
		t.Fatalf("could not add transition: %v", err)
	}

	if err := buffer.UpdatePriorities([]int{0}, []float64{1.5}); err != nil {
		t.Errorf("uniform buffer should ignore priority updates, "+
			"got %v", err)
	}
}

func TestConfigCreate(t *testing.T) {
	config := Config{
		RemoveMethod:      Fifo,
		SampleMethod:      Uniform,
		RemoveSize:        1,
		SampleSize:        4,
		MaxReplayCapacity: 16,
		MinReplayCapacity: 2,
	}

	buffer, err := config.Create(3, 14)
	if err != nil {
		t.Fatalf("could not create buffer from config: %v", err)
	}

	if batchSize := buffer.BatchSize(); batchSize != 4 {
		t.Errorf("unexpected batch size \n\twant(%v)\n\thave(%v)", 4,
			batchSize)
	}
	if max := buffer.MaxCapacity(); max != 16 {
		t.Errorf("unexpected max capacity \n\twant(%v)\n\thave(%v)", 16,
			max)
	}
	if min := buffer.MinCapacity(); min != 2 {
		t.Errorf("unexpected min capacity \n\twant(%v)\n\thave(%v)", 2,
			min)
	}
}

func TestNewInvalidArguments(t *testing.T) {
	tests := []struct {
		name                     string
		minCapacity, maxCapacity int
		batchSize                int
	}{
		{"zero min capacity", 0, 4, 2},
		{"zero max capacity", 1, 0, 2},
		{"batch larger than capacity", 1, 2, 4},
	}

	for _, test := range tests {
		sampler := NewUniformSelector(test.batchSize, 14)
		remover := NewFifoSelector(1)
		_, err := New(remover, sampler, test.minCapacity,
			test.maxCapacity, 2)
		if err == nil {
			t.Errorf("%v: expected construction error", test.name)
		}
	}
}
