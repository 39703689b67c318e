package network

import (
	"testing"

	G "gorgonia.org/gorgonia"
)

func TestMultiHeadMLPShapes(t *testing.T) {
	features, batch, outputs := 6, 4, 10

	g := G.NewGraph()
	net, err := NewMultiHeadMLP(features, batch, outputs, g, []int{32, 16},
		[]bool{true, true}, G.GlorotU(1.0), []*Activation{ReLU(), ReLU()})
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}

	if net.BatchSize() != batch {
		t.Errorf("incorrect batch size \n\twant(%v)\n\thave(%v)", batch,
			net.BatchSize())
	}
	if net.Features() != features {
		t.Errorf("incorrect features \n\twant(%v)\n\thave(%v)", features,
			net.Features())
	}
	if net.Outputs() != outputs {
		t.Errorf("incorrect outputs \n\twant(%v)\n\thave(%v)", outputs,
			net.Outputs())
	}

	// Two hidden layers plus the added final layer, each with weights
	// and bias
	if len(net.Learnables()) != 6 {
		t.Errorf("incorrect number of learnables \n\twant(%v)\n\thave(%v)",
			6, len(net.Learnables()))
	}

	pred := net.Prediction()[0]
	if pred.Shape()[0] != batch || pred.Shape()[1] != outputs {
		t.Errorf("incorrect prediction shape \n\twant(%v, %v)"+
			"\n\thave(%v)", batch, outputs, pred.Shape())
	}
}

func TestMultiHeadMLPCloneWithBatch(t *testing.T) {
	net, err := NewMultiHeadMLP(4, 1, 3, G.NewGraph(), []int{8},
		[]bool{true}, G.GlorotU(1.0), []*Activation{TanH()})
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}

	clone, err := net.CloneWithBatch(32)
	if err != nil {
		t.Fatalf("could not clone network: %v", err)
	}

	if clone.BatchSize() != 32 {
		t.Errorf("incorrect clone batch size \n\twant(%v)\n\thave(%v)", 32,
			clone.BatchSize())
	}
	if clone.Graph() == net.Graph() {
		t.Error("clone shares the source network's graph")
	}

	// Cloning preserves weight values
	learnables := net.Learnables()
	for i, node := range clone.Learnables() {
		have := node.Value().Data().([]float64)
		want := learnables[i].Value().Data().([]float64)
		for j := range want {
			if have[j] != want[j] {
				t.Fatalf("weights %v differ after cloning at %v "+
					"\n\twant(%v)\n\thave(%v)", node.Name(), j, want[j],
					have[j])
			}
		}
	}
}

func TestMultiHeadMLPSet(t *testing.T) {
	source, err := NewMultiHeadMLP(4, 2, 3, G.NewGraph(), []int{8},
		[]bool{true}, G.GlorotU(1.0), []*Activation{ReLU()})
	if err != nil {
		t.Fatalf("could not create source network: %v", err)
	}

	dest, err := NewMultiHeadMLP(4, 2, 3, G.NewGraph(), []int{8},
		[]bool{true}, G.Zeroes(), []*Activation{ReLU()})
	if err != nil {
		t.Fatalf("could not create dest network: %v", err)
	}

	if err := dest.Set(source); err != nil {
		t.Fatalf("could not set weights: %v", err)
	}

	sourceLearnables := source.Learnables()
	for i, node := range dest.Learnables() {
		have := node.Value().Data().([]float64)
		want := sourceLearnables[i].Value().Data().([]float64)
		for j := range want {
			if have[j] != want[j] {
				t.Fatalf("weights %v differ after Set at %v "+
					"\n\twant(%v)\n\thave(%v)", node.Name(), j, want[j],
					have[j])
			}
		}
	}
}
