package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayer adds a fully connected layer to the graph g. The layer
// maps in features to out features, with weights initialized by init
// and bias weights, if any, initialized to zero. The name prefixes the
// layer's node names in the graph.
func newFCLayer(g *G.ExprGraph, in, out int, withBias bool, init G.InitWFn,
	act *Activation, name string) *fcLayer {
	weights := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(in, out),
		G.WithName(name+"W"),
		G.WithInit(init),
	)

	var bias *G.Node
	if withBias {
		bias = G.NewVector(
			g,
			tensor.Float64,
			G.WithShape(out),
			G.WithName(name+"B"),
			G.WithInit(G.Zeroes()),
		)
	}

	return &fcLayer{
		weights: weights,
		bias:    bias,
		act:     act,
	}
}

// addfcLayers adds a sequence of fully connected layers to the graph
// g. Layer i maps hiddenSizes[i-1] features (features for i == 0) to
// hiddenSizes[i] features, has a bias unit if biases[i], and is
// followed by activations[i]. Node names are of the form
// prefix + "L<i>" + suffix.
func addfcLayers(g *G.ExprGraph, hiddenSizes []int, biases []bool,
	activations []*Activation, init G.InitWFn, features int,
	prefix, suffix string) []Layer {
	layers := make([]Layer, len(hiddenSizes))

	in := features
	for i, out := range hiddenSizes {
		name := fmt.Sprintf("%vL%d%v", prefix, i, suffix)
		layers[i] = newFCLayer(g, in, out, biases[i], init, activations[i],
			name)
		in = out
	}
	return layers
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	if f.Weights() != nil {
		x = G.Must(G.Mul(x, f.Weights()))
	}
	if f.Bias() != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x = G.Must(G.BroadcastAdd(x, f.Bias(), nil, []byte{0}))
	}
	if f.Activation() == nil || f.Activation().IsNil() {
		return x, nil
	}
	return f.Activation().fwd(x)
}

// CloneTo clones an fcLayer to a new computational graph
func (f *fcLayer) CloneTo(g *G.ExprGraph) Layer {
	var newWeights, newBias *G.Node

	if f.Weights() != nil {
		newWeights = f.Weights().CloneTo(g)
	}
	if f.Bias() != nil {
		newBias = f.Bias().CloneTo(g)
	}

	return &fcLayer{
		weights: newWeights,
		bias:    newBias,
		act:     f.act,
	}
}

// Learnables returns the learnable nodes of the fcLayer
func (f *fcLayer) Learnables() G.Nodes {
	learnables := make(G.Nodes, 0, 2)
	if f.weights != nil {
		learnables = append(learnables, f.weights)
	}
	if f.bias != nil {
		learnables = append(learnables, f.bias)
	}
	return learnables
}

func (f *fcLayer) Activation() *Activation {
	return f.act
}

func (f *fcLayer) Bias() *G.Node {
	return f.bias
}

func (f *fcLayer) Weights() *G.Node {
	return f.weights
}

// GobEncode implements the gob.GobEncoder interface. Only the layer's
// weight values are encoded, so decoding requires an fcLayer of the
// same shape to decode into.
func (f *fcLayer) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	err := enc.Encode(f.weights.Value().(*tensor.Dense))
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode weights: %v", err)
	}

	hasBias := f.bias != nil
	err = enc.Encode(hasBias)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode bias flag: %v",
			err)
	}
	if hasBias {
		err = enc.Encode(f.bias.Value().(*tensor.Dense))
		if err != nil {
			return nil, fmt.Errorf("gobencode: could not encode bias: %v", err)
		}
	}

	err = enc.Encode(f.act)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode activation: %v",
			err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface, filling the
// layer's existing weight nodes with the decoded values
func (f *fcLayer) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	weights := new(tensor.Dense)
	err := dec.Decode(weights)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode weights: %v", err)
	}
	err = G.Let(f.weights, weights)
	if err != nil {
		return fmt.Errorf("gobdecode: could not set weights: %v", err)
	}

	var hasBias bool
	err = dec.Decode(&hasBias)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode bias flag: %v", err)
	}
	if hasBias {
		bias := new(tensor.Dense)
		err = dec.Decode(bias)
		if err != nil {
			return fmt.Errorf("gobdecode: could not decode bias: %v", err)
		}
		err = G.Let(f.bias, bias)
		if err != nil {
			return fmt.Errorf("gobdecode: could not set bias: %v", err)
		}
	}

	act := new(Activation)
	err = dec.Decode(act)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode activation: %v", err)
	}
	f.act = act

	return nil
}
