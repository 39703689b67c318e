// Package network provides the neural network function approximators
// that agents learn and act with. Networks are Gorgonia computational
// graphs. A network adds its input, parameter, and prediction nodes to
// a graph at construction time, and callers drive it by setting the
// input with SetInput, running a virtual machine over the graph, and
// reading the prediction values back with Output.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet implements a neural network on a Gorgonia graph. Networks
// may have multiple prediction nodes, in which case Prediction and
// Output return one element per prediction node.
type NeuralNet interface {
	Graph() *G.ExprGraph
	Clone() (NeuralNet, error)
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int
	OutputLayers() int
	SetInput([]float64) error
	Set(NeuralNet) error
	Polyak(NeuralNet, float64) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() []G.Value
	Prediction() []*G.Node
}

// NoisyNet is a NeuralNet whose layers carry parametric exploration
// noise. ResetNoise redraws the noise variables using stdNormal, a
// source of standard normal variates. ZeroNoise sets all noise
// variables to zero so that the network computes with its mean
// weights only.
type NoisyNet interface {
	NeuralNet

	ResetNoise(stdNormal func() float64) error
	ZeroNoise() error
}

// Layer implements a single layer of a NeuralNet
type Layer interface {
	fwd(x *G.Node) (*G.Node, error)
	CloneTo(g *G.ExprGraph) Layer
	Learnables() G.Nodes
}

// noiseMaker is implemented by layers that carry noise variables
type noiseMaker interface {
	resetNoise(stdNormal func() float64) error
	zeroNoise() error
}
