package network

import G "gorgonia.org/gorgonia"

// NewSingleHeadMLP returns an MLP with a single output node, for
// example to predict a scalar state value. It is a convenience
// function for calling NewMultiHeadMLP with an output size of 1.
//
// See NewMultiHeadMLP for details on the remaining arguments.
func NewSingleHeadMLP(features, batch int, g *G.ExprGraph, hiddenSizes []int,
	biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	return NewMultiHeadMLP(features, batch, 1, g, hiddenSizes,
		biases, init, activations)
}
