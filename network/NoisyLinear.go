package network

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// noisyLayer implements a fully connected layer with factorized
// Gaussian parameter noise. Each weight is the sum of a learnable mean
// and a learnable scale multiplying a noise variable:
//
//	w = μw + σw ⊙ (f(εin) f(εout)ᵀ)
//	b = μb + σb ⊙ f(εout)
//	f(x) = sign(x)·√|x|
//
// where εin and εout are vectors of standard normal variates, redrawn
// by resetNoise. The noise variables are held in graph input nodes and
// are not learnable, so gradients flow to the means and scales only.
// Exploration then comes from the parameter noise itself rather than
// from randomizing the greedy action.
type noisyLayer struct {
	in     int
	out    int
	sigma0 float64

	muW    *G.Node
	sigmaW *G.Node
	muB    *G.Node
	sigmaB *G.Node

	epsIn  *G.Node
	epsOut *G.Node

	act *Activation
}

// newNoisyLayer adds a noisy fully connected layer to the graph g,
// mapping in features to out features. Means are initialized
// U(-1/√in, 1/√in) and scales to the constant sigma0/√in. Noise
// variables start at zero until resetNoise draws them.
func newNoisyLayer(g *G.ExprGraph, in, out int, sigma0 float64,
	act *Activation, name string) *noisyLayer {
	bound := 1.0 / math.Sqrt(float64(in))

	muW := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(in, out),
		G.WithName(name+"MuW"),
		G.WithInit(G.Uniform(-bound, bound)),
	)
	sigmaW := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(in, out),
		G.WithName(name+"SigmaW"),
		G.WithInit(G.ValuesOf(sigma0*bound)),
	)
	muB := G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(out),
		G.WithName(name+"MuB"),
		G.WithInit(G.Uniform(-bound, bound)),
	)
	sigmaB := G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(out),
		G.WithName(name+"SigmaB"),
		G.WithInit(G.ValuesOf(sigma0*bound)),
	)

	epsIn := G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(in),
		G.WithName(name+"EpsIn"),
		G.WithInit(G.Zeroes()),
	)
	epsOut := G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(out),
		G.WithName(name+"EpsOut"),
		G.WithInit(G.Zeroes()),
	)

	return &noisyLayer{
		in:     in,
		out:    out,
		sigma0: sigma0,
		muW:    muW,
		sigmaW: sigmaW,
		muB:    muB,
		sigmaB: sigmaB,
		epsIn:  epsIn,
		epsOut: epsOut,
		act:    act,
	}
}

// addNoisyLayers adds a sequence of noisy fully connected layers to
// the graph g, mirroring addfcLayers. There are no per-layer bias
// flags: a noisy layer always has its bias weights, since the bias
// noise is part of the factorization.
func addNoisyLayers(g *G.ExprGraph, hiddenSizes []int,
	activations []*Activation, sigma0 float64, features int,
	prefix, suffix string) []Layer {
	layers := make([]Layer, len(hiddenSizes))

	in := features
	for i, out := range hiddenSizes {
		name := fmt.Sprintf("%vL%d%v", prefix, i, suffix)
		layers[i] = newNoisyLayer(g, in, out, sigma0, activations[i], name)
		in = out
	}
	return layers
}

// scaleNoise is the factorized noise transform f(x) = sign(x)·√|x|
func scaleNoise(x float64) float64 {
	return math.Copysign(math.Sqrt(math.Abs(x)), x)
}

// fwd adds the forward pass of the noisyLayer to the computational
// graph
func (n *noisyLayer) fwd(x *G.Node) (*G.Node, error) {
	noiseW := G.Must(G.OuterProd(n.epsIn, n.epsOut))
	weights := G.Must(G.Add(n.muW, G.Must(G.HadamardProd(n.sigmaW, noiseW))))
	bias := G.Must(G.Add(n.muB, G.Must(G.HadamardProd(n.sigmaB, n.epsOut))))

	x = G.Must(G.Mul(x, weights))
	x = G.Must(G.BroadcastAdd(x, bias, nil, []byte{0}))

	if n.act == nil || n.act.IsNil() {
		return x, nil
	}
	return n.act.fwd(x)
}

// CloneTo clones a noisyLayer to a new computational graph
func (n *noisyLayer) CloneTo(g *G.ExprGraph) Layer {
	return &noisyLayer{
		in:     n.in,
		out:    n.out,
		sigma0: n.sigma0,
		muW:    n.muW.CloneTo(g),
		sigmaW: n.sigmaW.CloneTo(g),
		muB:    n.muB.CloneTo(g),
		sigmaB: n.sigmaB.CloneTo(g),
		epsIn:  n.epsIn.CloneTo(g),
		epsOut: n.epsOut.CloneTo(g),
		act:    n.act,
	}
}

// Learnables returns the learnable nodes of the noisyLayer. The noise
// variables are not learnable.
func (n *noisyLayer) Learnables() G.Nodes {
	return G.Nodes{n.muW, n.sigmaW, n.muB, n.sigmaB}
}

// resetNoise redraws the layer's noise variables. The argument is a
// source of standard normal variates.
func (n *noisyLayer) resetNoise(stdNormal func() float64) error {
	in := make([]float64, n.in)
	for i := range in {
		in[i] = scaleNoise(stdNormal())
	}
	out := make([]float64, n.out)
	for i := range out {
		out[i] = scaleNoise(stdNormal())
	}
	return n.setNoise(in, out)
}

// zeroNoise sets the layer's noise variables to zero so that the
// forward pass uses the mean weights only
func (n *noisyLayer) zeroNoise() error {
	return n.setNoise(make([]float64, n.in), make([]float64, n.out))
}

func (n *noisyLayer) setNoise(in, out []float64) error {
	err := G.Let(n.epsIn, tensor.New(
		tensor.WithBacking(in),
		tensor.WithShape(n.in),
	))
	if err != nil {
		return fmt.Errorf("setnoise: could not set input noise: %v", err)
	}

	err = G.Let(n.epsOut, tensor.New(
		tensor.WithBacking(out),
		tensor.WithShape(n.out),
	))
	if err != nil {
		return fmt.Errorf("setnoise: could not set output noise: %v", err)
	}
	return nil
}

// GobEncode implements the gob.GobEncoder interface. Only the mean and
// scale values are encoded, so decoding requires a noisyLayer of the
// same shape to decode into. Noise variables are not persisted.
func (n *noisyLayer) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	for _, node := range []*G.Node{n.muW, n.sigmaW, n.muB, n.sigmaB} {
		err := enc.Encode(node.Value().(*tensor.Dense))
		if err != nil {
			return nil, fmt.Errorf("gobencode: could not encode %v: %v",
				node.Name(), err)
		}
	}

	err := enc.Encode(n.act)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode activation: %v",
			err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface, filling the
// layer's existing mean and scale nodes with the decoded values and
// zeroing its noise
func (n *noisyLayer) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	for _, node := range []*G.Node{n.muW, n.sigmaW, n.muB, n.sigmaB} {
		value := new(tensor.Dense)
		err := dec.Decode(value)
		if err != nil {
			return fmt.Errorf("gobdecode: could not decode %v: %v",
				node.Name(), err)
		}
		err = G.Let(node, value)
		if err != nil {
			return fmt.Errorf("gobdecode: could not set %v: %v", node.Name(),
				err)
		}
	}

	act := new(Activation)
	err := dec.Decode(act)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode activation: %v", err)
	}
	n.act = act

	return n.zeroNoise()
}
