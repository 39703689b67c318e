package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// categoricalMLP implements a multi-layered perceptron that predicts,
// for each action, a categorical distribution over a fixed set of
// atoms. The network's output row for one state is the flattened
// concatenation of the per-action distributions, so that action a's
// atom block occupies columns [a*atoms, (a+1)*atoms).
//
// Probabilities are computed with a softmax over each action's atom
// block, in log space for numerical stability: each block's logits
// have their log-sum-exp subtracted, after the row maximum is
// subtracted from the exponent. Prediction()[0] holds the
// probabilities node and Prediction()[1] the log-probabilities node,
// and Output() returns their values in this order after a forward
// pass.
//
// When noisy is set, every linear layer is replaced by a noisy layer
// with factorized Gaussian parameter noise, and the network satisfies
// the NoisyNet interface with ResetNoise and ZeroNoise.
type categoricalMLP struct {
	g      *G.ExprGraph
	layers []Layer
	input  *G.Node

	actions   int
	atoms     int
	numInputs int
	batchSize int

	// Data needed for gobbing
	hiddenSizes []int
	biases      []bool
	activations []*Activation
	noisy       bool
	sigma0      float64

	learnables G.Nodes
	model      []G.ValueGrad

	probs       *G.Node
	logProbs    *G.Node
	probsVal    G.Value
	logProbsVal G.Value
}

// NewCategoricalMLP creates and returns a new MLP predicting one
// categorical distribution over atoms atoms per action. The graph
// parameter g is populated with the MLP.
//
// A final linear layer of actions*atoms units with no activation is
// always added after the hidden layers, so the network's output shape
// is [batch, actions*atoms]. As for NewMultiHeadMLP, hiddenSizes[i],
// biases[i], and activations[i] describe hidden layer i and init
// determines the weight initialization scheme. When noisy is set, all
// layers use factorized Gaussian parameter noise with initial scale
// sigma0 and init is ignored.
func NewCategoricalMLP(features, batch, actions, atoms int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation, noisy bool,
	sigma0 float64) (NeuralNet, error) {
	if actions < 1 {
		return nil, fmt.Errorf("newcategoricalmlp: require at least one "+
			"action \n\thave(%d)", actions)
	}
	if atoms < 2 {
		return nil, fmt.Errorf("newcategoricalmlp: require at least two "+
			"atoms per action \n\thave(%d)", atoms)
	}

	// Ensure we have one activation per layer
	if len(hiddenSizes) != len(activations) {
		msg := "newcategoricalmlp: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// Ensure one bias bool per layer
	if len(hiddenSizes) != len(biases) {
		msg := "newcategoricalmlp: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}

	// Set up the input node
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	// Add the final linear layer predicting the flattened atom blocks
	hiddenSizes = append(hiddenSizes, actions*atoms)
	biases = append(biases, true)
	activations = append(activations, Identity())

	var layers []Layer
	if noisy {
		layers = addNoisyLayers(g, hiddenSizes, activations, sigma0,
			features, "", "")
	} else {
		layers = addfcLayers(g, hiddenSizes, biases, activations, init,
			features, "", "")
	}

	network := categoricalMLP{
		g:           g,
		layers:      layers,
		input:       input,
		actions:     actions,
		atoms:       atoms,
		numInputs:   features,
		batchSize:   batch,
		hiddenSizes: hiddenSizes,
		biases:      biases,
		activations: activations,
		noisy:       noisy,
		sigma0:      sigma0,
	}
	_, err := network.fwd(input)
	if err != nil {
		msg := "newcategoricalmlp: could not compute forward pass: %v"
		return &categoricalMLP{}, fmt.Errorf(msg, err)
	}

	return &network, nil
}

// Graph returns the computational graph of the categoricalMLP
func (c *categoricalMLP) Graph() *G.ExprGraph {
	return c.g
}

// Actions returns the number of actions the network predicts
// distributions for
func (c *categoricalMLP) Actions() int {
	return c.actions
}

// Atoms returns the number of atoms per action distribution
func (c *categoricalMLP) Atoms() int {
	return c.atoms
}

// Clone clones a categoricalMLP
func (c *categoricalMLP) Clone() (NeuralNet, error) {
	return c.CloneWithBatch(c.batchSize)
}

// CloneWithBatch clones a categoricalMLP with a new input batch size
func (c *categoricalMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	graph := G.NewGraph()

	if !c.input.IsMatrix() {
		return nil, fmt.Errorf("clonewithbatch: invalid input type")
	}
	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, c.numInputs),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	// Copy the layers to the new graph
	l := make([]Layer, len(c.layers))
	for i := range c.layers {
		l[i] = c.layers[i].CloneTo(graph)
	}

	network := categoricalMLP{
		g:           graph,
		layers:      l,
		input:       input,
		actions:     c.actions,
		atoms:       c.atoms,
		numInputs:   c.numInputs,
		batchSize:   batchSize,
		hiddenSizes: c.hiddenSizes,
		biases:      c.biases,
		activations: c.activations,
		noisy:       c.noisy,
		sigma0:      c.sigma0,
	}
	_, err := network.fwd(input)
	if err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not clone: %v", err)
	}

	return &network, nil
}

// BatchSize returns the batch size of inputs to the network
func (c *categoricalMLP) BatchSize() int {
	return c.batchSize
}

// Features returns the number of features in a single observation
// vector that the network takes as input
func (c *categoricalMLP) Features() int {
	return c.numInputs
}

// Outputs returns the number of outputs per input state, which is the
// total length of the flattened atom blocks
func (c *categoricalMLP) Outputs() int {
	return c.actions * c.atoms
}

// OutputLayers returns the number of prediction nodes of the network
func (c *categoricalMLP) OutputLayers() int {
	return len(c.Prediction())
}

// SetInput sets the value of the input node before running the forward
// pass.
func (c *categoricalMLP) SetInput(input []float64) error {
	if len(input) != c.numInputs*c.batchSize {
		msg := fmt.Sprintf("invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", c.numInputs*c.batchSize, len(input))
		panic(msg)
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(c.input.Shape()...),
	)
	return G.Let(c.input, inputTensor)
}

// Set sets the weights of a categoricalMLP to be equal to the weights
// of another categoricalMLP
func (dest *categoricalMLP) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	for i, destLearnable := range nodes {
		sourceLearnable := sourceNodes[i].Clone()
		err := G.Let(destLearnable, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return err
		}
	}
	return nil
}

// Polyak sets the weights of a categoricalMLP to be a polyak average
// between its existing weights and the weights of another
// categoricalMLP
func (dest *categoricalMLP) Polyak(source NeuralNet, tau float64) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	for i := range nodes {
		weights := nodes[i].Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		var newWeights *tensor.Dense
		newWeights, err = weights.Add(sourceWeights)
		if err != nil {
			return err
		}

		G.Let(nodes[i], newWeights)
	}
	return nil
}

// ResetNoise redraws the noise variables of all noisy layers using
// stdNormal, a source of standard normal variates. For a network
// built without noisy layers, ResetNoise is a no-op.
func (c *categoricalMLP) ResetNoise(stdNormal func() float64) error {
	for i, layer := range c.layers {
		if noise, ok := layer.(noiseMaker); ok {
			if err := noise.resetNoise(stdNormal); err != nil {
				return fmt.Errorf("resetnoise: layer %v: %v", i, err)
			}
		}
	}
	return nil
}

// ZeroNoise zeroes the noise variables of all noisy layers so that
// the network predicts with its mean weights only
func (c *categoricalMLP) ZeroNoise() error {
	for i, layer := range c.layers {
		if noise, ok := layer.(noiseMaker); ok {
			if err := noise.zeroNoise(); err != nil {
				return fmt.Errorf("zeronoise: layer %v: %v", i, err)
			}
		}
	}
	return nil
}

// Learnables returns the learnable nodes in a categoricalMLP. Noise
// variables are not included.
func (c *categoricalMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if c.learnables == nil {
		c.learnables = c.computeLearnables()
	}
	return c.learnables
}

// computeLearnables computes all the learnables for the network
func (c *categoricalMLP) computeLearnables() G.Nodes {
	learnables := make([]*G.Node, 0, 4*len(c.layers))

	for i := range c.layers {
		learnables = append(learnables, c.layers[i].Learnables()...)
	}
	return G.Nodes(learnables)
}

// Model returns the learnables nodes with their gradients.
func (c *categoricalMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if c.model == nil {
		c.model = c.computeModel()
	}
	return c.model
}

// computeModel computes the model for the network
func (c *categoricalMLP) computeModel() []G.ValueGrad {
	model := make([]G.ValueGrad, 0, 4*len(c.layers))
	for _, node := range c.Learnables() {
		model = append(model, node)
	}
	return model
}

// fwd performs the forward pass of the categoricalMLP on the input
// node, adding the per-block log-softmax to the graph
func (c *categoricalMLP) fwd(input *G.Node) (*G.Node, error) {
	inputShape := input.Shape()[len(input.Shape())-1]
	if inputShape%c.numInputs != 0 {
		return nil, fmt.Errorf("fwd: invalid shape for input to neural net:"+
			" \n\twant(%v) \n\thave(%v)", c.numInputs, inputShape)
	}

	pred := input
	var err error
	for i, l := range c.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	// Softmax over each action's atom block in log space. Rows of the
	// reshaped logits are single atom blocks, so the row-wise
	// log-sum-exp normalizes each block independently.
	logits := G.Must(G.Reshape(pred, tensor.Shape{
		c.batchSize * c.actions,
		c.atoms,
	}))
	max := G.Must(G.Max(logits, 1))
	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))
	sum := G.Must(G.Sum(exponent, 1))
	logSumExp := G.Must(G.Add(max, G.Must(G.Log(sum))))

	logProbs := G.Must(G.BroadcastSub(logits, logSumExp, nil, []byte{1}))
	probs := G.Must(G.Exp(logProbs))

	c.logProbs = G.Must(G.Reshape(logProbs, tensor.Shape{
		c.batchSize,
		c.actions * c.atoms,
	}))
	c.probs = G.Must(G.Reshape(probs, tensor.Shape{
		c.batchSize,
		c.actions * c.atoms,
	}))

	G.Read(c.probs, &c.probsVal)
	G.Read(c.logProbs, &c.logProbsVal)

	return c.probs, nil
}

// Output returns the output of the categoricalMLP: the probabilities
// value followed by the log-probabilities value
func (c *categoricalMLP) Output() []G.Value {
	return []G.Value{c.probsVal, c.logProbsVal}
}

// Prediction returns the nodes of the computational graph that store
// the probabilities and the log-probabilities
func (c *categoricalMLP) Prediction() []*G.Node {
	return []*G.Node{c.probs, c.logProbs}
}

// GobEncode implements gob.GobEncoder
func (c *categoricalMLP) GobEncode() ([]byte, error) {
	gob.Register(categoricalMLP{})
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	err := enc.Encode(c.actions)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of actions")
	}

	err = enc.Encode(c.atoms)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of atoms")
	}

	err = enc.Encode(c.numInputs)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of inputs")
	}

	err = enc.Encode(c.BatchSize())
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode batch size")
	}

	err = enc.Encode(c.hiddenSizes)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode hidden sizes")
	}

	err = enc.Encode(c.biases)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode biases")
	}

	err = enc.Encode(c.activations)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode activations")
	}

	err = enc.Encode(c.noisy)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode noisy flag")
	}

	err = enc.Encode(c.sigma0)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode noise scale")
	}

	// Store the layers
	gob.Register(fcLayer{})
	gob.Register(noisyLayer{})
	for i, layer := range c.layers {
		err := enc.Encode(layer)
		if err != nil {
			msg := "gobencode: could not encode layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder
func (c *categoricalMLP) GobDecode(in []byte) error {
	gob.Register(categoricalMLP{})
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	var actions int
	err := dec.Decode(&actions)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode number of actions")
	}

	var atoms int
	err = dec.Decode(&atoms)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode number of atoms")
	}

	var numInputs int
	err = dec.Decode(&numInputs)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode number of inputs")
	}

	var batchSize int
	err = dec.Decode(&batchSize)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode batch size")
	}

	var hiddenSizes []int
	err = dec.Decode(&hiddenSizes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode hidden sizes")
	}
	hiddenSizes = hiddenSizes[:len(hiddenSizes)-1]

	var biases []bool
	err = dec.Decode(&biases)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode biases")
	}
	biases = biases[:len(biases)-1]

	var activations []*Activation
	err = dec.Decode(&activations)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode activations")
	}
	activations = activations[:len(activations)-1]

	var noisy bool
	err = dec.Decode(&noisy)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode noisy flag")
	}

	var sigma0 float64
	err = dec.Decode(&sigma0)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode noise scale")
	}

	// Create a new MLP of the same shape to decode the layers into
	g := G.NewGraph()
	newNet, err := NewCategoricalMLP(numInputs, batchSize, actions, atoms, g,
		hiddenSizes, biases, G.Zeroes(), activations, noisy, sigma0)
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct new MLP")
	}
	newMLP, ok := newNet.(*categoricalMLP)
	if !ok {
		panic("NewCategoricalMLP() returned type != categoricalMLP")
	}

	gob.Register(fcLayer{})
	gob.Register(noisyLayer{})
	numLayers := len(newMLP.layers)
	layers := newMLP.layers
	for i := 0; i < numLayers; i++ {
		err = dec.Decode(layers[i])
		if err != nil {
			return fmt.Errorf("gobdecode: could not decode layer %v: %v", i,
				err)
		}
	}

	*c = *newMLP
	return nil
}
