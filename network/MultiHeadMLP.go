package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// multiHeadMLP implements a multi-layered perceptron predicting one
// scalar output per head. The network's output for one state is a row
// of Outputs() values, for example one value estimate per action.
// Prediction()[0] holds the output node and Output() returns its value
// after a forward pass.
type multiHeadMLP struct {
	g      *G.ExprGraph
	layers []Layer
	input  *G.Node

	numOutputs int
	numInputs  int
	batchSize  int

	// Construction arguments kept for serialization
	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMultiHeadMLP returns a multi-layered perceptron with outputs
// output heads, adding its nodes to the graph g.
//
// A final linear layer of outputs units with a bias and no activation
// is always added after the hidden layers, so the network's output
// shape is [batch, outputs]. For index i, hiddenSizes[i] is the number
// of units in hidden layer i, biases[i] is whether that layer has a
// bias unit, and activations[i] is its activation function. The
// parameter init determines the weight initialization scheme.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	if outputs < 1 {
		return nil, fmt.Errorf("newmultiheadmlp: require at least one "+
			"output \n\thave(%d)", outputs)
	}

	// One activation per hidden layer
	if len(hiddenSizes) != len(activations) {
		msg := "newmultiheadmlp: need one activation per hidden layer" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// One bias flag per hidden layer
	if len(hiddenSizes) != len(biases) {
		msg := "newmultiheadmlp: need one bias flag per hidden layer" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}

	// Set up the input node
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	// Add the final linear layer predicting the output heads
	hiddenSizes = append(hiddenSizes, outputs)
	biases = append(biases, true)
	activations = append(activations, Identity())

	layers := addfcLayers(g, hiddenSizes, biases, activations, init,
		features, "", "")

	net := multiHeadMLP{
		g:           g,
		layers:      layers,
		input:       input,
		numOutputs:  outputs,
		numInputs:   features,
		batchSize:   batch,
		hiddenSizes: hiddenSizes,
		biases:      biases,
		activations: activations,
	}
	if _, err := net.fwd(input); err != nil {
		msg := "newmultiheadmlp: could not build forward pass: %v"
		return &multiHeadMLP{}, fmt.Errorf(msg, err)
	}

	return &net, nil
}

// Graph returns the graph the network was built on
func (m *multiHeadMLP) Graph() *G.ExprGraph {
	return m.g
}

// Clone copies the network onto a fresh graph
func (m *multiHeadMLP) Clone() (NeuralNet, error) {
	return m.CloneWithBatch(m.batchSize)
}

// CloneWithBatch copies the network onto a fresh graph, changing the
// input batch size to batchSize
func (m *multiHeadMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	graph := G.NewGraph()

	if !m.input.IsMatrix() {
		return nil, fmt.Errorf("clonewithbatch: input node is not a matrix")
	}
	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, m.numInputs),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	// Copy the layers to the new graph
	l := make([]Layer, len(m.layers))
	for i := range m.layers {
		l[i] = m.layers[i].CloneTo(graph)
	}

	net := multiHeadMLP{
		g:           graph,
		layers:      l,
		input:       input,
		numOutputs:  m.numOutputs,
		numInputs:   m.numInputs,
		batchSize:   batchSize,
		hiddenSizes: m.hiddenSizes,
		biases:      m.biases,
		activations: m.activations,
	}
	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not clone: %v", err)
	}

	return &net, nil
}

// BatchSize returns the number of rows in the network's input
func (m *multiHeadMLP) BatchSize() int {
	return m.batchSize
}

// Features returns the length of one observation vector input to the
// network
func (m *multiHeadMLP) Features() int {
	return m.numInputs
}

// Outputs returns how many output heads the network predicts
func (m *multiHeadMLP) Outputs() int {
	return m.numOutputs
}

// OutputLayers returns how many prediction nodes the network has
func (m *multiHeadMLP) OutputLayers() int {
	return len(m.Prediction())
}

// SetInput fills the input node's backing value for the next forward
// pass
func (m *multiHeadMLP) SetInput(input []float64) error {
	if len(input) != m.numInputs*m.batchSize {
		msg := fmt.Sprintf("setinput: invalid input length\n\twant(%v)"+
			"\n\thave(%v)", m.numInputs*m.batchSize, len(input))
		panic(msg)
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(m.input.Shape()...),
	)
	return G.Let(m.input, inputTensor)
}

// Set sets the weights of a multiHeadMLP to be equal to the weights of
// another multiHeadMLP
func (dest *multiHeadMLP) Set(source NeuralNet) error {
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

// Polyak sets the weights of a multiHeadMLP to be a polyak average
// between its existing weights and the weights of another multiHeadMLP
func (dest *multiHeadMLP) Polyak(source NeuralNet, tau float64) error {
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

// Learnables returns the network's learnable weight nodes
func (m *multiHeadMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if m.learnables == nil {
		m.learnables = m.computeLearnables()
	}
	return m.learnables
}

// computeLearnables gathers the learnables of every layer
func (m *multiHeadMLP) computeLearnables() G.Nodes {
	learnables := make([]*G.Node, 0, 2*len(m.layers))

	for i := range m.layers {
		learnables = append(learnables, m.layers[i].Learnables()...)
	}
	return G.Nodes(learnables)
}

// Model returns the learnable nodes tracked with their gradients
func (m *multiHeadMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if m.model == nil {
		m.model = m.computeModel()
	}
	return m.model
}

// computeModel wraps each learnable as a ValueGrad
func (m *multiHeadMLP) computeModel() []G.ValueGrad {
	model := make([]G.ValueGrad, 0, 2*len(m.layers))
	for _, node := range m.Learnables() {
		model = append(model, node)
	}
	return model
}

// fwd performs the forward pass of the multiHeadMLP on the input node
func (m *multiHeadMLP) fwd(input *G.Node) (*G.Node, error) {
	inputShape := input.Shape()[len(input.Shape())-1]
	if inputShape%m.numInputs != 0 {
		return nil, fmt.Errorf("fwd: input length is not a multiple of "+
			"the feature count \n\twant(%v) \n\thave(%v)",
			m.numInputs, inputShape)
	}

	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			return nil, fmt.Errorf("fwd: could not apply layer %d: %v", i,
				err)
		}
	}

	m.prediction = pred
	G.Read(m.prediction, &m.predVal)

	return pred, nil
}

// Output returns the value of the network's prediction node, valid
// after a forward pass has run
func (m *multiHeadMLP) Output() []G.Value {
	return []G.Value{m.predVal}
}

// Prediction returns the node of the graph holding the network's
// output
func (m *multiHeadMLP) Prediction() []*G.Node {
	return []*G.Node{m.prediction}
}

// GobEncode implements gob.GobEncoder
func (m *multiHeadMLP) GobEncode() ([]byte, error) {
	gob.Register(multiHeadMLP{})
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	err := enc.Encode(m.numOutputs)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode output count")
	}

	err = enc.Encode(m.numInputs)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode input count")
	}

	err = enc.Encode(m.BatchSize())
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode the batch size")
	}

	err = enc.Encode(m.hiddenSizes)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode hidden layer " +
			"sizes")
	}

	err = enc.Encode(m.biases)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode bias flags")
	}

	err = enc.Encode(m.activations)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode the activations")
	}

	gob.Register(fcLayer{})
	for i, layer := range m.layers {
		err := enc.Encode(layer)
		if err != nil {
			return nil, fmt.Errorf("gobencode: could not encode layer %d: %v",
				i, err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The decoded
// network lives on a fresh graph with a zero initialization, then has
// each layer's weight values filled in from the encoded layers.
func (m *multiHeadMLP) GobDecode(in []byte) error {
	gob.Register(multiHeadMLP{})
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	var numOutputs int
	err := dec.Decode(&numOutputs)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode output count")
	}

	var numInputs int
	err = dec.Decode(&numInputs)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode input count")
	}

	var batchSize int
	err = dec.Decode(&batchSize)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode the batch size")
	}

	// The stored sizes include the appended final layer, which the
	// constructor will append again
	var hiddenSizes []int
	err = dec.Decode(&hiddenSizes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode hidden layer sizes")
	}
	hiddenSizes = hiddenSizes[:len(hiddenSizes)-1]

	var biases []bool
	err = dec.Decode(&biases)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode bias flags")
	}
	biases = biases[:len(biases)-1]

	var activations []*Activation
	err = dec.Decode(&activations)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode the activations")
	}
	activations = activations[:len(activations)-1]

	g := G.NewGraph()
	newNet, err := NewMultiHeadMLP(numInputs, batchSize, numOutputs, g,
		hiddenSizes, biases, G.Zeroes(), activations)
	if err != nil {
		return fmt.Errorf("gobdecode: could not rebuild network: %v", err)
	}
	newMLP, ok := newNet.(*multiHeadMLP)
	if !ok {
		panic("NewMultiHeadMLP() returned type != multiHeadMLP")
	}

	gob.Register(fcLayer{})
	for i := range newMLP.layers {
		err = dec.Decode(newMLP.layers[i])
		if err != nil {
			return fmt.Errorf("gobdecode: could not decode layer %d: %v", i,
				err)
		}
	}

	*m = *newMLP
	return nil
}
