package a3c

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/rwgardner2/cups-rl/network"
)

// categoricalPolicy wraps a logits network together with the graph
// nodes needed to train a softmax policy: the log probability of
// externally chosen actions and the mean entropy of the action
// distributions.
type categoricalPolicy struct {
	net network.NeuralNet

	logits *G.Node

	// actionIndices is an input node holding a one-hot row per sample.
	// Multiplying it into the logits and summing rows picks out each
	// sample's chosen-action logit without a gather op.
	actionIndices *G.Node

	logProb *G.Node // Log probability of the indexed actions
	entropy *G.Node // Mean entropy of the action distributions

	batchSize  int
	numActions int
}

// newCategoricalPolicy returns a softmax policy over discrete actions,
// parameterized by the logits an MLP predicts from batch states at a
// time.
func newCategoricalPolicy(features, batch, actions int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, activations []*network.Activation,
	init G.InitWFn) (*categoricalPolicy, error) {
	net, err := network.NewMultiHeadMLP(features, batch, actions, g,
		hiddenSizes, biases, init, activations)
	if err != nil {
		return nil, fmt.Errorf("newcategoricalpolicy: could not create "+
			"logits network: %v", err)
	}

	logits := net.Prediction()[0]

	actionIndices := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(logits.Shape()...),
		G.WithInit(G.Zeroes()),
		G.WithName("actionIndices"),
	)

	// logπ(a|s) = logits[a] - logsumexp(logits)
	chosenLogits := G.Must(G.HadamardProd(actionIndices, logits))
	chosenLogits = G.Must(G.Sum(chosenLogits, 1))
	lse := logSumExp(logits, 1)
	logProb := G.Must(G.Sub(chosenLogits, lse))

	// H(π(·|s)) = -Σ_a π(a|s) logπ(a|s), averaged over the batch
	logPi := G.Must(G.BroadcastSub(logits, lse, nil, []byte{1}))
	pi := G.Must(G.Exp(logPi))
	entropy := G.Must(G.Sum(G.Must(G.HadamardProd(pi, logPi)), 1))
	entropy = G.Must(G.Neg(G.Must(G.Mean(entropy))))

	return &categoricalPolicy{
		net:           net,
		logits:        logits,
		actionIndices: actionIndices,
		logProb:       logProb,
		entropy:       entropy,
		batchSize:     batch,
		numActions:    actions,
	}, nil
}

// setBatch loads a batch of states and the index of the action taken
// in each into the policy's graph, so that the next run of a VM over
// the graph computes the log probabilities of those actions.
func (c *categoricalPolicy) setBatch(states, actions []float64) error {
	if len(actions) != c.batchSize {
		return fmt.Errorf("setbatch: illegal number of actions "+
			"\n\twant(%v)\n\thave(%v)", c.batchSize, len(actions))
	}
	err := c.net.SetInput(states)
	if err != nil {
		return fmt.Errorf("setbatch: could not set state input: %v", err)
	}

	indices := make([]float64, c.batchSize*c.numActions)
	for i, action := range actions {
		indices[i*c.numActions+int(action)] = 1.0
	}
	indexTensor := tensor.New(
		tensor.WithShape(c.batchSize, c.numActions),
		tensor.WithBacking(indices),
	)
	return G.Let(c.actionIndices, indexTensor)
}

// logSumExp returns a node computing log(Σ exp(logits)) along the
// argument axis. The exponentials are shifted by the row maximum so
// that they cannot overflow.
func logSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}
