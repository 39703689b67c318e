// Package a3c implements a synchronous advantage actor-critic agent
// over discrete action spaces. The agent follows a softmax policy over
// the logits an MLP predicts and learns from rollouts of a fixed
// number of steps: a state value critic scores every visited state,
// rollouts are summarized into generalized advantage estimates and
// bootstrapped returns, and one policy and one critic gradient step
// are taken per rollout. An entropy bonus keeps the policy from
// collapsing early.
package a3c

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/rwgardner2/cups-rl/environment"
	"github.com/rwgardner2/cups-rl/network"
	"github.com/rwgardner2/cups-rl/spec"
	ts "github.com/rwgardner2/cups-rl/timestep"
	"github.com/rwgardner2/cups-rl/utils/floatutils"
)

// A3C implements the synchronous variant of the A3C algorithm with MLP
// function approximation. The asynchronous form runs this same learner
// in multiple workers sharing weights; a single learner is a one
// worker degenerate case of that scheme.
//
// The agent holds two copies of the policy network and two of the
// critic. The batch size 1 copies act and score states during rollout
// collection, and the batch size BatchSize copies take the gradient
// steps. After each update the learned weights are copied back into
// the collection networks.
type A3C struct {
	// Acting policy, run on single observations to sample actions
	behaviour   network.NeuralNet
	behaviourVM G.VM

	// Policy whose weights the solver adapts
	trainPolicy  *categoricalPolicy
	policyVM     G.VM
	policySolver G.Solver

	// advantages is the input node in the train policy's graph holding
	// the normalized advantage estimate of each rollout step
	advantages *G.Node

	// Values read out of the loss graphs after each update
	policyLossVal *G.Value
	criticLossVal *G.Value

	// State value critic. The batch size 1 copy scores states during
	// collection; the training copy regresses on bootstrapped returns.
	critic        network.NeuralNet
	criticVM      G.VM
	trainCritic   network.NeuralNet
	trainCriticVM G.VM
	criticTargets *G.Node
	criticSolver  G.Solver

	buffer    *gaeBuffer
	batchSize int
	batchStep int // Steps collected toward the next update

	numActions int
	source     rand.Source

	// Counters persisted across checkpoints
	envSteps int
	episodes int
	updates  int

	// The timestep the agent currently acts in
	prevStep ts.TimeStep

	eval bool // Whether or not in evaluation mode
}

// New creates and returns a new A3C agent
func New(e environment.Environment, config Config, seed int64) (*A3C,
	error) {
	// Ensure environment has discrete actions
	if e.ActionSpec().Cardinality != spec.Discrete {
		return &A3C{}, fmt.Errorf("a3c: softmax policies cannot be used " +
			"with continuous actions")
	}

	// Ensure actions are one-dimensional
	if e.ActionSpec().LowerBound.Len() > 1 {
		return &A3C{}, fmt.Errorf("a3c: actions must be 1-dimensional")
	}

	// Ensure actions are enumerated from 0
	if e.ActionSpec().LowerBound.AtVec(0) != 0.0 {
		return &A3C{}, fmt.Errorf("a3c: actions must be enumerated " +
			"starting from 0")
	}

	// Ensure the configuration is valid
	err := config.Validate()
	if err != nil {
		return &A3C{}, err
	}

	numActions := int(e.ActionSpec().UpperBound.AtVec(0)) + 1
	numFeatures := e.ObservationSpec().Shape.Len()
	batchSize := config.BatchSize

	// RNG for sampling actions from the softmax distributions
	source := rand.NewSource(uint64(seed))

	// Create the rollout buffer
	buffer := newGAEBuffer(numFeatures, batchSize, config.Lambda,
		config.Gamma)

	// Create the critic that scores states during collection
	critic, err := network.NewSingleHeadMLP(
		numFeatures,
		1,
		G.NewGraph(),
		config.CriticHidden,
		config.CriticBiases,
		config.InitWFn.InitWFn(),
		config.CriticActivations,
	)
	if err != nil {
		return &A3C{}, fmt.Errorf("new: could not create critic: %v", err)
	}
	criticVM := G.NewTapeMachine(critic.Graph())

	// Create the training critic and its regression loss on the
	// bootstrapped returns
	trainCritic, err := network.NewSingleHeadMLP(
		numFeatures,
		batchSize,
		G.NewGraph(),
		config.CriticHidden,
		config.CriticBiases,
		config.InitWFn.InitWFn(),
		config.CriticActivations,
	)
	if err != nil {
		return &A3C{}, fmt.Errorf("new: could not create training "+
			"critic: %v", err)
	}

	criticTargets := G.NewMatrix(
		trainCritic.Graph(),
		tensor.Float64,
		G.WithShape(trainCritic.Prediction()[0].Shape()...),
		G.WithName("criticTargets"),
	)
	criticLoss := G.Must(G.Sub(trainCritic.Prediction()[0], criticTargets))
	criticLoss = G.Must(G.Square(criticLoss))
	criticLoss = G.Must(G.Mean(criticLoss))

	criticLossVal := new(G.Value)
	G.Read(criticLoss, criticLossVal)

	_, err = G.Grad(criticLoss, trainCritic.Learnables()...)
	if err != nil {
		msg := fmt.Sprintf("new: could not compute critic gradient: %v",
			err)
		panic(msg)
	}
	trainCriticVM := G.NewTapeMachine(
		trainCritic.Graph(),
		G.BindDualValues(trainCritic.Learnables()...),
	)

	// Create the acting policy
	behaviour, err := network.NewMultiHeadMLP(
		numFeatures,
		1, // The acting policy samples a single action at a time
		numActions,
		G.NewGraph(),
		config.PolicyHidden,
		config.PolicyBiases,
		config.InitWFn.InitWFn(),
		config.PolicyActivations,
	)
	if err != nil {
		return &A3C{}, fmt.Errorf("new: could not create behaviour "+
			"policy: %v", err)
	}
	behaviourVM := G.NewTapeMachine(behaviour.Graph())

	// Create the training policy and its loss
	gPolicy := G.NewGraph()
	trainPolicy, err := newCategoricalPolicy(
		numFeatures,
		batchSize,
		numActions,
		gPolicy,
		config.PolicyHidden,
		config.PolicyBiases,
		config.PolicyActivations,
		config.InitWFn.InitWFn(),
	)
	if err != nil {
		return &A3C{}, fmt.Errorf("new: could not create policy: %v", err)
	}

	advantages := G.NewVector(
		gPolicy,
		tensor.Float64,
		G.WithShape(batchSize),
		G.WithName("advantages"),
	)

	// Policy loss -mean(logπ(a|s)·Â), less the mean entropy of the
	// action distributions weighted by EntropyCoef
	policyLoss := G.Must(G.HadamardProd(trainPolicy.logProb, advantages))
	policyLoss = G.Must(G.Mean(policyLoss))
	policyLoss = G.Must(G.Neg(policyLoss))
	if config.EntropyCoef > 0 {
		coef := G.NewConstant(config.EntropyCoef)
		bonus := G.Must(G.Mul(coef, trainPolicy.entropy))
		policyLoss = G.Must(G.Sub(policyLoss, bonus))
	}

	policyLossVal := new(G.Value)
	G.Read(policyLoss, policyLossVal)

	_, err = G.Grad(policyLoss, trainPolicy.net.Learnables()...)
	if err != nil {
		msg := fmt.Sprintf("new: could not compute policy gradient: %v",
			err)
		panic(msg)
	}
	policyVM := G.NewTapeMachine(
		gPolicy,
		G.BindDualValues(trainPolicy.net.Learnables()...),
	)

	// The collection networks start from the training networks' weights
	// and stay equal to them between updates
	err = behaviour.Set(trainPolicy.net)
	if err != nil {
		return &A3C{}, fmt.Errorf("new: could not initialize behaviour "+
			"policy: %v", err)
	}
	err = critic.Set(trainCritic)
	if err != nil {
		return &A3C{}, fmt.Errorf("new: could not initialize critic: %v",
			err)
	}

	return &A3C{
		behaviour:   behaviour,
		behaviourVM: behaviourVM,

		trainPolicy:  trainPolicy,
		policyVM:     policyVM,
		policySolver: config.PolicySolver,

		advantages:    advantages,
		policyLossVal: policyLossVal,
		criticLossVal: criticLossVal,

		critic:        critic,
		criticVM:      criticVM,
		trainCritic:   trainCritic,
		trainCriticVM: trainCriticVM,
		criticTargets: criticTargets,
		criticSolver:  config.CriticSolver,

		buffer:    buffer,
		batchSize: batchSize,

		numActions: numActions,
		source:     source,

		prevStep: ts.TimeStep{},
		eval:     false,
	}, nil
}

// ObserveFirst observes and records the first episodic timestep
func (a *A3C) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		return fmt.Errorf("observefirst: timestep is not the first of "+
			"an episode (timestep %v)", t.Number)
	}
	a.prevStep = t
	return nil
}

// Observe records that the argument action was taken at the current
// step and led to the argument timestep. The transition is stored in
// the rollout buffer together with the critic's estimate of the
// current state. Episode-ending steps finish the buffer's current
// path with a terminal value of 0; a rollout filling mid-episode
// finishes the path with the critic's estimate of the next state, so
// the cut-off return is bootstrapped. In evaluation mode the
// transition is discarded.
func (a *A3C) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	if action.Len() != 1 {
		return fmt.Errorf("observe: softmax policies cannot use "+
			"multi-dimensional actions \n\twant(1) \n\thave(%v)",
			action.Len())
	}
	if act := int(action.AtVec(0)); act < 0 || act >= a.numActions {
		return &AgentError{Op: "observe", Err: errInvalidAction}
	}
	if a.prevStep.Observation == nil {
		return fmt.Errorf("observe: no first timestep observed")
	}

	if a.eval {
		a.prevStep = nextStep
		return nil
	}

	obs := a.prevStep.Observation.RawVector().Data
	value := a.stateValue(obs)
	err := a.buffer.store(obs, action.AtVec(0), nextStep.Reward, value)
	if err != nil {
		return fmt.Errorf("observe: could not store transition: %v", err)
	}
	a.envSteps++
	a.batchStep++

	if nextStep.Last() {
		// Episode-ending steps carry discount 0, so the final return
		// bootstraps nothing
		a.buffer.finishPath(0.0)
	} else if a.batchStep == a.batchSize {
		// The rollout filled mid-episode: cut the path here and
		// bootstrap the remaining return with the critic's estimate
		bootstrap := a.stateValue(nextStep.Observation.RawVector().Data)
		a.buffer.finishPath(bootstrap)
	}

	a.prevStep = nextStep
	return nil
}

// Step updates the weights of the agent's networks. One policy and one
// critic gradient step are taken once every BatchSize observed steps;
// other calls return immediately. In evaluation mode Step is a no-op.
func (a *A3C) Step() error {
	if a.eval {
		return nil
	}
	if a.batchStep < a.batchSize {
		return nil
	}
	a.batchStep = 0

	states, actions, advantages, returns, err := a.buffer.get()
	if err != nil {
		return fmt.Errorf("step: could not drain rollout buffer: %v", err)
	}

	// Policy gradient step on the normalized advantages
	advTensor := tensor.New(
		tensor.WithShape(a.batchSize),
		tensor.WithBacking(advantages),
	)
	err = G.Let(a.advantages, advTensor)
	if err != nil {
		return fmt.Errorf("step: could not set advantages: %v", err)
	}
	err = a.trainPolicy.setBatch(states, actions)
	if err != nil {
		return fmt.Errorf("step: could not set policy input: %v", err)
	}
	err = a.policyVM.RunAll()
	if err != nil {
		return fmt.Errorf("step: could not run policy update: %v", err)
	}
	err = a.policySolver.Step(a.trainPolicy.net.Model())
	if err != nil {
		return fmt.Errorf("step: could not step policy solver: %v", err)
	}
	a.policyVM.Reset()

	// Critic regression step toward the bootstrapped returns
	err = a.trainCritic.SetInput(states)
	if err != nil {
		return fmt.Errorf("step: could not set critic input: %v", err)
	}
	retTensor := tensor.New(
		tensor.WithShape(a.criticTargets.Shape()...),
		tensor.WithBacking(returns),
	)
	err = G.Let(a.criticTargets, retTensor)
	if err != nil {
		return fmt.Errorf("step: could not set critic targets: %v", err)
	}
	err = a.trainCriticVM.RunAll()
	if err != nil {
		return fmt.Errorf("step: could not run critic update: %v", err)
	}
	err = a.criticSolver.Step(a.trainCritic.Model())
	if err != nil {
		return fmt.Errorf("step: could not step critic solver: %v", err)
	}
	a.trainCriticVM.Reset()

	// Copy the learned weights back into the collection networks
	err = a.behaviour.Set(a.trainPolicy.net)
	if err != nil {
		return fmt.Errorf("step: could not update behaviour policy: %v",
			err)
	}
	err = a.critic.Set(a.trainCritic)
	if err != nil {
		return fmt.Errorf("step: could not update critic: %v", err)
	}
	a.updates++
	return nil
}

// SelectAction returns an action selected by the policy at the
// argument timestep. In training mode actions are sampled from the
// softmax distribution over the policy's logits. In evaluation mode
// the highest-probability action is selected deterministically.
func (a *A3C) SelectAction(t ts.TimeStep) *mat.VecDense {
	logits := a.policyLogits(t.Observation.RawVector().Data)

	if a.eval {
		action := floatutils.ArgMax(logits)
		return mat.NewVecDense(1, []float64{float64(action)})
	}

	// Sample from the softmax distribution over the logits. Shifting
	// by the maximum logit cannot change the distribution but keeps
	// the exponentials from overflowing.
	max := floatutils.Max(logits...)
	weights := make([]float64, len(logits))
	for i, logit := range logits {
		weights[i] = math.Exp(logit - max)
	}
	dist := distuv.NewCategorical(weights, a.source)
	return mat.NewVecDense(1, []float64{dist.Rand()})
}

// EvaluateValue returns the critic's estimate of the expected return
// from the argument observation, a scalar diagnostic independent of
// action selection.
func (a *A3C) EvaluateValue(obs mat.Vector) float64 {
	in := make([]float64, obs.Len())
	for i := range in {
		in[i] = obs.AtVec(i)
	}
	return a.stateValue(in)
}

// policyLogits runs the acting policy on a single observation and
// returns the logit of each action
func (a *A3C) policyLogits(obs []float64) []float64 {
	err := a.behaviour.SetInput(obs)
	if err != nil {
		panic(fmt.Sprintf("policylogits: could not set input: %v", err))
	}
	err = a.behaviourVM.RunAll()
	if err != nil {
		panic(fmt.Sprintf("policylogits: could not run policy: %v", err))
	}
	logits := a.behaviour.Output()[0].Data().([]float64)
	a.behaviourVM.Reset()
	return logits
}

// stateValue runs the collection critic on a single observation and
// returns its value estimate
func (a *A3C) stateValue(obs []float64) float64 {
	err := a.critic.SetInput(obs)
	if err != nil {
		panic(fmt.Sprintf("statevalue: could not set input: %v", err))
	}
	err = a.criticVM.RunAll()
	if err != nil {
		panic(fmt.Sprintf("statevalue: could not run critic: %v", err))
	}
	out := a.critic.Output()[0].Data().([]float64)
	a.criticVM.Reset()
	if len(out) != 1 {
		panic("statevalue: multiple values predicted for a single state")
	}
	return out[0]
}

// Loss returns the policy loss of the most recent update, or NaN if no
// update has been performed yet
func (a *A3C) Loss() float64 {
	if *a.policyLossVal == nil {
		return math.NaN()
	}
	return (*a.policyLossVal).Data().(float64)
}

// CriticLoss returns the critic's regression loss of the most recent
// update, or NaN if no update has been performed yet
func (a *A3C) CriticLoss() float64 {
	if *a.criticLossVal == nil {
		return math.NaN()
	}
	return (*a.criticLossVal).Data().(float64)
}

// Eval sets the agent into evaluation mode, where actions are selected
// deterministically and no learning occurs
func (a *A3C) Eval() { a.eval = true }

// Train sets the agent into training mode
func (a *A3C) Train() { a.eval = false }

// IsEval returns whether the agent is in evaluation mode
func (a *A3C) IsEval() bool { return a.eval }

// EndEpisode performs cleanup at the end of an episode
func (a *A3C) EndEpisode() {
	if !a.eval {
		a.episodes++
	}
}

// TotalSteps returns the number of environmental steps the agent has
// observed in training mode
func (a *A3C) TotalSteps() int {
	return a.envSteps
}

// Episodes returns the number of training episodes the agent has
// completed
func (a *A3C) Episodes() int {
	return a.episodes
}

// GobEncode implements the gob.GobEncoder interface. The encoding
// holds the policy and critic weights along with the agent's counters.
// Rollout buffer contents and solver state are not persisted.
func (a *A3C) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	policyBytes, err := a.trainPolicy.net.(gob.GobEncoder).GobEncode()
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode policy: %v",
			err)
	}
	err = enc.Encode(policyBytes)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode policy: %v",
			err)
	}

	criticBytes, err := a.trainCritic.(gob.GobEncoder).GobEncode()
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode critic: %v",
			err)
	}
	err = enc.Encode(criticBytes)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode critic: %v",
			err)
	}

	counters := []int{a.envSteps, a.episodes, a.updates}
	err = enc.Encode(counters)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode counters: %v",
			err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The receiver must
// be an agent already constructed with New from the same configuration
// that produced the encoding: decoding sets the stored weights into
// the receiver's existing networks rather than rebuilding them, so the
// loss graphs and their solver bindings survive. Any partially
// collected rollout in the receiver is discarded.
func (a *A3C) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	var policyBytes []byte
	err := dec.Decode(&policyBytes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode policy: %v", err)
	}

	var criticBytes []byte
	err = dec.Decode(&criticBytes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode critic: %v", err)
	}

	var counters []int
	err = dec.Decode(&counters)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode counters: %v", err)
	}
	if len(counters) != 3 {
		return fmt.Errorf("gobdecode: illegal counter encoding "+
			"\n\twant(3) \n\thave(%v)", len(counters))
	}

	// Decode each network into a scratch clone, then copy the weights
	// into the existing networks
	policyClone, err := a.trainPolicy.net.Clone()
	if err != nil {
		return fmt.Errorf("gobdecode: could not clone policy: %v", err)
	}
	err = policyClone.(gob.GobDecoder).GobDecode(policyBytes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode policy: %v", err)
	}
	err = a.trainPolicy.net.Set(policyClone)
	if err != nil {
		return fmt.Errorf("gobdecode: could not set policy: %v", err)
	}

	criticClone, err := a.trainCritic.Clone()
	if err != nil {
		return fmt.Errorf("gobdecode: could not clone critic: %v", err)
	}
	err = criticClone.(gob.GobDecoder).GobDecode(criticBytes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode critic: %v", err)
	}
	err = a.trainCritic.Set(criticClone)
	if err != nil {
		return fmt.Errorf("gobdecode: could not set critic: %v", err)
	}

	// Propagate the restored weights to the collection networks
	err = a.behaviour.Set(a.trainPolicy.net)
	if err != nil {
		return fmt.Errorf("gobdecode: could not set behaviour policy: %v",
			err)
	}
	err = a.critic.Set(a.trainCritic)
	if err != nil {
		return fmt.Errorf("gobdecode: could not set critic: %v", err)
	}

	a.envSteps = counters[0]
	a.episodes = counters[1]
	a.updates = counters[2]
	a.batchStep = 0
	a.buffer.reset()

	return nil
}
