// Package rainbow implements a Rainbow agent over discrete action
// spaces. The agent learns a categorical distribution over returns
// for each action rather than a scalar value estimate. Distributions
// are supported on a fixed grid of atoms, and the learning target is
// the projection of an N-step distributional Bellman backup onto that
// grid.
//
// The agent combines the distributional value estimate with double
// Q-learning action selection, prioritized experience replay with
// importance sampling corrections, N-step returns, and parameter
// noise exploration in place of ε-greedy exploration.
package rainbow

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

	"github.com/rwgardner2/cups-rl/distribution"
	"github.com/rwgardner2/cups-rl/environment"
	"github.com/rwgardner2/cups-rl/expreplay"
	"github.com/rwgardner2/cups-rl/network"
	"github.com/rwgardner2/cups-rl/spec"
	ts "github.com/rwgardner2/cups-rl/timestep"
	"github.com/rwgardner2/cups-rl/utils/floatutils"
	"github.com/rwgardner2/cups-rl/utils/tensorutils"
)

// Rainbow implements the Rainbow algorithm with an MLP function
// approximator. The agent holds four copies of the value network:
//
// The behaviour network selects actions at the current step with a
// batch size of 1. The train network takes in batches of sampled
// transitions and is the only network whose weights the solver adapts.
// The online evaluation network is run on the sampled next states to
// select the bootstrap action of each, so that actions are chosen with
// the online weights but evaluated with the target weights. The target
// network computes the distribution of each selected bootstrap action
// and is updated toward the train network only every TargetInterval
// gradient steps.
type Rainbow struct {
	// Network for selecting actions at the current step
	behaviour   network.NoisyNet
	behaviourVM G.VM

	// Network whose weights are adapted to batches of replayed
	// transitions
	trainNet   network.NoisyNet
	trainNetVM G.VM
	solver     G.Solver // Adapts the weights of trainNet

	// Online network run on sampled next states to select each
	// bootstrap action
	onlineEval   network.NoisyNet
	onlineEvalVM G.VM

	// Network providing the distributions of the selected bootstrap
	// actions
	targetNet   network.NoisyNet
	targetNetVM G.VM

	// targetMass is the input node in the graph of trainNet holding
	// the projected target distributions. Each row is zero outside the
	// taken action's atom block, so the row-wise cross-entropy against
	// the predicted log-probabilities reduces to the cross-entropy at
	// the taken action. isWeights holds the importance sampling
	// weights of the sampled transitions.
	targetMass *G.Node
	isWeights  *G.Node

	// Values read out of the train graph after each run: the
	// per-sample cross-entropy losses, which become the new replay
	// priorities, and the weighted batch loss
	lossVal *G.Value
	costVal *G.Value

	support *distribution.Support
	replay  *expreplay.Prioritized

	numActions int
	numAtoms   int
	batchSize  int
	gammaN     float64 // Discount applied to the bootstrap distribution

	// Exploration
	noisy       bool
	epsilon     float64
	evalEpsilon float64
	rng         *rand.Rand
	stdNormal   func() float64

	// Learning cadence and target network updates
	replayInterval  int
	targetInterval  int
	tau             float64
	stepsSinceLearn int
	gradientSteps   int

	// Counters persisted across checkpoints
	envSteps int
	episodes int

	// The timestep the agent currently acts in
	nextStep ts.TimeStep

	eval bool // Whether or not in evaluation mode
}

// New creates and returns a new Rainbow agent
func New(e environment.Environment, config Config,
	seed int64) (*Rainbow, error) {
	// Ensure environment has discrete actions
	if e.ActionSpec().Cardinality != spec.Discrete {
		return &Rainbow{}, fmt.Errorf("rainbow: cannot use non-discrete " +
			"actions")
	}

	// Ensure actions are one-dimensional
	if e.ActionSpec().LowerBound.Len() > 1 {
		return &Rainbow{}, fmt.Errorf("rainbow: actions must be " +
			"1-dimensional")
	}

	// Ensure actions are enumerated from 0
	if e.ActionSpec().LowerBound.AtVec(0) != 0.0 {
		return &Rainbow{}, fmt.Errorf("rainbow: actions must be " +
			"enumerated starting from 0")
	}

	// Ensure the configuration is valid
	err := config.Validate()
	if err != nil {
		return &Rainbow{}, err
	}

	support, err := distribution.NewSupport(config.Atoms, config.VMin,
		config.VMax)
	if err != nil {
		return &Rainbow{}, fmt.Errorf("new: could not create support: %v",
			err)
	}

	// Extract configuration variables
	batchSize := config.BatchSize
	numActions := int(e.ActionSpec().UpperBound.AtVec(0)) + 1
	numFeatures := e.ObservationSpec().Shape.Len()
	gammaN := math.Pow(config.Gamma, float64(config.N))

	evalEpsilon := config.EvalEpsilon
	if evalEpsilon == 0 {
		evalEpsilon = DefaultEvalEpsilon
	} else if evalEpsilon < 0 {
		evalEpsilon = 0
	}

	// Create RNG for ε-greedy actions and for drawing network noise
	source := rand.NewSource(uint64(seed))
	rng := rand.New(source)
	stdNormal := distuv.Normal{Mu: 0.0, Sigma: 1.0, Src: source}.Rand

	// Behaviour network for selecting actions
	g := G.NewGraph()
	behaviourNet, err := network.NewCategoricalMLP(
		numFeatures,
		1, // For the behaviour network, we only select a single action
		numActions,
		config.Atoms,
		g,
		config.Hidden,
		config.Biases,
		config.InitWFn.InitWFn(),
		config.Activations,
		config.Noisy,
		config.SigmaInit,
	)
	if err != nil {
		return &Rainbow{}, fmt.Errorf("new: could not create behaviour "+
			"network: %v", err)
	}
	behaviour := behaviourNet.(network.NoisyNet)
	behaviourVM := G.NewTapeMachine(g)
	err = behaviour.ResetNoise(stdNormal)
	if err != nil {
		return &Rainbow{}, fmt.Errorf("new: could not draw noise: %v", err)
	}

	// Create the online evaluation network, which selects the
	// bootstrap action in each sampled next state
	onlineEvalClone, err := behaviour.CloneWithBatch(batchSize)
	if err != nil {
		msg := "new: could not create online evaluation network: %v"
		return &Rainbow{}, fmt.Errorf(msg, err)
	}
	onlineEval := onlineEvalClone.(network.NoisyNet)
	onlineEvalVM := G.NewTapeMachine(onlineEval.Graph())

	// Create the target network which provides the distributions of
	// the selected bootstrap actions
	targetNetClone, err := behaviour.CloneWithBatch(batchSize)
	if err != nil {
		msg := "new: could not create target network: %v"
		return &Rainbow{}, fmt.Errorf(msg, err)
	}
	targetNet := targetNetClone.(network.NoisyNet)
	targetNetVM := G.NewTapeMachine(targetNet.Graph())

	// Create a training network which learns the weights
	trainNetClone, err := behaviour.CloneWithBatch(batchSize)
	if err != nil {
		msg := "new: could not create learning network: %v"
		return &Rainbow{}, fmt.Errorf(msg, err)
	}
	trainNet := trainNetClone.(network.NoisyNet)
	gTrain := trainNet.Graph()

	// Create nodes holding the projected target distributions and the
	// importance sampling weights of the sampled transitions
	rowLen := numActions * config.Atoms
	targetMass := G.NewMatrix(gTrain, tensor.Float64,
		G.WithShape(batchSize, rowLen), G.WithName("targetMass"))
	isWeights := G.NewVector(gTrain, tensor.Float64,
		G.WithShape(batchSize), G.WithName("isWeights"))

	// Compute the per-sample cross-entropy between the projected
	// target mass and the predicted log-probabilities. Target rows are
	// zero outside the taken action's atom block, so summing over the
	// full row leaves exactly the cross-entropy at the taken action.
	logProbs := trainNet.Prediction()[1]
	losses := G.Must(G.HadamardProd(targetMass, logProbs))
	losses = G.Must(G.Neg(G.Must(G.Sum(losses, 1))))

	lossVal := new(G.Value)
	G.Read(losses, lossVal)

	// Importance-weighted batch loss
	cost := G.Must(G.Mean(G.Must(G.HadamardProd(losses, isWeights))))

	costVal := new(G.Value)
	G.Read(cost, costVal)

	// Compute the gradient with respect to the weighted cross-entropy
	_, err = G.Grad(cost, trainNet.Learnables()...)
	if err != nil {
		msg := fmt.Sprintf("new: could not compute gradient: %v", err)
		panic(msg)
	}

	// Compile the trainNet graph into a VM
	trainNetVM := G.NewTapeMachine(
		gTrain,
		G.BindDualValues(trainNet.Learnables()...),
	)
	solver := config.Solver

	// Create the prioritized experience replay buffer, which assembles
	// the N-step returns of sampled transitions
	replay, err := expreplay.NewPrioritized(
		numFeatures,
		config.N,
		config.MinCapacity,
		config.MaxCapacity,
		batchSize,
		config.Alpha,
		config.BetaStart,
		config.BetaSteps,
		seed,
	)
	if err != nil {
		msg := "new: could not create experience replay buffer: %v"
		return &Rainbow{}, fmt.Errorf(msg, err)
	}

	return &Rainbow{
		behaviour:   behaviour,
		behaviourVM: behaviourVM,

		trainNet:   trainNet,
		trainNetVM: trainNetVM,
		solver:     solver,

		onlineEval:   onlineEval,
		onlineEvalVM: onlineEvalVM,

		targetNet:   targetNet,
		targetNetVM: targetNetVM,

		targetMass: targetMass,
		isWeights:  isWeights,
		lossVal:    lossVal,
		costVal:    costVal,

		support: support,
		replay:  replay,

		numActions: numActions,
		numAtoms:   config.Atoms,
		batchSize:  batchSize,
		gammaN:     gammaN,

		noisy:       config.Noisy,
		epsilon:     config.Epsilon,
		evalEpsilon: evalEpsilon,
		rng:         rng,
		stdNormal:   stdNormal,

		replayInterval: config.ReplayInterval,
		targetInterval: config.TargetInterval,
		tau:            config.Tau,

		nextStep: ts.TimeStep{},
		eval:     false,
	}, nil
}

// ObserveFirst observes and records the first episodic timestep
func (r *Rainbow) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		return fmt.Errorf("observefirst: timestep is not the first of "+
			"an episode (timestep %v)", t.Number)
	}
	r.nextStep = t
	return nil
}

// Observe records that the argument action was taken at the current
// step and led to the argument timestep. The resulting transition is
// stored in the replay buffer. In evaluation mode the transition is
// discarded so that evaluation leaves the replay buffer untouched.
func (r *Rainbow) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	if action.Len() != 1 {
		return fmt.Errorf("observe: value-based methods cannot use "+
			"multi-dimensional actions \n\twant(1) \n\thave(%v)",
			action.Len())
	}
	if a := int(action.AtVec(0)); a < 0 || a >= r.numActions {
		return &AgentError{Op: "observe", Err: errInvalidAction}
	}
	if r.nextStep.Observation == nil {
		return fmt.Errorf("observe: no first timestep observed")
	}

	if !r.eval {
		transition := ts.NewTransition(r.nextStep, action, nextStep)
		err := r.replay.Add(transition)
		if err != nil {
			return fmt.Errorf("observe: could not add to replay buffer: %v",
				err)
		}
		r.envSteps++
	}

	r.nextStep = nextStep
	return nil
}

// Step updates the weights of the agent's networks. A gradient step is
// taken once every ReplayInterval calls; other calls return
// immediately. Steps before the replay buffer reaches its minimum
// capacity perform no work. In evaluation mode Step is a no-op.
func (r *Rainbow) Step() error {
	if r.eval {
		return nil
	}

	r.stepsSinceLearn++
	if r.stepsSinceLearn < r.replayInterval {
		return nil
	}
	r.stepsSinceLearn = 0

	// Redraw the acting noise each learning interval so that
	// exploration decorrelates across gradient steps
	err := r.behaviour.ResetNoise(r.stdNormal)
	if err != nil {
		return fmt.Errorf("step: could not reset behaviour noise: %v", err)
	}

	// Don't update if replay buffer has insufficient samples
	batch, err := r.replay.Sample()
	if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("step: could not sample transitions: %v", err)
	}

	err = r.trainNet.ResetNoise(r.stdNormal)
	if err != nil {
		return fmt.Errorf("step: could not reset train noise: %v", err)
	}

	// Select the bootstrap action of each next state with the online
	// weights
	err = r.onlineEval.ResetNoise(r.stdNormal)
	if err != nil {
		return fmt.Errorf("step: could not reset selection noise: %v", err)
	}
	err = r.onlineEval.SetInput(batch.NextStates)
	if err != nil {
		return fmt.Errorf("step: could not set selection input: %v", err)
	}
	err = r.onlineEvalVM.RunAll()
	if err != nil {
		return fmt.Errorf("step: could not run selection network: %v", err)
	}
	onlineProbs := r.onlineEval.Output()[0].Data().([]float64)
	r.onlineEvalVM.Reset()

	// Evaluate the distributions of the selected actions with the
	// target weights
	err = r.targetNet.ResetNoise(r.stdNormal)
	if err != nil {
		return fmt.Errorf("step: could not reset target noise: %v", err)
	}
	err = r.targetNet.SetInput(batch.NextStates)
	if err != nil {
		return fmt.Errorf("step: could not set target input: %v", err)
	}
	err = r.targetNetVM.RunAll()
	if err != nil {
		return fmt.Errorf("step: could not run target network: %v", err)
	}
	targetProbs := r.targetNet.Output()[0].Data().([]float64)
	r.targetNetVM.Reset()

	selected, err := r.support.SelectTargets(onlineProbs, targetProbs,
		r.batchSize, r.numActions)
	if err != nil {
		return fmt.Errorf("step: could not select bootstrap "+
			"distributions: %v", err)
	}

	// Project the N-step backup of each bootstrap distribution onto
	// the support
	mass, err := r.support.Project(selected, batch.Returns,
		batch.Nonterminal, r.gammaN)
	if err != nil {
		return err
	}

	// Scatter each row's projected mass into the taken action's atom
	// block, leaving the rest of the row zero
	rowLen := r.numActions * r.numAtoms
	massTensor, err := tensorutils.ScatterRows(rowLen, r.numAtoms,
		batch.Actions, mass)
	if err != nil {
		return fmt.Errorf("step: could not scatter target mass: %v", err)
	}

	// Load the sampled states, target mass, and importance sampling
	// weights into the train graph
	err = r.trainNet.SetInput(batch.States)
	if err != nil {
		return fmt.Errorf("step: could not set trainNet input: %v", err)
	}
	err = G.Let(r.targetMass, massTensor)
	if err != nil {
		return fmt.Errorf("step: could not set target mass: %v", err)
	}
	weightTensor := tensor.New(
		tensor.WithShape(r.batchSize),
		tensor.WithBacking(batch.Weights),
	)
	err = G.Let(r.isWeights, weightTensor)
	if err != nil {
		return fmt.Errorf("step: could not set importance weights: %v", err)
	}

	// Run the learning step
	err = r.trainNetVM.RunAll()
	if err != nil {
		return fmt.Errorf("step: could not run learning step: %v", err)
	}

	// A non-finite loss means the learned distributions are corrupt.
	// Abort before the solver or the stored priorities see it.
	losses := (*r.lossVal).Data().([]float64)
	err = distribution.CheckFinite("step", losses)
	if err != nil {
		r.trainNetVM.Reset()
		return err
	}

	err = r.solver.Step(r.trainNet.Model())
	if err != nil {
		return fmt.Errorf("step: could not step solver: %v", err)
	}
	r.trainNetVM.Reset()
	r.gradientSteps++

	// Report the absolute per-sample losses back to the replay buffer
	// as the new priorities of the sampled transitions
	magnitudes := make([]float64, len(losses))
	for i, loss := range losses {
		magnitudes[i] = math.Abs(loss)
	}
	err = r.replay.UpdatePriorities(batch.Indices, magnitudes)
	if err != nil {
		return fmt.Errorf("step: could not update priorities: %v", err)
	}

	// Update the target network by setting its weights to the newly
	// learned weights
	if r.gradientSteps%r.targetInterval == 0 {
		if r.tau == 1.0 {
			err = r.targetNet.Set(r.trainNet)
		} else {
			err = r.targetNet.Polyak(r.trainNet, r.tau)
		}
		if err != nil {
			return fmt.Errorf("step: could not update target network: %v",
				err)
		}
	}

	err = r.onlineEval.Set(r.trainNet)
	if err != nil {
		return fmt.Errorf("step: could not update selection network: %v",
			err)
	}
	err = r.behaviour.Set(r.trainNet)
	if err != nil {
		return fmt.Errorf("step: could not update behaviour network: %v",
			err)
	}
	return nil
}

// SelectAction returns an action selected by the behaviour network at
// the argument timestep. In training mode, exploration comes from the
// network's parameter noise when the agent is noisy and from ε-greedy
// selection otherwise. In evaluation mode the noise is zeroed and a
// small evaluation ε applies.
func (r *Rainbow) SelectAction(t ts.TimeStep) *mat.VecDense {
	ε := r.epsilon
	if r.eval {
		ε = r.evalEpsilon
	} else if r.noisy {
		ε = 0.0 // Exploration comes from the parameter noise
	}

	if ε > 0.0 && r.rng.Float64() < ε {
		action := r.rng.Intn(r.numActions)
		return mat.NewVecDense(1, []float64{float64(action)})
	}

	probs := r.actionProbabilities(t.Observation.RawVector().Data)
	action := r.support.GreedyAction(probs, r.numActions)
	return mat.NewVecDense(1, []float64{float64(action)})
}

// EvaluateValue returns the maximum expected return over actions at
// the argument observation, a scalar value estimate for diagnostics,
// independent of the acting policy.
func (r *Rainbow) EvaluateValue(obs mat.Vector) float64 {
	in := make([]float64, obs.Len())
	for i := range in {
		in[i] = obs.AtVec(i)
	}

	probs := r.actionProbabilities(in)
	values := r.support.ExpectedValues(probs, r.numActions)
	return floatutils.Max(values...)
}

// actionProbabilities runs the behaviour network on a single
// observation and returns the flattened distribution of each action
func (r *Rainbow) actionProbabilities(obs []float64) []float64 {
	err := r.behaviour.SetInput(obs)
	if err != nil {
		panic(fmt.Sprintf("actionprobabilities: could not set input: %v",
			err))
	}
	err = r.behaviourVM.RunAll()
	if err != nil {
		panic(fmt.Sprintf("actionprobabilities: could not run network: %v",
			err))
	}
	probs := r.behaviour.Output()[0].Data().([]float64)
	r.behaviourVM.Reset()
	return probs
}

// ResetNoise redraws the exploration noise of the behaviour network.
// In evaluation mode the noise stays zeroed and ResetNoise does
// nothing.
func (r *Rainbow) ResetNoise() {
	if r.eval {
		return
	}
	err := r.behaviour.ResetNoise(r.stdNormal)
	if err != nil {
		panic(fmt.Sprintf("resetnoise: %v", err))
	}
}

// SyncTarget copies the learned weights into the target network
func (r *Rainbow) SyncTarget() {
	err := r.targetNet.Set(r.trainNet)
	if err != nil {
		panic(fmt.Sprintf("synctarget: %v", err))
	}
}

// Loss returns the importance-weighted batch loss of the most recent
// gradient step, or NaN if no gradient step has been taken yet
func (r *Rainbow) Loss() float64 {
	if *r.costVal == nil {
		return math.NaN()
	}
	return (*r.costVal).Data().(float64)
}

// Eval sets the agent into evaluation mode, zeroing the behaviour
// network's noise so that action selection is deterministic up to the
// evaluation ε
func (r *Rainbow) Eval() {
	r.eval = true
	err := r.behaviour.ZeroNoise()
	if err != nil {
		panic(fmt.Sprintf("eval: could not zero noise: %v", err))
	}
}

// Train sets the agent into training mode
func (r *Rainbow) Train() {
	r.eval = false
	err := r.behaviour.ResetNoise(r.stdNormal)
	if err != nil {
		panic(fmt.Sprintf("train: could not reset noise: %v", err))
	}
}

// IsEval returns whether the agent is in evaluation mode
func (r *Rainbow) IsEval() bool {
	return r.eval
}

// EndEpisode performs cleanup at the end of an episode
func (r *Rainbow) EndEpisode() {
	if !r.eval {
		r.episodes++
	}
}

// TotalSteps returns the number of environmental steps the agent has
// observed in training mode
func (r *Rainbow) TotalSteps() int {
	return r.envSteps
}

// Episodes returns the number of training episodes the agent has
// completed
func (r *Rainbow) Episodes() int {
	return r.episodes
}

// GobEncode implements the gob.GobEncoder interface. The encoding
// holds the train and target network weights along with the agent's
// counters. Replay buffer contents and solver state are not persisted.
func (r *Rainbow) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	trainBytes, err := r.trainNet.(gob.GobEncoder).GobEncode()
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode train "+
			"network: %v", err)
	}
	err = enc.Encode(trainBytes)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode train "+
			"network: %v", err)
	}

	targetBytes, err := r.targetNet.(gob.GobEncoder).GobEncode()
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode target "+
			"network: %v", err)
	}
	err = enc.Encode(targetBytes)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode target "+
			"network: %v", err)
	}

	counters := []int{r.envSteps, r.episodes, r.gradientSteps,
		r.stepsSinceLearn}
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
// training graph and its solver bindings survive.
func (r *Rainbow) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	var trainBytes []byte
	err := dec.Decode(&trainBytes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode train network: %v",
			err)
	}

	var targetBytes []byte
	err = dec.Decode(&targetBytes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode target network: %v",
			err)
	}

	var counters []int
	err = dec.Decode(&counters)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode counters: %v", err)
	}
	if len(counters) != 4 {
		return fmt.Errorf("gobdecode: illegal counter encoding "+
			"\n\twant(4) \n\thave(%v)", len(counters))
	}

	// Decode each network into a scratch clone, then copy the weights
	// into the existing networks
	trainClone, err := r.trainNet.Clone()
	if err != nil {
		return fmt.Errorf("gobdecode: could not clone train network: %v",
			err)
	}
	err = trainClone.(gob.GobDecoder).GobDecode(trainBytes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode train network: %v",
			err)
	}
	err = r.trainNet.Set(trainClone)
	if err != nil {
		return fmt.Errorf("gobdecode: could not set train network: %v", err)
	}

	targetClone, err := r.targetNet.Clone()
	if err != nil {
		return fmt.Errorf("gobdecode: could not clone target network: %v",
			err)
	}
	err = targetClone.(gob.GobDecoder).GobDecode(targetBytes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode target network: %v",
			err)
	}
	err = r.targetNet.Set(targetClone)
	if err != nil {
		return fmt.Errorf("gobdecode: could not set target network: %v",
			err)
	}

	// Propagate the restored weights to the acting and selection
	// networks
	err = r.onlineEval.Set(r.trainNet)
	if err != nil {
		return fmt.Errorf("gobdecode: could not set selection network: %v",
			err)
	}
	err = r.behaviour.Set(r.trainNet)
	if err != nil {
		return fmt.Errorf("gobdecode: could not set behaviour network: %v",
			err)
	}
	if r.eval {
		err = r.behaviour.ZeroNoise()
	} else {
		err = r.behaviour.ResetNoise(r.stdNormal)
	}
	if err != nil {
		return fmt.Errorf("gobdecode: could not restore noise: %v", err)
	}

	r.envSteps = counters[0]
	r.episodes = counters[1]
	r.gradientSteps = counters[2]
	r.stepsSinceLearn = counters[3]

	return nil
}
