package rainbow

import (
	"fmt"
	"reflect"

	"github.com/rwgardner2/cups-rl/agent"
	env "github.com/rwgardner2/cups-rl/environment"
	"github.com/rwgardner2/cups-rl/initwfn"
	"github.com/rwgardner2/cups-rl/network"
	"github.com/rwgardner2/cups-rl/solver"
)

// DefaultEvalEpsilon is the exploration rate used for ε-greedy action
// selection in evaluation mode when a Config leaves EvalEpsilon at its
// zero value. High evaluation epsilons degrade evaluation scores, so
// the default is kept small.
const DefaultEvalEpsilon float64 = 0.001

func init() {
	// Register ConfigList type so that it can be typed using
	// agent.TypedConfigList to help with serialization/deserialization.
	agent.Register(agent.CategoricalRainbowMLP, ConfigList{})
}

// ConfigList implements a list of Config's in a more efficient manner
// than simply using a slice of Config's.
type ConfigList struct {
	Hidden      [][]int                 // Hidden layer sizes in the value net
	Biases      [][]bool                // Whether each layer should have a bias
	Activations [][]*network.Activation // Activation of each layer
	Solver      []*solver.Solver        // Solver for learning weights

	// Initialization algorithm for weights
	InitWFn []*initwfn.InitWFn

	// Return distribution support
	Atoms []int
	VMin  []float64
	VMax  []float64

	// Multi-step backup length and discount
	N     []int
	Gamma []float64

	// Exploration
	Noisy       []bool
	SigmaInit   []float64
	Epsilon     []float64
	EvalEpsilon []float64

	// Prioritized experience replay parameters
	MinCapacity []int
	MaxCapacity []int
	BatchSize   []int
	Alpha       []float64
	BetaStart   []float64
	BetaSteps   []int

	// Learning cadence and target net updates
	ReplayInterval []int
	TargetInterval []int
	Tau            []float64
}

// NewConfigList returns a new ConfigList as an agent.TypedConfigList.
// Because the returned value is a TypedList, it can safely be JSON
// serialized and deserialized without specifying what the type of
// the ConfigList is.
func NewConfigList(
	Hidden [][]int,
	Biases [][]bool,
	Activations [][]*network.Activation,
	Solver []*solver.Solver,
	InitWFn []*initwfn.InitWFn,
	Atoms []int,
	VMin []float64,
	VMax []float64,
	N []int,
	Gamma []float64,
	Noisy []bool,
	SigmaInit []float64,
	Epsilon []float64,
	EvalEpsilon []float64,
	MinCapacity []int,
	MaxCapacity []int,
	BatchSize []int,
	Alpha []float64,
	BetaStart []float64,
	BetaSteps []int,
	ReplayInterval []int,
	TargetInterval []int,
	Tau []float64,
) agent.TypedConfigList {
	configs := ConfigList{
		Hidden:      Hidden,
		Biases:      Biases,
		Activations: Activations,
		Solver:      Solver,
		InitWFn:     InitWFn,

		Atoms: Atoms,
		VMin:  VMin,
		VMax:  VMax,

		N:     N,
		Gamma: Gamma,

		Noisy:       Noisy,
		SigmaInit:   SigmaInit,
		Epsilon:     Epsilon,
		EvalEpsilon: EvalEpsilon,

		MinCapacity: MinCapacity,
		MaxCapacity: MaxCapacity,
		BatchSize:   BatchSize,
		Alpha:       Alpha,
		BetaStart:   BetaStart,
		BetaSteps:   BetaSteps,

		ReplayInterval: ReplayInterval,
		TargetInterval: TargetInterval,
		Tau:            Tau,
	}

	return agent.NewTypedConfigList(configs)
}

// Type returns the type of Config stored in the list
func (c ConfigList) Type() agent.Type {
	return c.Config().Type()
}

// NumFields returns the number of settable fields in a Config
func (c ConfigList) NumFields() int {
	rValue := reflect.ValueOf(c)
	return rValue.NumField()
}

// Config returns an empty Config of the same type as that stored
// by the ConfigList
func (c ConfigList) Config() agent.Config {
	return Config{}
}

// Len returns the number of Config's in the list
func (c ConfigList) Len() int {
	return len(c.Hidden) * len(c.Biases) * len(c.Activations) *
		len(c.Solver) * len(c.InitWFn) * len(c.Atoms) * len(c.VMin) *
		len(c.VMax) * len(c.N) * len(c.Gamma) * len(c.Noisy) *
		len(c.SigmaInit) * len(c.Epsilon) * len(c.EvalEpsilon) *
		len(c.MinCapacity) * len(c.MaxCapacity) * len(c.BatchSize) *
		len(c.Alpha) * len(c.BetaStart) * len(c.BetaSteps) *
		len(c.ReplayInterval) * len(c.TargetInterval) * len(c.Tau)
}

// Config implements a configuration for a Rainbow agent. The agent
// learns a categorical distribution over returns for each action,
// placed on a fixed support of Atoms values evenly spaced over
// [VMin, VMax].
type Config struct {
	Hidden      []int                 // Hidden layer sizes in the value net
	Biases      []bool                // Whether each layer should have a bias
	Activations []*network.Activation // Activation of each layer
	Solver      *solver.Solver        // Solver for learning weights

	// Initialization algorithm for weights
	InitWFn *initwfn.InitWFn

	// Return distribution support
	Atoms int
	VMin  float64
	VMax  float64

	// Multi-step backup length and discount per environmental step
	N     int
	Gamma float64

	// Exploration. When Noisy is true the value net uses noisy linear
	// layers with initial scale SigmaInit, and Epsilon is ignored.
	// Otherwise the behaviour policy is ε-greedy with rate Epsilon.
	Noisy     bool
	SigmaInit float64
	Epsilon   float64

	// Exploration rate for ε-greedy action selection in evaluation
	// mode. Zero selects DefaultEvalEpsilon. Negative values evaluate
	// purely greedily.
	EvalEpsilon float64

	// Prioritized experience replay parameters
	MinCapacity int
	MaxCapacity int
	BatchSize   int
	Alpha       float64
	BetaStart   float64
	BetaSteps   int

	// Learning cadence: environmental steps between gradient steps and
	// gradient steps between target network updates
	ReplayInterval int
	TargetInterval int
	Tau            float64 // Polyak averaging constant, 1.0 copies
}

// Type returns the type of the configuration
func (c Config) Type() agent.Type {
	return agent.CategoricalRainbowMLP
}

// Validate checks a Config to ensure it is a valid configuration of a
// Rainbow agent.
func (c Config) Validate() error {
	if len(c.Hidden) != len(c.Biases) {
		msg := fmt.Sprintf("new: invalid number of biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.Hidden), len(c.Biases))
		return fmt.Errorf(msg)
	}

	if len(c.Hidden) != len(c.Activations) {
		msg := fmt.Sprintf("new: invalid number of activations\n\twant(%v)"+
			"\n\thave(%v)", len(c.Hidden), len(c.Activations))
		return fmt.Errorf(msg)
	}

	if c.Solver == nil {
		return fmt.Errorf("new: no solver provided")
	}

	if c.InitWFn == nil {
		return fmt.Errorf("new: no weight initialization provided")
	}

	if c.N < 1 {
		return fmt.Errorf("new: backups must span at least one step "+
			"\n\twant(>0) \n\thave(%v)", c.N)
	}

	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("new: discount must be in [0, 1] \n\thave(%v)",
			c.Gamma)
	}

	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("new: epsilon must be in [0, 1] \n\thave(%v)",
			c.Epsilon)
	}

	if c.ReplayInterval < 1 {
		return fmt.Errorf("new: gradient steps must be taken at positive "+
			"timestep intervals \n\twant(>0) \n\thave(%v)", c.ReplayInterval)
	}

	if c.TargetInterval < 1 {
		return fmt.Errorf("new: target networks must be updated at positive "+
			"gradient step intervals \n\twant(>0) \n\thave(%v)",
			c.TargetInterval)
	}

	return nil
}

// ValidAgent returns whether the agent is valid for the configuration.
// That is, whether Agent a can be constructed with Config c.
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*Rainbow)
	return ok
}

// CreateAgent creates a new Rainbow agent based on the configuration
func (c Config) CreateAgent(e env.Environment, s uint64) (agent.Agent,
	error) {
	return New(e, c, int64(s))
}
