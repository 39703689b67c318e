package a3c

import (
	"fmt"
	"reflect"

	"github.com/rwgardner2/cups-rl/agent"
	env "github.com/rwgardner2/cups-rl/environment"
	"github.com/rwgardner2/cups-rl/initwfn"
	"github.com/rwgardner2/cups-rl/network"
	"github.com/rwgardner2/cups-rl/solver"
)

func init() {
	// Register ConfigList type so that it can be typed using
	// agent.TypedConfigList to help with serialization/deserialization.
	agent.Register(agent.CategoricalA3CMLP, ConfigList{})
}

// ConfigList implements a list of Config's in a more efficient manner
// than simply using a slice of Config's.
type ConfigList struct {
	// Policy network
	PolicyHidden      [][]int
	PolicyBiases      [][]bool
	PolicyActivations [][]*network.Activation

	// State value critic network
	CriticHidden      [][]int
	CriticBiases      [][]bool
	CriticActivations [][]*network.Activation

	PolicySolver []*solver.Solver
	CriticSolver []*solver.Solver

	// Initialization algorithm for the weights of both networks
	InitWFn []*initwfn.InitWFn

	// Generalized advantage estimation
	Lambda []float64
	Gamma  []float64

	BatchSize   []int
	EntropyCoef []float64
}

// NewConfigList returns a new ConfigList as an agent.TypedConfigList.
// Because the returned value is a TypedList, it can safely be JSON
// serialized and deserialized without specifying what the type of
// the ConfigList is.
func NewConfigList(
	PolicyHidden [][]int,
	PolicyBiases [][]bool,
	PolicyActivations [][]*network.Activation,
	CriticHidden [][]int,
	CriticBiases [][]bool,
	CriticActivations [][]*network.Activation,
	PolicySolver []*solver.Solver,
	CriticSolver []*solver.Solver,
	InitWFn []*initwfn.InitWFn,
	Lambda []float64,
	Gamma []float64,
	BatchSize []int,
	EntropyCoef []float64,
) agent.TypedConfigList {
	configs := ConfigList{
		PolicyHidden:      PolicyHidden,
		PolicyBiases:      PolicyBiases,
		PolicyActivations: PolicyActivations,

		CriticHidden:      CriticHidden,
		CriticBiases:      CriticBiases,
		CriticActivations: CriticActivations,

		PolicySolver: PolicySolver,
		CriticSolver: CriticSolver,
		InitWFn:      InitWFn,

		Lambda: Lambda,
		Gamma:  Gamma,

		BatchSize:   BatchSize,
		EntropyCoef: EntropyCoef,
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
	return len(c.PolicyHidden) * len(c.PolicyBiases) *
		len(c.PolicyActivations) * len(c.CriticHidden) *
		len(c.CriticBiases) * len(c.CriticActivations) *
		len(c.PolicySolver) * len(c.CriticSolver) * len(c.InitWFn) *
		len(c.Lambda) * len(c.Gamma) * len(c.BatchSize) *
		len(c.EntropyCoef)
}

// Config implements a configuration for a synchronous advantage
// actor-critic agent with a softmax policy over discrete actions.
type Config struct {
	// Policy network
	PolicyHidden      []int
	PolicyBiases      []bool
	PolicyActivations []*network.Activation

	// State value critic network
	CriticHidden      []int
	CriticBiases      []bool
	CriticActivations []*network.Activation

	PolicySolver *solver.Solver
	CriticSolver *solver.Solver

	// Initialization algorithm for the weights of both networks
	InitWFn *initwfn.InitWFn

	// Generalized advantage estimation. Lambda trades advantage bias
	// against variance: 0 uses one-step temporal difference errors and
	// 1 full Monte Carlo returns. Gamma is the discount per
	// environmental step.
	Lambda float64
	Gamma  float64

	// Number of environmental steps collected between updates
	BatchSize int

	// Weight of the mean entropy bonus subtracted from the policy
	// loss. Zero disables the bonus.
	EntropyCoef float64
}

// Type returns the type of the configuration
func (c Config) Type() agent.Type {
	return agent.CategoricalA3CMLP
}

// Validate checks a Config to ensure it is a valid configuration of an
// A3C agent.
func (c Config) Validate() error {
	if len(c.PolicyHidden) != len(c.PolicyBiases) {
		msg := fmt.Sprintf("new: invalid number of policy biases"+
			"\n\twant(%v)\n\thave(%v)", len(c.PolicyHidden),
			len(c.PolicyBiases))
		return fmt.Errorf(msg)
	}

	if len(c.PolicyHidden) != len(c.PolicyActivations) {
		msg := fmt.Sprintf("new: invalid number of policy activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.PolicyHidden),
			len(c.PolicyActivations))
		return fmt.Errorf(msg)
	}

	if len(c.CriticHidden) != len(c.CriticBiases) {
		msg := fmt.Sprintf("new: invalid number of critic biases"+
			"\n\twant(%v)\n\thave(%v)", len(c.CriticHidden),
			len(c.CriticBiases))
		return fmt.Errorf(msg)
	}

	if len(c.CriticHidden) != len(c.CriticActivations) {
		msg := fmt.Sprintf("new: invalid number of critic activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.CriticHidden),
			len(c.CriticActivations))
		return fmt.Errorf(msg)
	}

	if c.PolicySolver == nil {
		return fmt.Errorf("new: no policy solver provided")
	}

	if c.CriticSolver == nil {
		return fmt.Errorf("new: no critic solver provided")
	}

	if c.InitWFn == nil {
		return fmt.Errorf("new: no weight initialization provided")
	}

	if c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("new: lambda must be in [0, 1] \n\thave(%v)",
			c.Lambda)
	}

	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("new: discount must be in [0, 1] \n\thave(%v)",
			c.Gamma)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("new: updates require at least one collected "+
			"step \n\twant(>0) \n\thave(%v)", c.BatchSize)
	}

	if c.EntropyCoef < 0 {
		return fmt.Errorf("new: entropy bonus weight cannot be negative "+
			"\n\thave(%v)", c.EntropyCoef)
	}

	return nil
}

// ValidAgent returns whether the agent is valid for the configuration.
// That is, whether Agent a can be constructed with Config c.
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*A3C)
	return ok
}

// CreateAgent creates a new A3C agent based on the configuration
func (c Config) CreateAgent(e env.Environment, s uint64) (agent.Agent,
	error) {
	return New(e, c, int64(s))
}
