package a3c

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/rwgardner2/cups-rl/environment"
	"github.com/rwgardner2/cups-rl/environment/envconfig"
	"github.com/rwgardner2/cups-rl/initwfn"
	"github.com/rwgardner2/cups-rl/network"
	"github.com/rwgardner2/cups-rl/solver"
	ts "github.com/rwgardner2/cups-rl/timestep"
)

// testEnvironment returns a small kitchen environment and its first
// timestep
func testEnvironment(seed uint64) (environment.Environment, ts.TimeStep) {
	config := envconfig.NewConfig(envconfig.Kitchen, envconfig.PickUp, 4, 4,
		25, 0.99)
	return config.Create(seed)
}

// testConfig returns a valid configuration with networks small enough
// for tests
func testConfig(t *testing.T) Config {
	policySolver, err := solver.NewDefaultAdam(0.01, 8)
	if err != nil {
		t.Fatalf("could not create policy solver: %v", err)
	}
	criticSolver, err := solver.NewDefaultAdam(0.01, 8)
	if err != nil {
		t.Fatalf("could not create critic solver: %v", err)
	}
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		t.Fatalf("could not create weight initializer: %v", err)
	}

	return Config{
		PolicyHidden:      []int{10},
		PolicyBiases:      []bool{true},
		PolicyActivations: []*network.Activation{network.ReLU()},

		CriticHidden:      []int{10},
		CriticBiases:      []bool{true},
		CriticActivations: []*network.Activation{network.ReLU()},

		PolicySolver: policySolver,
		CriticSolver: criticSolver,
		InitWFn:      init,

		Lambda: 0.95,
		Gamma:  0.99,

		BatchSize:   8,
		EntropyCoef: 0.01,
	}
}

// runTraining drives n environmental steps of the agent-environment
// loop, resetting the environment whenever an episode ends, and
// returns the timestep the loop stopped at
func runTraining(t *testing.T, a *A3C, e environment.Environment,
	step ts.TimeStep, n int) ts.TimeStep {
	for i := 0; i < n; i++ {
		action := a.SelectAction(step)
		next, last := e.Step(action)
		if err := a.Observe(action, next); err != nil {
			t.Fatalf("could not observe transition %v: %v", i, err)
		}
		if err := a.Step(); err != nil {
			t.Fatalf("could not step agent at transition %v: %v", i, err)
		}

		step = next
		if last {
			a.EndEpisode()
			step = e.Reset()
			if err := a.ObserveFirst(step); err != nil {
				t.Fatalf("could not observe first timestep: %v", err)
			}
		}
	}
	return step
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mismatched policy biases",
			func(c *Config) { c.PolicyBiases = []bool{} }},
		{"mismatched policy activations",
			func(c *Config) { c.PolicyActivations = nil }},
		{"mismatched critic biases",
			func(c *Config) { c.CriticBiases = []bool{} }},
		{"mismatched critic activations",
			func(c *Config) { c.CriticActivations = nil }},
		{"no policy solver", func(c *Config) { c.PolicySolver = nil }},
		{"no critic solver", func(c *Config) { c.CriticSolver = nil }},
		{"no weight initializer", func(c *Config) { c.InitWFn = nil }},
		{"lambda above one", func(c *Config) { c.Lambda = 1.1 }},
		{"negative lambda", func(c *Config) { c.Lambda = -0.1 }},
		{"discount above one", func(c *Config) { c.Gamma = 1.1 }},
		{"nonpositive batch size", func(c *Config) { c.BatchSize = 0 }},
		{"negative entropy weight",
			func(c *Config) { c.EntropyCoef = -0.01 }},
	}

	for _, test := range cases {
		config := testConfig(t)
		test.mutate(&config)
		if err := config.Validate(); err == nil {
			t.Errorf("%v: expected a validation error", test.name)
		}
	}

	config := testConfig(t)
	if err := config.Validate(); err != nil {
		t.Errorf("valid configuration rejected: %v", err)
	}
}

func TestSelectActionEvalDeterminism(t *testing.T) {
	e, firstStep := testEnvironment(14)
	a, err := New(e, testConfig(t), 42)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}

	a.Eval()
	if !a.IsEval() {
		t.Error("agent did not enter evaluation mode")
	}

	first := a.SelectAction(firstStep).AtVec(0)
	for i := 0; i < 10; i++ {
		if act := a.SelectAction(firstStep).AtVec(0); act != first {
			t.Fatalf("evaluation action changed \n\twant(%v)\n\thave(%v)",
				first, act)
		}
	}
}

func TestSelectActionTrainSamples(t *testing.T) {
	e, firstStep := testEnvironment(14)
	a, err := New(e, testConfig(t), 42)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}

	numActions := int(e.ActionSpec().UpperBound.AtVec(0)) + 1
	for i := 0; i < 200; i++ {
		action := a.SelectAction(firstStep).AtVec(0)
		if action != math.Floor(action) {
			t.Fatalf("sampled action is not an index: %v", action)
		}
		if action < 0 || action >= float64(numActions) {
			t.Fatalf("action outside the action space: %v", action)
		}
	}
}

func TestObserveValidatesActions(t *testing.T) {
	e, firstStep := testEnvironment(14)
	a, err := New(e, testConfig(t), 42)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}

	action := mat.NewVecDense(1, []float64{0})
	nextStep, _ := e.Step(action)

	// No first timestep has been observed yet
	if err := a.Observe(action, nextStep); err == nil {
		t.Error("expected an error observing before the first timestep")
	}

	if err := a.ObserveFirst(nextStep); err == nil {
		t.Error("expected an error observing a non-first timestep first")
	}
	if err := a.ObserveFirst(firstStep); err != nil {
		t.Fatalf("could not observe the first timestep: %v", err)
	}

	tooLarge := mat.NewVecDense(1, []float64{10})
	if err := a.Observe(tooLarge, nextStep); !IsInvalidAction(err) {
		t.Errorf("expected an invalid action error \n\thave(%v)", err)
	}

	negative := mat.NewVecDense(1, []float64{-1})
	if err := a.Observe(negative, nextStep); !IsInvalidAction(err) {
		t.Errorf("expected an invalid action error \n\thave(%v)", err)
	}

	multiDim := mat.NewVecDense(2, nil)
	if err := a.Observe(multiDim, nextStep); err == nil {
		t.Error("expected an error for a multi-dimensional action")
	}

	if err := a.Observe(action, nextStep); err != nil {
		t.Errorf("valid action rejected: %v", err)
	}
}

func TestStepUpdatesOncePerRollout(t *testing.T) {
	e, firstStep := testEnvironment(14)
	config := testConfig(t)

	a, err := New(e, config, 42)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}
	if err := a.ObserveFirst(firstStep); err != nil {
		t.Fatalf("could not observe the first timestep: %v", err)
	}

	step := runTraining(t, a, e, firstStep, config.BatchSize-1)
	if a.updates != 0 {
		t.Fatalf("update fired before the rollout filled "+
			"\n\twant(0)\n\thave(%v)", a.updates)
	}
	if !math.IsNaN(a.Loss()) {
		t.Error("no gradient step should have been taken")
	}

	// One more transition fills the rollout
	runTraining(t, a, e, step, 1)
	if a.updates != 1 {
		t.Fatalf("full rollout did not trigger an update "+
			"\n\twant(1)\n\thave(%v)", a.updates)
	}
	if loss := a.Loss(); math.IsNaN(loss) || math.IsInf(loss, 0) {
		t.Errorf("expected a finite policy loss \n\thave(%v)", loss)
	}
	if loss := a.CriticLoss(); math.IsNaN(loss) || math.IsInf(loss, 0) {
		t.Errorf("expected a finite critic loss \n\thave(%v)", loss)
	}
}

func TestA3CLearningSteps(t *testing.T) {
	e, firstStep := testEnvironment(14)
	config := testConfig(t)

	a, err := New(e, config, 42)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}
	if err := a.ObserveFirst(firstStep); err != nil {
		t.Fatalf("could not observe the first timestep: %v", err)
	}

	step := runTraining(t, a, e, firstStep, 60)

	if a.TotalSteps() != 60 {
		t.Errorf("incorrect number of recorded steps "+
			"\n\twant(%v)\n\thave(%v)", 60, a.TotalSteps())
	}
	if want := 60 / config.BatchSize; a.updates != want {
		t.Errorf("incorrect number of updates \n\twant(%v)\n\thave(%v)",
			want, a.updates)
	}

	if loss := a.Loss(); math.IsNaN(loss) || math.IsInf(loss, 0) {
		t.Errorf("expected a finite policy loss \n\thave(%v)", loss)
	}
	if loss := a.CriticLoss(); math.IsNaN(loss) || math.IsInf(loss, 0) {
		t.Errorf("expected a finite critic loss \n\thave(%v)", loss)
	}

	value := a.EvaluateValue(step.Observation)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		t.Errorf("expected a finite value estimate \n\thave(%v)", value)
	}
}

func TestEvalModeDoesNotLearn(t *testing.T) {
	e, firstStep := testEnvironment(14)
	a, err := New(e, testConfig(t), 42)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}
	if err := a.ObserveFirst(firstStep); err != nil {
		t.Fatalf("could not observe the first timestep: %v", err)
	}

	a.Eval()

	// Long enough for the environment's step limit to end an episode
	step := firstStep
	for i := 0; i < 30; i++ {
		action := a.SelectAction(step)
		next, last := e.Step(action)
		if err := a.Observe(action, next); err != nil {
			t.Fatalf("could not observe transition %v: %v", i, err)
		}
		if err := a.Step(); err != nil {
			t.Fatalf("could not step agent at transition %v: %v", i, err)
		}

		step = next
		if last {
			a.EndEpisode()
			step = e.Reset()
			if err := a.ObserveFirst(step); err != nil {
				t.Fatalf("could not observe first timestep: %v", err)
			}
		}
	}

	if a.TotalSteps() != 0 {
		t.Errorf("evaluation steps were recorded as training steps "+
			"\n\twant(0)\n\thave(%v)", a.TotalSteps())
	}
	if a.Episodes() != 0 {
		t.Errorf("evaluation episodes were recorded \n\twant(0)\n\thave(%v)",
			a.Episodes())
	}
	if a.updates != 0 {
		t.Errorf("evaluation triggered updates \n\twant(0)\n\thave(%v)",
			a.updates)
	}
	if a.buffer.currentPos != 0 {
		t.Error("evaluation transitions were stored in the rollout buffer")
	}
	if !math.IsNaN(a.Loss()) {
		t.Error("no gradient step should have been taken")
	}
}

func TestGobRoundTrip(t *testing.T) {
	e, firstStep := testEnvironment(14)
	config := testConfig(t)

	a, err := New(e, config, 42)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}
	if err := a.ObserveFirst(firstStep); err != nil {
		t.Fatalf("could not observe the first timestep: %v", err)
	}
	runTraining(t, a, e, firstStep, 30)

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(a); err != nil {
		t.Fatalf("could not encode agent: %v", err)
	}

	// The restored agent is constructed with a different seed, so any
	// agreement below comes from the encoded weights
	restored, err := New(e, config, 43)
	if err != nil {
		t.Fatalf("could not create restored agent: %v", err)
	}
	if err := gob.NewDecoder(&buf).Decode(restored); err != nil {
		t.Fatalf("could not decode agent: %v", err)
	}

	if restored.TotalSteps() != a.TotalSteps() {
		t.Errorf("restored step counter differs \n\twant(%v)\n\thave(%v)",
			a.TotalSteps(), restored.TotalSteps())
	}
	if restored.Episodes() != a.Episodes() {
		t.Errorf("restored episode counter differs "+
			"\n\twant(%v)\n\thave(%v)", a.Episodes(), restored.Episodes())
	}
	if restored.batchStep != 0 {
		t.Error("restored agent should start a fresh rollout")
	}

	a.Eval()
	restored.Eval()

	want := a.EvaluateValue(firstStep.Observation)
	have := restored.EvaluateValue(firstStep.Observation)
	if math.Abs(want-have) > 1e-12 {
		t.Errorf("restored value estimate differs \n\twant(%v)\n\thave(%v)",
			want, have)
	}

	wantAction := a.SelectAction(firstStep).AtVec(0)
	haveAction := restored.SelectAction(firstStep).AtVec(0)
	if wantAction != haveAction {
		t.Errorf("restored agent selects a different action "+
			"\n\twant(%v)\n\thave(%v)", wantAction, haveAction)
	}
}
