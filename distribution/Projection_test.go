package distribution

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// randomSimplexes fills a [batch, atoms] buffer with random rows that
// each sum to 1
func randomSimplexes(rng *rand.Rand, batch, atoms int) []float64 {
	probs := make([]float64, batch*atoms)
	for i := range probs {
		probs[i] = rng.Float64()
	}
	for j := 0; j < batch; j++ {
		row := probs[j*atoms : (j+1)*atoms]
		floats.Scale(1/floats.Sum(row), row)
	}
	return probs
}

func TestProjectWorkedExample(t *testing.T) {
	s, err := NewSupport(5, -2.0, 2.0)
	if err != nil {
		t.Fatalf("could not construct support: %v", err)
	}

	// All target mass on the outermost atoms. The backup moves atom
	// -2 to -0.98 (mass splits between atoms -1 and 0) and atom 2 to
	// 2.97, which clamps onto the top atom.
	probs := []float64{0.5, 0.0, 0.0, 0.0, 0.5}
	mass, err := s.Project(probs, []float64{1.0}, []float64{1.0}, 0.99)
	if err != nil {
		t.Fatalf("could not project: %v", err)
	}

	want := []float64{0.0, 0.49, 0.01, 0.0, 0.5}
	for i := range want {
		if math.Abs(mass[i]-want[i]) > 1e-9 {
			t.Errorf("incorrect projected mass at atom %v "+
				"\n\twant(%v)\n\thave(%v)", i, want[i], mass[i])
		}
	}
	if sum := floats.Sum(mass); math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("projected mass not conserved \n\twant(%v)\n\thave(%v)",
			1.0, sum)
	}
}

func TestProjectMassConservation(t *testing.T) {
	const batch, atoms = 32, 51
	s, err := NewSupport(atoms, -10.0, 10.0)
	if err != nil {
		t.Fatalf("could not construct support: %v", err)
	}

	rng := rand.New(rand.NewSource(13))
	probs := randomSimplexes(rng, batch, atoms)

	returns := make([]float64, batch)
	nonterminal := make([]float64, batch)
	for j := range returns {
		// Returns well outside the support bounds as well as inside
		returns[j] = rng.Float64()*30.0 - 15.0
		if rng.Float64() < 0.25 {
			nonterminal[j] = 0.0
		} else {
			nonterminal[j] = 1.0
		}
	}

	discount := math.Pow(0.99, 3)
	mass, err := s.Project(probs, returns, nonterminal, discount)
	if err != nil {
		t.Fatalf("could not project: %v", err)
	}

	for j := 0; j < batch; j++ {
		row := mass[j*atoms : (j+1)*atoms]
		if sum := floats.Sum(row); math.Abs(sum-1.0) > 1e-5 {
			t.Errorf("mass not conserved for row %v \n\twant(%v)"+
				"\n\thave(%v)", j, 1.0, sum)
		}
		for i, m := range row {
			if m < -1e-12 {
				t.Errorf("negative mass at row %v atom %v: %v", j, i, m)
			}
		}
	}
}

func TestProjectSupportContainment(t *testing.T) {
	const atoms = 11
	s, err := NewSupport(atoms, -5.0, 5.0)
	if err != nil {
		t.Fatalf("could not construct support: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	probs := randomSimplexes(rng, 1, atoms)

	// Backed-up values far beyond the top of the support must clamp
	// onto the last atom
	mass, err := s.Project(probs, []float64{1e9}, []float64{1.0}, 0.99)
	if err != nil {
		t.Fatalf("could not project: %v", err)
	}
	for i := 0; i < atoms-1; i++ {
		if mass[i] != 0.0 {
			t.Errorf("mass leaked to atom %v: %v", i, mass[i])
		}
	}
	if math.Abs(mass[atoms-1]-1.0) > 1e-5 {
		t.Errorf("incorrect mass at top atom \n\twant(%v)\n\thave(%v)",
			1.0, mass[atoms-1])
	}

	// And far below the bottom of the support onto the first atom
	mass, err = s.Project(probs, []float64{-1e9}, []float64{1.0}, 0.99)
	if err != nil {
		t.Fatalf("could not project: %v", err)
	}
	if math.Abs(mass[0]-1.0) > 1e-5 {
		t.Errorf("incorrect mass at bottom atom \n\twant(%v)\n\thave(%v)",
			1.0, mass[0])
	}
	for i := 1; i < atoms; i++ {
		if mass[i] != 0.0 {
			t.Errorf("mass leaked to atom %v: %v", i, mass[i])
		}
	}
}

func TestProjectDegenerateAtoms(t *testing.T) {
	// A zero return and a discount of 1 back every atom up onto
	// itself, so every projected index is integral. The projection
	// must return the source distribution unchanged rather than
	// dropping mass where the bracketing atoms coincide.
	const atoms = 5
	s, err := NewSupport(atoms, -2.0, 2.0)
	if err != nil {
		t.Fatalf("could not construct support: %v", err)
	}

	probs := []float64{0.2, 0.2, 0.2, 0.2, 0.2}
	mass, err := s.Project(probs, []float64{0.0}, []float64{1.0}, 1.0)
	if err != nil {
		t.Fatalf("could not project: %v", err)
	}

	for i := range probs {
		if math.Abs(mass[i]-probs[i]) > 1e-12 {
			t.Errorf("mass vanished at atom %v \n\twant(%v)\n\thave(%v)",
				i, probs[i], mass[i])
		}
	}
}

func TestProjectTerminalBackup(t *testing.T) {
	s, err := NewSupport(5, -2.0, 2.0)
	if err != nil {
		t.Fatalf("could not construct support: %v", err)
	}

	// Terminal rows ignore the source distribution and concentrate
	// all mass at the clamped return
	probs := []float64{0.2, 0.2, 0.2, 0.2, 0.2}
	mass, err := s.Project(probs, []float64{1.0}, []float64{0.0}, 0.99)
	if err != nil {
		t.Fatalf("could not project: %v", err)
	}
	want := []float64{0.0, 0.0, 0.0, 1.0, 0.0}
	for i := range want {
		if math.Abs(mass[i]-want[i]) > 1e-12 {
			t.Errorf("incorrect terminal mass at atom %v "+
				"\n\twant(%v)\n\thave(%v)", i, want[i], mass[i])
		}
	}

	// A terminal return beyond the support clamps onto the last atom
	mass, err = s.Project(probs, []float64{10.0}, []float64{0.0}, 0.99)
	if err != nil {
		t.Fatalf("could not project: %v", err)
	}
	if math.Abs(mass[4]-1.0) > 1e-12 {
		t.Errorf("incorrect clamped terminal mass \n\twant(%v)\n\thave(%v)",
			1.0, mass[4])
	}
}

func TestProjectNumericInstability(t *testing.T) {
	s, err := NewSupport(5, -2.0, 2.0)
	if err != nil {
		t.Fatalf("could not construct support: %v", err)
	}

	probs := []float64{0.5, 0.0, 0.0, 0.0, math.NaN()}
	_, err = s.Project(probs, []float64{1.0}, []float64{1.0}, 0.99)
	if err == nil {
		t.Error("no error for NaN probability mass")
	} else if !IsNumericInstability(err) {
		t.Errorf("NaN mass not flagged as numeric instability: %v", err)
	}

	probs = []float64{0.5, 0.0, 0.0, 0.0, 0.5}
	_, err = s.Project(probs, []float64{math.Inf(1)}, []float64{1.0}, 0.99)
	if err == nil {
		t.Error("no error for infinite return")
	} else if !IsNumericInstability(err) {
		t.Errorf("infinite return not flagged as numeric instability: %v",
			err)
	}
}

func TestSelectTargets(t *testing.T) {
	const actions, atoms = 2, 3
	s, err := NewSupport(atoms, 0.0, 2.0)
	if err != nil {
		t.Fatalf("could not construct support: %v", err)
	}

	// Row 0: the online network prefers action 0 while the target
	// network's own expectation prefers action 1. The selection must
	// take the target network's action 0 block.
	// Row 1: the online network prefers action 1.
	onlineProbs := []float64{
		0.0, 0.0, 1.0 /**/, 1.0, 0.0, 0.0,
		1.0, 0.0, 0.0 /**/, 0.0, 0.0, 1.0,
	}
	targetProbs := []float64{
		0.25, 0.25, 0.5 /**/, 0.0, 0.0, 1.0,
		0.1, 0.8, 0.1 /**/, 0.7, 0.2, 0.1,
	}

	selected, err := s.SelectTargets(onlineProbs, targetProbs, 2, actions)
	if err != nil {
		t.Fatalf("could not select targets: %v", err)
	}

	want := []float64{
		0.25, 0.25, 0.5,
		0.7, 0.2, 0.1,
	}
	for i := range want {
		if selected[i] != want[i] {
			t.Errorf("incorrect selected mass at %v \n\twant(%v)"+
				"\n\thave(%v)", i, want[i], selected[i])
		}
	}
}

func BenchmarkProject(b *testing.B) {
	const batch, atoms = 32, 51
	s, err := NewSupport(atoms, -10.0, 10.0)
	if err != nil {
		b.Fatalf("could not construct support: %v", err)
	}

	rng := rand.New(rand.NewSource(41))
	probs := randomSimplexes(rng, batch, atoms)
	returns := make([]float64, batch)
	nonterminal := make([]float64, batch)
	for j := range returns {
		returns[j] = rng.Float64()*20.0 - 10.0
		nonterminal[j] = 1.0
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := s.Project(probs, returns, nonterminal, 0.9606)
		if err != nil {
			b.Error(err)
		}
	}
}
