package expreplay

import (
	"math"
	"testing"
)

// fillPrioritized adds steps transitions of a synthetic trajectory to
// p. Step k carries reward k+1 and discount 0.5, except steps listed
// in ends, which end their episode with discount 0.
func fillPrioritized(t *testing.T, p *Prioritized, features, steps int,
	ends ...int) {
	t.Helper()

	endSet := make(map[int]bool)
	for _, e := range ends {
		endSet[e] = true
	}

	for k := 0; k < steps; k++ {
		reward := float64(k + 1)
		discount := 0.5
		if endSet[k] {
			discount = 0.0
		}
		trans := testTransition(k, features, reward, discount, endSet[k])
		if err := p.Add(trans); err != nil {
			t.Fatalf("could not add transition %v: %v", k, err)
		}
	}
}

func TestNewPrioritizedInvalidArguments(t *testing.T) {
	tests := []struct {
		name               string
		n, min, max, batch int
		alpha, betaStart   float64
	}{
		{"zero n-step horizon", 0, 4, 8, 2, 0.5, 0.4},
		{"min capacity not above n", 3, 3, 8, 2, 0.5, 0.4},
		{"min capacity above max", 2, 9, 8, 2, 0.5, 0.4},
		{"batch larger than capacity", 2, 3, 8, 9, 0.5, 0.4},
		{"negative alpha", 2, 3, 8, 2, -0.5, 0.4},
		{"beta start out of range", 2, 3, 8, 2, 0.5, 1.5},
	}

	for _, test := range tests {
		_, err := NewPrioritized(2, test.n, test.min, test.max,
			test.batch, test.alpha, test.betaStart, 100, 14)
		if err == nil {
			t.Errorf("%v: expected construction error", test.name)
		}
	}
}

func TestPrioritizedNStepAssembly(t *testing.T) {
	const features = 2

	p, err := NewPrioritized(features, 3, 4, 8, 1, 0.5, 0.4, 100, 14)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}
	fillPrioritized(t, p, features, 5)

	tests := []struct {
		start       int
		ok          bool
		ret         float64
		nonterminal float64
		last        int
	}{
		// 1 + 0.5*2 + 0.25*3
		{0, true, 2.75, 1, 2},
		// 2 + 0.5*3 + 0.25*4
		{1, true, 4.5, 1, 3},
		// 3 + 0.5*4 + 0.25*5
		{2, true, 6.25, 1, 4},
		// Windows from cells 3 and 4 would need steps that have not
		// been written yet
		{3, false, 0, 0, 0},
		{4, false, 0, 0, 0},
		// Unwritten cell
		{5, false, 0, 0, 0},
	}

	for _, test := range tests {
		target, ok := p.nStepAt(test.start)
		if ok != test.ok {
			t.Errorf("start %v: unexpected validity \n\twant(%v)"+
				"\n\thave(%v)", test.start, test.ok, ok)
			continue
		}
		if !ok {
			continue
		}
		if target.ret != test.ret {
			t.Errorf("start %v: unexpected return \n\twant(%v)"+
				"\n\thave(%v)", test.start, test.ret, target.ret)
		}
		if target.nonterminal != test.nonterminal {
			t.Errorf("start %v: unexpected nonterminal \n\twant(%v)"+
				"\n\thave(%v)", test.start, test.nonterminal,
				target.nonterminal)
		}
		if target.last != test.last {
			t.Errorf("start %v: unexpected bootstrap cell \n\twant(%v)"+
				"\n\thave(%v)", test.start, test.last, target.last)
		}
	}
}

func TestPrioritizedNStepEpisodeEnd(t *testing.T) {
	const features = 2

	p, err := NewPrioritized(features, 3, 4, 8, 1, 0.5, 0.4, 100, 14)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}
	// Step 1 ends its episode
	fillPrioritized(t, p, features, 5, 1)

	// The window from cell 0 is cut at the episode end: 1 + 0.5*2,
	// with nothing to bootstrap
	target, ok := p.nStepAt(0)
	if !ok {
		t.Fatal("window reaching an episode end should be valid")
	}
	if target.ret != 2.0 || target.nonterminal != 0 || target.last != 1 {
		t.Errorf("unexpected truncated window \n\twant(%v, %v, %v)"+
			"\n\thave(%v, %v, %v)", 2.0, 0.0, 1, target.ret,
			target.nonterminal, target.last)
	}

	// A window starting at the terminal step itself holds only that
	// step
	target, ok = p.nStepAt(1)
	if !ok {
		t.Fatal("window starting at an episode end should be valid")
	}
	if target.ret != 2.0 || target.nonterminal != 0 || target.last != 1 {
		t.Errorf("unexpected terminal-start window \n\twant(%v, %v, %v)"+
			"\n\thave(%v, %v, %v)", 2.0, 0.0, 1, target.ret,
			target.nonterminal, target.last)
	}

	// Past the end, windows accumulate the next episode's steps
	target, ok = p.nStepAt(2)
	if !ok {
		t.Fatal("window after an episode end should be valid")
	}
	if target.ret != 6.25 || target.nonterminal != 1 || target.last != 4 {
		t.Errorf("unexpected post-end window \n\twant(%v, %v, %v)"+
			"\n\thave(%v, %v, %v)", 6.25, 1.0, 4, target.ret,
			target.nonterminal, target.last)
	}
}

func TestPrioritizedNStepWrapsAroundRing(t *testing.T) {
	const features = 2

	p, err := NewPrioritized(features, 3, 4, 4, 1, 0.5, 0.4, 100, 14)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}
	// 6 adds into capacity 4: cells 0 and 1 now hold steps 4 and 5,
	// and the write head sits at cell 2 on the oldest data
	fillPrioritized(t, p, features, 6)

	if cap := p.Capacity(); cap != 4 {
		t.Fatalf("unexpected capacity \n\twant(%v)\n\thave(%v)", 4, cap)
	}

	// The oldest cell starts a window crossing the physical end of
	// the ring: steps 2, 3, 4 give 3 + 0.5*4 + 0.25*5
	target, ok := p.nStepAt(2)
	if !ok {
		t.Fatal("window from the oldest cell should be valid")
	}
	if target.ret != 6.25 || target.last != 0 {
		t.Errorf("unexpected wrapped window \n\twant(%v, %v)"+
			"\n\thave(%v, %v)", 6.25, 0, target.ret, target.last)
	}

	// Windows from the newest cells would jump back onto the oldest
	// data
	if _, ok := p.nStepAt(0); ok {
		t.Error("window crossing the write head should be invalid")
	}
	if _, ok := p.nStepAt(1); ok {
		t.Error("window crossing the write head should be invalid")
	}
}

func TestPrioritizedSample(t *testing.T) {
	const features = 2

	p, err := NewPrioritized(features, 2, 3, 8, 4, 0.6, 0.4, 10, 42)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}

	_, err = p.Sample()
	if !IsEmptyBuffer(err) {
		t.Errorf("sampling an empty buffer should report emptiness, "+
			"got %v", err)
	}

	fillPrioritized(t, p, features, 2)
	_, err = p.Sample()
	if !IsInsufficientSamples(err) {
		t.Errorf("sampling below minimum capacity should report "+
			"insufficient samples, got %v", err)
	}

	fillPrioritized(t, p, features, 5)
	batch, err := p.Sample()
	if err != nil {
		t.Fatalf("could not sample: %v", err)
	}

	if len(batch.Indices) != 4 || len(batch.Weights) != 4 {
		t.Fatalf("unexpected batch size \n\twant(%v)\n\thave(%v, %v)",
			4, len(batch.Indices), len(batch.Weights))
	}

	maxWeight := 0.0
	for j, index := range batch.Indices {
		if _, ok := p.nStepAt(index); !ok {
			t.Errorf("row %v: sampled index %v has no valid window", j,
				index)
		}

		// Sampled states must match the cell they claim to come from
		cellStart := index * features
		rowStart := j * features
		for i := 0; i < features; i++ {
			if batch.States[rowStart+i] != p.stateCache[cellStart+i] {
				t.Errorf("row %v: state does not match cell %v", j, index)
				break
			}
		}

		if w := batch.Weights[j]; w <= 0 || w > 1 {
			t.Errorf("row %v: weight outside (0, 1]: %v", j, w)
		}
		if batch.Weights[j] > maxWeight {
			maxWeight = batch.Weights[j]
		}
	}
	if maxWeight != 1.0 {
		t.Errorf("weights not normalized by batch max \n\twant(%v)"+
			"\n\thave(%v)", 1.0, maxWeight)
	}
}

func TestPrioritizedBetaAnneal(t *testing.T) {
	const features = 2

	p, err := NewPrioritized(features, 2, 3, 8, 2, 0.6, 0.4, 4, 42)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}
	fillPrioritized(t, p, features, 6)

	if beta := p.beta(); beta != 0.4 {
		t.Errorf("unexpected initial beta \n\twant(%v)\n\thave(%v)", 0.4,
			beta)
	}

	for i := 0; i < 2; i++ {
		if _, err := p.Sample(); err != nil {
			t.Fatalf("could not sample: %v", err)
		}
	}
	if beta := p.beta(); math.Abs(beta-0.7) > 1e-15 {
		t.Errorf("unexpected mid-anneal beta \n\twant(%v)\n\thave(%v)",
			0.7, beta)
	}

	for i := 0; i < 4; i++ {
		if _, err := p.Sample(); err != nil {
			t.Fatalf("could not sample: %v", err)
		}
	}
	if beta := p.beta(); beta != 1.0 {
		t.Errorf("beta should cap at 1 \n\twant(%v)\n\thave(%v)", 1.0,
			beta)
	}
}

func TestPrioritizedUpdatePriorities(t *testing.T) {
	const features = 2

	p, err := NewPrioritized(features, 2, 3, 8, 2, 0.6, 0.4, 100, 42)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}
	fillPrioritized(t, p, features, 4)

	if err := p.UpdatePriorities([]int{0, 2},
		[]float64{0.5, 2.0}); err != nil {
		t.Fatalf("could not update priorities: %v", err)
	}
	want := math.Pow(0.5+priorityEpsilon, 0.6)
	if have := p.tree.Get(0); math.Abs(have-want) > 1e-15 {
		t.Errorf("unexpected stored priority \n\twant(%v)\n\thave(%v)",
			want, have)
	}

	err = p.UpdatePriorities([]int{1}, []float64{math.NaN()})
	if !IsNumericInstability(err) {
		t.Errorf("NaN magnitude should report numeric instability, "+
			"got %v", err)
	}
	err = p.UpdatePriorities([]int{1}, []float64{math.Inf(1)})
	if !IsNumericInstability(err) {
		t.Errorf("Inf magnitude should report numeric instability, "+
			"got %v", err)
	}

	// Cell 6 has never been written
	err = p.UpdatePriorities([]int{6}, []float64{1.0})
	if !IsUnknownIndex(err) {
		t.Errorf("unwritten index should be unknown, got %v", err)
	}
	err = p.UpdatePriorities([]int{-1}, []float64{1.0})
	if !IsUnknownIndex(err) {
		t.Errorf("negative index should be unknown, got %v", err)
	}

	if err := p.UpdatePriorities([]int{0, 1},
		[]float64{1.0}); err == nil {
		t.Error("length mismatch should be an error")
	}

	// A rejected update leaves all priorities untouched
	before := p.tree.Get(1)
	p.UpdatePriorities([]int{1, 6}, []float64{3.0, 1.0})
	if have := p.tree.Get(1); have != before {
		t.Errorf("failed update modified priorities \n\twant(%v)"+
			"\n\thave(%v)", before, have)
	}
}

func TestPrioritizedSamplingFollowsPriority(t *testing.T) {
	const features = 2

	p, err := NewPrioritized(features, 1, 2, 16, 8, 1.0, 0.4, 100, 42)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}
	fillPrioritized(t, p, features, 16)

	// Crush every priority except cell 8's
	indices := make([]int, 16)
	magnitudes := make([]float64, 16)
	for i := range indices {
		indices[i] = i
		magnitudes[i] = 0.0
	}
	magnitudes[8] = 1000.0
	if err := p.UpdatePriorities(indices, magnitudes); err != nil {
		t.Fatalf("could not update priorities: %v", err)
	}

	batch, err := p.Sample()
	if err != nil {
		t.Fatalf("could not sample: %v", err)
	}
	for j, index := range batch.Indices {
		if index != 8 {
			t.Errorf("row %v: sampled %v against overwhelming priority "+
				"on cell 8", j, index)
		}
	}
}
