package expreplay

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rwgardner2/cups-rl/timestep"
)

// priorityEpsilon is added to error magnitudes before exponentiation
// so that no stored experience ever has zero probability of being
// sampled again.
const priorityEpsilon = 1e-6

// retriesPerSegment bounds the number of prefix-sum draws attempted
// per batch slot before falling back to a linear scan for a cell with
// a valid N-step window.
const retriesPerSegment = 16

// Prioritized is a proportional prioritized replay buffer over
// N-step transitions.
//
// Transitions are stored in a ring buffer in arrival order. Each
// sampled experience is an N-step learning target assembled at sample
// time: the return accumulates the stored rewards of up to n
// consecutive steps, scaled by the product of the stored step
// discounts, and the bootstrap state is the next state recorded at
// the window's final step. A window is cut short when a step within
// it ended its episode, in which case the sample's nonterminal mask
// is 0 and its bootstrap contributes nothing.
//
// Cells are sampled with probability proportional to their priority,
// held in a sum tree over (|magnitude| + ε)^α. Newly added experience
// receives the maximum priority seen so far, so every transition is
// sampled at least once with high probability. Sampled batches carry
// importance weights (capacity·P(i))^-β normalized by the batch
// maximum, with β annealed linearly to 1 over betaSteps calls to
// Sample().
type Prioritized struct {
	stateCache     []float64
	actionCache    []int
	rewardCache    []float64
	discountCache  []float64
	nextStateCache []float64
	endCache       []bool

	// currentInUsePos is the next cell to write. Walking forward from
	// any written cell visits progressively newer experience until
	// the walk reaches currentInUsePos.
	currentInUsePos int
	isFull          bool

	tree *sumTree
	rng  *rand.Rand

	n           int
	alpha       float64
	betaStart   float64
	betaSteps   int
	sampleCalls int

	minCapacity int
	maxCapacity int
	batchSize   int
	featureSize int
}

// nStepTarget packages the learning target assembled from one N-step
// window. The bootstrap state lives at cell last.
type nStepTarget struct {
	ret         float64
	nonterminal float64
	last        int
}

// NewPrioritized returns a prioritized replay buffer over n-step
// transitions of feature vectors with featureSize features.
//
// The minCapacity parameter must exceed n so that at least one full
// N-step window exists before sampling begins. The alpha parameter
// controls how strongly sampling concentrates on high-error
// experience (0 recovers uniform sampling), and betaStart is the
// initial importance sampling correction, annealed to 1 over
// betaSteps calls to Sample().
func NewPrioritized(featureSize, n, minCapacity, maxCapacity,
	batchSize int, alpha, betaStart float64, betaSteps int,
	seed int64) (*Prioritized, error) {
	if n < 1 {
		return nil, fmt.Errorf("newprioritized: n-step horizon must be "+
			"> 0, got %v", n)
	}
	if minCapacity <= n {
		return nil, fmt.Errorf("newprioritized: minCapacity (%v) must "+
			"exceed the n-step horizon (%v)", minCapacity, n)
	}
	if maxCapacity < minCapacity {
		return nil, fmt.Errorf("newprioritized: cannot have minCapacity"+
			" (%v) > maxCapacity (%v)", minCapacity, maxCapacity)
	}
	if batchSize < 1 || batchSize > maxCapacity {
		return nil, fmt.Errorf("newprioritized: illegal batch size %v "+
			"for max capacity %v", batchSize, maxCapacity)
	}
	if alpha < 0 {
		return nil, fmt.Errorf("newprioritized: alpha must be >= 0, "+
			"got %v", alpha)
	}
	if betaStart < 0 || betaStart > 1 {
		return nil, fmt.Errorf("newprioritized: betaStart must be in "+
			"[0, 1], got %v", betaStart)
	}

	source := rand.NewSource(seed)

	return &Prioritized{
		stateCache:     make([]float64, maxCapacity*featureSize),
		actionCache:    make([]int, maxCapacity),
		rewardCache:    make([]float64, maxCapacity),
		discountCache:  make([]float64, maxCapacity),
		nextStateCache: make([]float64, maxCapacity*featureSize),
		endCache:       make([]bool, maxCapacity),

		tree: newSumTree(maxCapacity),
		rng:  rand.New(source),

		n:         n,
		alpha:     alpha,
		betaStart: betaStart,
		betaSteps: betaSteps,

		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
		batchSize:   batchSize,
		featureSize: featureSize,
	}, nil
}

// BatchSize returns the number of samples returned by Sample()
func (p *Prioritized) BatchSize() int {
	return p.batchSize
}

// Capacity returns the current number of stored transitions
func (p *Prioritized) Capacity() int {
	if p.isFull {
		return p.maxCapacity
	}
	return p.currentInUsePos
}

// MaxCapacity returns the maximum number of storable transitions
func (p *Prioritized) MaxCapacity() int {
	return p.maxCapacity
}

// MinCapacity returns the minimum number of stored transitions
// required before sampling is allowed
func (p *Prioritized) MinCapacity() int {
	return p.minCapacity
}

// Add stores a transition, overwriting the oldest cell once the ring
// is full. The new cell receives the maximum priority assigned so far
// so that it is sampled before its learning error is known.
func (p *Prioritized) Add(t timestep.Transition) error {
	if t.State.Len() != p.featureSize || t.NextState.Len() != p.featureSize {
		return fmt.Errorf("add: wrong observation length \n\twant(%v)"+
			"\n\thave(%v)", p.featureSize, t.State.Len())
	}

	index := p.currentInUsePos
	stateInd := index * p.featureSize
	copy(p.stateCache[stateInd:stateInd+p.featureSize],
		t.State.RawVector().Data)
	copy(p.nextStateCache[stateInd:stateInd+p.featureSize],
		t.NextState.RawVector().Data)

	p.actionCache[index] = int(t.Action.AtVec(0))
	p.rewardCache[index] = t.Reward
	p.discountCache[index] = t.Discount
	p.endCache[index] = t.End

	p.tree.Set(index, p.tree.Max())

	p.currentInUsePos++
	if p.currentInUsePos >= p.maxCapacity {
		p.currentInUsePos = 0
		p.isFull = true
	}
	return nil
}

// beta returns the current importance sampling exponent
func (p *Prioritized) beta() float64 {
	if p.betaSteps <= 0 {
		return 1.0
	}
	progress := float64(p.sampleCalls) / float64(p.betaSteps)
	return math.Min(1.0, p.betaStart+(1.0-p.betaStart)*progress)
}

// nStepAt assembles the N-step target of the window starting at cell
// start. The second return value is false when no valid window starts
// there: the cell is unwritten, or the run of consecutive steps
// crosses the write head before accumulating n steps or reaching an
// episode end.
func (p *Prioritized) nStepAt(start int) (nStepTarget, bool) {
	if !p.isFull && start >= p.currentInUsePos {
		return nStepTarget{}, false
	}

	ret := 0.0
	scale := 1.0
	index := start
	for k := 0; k < p.n; k++ {
		if k > 0 {
			index = (start + k) % p.maxCapacity
			if index == p.currentInUsePos {
				// The run of steps jumped from the newest cell back
				// to the oldest, or into unwritten cells
				return nStepTarget{}, false
			}
		}

		ret += scale * p.rewardCache[index]
		scale *= p.discountCache[index]
		if p.endCache[index] {
			return nStepTarget{ret: ret, nonterminal: 0, last: index}, true
		}
	}

	return nStepTarget{ret: ret, nonterminal: 1, last: index}, true
}

// firstValidWindow scans cells chronologically from the oldest for a
// valid N-step window. Sampling is only attempted once the buffer
// holds more than n transitions, so a valid window always exists.
func (p *Prioritized) firstValidWindow() (int, nStepTarget) {
	oldest := 0
	if p.isFull {
		oldest = p.currentInUsePos
	}

	for k := 0; k < p.Capacity(); k++ {
		index := (oldest + k) % p.maxCapacity
		if target, ok := p.nStepAt(index); ok {
			return index, target
		}
	}
	panic("sample: no valid n-step window in a sampleable buffer")
}

// Sample draws a batch of N-step transitions with probability
// proportional to priority.
//
// The total priority mass is divided into batchSize equal segments
// with one sample drawn per segment, which keeps the batch spread
// over the priority range. Draws landing on cells without a valid
// N-step window, such as cells within n steps of the write head, are
// redrawn within their segment.
func (p *Prioritized) Sample() (Batch, error) {
	if p.Capacity() == 0 {
		return Batch{}, &ExpReplayError{Op: "sample", Err: errEmptyCache}
	}
	if p.Capacity() < p.minCapacity {
		return Batch{}, &ExpReplayError{
			Op:  "sample",
			Err: errInsufficientSamples,
		}
	}

	beta := p.beta()
	p.sampleCalls++

	batch := Batch{
		Indices:     make([]int, p.batchSize),
		States:      make([]float64, p.batchSize*p.featureSize),
		Actions:     make([]int, p.batchSize),
		Returns:     make([]float64, p.batchSize),
		NextStates:  make([]float64, p.batchSize*p.featureSize),
		Nonterminal: make([]float64, p.batchSize),
		Weights:     make([]float64, p.batchSize),
	}

	capacity := float64(p.Capacity())
	segment := p.tree.Total() / float64(p.batchSize)
	maxWeight := 0.0
	for j := 0; j < p.batchSize; j++ {
		index := -1
		var target nStepTarget

		for try := 0; try < retriesPerSegment; try++ {
			mass := (float64(j) + p.rng.Float64()) * segment
			candidate := p.tree.FindPrefixSum(mass)
			if t, ok := p.nStepAt(candidate); ok {
				index, target = candidate, t
				break
			}
		}
		if index < 0 {
			index, target = p.firstValidWindow()
		}

		batch.Indices[j] = index
		batch.Actions[j] = p.actionCache[index]
		batch.Returns[j] = target.ret
		batch.Nonterminal[j] = target.nonterminal

		batchStart := j * p.featureSize
		stateStart := index * p.featureSize
		copy(batch.States[batchStart:batchStart+p.featureSize],
			p.stateCache[stateStart:stateStart+p.featureSize])
		bootStart := target.last * p.featureSize
		copy(batch.NextStates[batchStart:batchStart+p.featureSize],
			p.nextStateCache[bootStart:bootStart+p.featureSize])

		prob := p.tree.probability(index)
		weight := math.Pow(capacity*prob, -beta)
		batch.Weights[j] = weight
		if weight > maxWeight {
			maxWeight = weight
		}
	}

	// Normalizing by the batch maximum keeps every weight in (0, 1]
	// so the correction only ever scales updates down
	for j := range batch.Weights {
		batch.Weights[j] /= maxWeight
	}

	return batch, nil
}

// UpdatePriorities reassigns the priorities of the cells at indices
// given the new absolute learning error magnitudes of their samples
func (p *Prioritized) UpdatePriorities(indices []int,
	magnitudes []float64) error {
	if len(indices) != len(magnitudes) {
		return fmt.Errorf("updatepriorities: illegal magnitudes length "+
			"\n\twant(%v)\n\thave(%v)", len(indices), len(magnitudes))
	}

	for i, index := range indices {
		if index < 0 || index >= p.maxCapacity ||
			(!p.isFull && index >= p.currentInUsePos) {
			return &ExpReplayError{
				Op:  "updatepriorities",
				Err: errUnknownIndex,
			}
		}
		if math.IsNaN(magnitudes[i]) || math.IsInf(magnitudes[i], 0) {
			return &ExpReplayError{
				Op:  "updatepriorities",
				Err: errNonFinitePriority,
			}
		}
	}

	for i, index := range indices {
		priority := math.Pow(math.Abs(magnitudes[i])+priorityEpsilon,
			p.alpha)
		p.tree.Set(index, priority)
	}
	return nil
}
