// Package expreplay provides the experience replay buffers that
// value-based agents learn from. Buffers store environment
// transitions and return batches of learning targets: states,
// integer action indices, N-step returns, bootstrap states, a
// non-terminal mask, and importance sampling weights.
//
// Buffers are not safe for concurrent use. The agents in this module
// add to and sample from their buffers on a single goroutine.
package expreplay

import (
	"container/list"
	"fmt"

	"github.com/rwgardner2/cups-rl/timestep"
	"github.com/rwgardner2/cups-rl/utils/intutils"
)

// Replayer implements an experience replay buffer
type Replayer interface {
	// Add stores a transition in the buffer
	Add(t timestep.Transition) error

	// Sample samples a batch of experience from the buffer
	Sample() (Batch, error)

	// UpdatePriorities reassigns the sampling priorities of previously
	// sampled experience given the new magnitudes of their learning
	// errors. Buffers that sample uniformly ignore the update.
	UpdatePriorities(indices []int, magnitudes []float64) error

	// Capacity returns how many samples the buffer currently holds
	Capacity() int

	// MaxCapacity returns the most samples the buffer can hold
	MaxCapacity() int

	// MinCapacity returns how many samples must be in the buffer
	// before sampling is allowed
	MinCapacity() int

	// BatchSize returns how many samples each Sample() call returns
	BatchSize() int
}

// Batch is one batch of sampled experience. States and NextStates are
// flattened row-major with one row per sample. For sample i,
// Returns[i] holds the discounted reward accumulated from States
// row i under Actions[i], NextStates row i holds the state the return
// bootstraps from, and Nonterminal[i] is 0 when the episode ended
// before bootstrapping and 1 otherwise. Weights holds the importance
// sampling weights and Indices the handles to pass back to
// UpdatePriorities.
type Batch struct {
	Indices     []int
	States      []float64
	Actions     []int
	Returns     []float64
	NextStates  []float64
	Nonterminal []float64
	Weights     []float64
}

// orderedSampler is a buffer exposing which indices are eligible for
// sampling and the order they were filled in, so that Selectors can
// choose among them
type orderedSampler interface {
	Replayer
	sampleFrom() []int

	// insertOrder returns the indices holding the n oldest samples
	insertOrder(n int) []int
}

// Config implements a specific configuration of a uniform replay
// buffer
type Config struct {
	RemoveMethod      SelectorType
	SampleMethod      SelectorType
	RemoveSize        int
	SampleSize        int
	MaxReplayCapacity int
	MinReplayCapacity int
}

// Create creates and returns the Replayer with the specified Config.
func (c Config) Create(features int, seed int64) (Replayer, error) {
	return Factory(c.RemoveMethod, c.SampleMethod, c.MinReplayCapacity,
		c.MaxReplayCapacity, features, c.RemoveSize, c.SampleSize, seed)
}

// cache implements a concrete uniform Replayer. Transitions are
// single-step: each stored sample holds one environment step, and
// sampled batches carry the single-step reward as the return with
// all importance weights equal to 1.
type cache struct {
	stateCache     []float64
	actionCache    []int
	rewardCache    []float64
	discountCache  []float64
	nextStateCache []float64
	endCache       []bool

	// Indices whose slots currently hold no data
	emptyIndices []int

	// Indices whose slots hold stored transitions
	inUseIndices []int

	// orderOfInsert outlines the chronological order of inserts. For
	// i > j, the data at index orderOfInsert[i] was inserted into the
	// buffer after the data at index orderOfInsert[j]
	orderOfInsert *list.List

	// Strategies choosing which indices to evict and which to sample
	remover Selector
	sampler Selector

	minCapacity int
	maxCapacity int
	featureSize int
}

// Factory is a factory method for creating a uniform Replayer
func Factory(removeMethod, sampleMethod SelectorType, minCapacity, maxCapacity,
	featureSize, removeSize, sampleSize int, seed int64) (Replayer, error) {
	remover := CreateSelector(removeMethod, removeSize, seed)
	sampler := CreateSelector(sampleMethod, sampleSize, seed)

	return New(remover, sampler, minCapacity, maxCapacity, featureSize)
}

// New creates and returns a new uniform Replayer. The remover and
// sampler parameters are Selectors which determine how data is removed
// and sampled from the replay buffer. The featureSize parameter
// defines the size of the state feature vectors.
//
// Multi-dimensional observations must be flattened before adding.
func New(remover, sampler Selector, minCapacity, maxCapacity,
	featureSize int) (Replayer, error) {
	if minCapacity <= 0 {
		return &cache{}, fmt.Errorf("new: minCapacity must be positive")
	}
	if maxCapacity < 1 {
		return &cache{}, fmt.Errorf("new: maxCapacity must be at least 1")
	}
	if maxCapacity < sampler.BatchSize() {
		return &cache{}, fmt.Errorf("new: batch size (%v) exceeds max "+
			"buffer capacity (%v)", sampler.BatchSize(), maxCapacity)
	}

	stateCache := make([]float64, maxCapacity*featureSize)
	nextStateCache := make([]float64, maxCapacity*featureSize)

	actionCache := make([]int, maxCapacity)
	rewardCache := make([]float64, maxCapacity)
	discountCache := make([]float64, maxCapacity)
	endCache := make([]bool, maxCapacity)

	orderOfInsert := list.New()

	remover.registerAsRemover()

	emptyIndices := make([]int, maxCapacity)
	inUseIndices := make([]int, 0, maxCapacity)
	for i := 0; i < maxCapacity; i++ {
		emptyIndices[i] = i
	}

	return &cache{
		stateCache:     stateCache,
		actionCache:    actionCache,
		rewardCache:    rewardCache,
		discountCache:  discountCache,
		nextStateCache: nextStateCache,
		endCache:       endCache,

		emptyIndices:  emptyIndices,
		inUseIndices:  inUseIndices,
		orderOfInsert: orderOfInsert,

		remover: remover,
		sampler: sampler,

		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
		featureSize: featureSize,
	}, nil
}

// sampleFrom returns the indices eligible for sampling
func (c *cache) sampleFrom() []int {
	return c.inUseIndices
}

// insertOrder returns the indices holding the oldest data, ordered
// oldest first. At most n indices are returned, fewer when the buffer
// holds fewer elements.
//
// A return value of []int{9, 15, 1} means the oldest data sits at
// index 9, the next oldest at index 15, and the next at index 1
func (c *cache) insertOrder(n int) []int {
	size := intutils.Min(n, c.Capacity())
	insertOrder := make([]int, size)
	element := c.orderOfInsert.Front()

	for i := 0; i < size; i++ {
		insertOrder[i] = element.Value.(int)
		element = element.Next()
		if element == nil {
			break
		}
	}
	return insertOrder
}

// String formats the cache contents for debugging
func (c *cache) String() string {
	format := "Free: %v \nIn Use: %v \nStates: %v \nActions: %v" +
		" \nRewards: %v \nDiscounts: %v \nNext States: %v"
	return fmt.Sprintf(format, c.emptyIndices, c.inUseIndices, c.stateCache,
		c.actionCache, c.rewardCache, c.discountCache, c.nextStateCache)
}

// BatchSize returns how many samples each Sample() call returns
func (c *cache) BatchSize() int {
	return c.sampler.BatchSize()
}

// remove evicts the elements at the indices chosen by the remover
func (c *cache) remove() error {
	if c.Capacity() <= c.minCapacity {
		return fmt.Errorf("remove: cache already at min capacity")
	}

	indices := c.remover.choose(c)
	for _, index := range indices {
		for i := range c.inUseIndices {
			if c.inUseIndices[i] == index {
				c.inUseIndices[i] = c.inUseIndices[len(c.inUseIndices)-1]
				c.inUseIndices = c.inUseIndices[:len(c.inUseIndices)-1]
				break
			}
		}

		c.emptyIndices = append(c.emptyIndices, index)
	}
	return nil
}

// removeFront drops the oldest entry from the insertion order list
func (c *cache) removeFront() {
	c.orderOfInsert.Remove(c.orderOfInsert.Front())
}

// Sample draws a batch of transitions from the buffer
func (c *cache) Sample() (Batch, error) {
	if c.Capacity() == 0 {
		err := &ExpReplayError{
			Op:  "sample",
			Err: errEmptyCache,
		}
		return Batch{}, err
	}
	if c.Capacity() < c.MinCapacity() {
		err := &ExpReplayError{
			Op:  "sample",
			Err: errInsufficientSamples,
		}
		return Batch{}, err
	}

	indices := c.sampler.choose(c)

	batch := Batch{
		Indices:     indices,
		States:      make([]float64, c.BatchSize()*c.featureSize),
		Actions:     make([]int, c.BatchSize()),
		Returns:     make([]float64, c.BatchSize()),
		NextStates:  make([]float64, c.BatchSize()*c.featureSize),
		Nonterminal: make([]float64, c.BatchSize()),
		Weights:     make([]float64, c.BatchSize()),
	}

	for i, index := range indices {
		batchStartInd := i * c.featureSize
		expStartInd := index * c.featureSize
		copy(batch.States[batchStartInd:batchStartInd+c.featureSize],
			c.stateCache[expStartInd:expStartInd+c.featureSize],
		)
		copy(batch.NextStates[batchStartInd:batchStartInd+c.featureSize],
			c.nextStateCache[expStartInd:expStartInd+c.featureSize],
		)

		batch.Actions[i] = c.actionCache[index]
		batch.Returns[i] = c.rewardCache[index]
		if !c.endCache[index] {
			batch.Nonterminal[i] = 1.0
		}
		batch.Weights[i] = 1.0
	}

	return batch, nil
}

// UpdatePriorities implements the Replayer interface. A uniform cache
// has no sampling priorities, so the update is ignored.
func (c *cache) UpdatePriorities([]int, []float64) error {
	return nil
}

// Capacity returns how many elements the cache currently holds
func (c *cache) Capacity() int {
	return len(c.inUseIndices)
}

// MaxCapacity returns the most elements the cache may hold
func (c *cache) MaxCapacity() int {
	return c.maxCapacity
}

// MinCapacity returns how many elements must be present before
// sampling is allowed
func (c *cache) MinCapacity() int {
	return c.minCapacity
}

// Add stores t, evicting an element chosen by the remover when the
// cache is full
func (c *cache) Add(t timestep.Transition) error {
	if c.Capacity() >= c.maxCapacity {
		err := c.remove()
		if err != nil {
			return fmt.Errorf("add: could not evict: %v", err)
		}
	}

	if t.State.Len() != c.featureSize || t.NextState.Len() != c.featureSize {
		return fmt.Errorf("add: wrong observation length \n\twant(%v)"+
			"\n\thave(%v)", c.featureSize, t.State.Len())
	}

	last := len(c.emptyIndices) - 1
	index := c.emptyIndices[last]
	c.emptyIndices = c.emptyIndices[:last]
	c.orderOfInsert.PushBack(index)
	c.inUseIndices = append(c.inUseIndices, index)

	// Copy states
	stateInd := index * c.featureSize
	copy(c.stateCache[stateInd:stateInd+c.featureSize], t.State.RawVector().Data)
	copy(c.nextStateCache[stateInd:stateInd+c.featureSize],
		t.NextState.RawVector().Data)

	c.actionCache[index] = int(t.Action.AtVec(0))
	c.rewardCache[index] = t.Reward
	c.discountCache[index] = t.Discount
	c.endCache[index] = t.End

	return nil
}
