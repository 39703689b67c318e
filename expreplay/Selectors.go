package expreplay

import (
	"math/rand"

	"github.com/rwgardner2/cups-rl/utils/intutils"
)

// SelectorType names a method of choosing indices from a replay buffer
type SelectorType string

const (
	Uniform SelectorType = "uniform"
	Fifo    SelectorType = "fifo"
)

// Selector chooses the buffer indices at which a replay buffer samples
// or removes data. A single Selector instance serves one of the two
// roles only, since removers may track state that samplers must not
// disturb.
type Selector interface {
	// choose returns the indices at which the cache should next be
	// read
	choose(c *cache) []int

	// BatchSize returns the number of elements that will be selected
	BatchSize() int

	// registerAsRemover notifies the Selector that it chooses indices
	// to free rather than indices to sample, for Selectors whose
	// behaviour differs between the two roles
	registerAsRemover()
}

// CreateSelector is a factory method for creating Selectors of a given
// type
func CreateSelector(t SelectorType, size int, seed int64) Selector {
	switch t {
	case Fifo:
		return NewFifoSelector(size)
	default:
		return NewUniformSelector(size, seed)
	}
}

// uniformSelector chooses indices uniformly at random from the
// occupied part of the buffer, with replacement
type uniformSelector struct {
	samples int
	rng     *rand.Rand
}

// NewUniformSelector returns a new Selector which selects data
// uniformly randomly from an experience replay buffer
func NewUniformSelector(samples int, seed int64) Selector {
	return &uniformSelector{
		samples: samples,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// registerAsRemover implements the Selector interface. Uniform removal
// needs no extra bookkeeping.
func (u *uniformSelector) registerAsRemover() {}

// BatchSize returns the number of samples in a batch drawn from the
// buffer
func (u *uniformSelector) BatchSize() int {
	return u.samples
}

// choose returns the indices at which the cache should next be read
func (u *uniformSelector) choose(c *cache) []int {
	selected := make([]int, u.BatchSize())
	inUse := c.sampleFrom()

	for i := 0; i < u.BatchSize(); i++ {
		index := u.rng.Int() % c.Capacity()
		selected[i] = inUse[index]
	}

	return selected
}

// fifoSelector chooses the longest-stored indices first
type fifoSelector struct {
	samples int
	remover bool
}

// NewFifoSelector returns a new Selector which draws the data that has
// been in an experience replay buffer the longest
func NewFifoSelector(samples int) Selector {
	return &fifoSelector{samples: samples, remover: false}
}

// registerAsRemover implements the Selector interface
func (f *fifoSelector) registerAsRemover() {
	f.remover = true
}

// BatchSize returns the number of samples in a batch drawn from the
// buffer
func (f *fifoSelector) BatchSize() int {
	return f.samples
}

// choose returns the indices at which the cache should next be read.
// When the Selector is the cache's remover, each chosen index is also
// popped from the front of the cache's insertion order, since the
// oldest data is freed first.
func (f *fifoSelector) choose(c *cache) []int {
	selected := make([]int, intutils.Min(f.BatchSize(), c.Capacity()))
	insertOrder := c.insertOrder(f.BatchSize())

	for i := 0; i < f.BatchSize() && i < c.Capacity(); i++ {
		selected[i] = insertOrder[i]

		if f.remover {
			c.removeFront()
		}
	}

	return selected
}
