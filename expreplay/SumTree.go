package expreplay

import "math"

// sumTree holds the sampling priorities of a prioritized replay
// buffer as a complete binary tree whose internal nodes store the sum
// of their children. Leaf i holds the priority of the buffer cell at
// index i. Prefix-sum lookups and priority updates are both
// O(log capacity).
type sumTree struct {
	nodes    []float64
	leaves   int // number of leaf nodes, a power of two
	capacity int // number of leaves actually backed by buffer cells

	// maxPriority tracks the largest priority ever stored so that
	// newly added experience can be given maximal priority. It is
	// never decayed when older priorities are overwritten.
	maxPriority float64
}

// newSumTree returns a sumTree with capacity usable leaves. The leaf
// layer is padded to the next power of two; padding leaves keep
// priority 0 and so are never selected by prefix-sum descent.
func newSumTree(capacity int) *sumTree {
	leaves := 1
	for leaves < capacity {
		leaves *= 2
	}

	return &sumTree{
		nodes:       make([]float64, 2*leaves),
		leaves:      leaves,
		capacity:    capacity,
		maxPriority: 1.0,
	}
}

// Set assigns priority p to leaf i and updates the sums along the
// path to the root
func (s *sumTree) Set(i int, p float64) {
	index := s.leaves + i
	s.nodes[index] = p

	for index > 1 {
		index /= 2
		s.nodes[index] = s.nodes[2*index] + s.nodes[2*index+1]
	}

	if p > s.maxPriority {
		s.maxPriority = p
	}
}

// Get returns the priority of leaf i
func (s *sumTree) Get(i int) float64 {
	return s.nodes[s.leaves+i]
}

// Total returns the sum of all priorities
func (s *sumTree) Total() float64 {
	return s.nodes[1]
}

// Max returns the largest priority ever assigned to the tree
func (s *sumTree) Max() float64 {
	return s.maxPriority
}

// FindPrefixSum returns the index of the leaf at which the running
// sum of leaf priorities first exceeds p. For p drawn uniformly from
// [0, Total()), each leaf is selected with probability proportional
// to its priority.
func (s *sumTree) FindPrefixSum(p float64) int {
	index := 1
	for index < s.leaves {
		left := 2 * index
		if s.nodes[left] > p {
			index = left
		} else {
			p -= s.nodes[left]
			index = left + 1
		}
	}

	leaf := index - s.leaves
	if leaf >= s.capacity {
		// Floating point roundoff pushed the descent into the padded
		// region past the last real leaf
		leaf = s.capacity - 1
	}
	return leaf
}

// probability returns the normalized sampling probability of leaf i,
// or 0 if the tree holds no mass
func (s *sumTree) probability(i int) float64 {
	total := s.Total()
	if total <= 0 || math.IsNaN(total) {
		return 0
	}
	return s.Get(i) / total
}
