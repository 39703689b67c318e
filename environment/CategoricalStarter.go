package environment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CategoricalStarter draws starting states from independent uniform
// categorical distributions, one per state feature. Feature i is drawn
// uniformly from (0, 1, ..., bounds[i]-1). Environments whose states
// are discrete, such as grid scenes, use a CategoricalStarter to draw
// the agent's starting cell and facing.
type CategoricalStarter struct {
	features int
	seed     uint64
	rand     []distuv.Categorical
}

// NewCategoricalStarter returns a CategoricalStarter drawing feature
// i uniformly from bounds[i] categories
func NewCategoricalStarter(bounds []int, seed uint64) CategoricalStarter {
	source := rand.NewSource(seed)

	dists := make([]distuv.Categorical, len(bounds))
	for i := range dists {
		weights := make([]float64, bounds[i])
		for j := range weights {
			weights[j] = 1.0 / float64(len(weights))
		}

		dists[i] = distuv.NewCategorical(weights, source)
	}

	return CategoricalStarter{
		features: len(bounds),
		seed:     seed,
		rand:     dists,
	}
}

// Start draws and returns a starting state vector
func (c CategoricalStarter) Start() mat.Vector {
	start := make([]float64, c.features)
	for i := range start {
		start[i] = c.rand[i].Rand()
	}

	return mat.NewVecDense(c.features, start)
}
