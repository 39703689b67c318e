package a3c

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// gaeBuffer stores the rollout of a single policy between updates: one
// observation, discrete action, reward, and critic value estimate per
// step. Rollouts may span episode boundaries. Each episode, and the
// rollout tail cut off when the buffer fills, forms a path; finishPath
// converts a path's rewards and values into generalized advantage
// estimates - GAE(λ) - and bootstrapped returns.
//
// The forward-view estimates follow https://arxiv.org/abs/1506.02438.
type gaeBuffer struct {
	obsSize int // Size of state observations
	maxSize int // Steps per rollout

	currentPos   int // Next free position in the buffer
	pathStartIdx int // Position where the current path starts

	lambda float64 // λ for GAE(λ) calculation
	gamma  float64 // Discount factor ℽ; overwrites env discount factor

	obsBuffer []float64
	actBuffer []float64
	advBuffer []float64
	rewBuffer []float64
	retBuffer []float64
	valBuffer []float64
}

func newGAEBuffer(obsDim, size int, lambda, gamma float64) *gaeBuffer {
	return &gaeBuffer{
		obsSize:      obsDim,
		maxSize:      size,
		currentPos:   0,
		pathStartIdx: 0,
		lambda:       lambda,
		gamma:        gamma,
		obsBuffer:    make([]float64, size*obsDim),
		actBuffer:    make([]float64, size),
		advBuffer:    make([]float64, size),
		rewBuffer:    make([]float64, size),
		retBuffer:    make([]float64, size),
		valBuffer:    make([]float64, size),
	}
}

// store records a single timestep. The action is the index of the
// discrete action taken, and value the critic's estimate of the stored
// observation.
func (b *gaeBuffer) store(obs []float64, action, reward,
	value float64) error {
	if b.currentPos >= b.maxSize {
		return fmt.Errorf("store: cannot add new transition, buffer at " +
			"maximum capacity")
	}
	if len(obs) != b.obsSize {
		return fmt.Errorf("store: illegal obs length \n\twant(%v)\n\thave(%v)",
			b.obsSize, len(obs))
	}

	start := b.currentPos * b.obsSize
	copy(b.obsBuffer[start:start+b.obsSize], obs)

	b.actBuffer[b.currentPos] = action
	b.rewBuffer[b.currentPos] = reward
	b.valBuffer[b.currentPos] = value
	b.currentPos++
	return nil
}

// finishPath computes the advantage estimates and bootstrapped returns
// of the current path. It should be called whenever an episode ends
// and whenever the rollout fills mid-episode.
//
// The lastVal argument should be 0 if the path ended because the
// episode ended, and otherwise it should be the critic's estimate of
// the state the cut-off path would have continued from. The estimate
// bootstraps both the returns and the advantage of every step on the
// path.
func (b *gaeBuffer) finishPath(lastVal float64) {
	start := b.pathStartIdx
	stop := b.currentPos

	rews := make([]float64, 0, stop-start+1)
	rews = append(rews, b.rewBuffer[start:stop]...)
	rews = append(rews, lastVal)
	vals := make([]float64, 0, stop-start+1)
	vals = append(vals, b.valBuffer[start:stop]...)
	vals = append(vals, lastVal)

	// GAE-lambda advantage calculation: the temporal difference errors
	// δ_t = r_t + ℽ v(s_t+1) - v(s_t), discounted-cumulatively summed
	// with discount ℽλ
	stateVals := mat.NewVecDense(len(vals)-1, vals[:len(vals)-1])
	nextStateVals := mat.NewVecDense(len(vals)-1, vals[1:])
	rewards := mat.NewVecDense(len(rews)-1, rews[:len(rews)-1])

	deltas := mat.NewVecDense(stateVals.Len(), nil)
	deltas.AddScaledVec(rewards, b.gamma, nextStateVals)
	deltas.SubVec(deltas, stateVals)

	copy(b.advBuffer[start:stop],
		discountCumSum(deltas.RawVector().Data, b.gamma*b.lambda))

	// Bootstrapped rewards-to-go become the critic's regression targets
	rewsToGo := discountCumSum(rews, b.gamma)
	copy(b.retBuffer[start:stop], rewsToGo[:len(rewsToGo)-1])

	b.pathStartIdx = b.currentPos
}

// get returns the observations, actions, advantages, and returns of a
// finished rollout and empties the buffer. Advantages are standardized
// to mean 0 and standard deviation 1 over the whole rollout.
func (b *gaeBuffer) get() ([]float64, []float64, []float64, []float64,
	error) {
	if b.currentPos != b.maxSize {
		err := fmt.Errorf("get: buffer must be full before sampling")
		return nil, nil, nil, nil, err
	}

	b.currentPos = 0
	b.pathStartIdx = 0

	mean := stat.Mean(b.advBuffer, nil)
	std := stat.StdDev(b.advBuffer, nil) + 1e-8
	advantages := make([]float64, len(b.advBuffer))
	for i, adv := range b.advBuffer {
		advantages[i] = (adv - mean) / std
	}

	return b.obsBuffer, b.actBuffer, advantages, b.retBuffer, nil
}

// reset discards any stored rollout data
func (b *gaeBuffer) reset() {
	b.obsBuffer = make([]float64, len(b.obsBuffer))
	b.actBuffer = make([]float64, len(b.actBuffer))
	b.advBuffer = make([]float64, len(b.advBuffer))
	b.rewBuffer = make([]float64, len(b.rewBuffer))
	b.retBuffer = make([]float64, len(b.retBuffer))
	b.valBuffer = make([]float64, len(b.valBuffer))
	b.currentPos = 0
	b.pathStartIdx = 0
}

// discountCumSum computes the discounted cumulative sum of all
// elements of x. Given x = [x0 x1 ... xN] and discount ℽ, element i of
// the result is xi + ℽ x(i+1) + ℽ² x(i+2) + ... + ℽ^(N-i) xN.
func discountCumSum(x []float64, discount float64) []float64 {
	sums := make([]float64, len(x))
	var next float64
	for i := len(x) - 1; i >= 0; i-- {
		next = x[i] + discount*next
		sums[i] = next
	}
	return sums
}
