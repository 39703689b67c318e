package tracker

import (
	"github.com/rwgardner2/cups-rl/environment"
	"github.com/rwgardner2/cups-rl/timestep"
)

// registeredTracker binds a Tracker to a specific Environment. Its
// Track method ignores the timestep it is handed and tracks the bound
// Environment's current timestep instead, while Save passes through to
// the embedded Tracker.
//
// Binding matters when the experiment runs on an Environment wrapper
// that alters rewards or observations: a Tracker bound to the wrapped
// Environment records that environment's own timesteps rather than the
// wrapper's.
type registeredTracker struct {
	Tracker
	env environment.Environment
}

// Register returns the argument Tracker bound to the argument
// Environment, so that it tracks data from that Environment only.
// The concrete type of t is not preserved.
func Register(t Tracker, env environment.Environment) Tracker {
	return &registeredTracker{t, env}
}

// Track tracks the bound Environment's current timestep. The argument
// exists to satisfy the Tracker interface and is ignored.
func (r *registeredTracker) Track(timestep.TimeStep) {
	step := r.env.CurrentTimeStep()
	r.Tracker.Track(step)
}
