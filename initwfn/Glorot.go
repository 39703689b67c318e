package initwfn

import G "gorgonia.org/gorgonia"

// NewGlorotU returns a Glorot uniform weight initializer, sometimes
// called Xavier uniform initialization, with the given gain
func NewGlorotU(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotUConfig{Gain: gain})
}

// NewGlorotN returns a Glorot normal weight initializer, sometimes
// called Xavier normal initialization, with the given gain
func NewGlorotN(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotNConfig{Gain: gain})
}

// GlorotUConfig describes Glorot uniform initialization, which draws
// weights uniformly with variance scaled to a layer's fan-in and
// fan-out
type GlorotUConfig struct {
	Gain float64
}

// Type returns the type of initialization algorithm the configuration
// describes
func (g GlorotUConfig) Type() Type {
	return GlorotU
}

// Create returns the configured initialization algorithm as a Gorgonia
// InitWFn
func (g GlorotUConfig) Create() G.InitWFn {
	return G.GlorotU(g.Gain)
}

// GlorotNConfig describes Glorot normal initialization, the normal
// counterpart of GlorotUConfig
type GlorotNConfig struct {
	Gain float64
}

// Type returns the type of initialization algorithm the configuration
// describes
func (g GlorotNConfig) Type() Type {
	return GlorotN
}

// Create returns the configured initialization algorithm as a Gorgonia
// InitWFn
func (g GlorotNConfig) Create() G.InitWFn {
	return G.GlorotN(g.Gain)
}
