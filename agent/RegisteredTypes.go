package agent

import "reflect"

// Type identifies the kind of agent a Config constructs.
//
// For example, a Config with Type CategoricalRainbowMLP constructs
// Rainbow agents whose return distributions are parameterized by
// MLPs.
type Type string

const (
	CategoricalRainbowMLP Type = "CategoricalRainbow-MLP"
	CategoricalA3CMLP     Type = "CategoricalA3C-MLP"
)

// Types with a known concrete ConfigList. A ConfigList for a Type can
// only be deserialized once the Type appears in this map.
//
// The map starts empty. Each agent package registers its own Type from
// an init function, which keeps this package free of imports of the
// agent packages.
var registeredTypes map[Type]reflect.Type

func init() {
	registeredTypes = make(map[Type]reflect.Type)
}

// Register associates agentType with the concrete ConfigList that
// holds its configurations. Deserializing a TypedConfigList consults
// the association to pick the concrete type to decode into.
func Register(agentType Type, configs ConfigList) {
	registeredTypes[agentType] = reflect.TypeOf(configs)
}
