// Package solver wraps Gorgonia Solvers in JSON-serializable
// configurations, so that experiment files can name the gradient
// descent algorithm of each network alongside the rest of an agent's
// hyperparameters.
package solver

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type names a gradient descent algorithm
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	RMSProp Type = "RMSProp"
)

// Config describes a gradient descent algorithm and creates the
// Gorgonia Solver it describes
type Config interface {
	Create() G.Solver

	// ValidType reports whether the Config can configure solvers of
	// the argument type
	ValidType(Type) bool
}

// Solver wraps a Gorgonia Solver together with the Config that created
// it. The wrapper marshals as its Type and Config and recreates the
// wrapped Solver when unmarshalled. Solver state such as Adam moment
// estimates is not serialized.
type Solver struct {
	G.Solver `json:"-"`
	Type
	Config
}

// newSolver returns a new Solver with the given type and configuration
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newsolver: solver type %v cannot be "+
			"configured by %T", t, c)
	}
	solver := Solver{Type: t, Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Solver) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(
		data,
		"Type",
		"Config",
		map[string]reflect.Type{
			string(Adam):    reflect.TypeOf(AdamConfig{}),
			string(RMSProp): reflect.TypeOf(RMSPropConfig{}),
		})
	if err != nil {
		return err
	}

	s.Type = typeName
	s.Config = config
	s.Solver = s.Config.Create()

	return nil
}

// unmarshalConfig decodes a serialized Config into the concrete type
// its Type field names. Both the Config and its Type are returned.
func unmarshalConfig(data []byte, typeJsonField, valueJsonField string,
	customTypes map[string]reflect.Type) (Config, Type, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	typeName, ok := m[typeJsonField].(string)
	if !ok {
		return nil, "", fmt.Errorf("unmarshalconfig: missing %v field in "+
			"serialized solver", typeJsonField)
	}

	ty, found := customTypes[typeName]
	if !found {
		return nil, "", fmt.Errorf("unmarshalconfig: no registered solver "+
			"type %v", typeName)
	}
	value := reflect.New(ty).Interface().(Config)

	valueBytes, err := json.Marshal(m[valueJsonField])
	if err != nil {
		return nil, "", err
	}

	if err = json.Unmarshal(valueBytes, &value); err != nil {
		return nil, "", err
	}
	concreteValue := reflect.ValueOf(value).Elem().Interface().(Config)

	return concreteValue, Type(typeName), nil
}
