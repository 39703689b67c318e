// Package initwfn wraps Gorgonia weight initialization algorithms in
// JSON-serializable configurations, so that experiment files can name
// the initialization of each network alongside the rest of an agent's
// hyperparameters.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type names a weight initialization algorithm
type Type string

// Supported initialization algorithms
const (
	GlorotU Type = "GlorotU"
	GlorotN Type = "GlorotN"
)

// Config describes a weight initialization algorithm and creates the
// Gorgonia InitWFn it describes
type Config interface {
	// Create builds the Gorgonia InitWFn the Config describes
	Create() G.InitWFn

	// Type names the algorithm the Config configures
	Type() Type
}

// InitWFn wraps a Gorgonia InitWFn together with the Config that
// created it. The wrapper marshals as its Type and Config and
// recreates the wrapped InitWFn when unmarshalled, so an
// initialization algorithm survives the round trip through a
// configuration file.
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// newInitWFn wraps the initialization algorithm c describes
func newInitWFn(c Config) (*InitWFn, error) {
	w := InitWFn{Type: c.Type(), Config: c}
	w.initWFn = w.Config.Create()

	return &w, nil
}

// InitWFn unwraps the Gorgonia initialization function
func (w *InitWFn) InitWFn() G.InitWFn {
	return w.initWFn
}

// String implements fmt.Stringer
func (w *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", w.Type, w.Config)
}

// UnmarshalJSON implements json.Unmarshaler
func (w *InitWFn) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(
		data,
		"Type",
		"Config",
		map[string]reflect.Type{
			string(GlorotU): reflect.TypeOf(GlorotUConfig{}),
			string(GlorotN): reflect.TypeOf(GlorotNConfig{}),
		})
	if err != nil {
		return err
	}

	w.Type = typeName
	w.Config = config
	w.initWFn = w.Config.Create()

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
			"serialized weight initialization", typeJsonField)
	}

	ty, found := customTypes[typeName]
	if !found {
		return nil, "", fmt.Errorf("unmarshalconfig: no registered weight "+
			"initialization type %v", typeName)
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
