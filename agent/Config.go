package agent

import (
	"fmt"
	"reflect"

	"github.com/rwgardner2/cups-rl/environment"
)

// Config represents a configuration for creating an agent
type Config interface {
	// CreateAgent creates the agent that the config describes
	CreateAgent(env environment.Environment, seed uint64) (Agent, error)

	// ValidAgent returns whether the argument agent is valid for the
	// Config
	ValidAgent(Agent) bool

	// Validate returns an error describing whether or not the
	// configuration is valid or not.
	Validate() error

	// Type returns the type of agent the Config creates
	Type() Type
}

// ConfigList holds the values of each Config field to sweep over, one
// slice per Config field with matching field names. The list denotes
// the cartesian product of its field slices: every combination of one
// element per field is a Config in the list.
type ConfigList interface {
	// Config returns an empty Config of the concrete type the list
	// holds
	Config() Config

	// Type returns the type of agent the list's Configs create
	Type() Type

	// NumFields returns the number of settable fields in a Config
	NumFields() int

	// Len returns the number of Configs in the list
	Len() int
}

// ConfigAt returns the Config at index i of the cartesian product
// denoted by a ConfigList. Fields vary fastest in declaration order,
// so consecutive indices first exhaust the first field's values.
//
// The concrete ConfigList and Config types must declare their swept
// fields with identical names, the list holding a slice of the
// Config's field type. Unexported Config fields are left at their
// zero values.
func ConfigAt(i int, configs ConfigList) Config {
	if i < 0 || i >= configs.Len() {
		panic(fmt.Sprintf("configat: index %v out of range [0, %v)", i,
			configs.Len()))
	}

	listValue := reflect.ValueOf(configs)
	configValue := reflect.New(reflect.TypeOf(configs.Config())).Elem()

	accum := 1
	for field := 0; field < configs.NumFields(); field++ {
		listField := listValue.Field(field)
		if listField.Kind() != reflect.Slice || listField.Len() == 0 {
			continue
		}

		index := (i / accum) % listField.Len()
		accum *= listField.Len()

		name := listValue.Type().Field(field).Name
		configField := configValue.FieldByName(name)
		if configField.CanSet() {
			configField.Set(listField.Index(index))
		}
	}

	return configValue.Interface().(Config)
}
