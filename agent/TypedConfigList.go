package agent

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// TypedConfigList pairs a ConfigList with its agent Type. Because the
// Type travels with the serialized list, deserialization can recover
// the list's concrete type from the registry without the caller
// declaring a variable of that type beforehand.
type TypedConfigList struct {
	Type
	ConfigList
}

// NewTypedConfigList returns the argument ConfigList paired with its
// Type as a TypedConfigList
func NewTypedConfigList(c ConfigList) TypedConfigList {
	return TypedConfigList{Type: c.Type(), ConfigList: c}
}

// UnmarshalJSON implements json.Unmarshaler
func (j *TypedConfigList) UnmarshalJSON(data []byte) error {
	configs, typeName, err := unmarshalConfigList(
		data,
		"Type",
		"ConfigList")
	if err != nil {
		return err
	}

	j.Type = typeName
	j.ConfigList = configs

	return nil
}

// unmarshalConfigList decodes a serialized ConfigList into the
// concrete type registered for its Type field. Both the ConfigList
// and its Type are returned.
func unmarshalConfigList(data []byte, typeJsonField,
	valueJsonField string) (ConfigList, Type, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	name, ok := m[typeJsonField].(string)
	if !ok {
		return nil, "", fmt.Errorf("unmarshalconfiglist: missing %v "+
			"field in serialized configuration list", typeJsonField)
	}

	typeName := Type(name)
	ty, found := registeredTypes[typeName]
	if !found {
		return nil, "", fmt.Errorf("unmarshalconfiglist: no registered "+
			"agent type %v", typeName)
	}
	value := reflect.New(ty).Interface().(ConfigList)

	valueBytes, err := json.Marshal(m[valueJsonField])
	if err != nil {
		return nil, "", err
	}

	if err = json.Unmarshal(valueBytes, &value); err != nil {
		return nil, "", err
	}
	concreteValue := reflect.ValueOf(value).Elem().Interface().(ConfigList)

	return concreteValue, typeName, nil
}

// At returns the i'th Config in the list
func (t *TypedConfigList) At(i int) Config {
	return ConfigAt(i, t.ConfigList)
}
