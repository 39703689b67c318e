package network

import (
	"encoding/json"
	"fmt"

	G "gorgonia.org/gorgonia"
)

type activationType string

const (
	relu     activationType = "relu"
	identity activationType = "identity"
	tanh     activationType = "tanh"
	nil_     activationType = "nil"
)

// Activation is a named activation function. Activations serialize by
// name alone, with both gob and JSON, so network configurations can
// carry them through experiment files and checkpoints.
type Activation struct {
	activationType
	f func(x *G.Node) (*G.Node, error)
}

// ReLU returns the rectified linear activation
func ReLU() *Activation {
	return &Activation{
		activationType: relu,
		f:              G.Rectify,
	}
}

// TanH returns the hyperbolic tangent activation
func TanH() *Activation {
	return &Activation{
		activationType: tanh,
		f:              G.Tanh,
	}
}

// Identity returns the identity activation
func Identity() *Activation {
	return &Activation{
		activationType: identity,
		f: func(x *G.Node) (*G.Node, error) {
			return x, nil
		},
	}
}

// Nil returns a nil *Activation, which layers treat like the identity
func Nil() *Activation {
	return &Activation{
		activationType: nil_,
		f:              nil,
	}
}

// fwd performs the forward pass of an Activation
func (a *Activation) fwd(x *G.Node) (*G.Node, error) {
	return a.f(x)
}

// String implements fmt.Stringer
func (a *Activation) String() string {
	return string(a.activationType)
}

// IsNil reports whether the activation is the nil activation
func (a *Activation) IsNil() bool {
	return a.activationType == nil_
}

// GobEncode implements gob.GobEncoder
func (a *Activation) GobEncode() ([]byte, error) {
	return []byte(a.activationType), nil
}

// GobDecode implements gob.GobDecoder
func (a *Activation) GobDecode(encoded []byte) error {
	decoded := activationType(encoded)
	switch decoded {
	case relu:
		*a = *ReLU()
	case identity:
		*a = *Identity()
	case tanh:
		*a = *TanH()
	case nil_:
		*a = *Nil()
	default:
		return fmt.Errorf("gobdecode: illegal Activation type %v", decoded)
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (a *Activation) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a.activationType))
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Activation) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	return a.GobDecode([]byte(name))
}
