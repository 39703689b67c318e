package rainbow

import "errors"

// AgentError implements errors unique to a Rainbow agent.
type AgentError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *AgentError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

var errInvalidAction = errors.New("action index outside action space")

// IsInvalidAction reports whether err indicates that an externally
// provided action index falls outside the environmental action space.
// Such actions are never clipped into range.
func IsInvalidAction(err error) bool {
	if agentErr, ok := err.(*AgentError); ok {
		err = agentErr.Err
	}
	return err == errInvalidAction
}
