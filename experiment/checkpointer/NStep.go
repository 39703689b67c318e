package checkpointer

import (
	"fmt"
	"os"

	ts "github.com/rwgardner2/cups-rl/timestep"
)

// nStep implements checkpointing every N steps. Steps are counted
// over calls to Checkpoint, not from the timestep argument, since
// timestep numbers restart with each episode.
type nStep struct {
	interval int
	steps    int
	object   Serializable // Object to save

	// filename returns the string filename of the file to save the
	// object in.
	//
	// If each serialized object should be saved in a separate file
	// with each file having an incremented number as a suffix (e.g.
	// agent_1.bin, agent_2.bin, ..., agent_K.bin), then simply use the
	// static function FilenameEnumerator, which will return a function
	// that will enumerate filenames. Checkpoints named this way can be
	// found again with Latest.
	//
	// Otherwise, if each serialized object should be saved in a
	// separate file, but the filename does not matter, use the
	// static function FileTimer to generate the required naming
	// function. For example:
	//
	//	n := NewNStep(10, object, FileTimer("filename", ".bin"))
	filename func() string
}

// NewNStep returns a checkpointer that checkpoints every n steps.
func NewNStep(n int, object Serializable,
	filename func() string) Checkpointer {
	return &nStep{
		interval: n,
		object:   object,
		filename: filename,
	}
}

// Checkpoint counts one environmental step and, on every interval'th
// call, serializes the tracked object into the next checkpoint file
func (n *nStep) Checkpoint(ts.TimeStep) error {
	n.steps++
	if n.steps%n.interval != 0 {
		return nil
	}

	data, err := n.object.GobEncode()
	if err != nil {
		return fmt.Errorf("checkpoint: could not encode object: %v", err)
	}
	if err := os.WriteFile(n.filename(), data, 0644); err != nil {
		return fmt.Errorf("checkpoint: could not write checkpoint: %v",
			err)
	}
	return nil
}
