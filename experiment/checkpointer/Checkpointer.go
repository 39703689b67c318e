// Package checkpointer implements periodic saving of agent state
// during an experiment so that training can later resume from the
// most recent checkpoint.
package checkpointer

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ts "github.com/rwgardner2/cups-rl/timestep"
)

// Serializable is an object that can be saved/serialized
type Serializable interface {
	gob.GobEncoder
	gob.GobDecoder
}

// Checkpointer checkpoints/saves serializable objects based on
// timestep.TimeSteps
type Checkpointer interface {
	Checkpoint(ts.TimeStep) error
}

// Load restores a Serializable from the checkpoint file at path. The
// object must already be constructed compatibly with the checkpoint;
// Load only fills in its encoded state.
func Load(path string, into Serializable) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load: could not read checkpoint: %v", err)
	}
	if err := into.GobDecode(data); err != nil {
		return fmt.Errorf("load: could not decode checkpoint: %v", err)
	}
	return nil
}

// Latest returns the path of the highest-numbered checkpoint that a
// FilenameEnumerator with the argument name and extension saved into
// dir. If the directory holds no such checkpoint, the returned path is
// empty.
func Latest(dir, name, extension string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("latest: could not read checkpoint "+
			"directory: %v", err)
	}

	best := -1
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		numeral := entry.Name()
		if !strings.HasPrefix(numeral, name+"_") ||
			!strings.HasSuffix(numeral, extension) {
			continue
		}
		numeral = strings.TrimPrefix(numeral, name+"_")
		numeral = strings.TrimSuffix(numeral, extension)

		n, err := strconv.Atoi(numeral)
		if err != nil {
			continue
		}
		if n > best {
			best = n
		}
	}

	if best < 0 {
		return "", nil
	}
	path := filepath.Join(dir, fmt.Sprintf("%v_%v%v", name, best,
		extension))
	return path, nil
}
