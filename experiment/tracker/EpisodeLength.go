package tracker

import (
	"encoding/gob"
	"log"
	"os"

	"github.com/rwgardner2/cups-rl/timestep"
)

// EpisodeLength tracks the lengths of the episodes in an experiment.
// Lengths are cached as a []float64 so that LoadData can decode them.
//
// Only finished episodes are saved. An episode cut off by the
// experiment's step limit before the environment ends it contributes
// no length.
type EpisodeLength struct {
	episodeLengths []float64
	filename       string
}

// NewEpisodeLength returns a Tracker caching episode lengths, saved
// to filename
func NewEpisodeLength(filename string) Tracker {
	var saver EpisodeLength
	saver.filename = filename
	return &saver
}

// Track caches the length of the current episode when given its last
// timestep. Timesteps mid-episode leave the Tracker unchanged.
func (e *EpisodeLength) Track(t timestep.TimeStep) {
	if t.Last() {
		e.episodeLengths = append(e.episodeLengths, float64(t.Number))
	}
}

// Save saves the cached episode lengths to disk
func (e *EpisodeLength) Save() {
	file, err := os.Create(e.filename)
	if err != nil {
		log.Fatalf("could not create episode length file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err = en.Encode(e.episodeLengths); err != nil {
		log.Fatalf("could not encode episode length data: %v", err)
	}
}
