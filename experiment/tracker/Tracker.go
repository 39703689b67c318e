// Package tracker implements Trackers, which cache data generated
// during an experiment and save it to disk once the experiment ends
package tracker

import (
	"encoding/gob"
	"log"
	"os"

	ts "github.com/rwgardner2/cups-rl/timestep"
)

// Tracker caches data from the timesteps of a running experiment and
// saves the cached data when the experiment finishes
type Tracker interface {
	Track(t ts.TimeStep)
	Save()
}

// LoadData reads back the data that a Tracker saved to filename
func LoadData(filename string) []float64 {
	file, err := os.Open(filename)
	if err != nil {
		log.Fatalf("could not open data file: %v", err)
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	var data []float64

	err = dec.Decode(&data)
	if err != nil {
		log.Fatalf("could not decode data: %v", err)
	}

	return data
}
