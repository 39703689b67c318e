package main

import (
	"fmt"
	"log"

	"github.com/rwgardner2/cups-rl/agent/rainbow"
	"github.com/rwgardner2/cups-rl/environment/envconfig"
	"github.com/rwgardner2/cups-rl/experiment"
	"github.com/rwgardner2/cups-rl/experiment/checkpointer"
	"github.com/rwgardner2/cups-rl/experiment/tracker"
	"github.com/rwgardner2/cups-rl/initwfn"
	"github.com/rwgardner2/cups-rl/network"
	"github.com/rwgardner2/cups-rl/solver"
)

func main() {
	var seed uint64 = 192382

	// Create the environment
	envConf := envconfig.NewConfig(envconfig.Kitchen, envconfig.PickUp,
		6, 7, 500, 0.99)
	e, _ := envConf.Create(seed)

	// Solver and weight initialization for the value network
	adam, _ := solver.NewDefaultAdam(6.25e-5, 32)
	init, _ := initwfn.NewGlorotU(1.0)

	// Create the learning algorithm
	config := rainbow.Config{
		Hidden:      []int{128, 128},
		Biases:      []bool{true, true},
		Activations: []*network.Activation{network.ReLU(), network.ReLU()},
		Solver:      adam,
		InitWFn:     init,

		// The return distribution support covers the range of episodic
		// returns of the pickup task
		Atoms: 51,
		VMin:  -1.0,
		VMax:  1.0,

		N:     3,
		Gamma: 0.99,

		Noisy:     true,
		SigmaInit: 0.5,

		MinCapacity: 500,
		MaxCapacity: 50_000,
		BatchSize:   32,
		Alpha:       0.5,
		BetaStart:   0.4,
		BetaSteps:   100_000,

		ReplayInterval: 1,
		TargetInterval: 500,
		Tau:            1.0,
	}
	r, err := rainbow.New(e, config, int64(seed))
	if err != nil {
		log.Fatalf("could not create agent: %v", err)
	}

	// Resume from the newest checkpoint of an earlier run, if any
	resume, err := checkpointer.Latest(".", "rainbow", ".bin")
	if err != nil {
		log.Fatalf("could not scan for checkpoints: %v", err)
	}
	if resume != "" {
		if err := checkpointer.Load(resume, r); err != nil {
			log.Fatalf("could not restore %v: %v", resume, err)
		}
		fmt.Println("Resuming from", resume)
	}

	// Experiment tracking episodic returns and periodically
	// checkpointing the agent. Starting the filename counter at the
	// restored run's checkpoint count keeps the newest file the
	// highest numbered one.
	returns := tracker.NewReturn("./data.bin")
	check := checkpointer.NewNStep(10_000, r,
		checkpointer.FilenameEnumerator(r.TotalSteps()/10_000,
			"./rainbow", ".bin"))

	exp := experiment.NewOnline(e, r, 100_000,
		[]tracker.Tracker{returns}, []checkpointer.Checkpointer{check})
	if err := exp.Run(); err != nil {
		log.Fatalf("could not run experiment: %v", err)
	}
	exp.Save()

	data := tracker.LoadData("./data.bin")
	fmt.Println(data[len(data)-10:])
}
