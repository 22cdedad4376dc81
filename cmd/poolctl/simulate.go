package main

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/joshuapare/poolkit/pool"
)

var (
	simSteps int
	simSeed  int64
	simHold  float64
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().IntVar(&simSteps, "steps", 10000, "Number of workload steps to run")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Workload random seed")
	cmd.Flags().Float64Var(&simHold, "hold", 0.3, "Fraction of allocations never freed by the workload")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate <config.yaml>",
		Short: "Replay a scripted workload and print the diagnostics report",
		Long: `The simulate command builds an allocator from a configuration file,
replays a seeded allocate/free workload across every pool, defragments
pools that end up fragmented, and prints the resulting statistics and
diagnostics report.

Example:
  poolctl simulate pools.yaml --steps 50000 --seed 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(args[0])
		},
	}
}

func runSimulate(path string) error {
	conf, err := pool.LoadConfig(path)
	if err != nil {
		return err
	}
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
	conf.Logger = log

	alloc, err := pool.New(conf)
	if err != nil {
		return err
	}
	defer alloc.Close()

	rng := rand.New(rand.NewSource(simSeed))
	names := alloc.Pools()
	var outstanding []pool.AllocationID
	failures := 0

	for step := 0; step < simSteps; step++ {
		name := names[rng.Intn(len(names))]
		if rng.Float64() < 0.6 || len(outstanding) == 0 {
			size := int64(rng.Intn(16*1024) + 1)
			h, allocErr := alloc.Allocate(name, size)
			if allocErr != nil {
				failures++
				continue
			}
			if rng.Float64() >= simHold {
				outstanding = append(outstanding, h.ID())
			}
		} else {
			i := rng.Intn(len(outstanding))
			alloc.Deallocate(outstanding[i])
			outstanding = append(outstanding[:i], outstanding[i+1:]...)
		}
	}

	// Defragment anywhere the report would tell an operator to.
	for _, ps := range alloc.Stats().Pools {
		if ps.FreeBlocks > 0 && ps.LargestFreeRun*2 < ps.FreeBlocks {
			res, defragErr := alloc.Defragment(ps.Name)
			if defragErr != nil {
				return defragErr
			}
			printInfo("defragmented %s: moved %d allocations, largest run %d -> %d blocks\n",
				res.Pool, res.Moved, res.LargestRunBefore, res.LargestRunAfter)
		}
	}

	printInfo("%d steps, %d failed allocations, %d outstanding\n",
		simSteps, failures, len(outstanding))
	fmt.Print(alloc.ExportReport().String())
	return nil
}
