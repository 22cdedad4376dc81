package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/poolkit/pool"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <config.yaml>",
		Short: "Validate a pool configuration and print its layout",
		Long: `The info command loads a pool configuration file, applies POOLKIT_*
environment overrides, validates every pool definition, and prints the
resulting layout.

Example:
  poolctl info pools.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args[0])
		},
	}
}

func runInfo(path string) error {
	conf, err := pool.LoadConfig(path)
	if err != nil {
		return err
	}

	printInfo("configuration OK: %d pools\n", len(conf.Pools))
	printInfo("gc interval %s, leak audit interval %s, history %d\n",
		conf.GCInterval, conf.LeakAuditInterval, conf.HistorySize)
	for _, def := range conf.Pools {
		blocks := def.Size / def.BlockSize
		printInfo("  %-14s %10d bytes, %6d blocks of %d", def.Name, def.Size, blocks, def.BlockSize)
		if def.GCDisabled {
			printInfo(", gc disabled")
		} else if def.GCTTL != 0 {
			printInfo(", gc ttl %s", def.GCTTL)
		}
		printInfo("\n")
	}
	return nil
}
