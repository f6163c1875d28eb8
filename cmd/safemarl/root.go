package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "safemarl",
	Short: "Safe multi-agent RL training and evaluation",
	Long: `safemarl runs the training loop for decentralised agents whose actions pass
through a constraint-projecting safety layer, then evaluates the learned policy
and records the first evaluation episodes as an animated GIF.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (empty uses defaults)")
}
