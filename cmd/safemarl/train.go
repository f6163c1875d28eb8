package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/config"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/telemetry"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/trainer"
	"github.com/spf13/cobra"
)

var trainFlags struct {
	outputDir string
	episodes  int
	dryRun    bool
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train, persist and evaluate a policy",
	Long: `Train the safe MADDPG agents for the configured number of episodes, persist
parameters and per-episode metrics, then evaluate and record the policy.

Examples:
  safemarl train --config config.yaml
  safemarl train --config config.yaml --output out/run-2 --episodes 500
  safemarl train --config config.yaml --dry-run`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVarP(&trainFlags.outputDir, "output", "o", "", "override output_dir")
	trainCmd.Flags().IntVar(&trainFlags.episodes, "episodes", 0, "override episodes")
	trainCmd.Flags().BoolVar(&trainFlags.dryRun, "dry-run", false, "validate config without training")
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		cfg := config.DefaultConfig()
		return cfg, config.Validate(cfg)
	}
	return config.LoadConfigWithEnvOverrides(cfgFile)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if trainFlags.outputDir != "" {
		cfg.OutputDir = trainFlags.outputDir
	}
	if trainFlags.episodes > 0 {
		cfg.Episodes = trainFlags.episodes
		cfg.Noise.DecayPeriod = trainFlags.episodes
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if trainFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "configuration valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := initTracing(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Printf("[TRACE] shutdown: %v", err)
		}
	}()

	t, err := trainer.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build trainer: %w", err)
	}
	report, err := t.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s complete\n", report.RunID)
	fmt.Fprintf(out, "  Episodes:         %d\n", report.Episodes)
	fmt.Fprintf(out, "  Collisions:       %d\n", report.TotalCollisions)
	fmt.Fprintf(out, "  Update cycles:    %d\n", report.UpdateCycles)
	fmt.Fprintf(out, "  Mean eval return: %.4f over %d episodes\n", report.MeanReturn, len(report.EvalReturns))
	fmt.Fprintf(out, "  Output:           %s\n", cfg.OutputDir)
	return nil
}

// initTracing exports spans to the configured trace file, or stdout when none
// is set. The file is created inside output_dir.
func initTracing(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	tc := telemetry.TracingConfig{
		Enabled:     cfg.Telemetry.Tracing,
		ServiceName: cfg.Telemetry.ServiceName,
	}
	if !tc.Enabled || cfg.Telemetry.TraceFile == "" {
		return telemetry.InitTracing(ctx, tc)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(cfg.OutputDir, cfg.Telemetry.TraceFile))
	if err != nil {
		return nil, err
	}
	tc.Writer = f
	shutdown, err := telemetry.InitTracing(ctx, tc)
	if err != nil {
		f.Close()
		return nil, err
	}
	return closeAfter(shutdown, f), nil
}

func closeAfter(shutdown func(context.Context) error, c io.Closer) func(context.Context) error {
	return func(ctx context.Context) error {
		err := shutdown(ctx)
		if cerr := c.Close(); err == nil {
			err = cerr
		}
		return err
	}
}
