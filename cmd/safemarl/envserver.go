package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env/particle"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env/remote"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var envServerFlags struct {
	addr string
}

var envServerCmd = &cobra.Command{
	Use:   "envserver",
	Short: "Serve the particle scenario over gRPC",
	Long: `Serve the configured particle world so a trainer with env.kind: remote can
drive it from another process.

Examples:
  safemarl envserver --addr :50061
  safemarl envserver --config config.yaml --addr 127.0.0.1:50061`,
	RunE: runEnvServer,
}

func init() {
	rootCmd.AddCommand(envServerCmd)

	envServerCmd.Flags().StringVar(&envServerFlags.addr, "addr", ":50061", "listen address")
}

func runEnvServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	world, err := particle.New(cfg.Env.Particle)
	if err != nil {
		return fmt.Errorf("build world: %w", err)
	}
	defer world.Close()

	lis, err := net.Listen("tcp", envServerFlags.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", envServerFlags.addr, err)
	}

	srv := grpc.NewServer()
	remote.Register(srv, world)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("[ENVSERVER] shutting down")
		srv.GracefulStop()
	}()

	log.Printf("[ENVSERVER] serving %d-agent particle world on %s", world.Params().NumAgents, lis.Addr())
	return srv.Serve(lis)
}
