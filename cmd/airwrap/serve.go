package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/boristopalov/airwrap/pkg/config"
	"github.com/boristopalov/airwrap/pkg/remote"
)

func serveEnvironment(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Close()

	env, err := newKinematic(cfg)
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("listen")
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	g := remote.NewGRPCServer()
	remote.NewServer(env, logger.Logger).Register(g)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		g.GracefulStop()
	}()

	logger.Info().Str("addr", lis.Addr().String()).Int("drones", len(cfg.Environment.Drones)).Msg("serving environment")
	return g.Serve(lis)
}
