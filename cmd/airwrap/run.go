package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/boristopalov/airwrap/pkg/command"
	"github.com/boristopalov/airwrap/pkg/config"
	"github.com/boristopalov/airwrap/pkg/control"
	"github.com/boristopalov/airwrap/pkg/core"
	"github.com/boristopalov/airwrap/pkg/messaging"
	"github.com/boristopalov/airwrap/pkg/position"
)

func runControl(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Close()

	if n := cfg.Algorithm.NTrainingThreads; n > 0 {
		runtime.GOMAXPROCS(n)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, closeEnv, err := buildEnvironment(cfg)
	if err != nil {
		return fmt.Errorf("failed to build environment: %w", err)
	}
	defer closeEnv()

	p, err := buildPolicy(cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to build policy: %w", err)
	}

	broker := messaging.NewBroker()
	defer broker.Reset()

	store := position.NewStore(cfg.Loop.History)
	loop := control.NewLoop(env, p, store,
		control.WithBroker(broker),
		control.WithLogger(logger.Logger),
		control.WithInterval(cfg.Loop.StepInterval),
		control.WithMaskDone(cfg.Loop.MaskDoneAgents),
	)
	if err := loop.Reset(ctx); err != nil {
		return err
	}

	commander := command.NewCommander(store, env, logger.Logger)
	for _, line := range cfg.Commands {
		if _, err := commander.Execute(ctx, line); err != nil {
			return fmt.Errorf("startup command %q: %w", line, err)
		}
	}

	events := make(chan messaging.Message, 64)
	if err := broker.Subscribe("cli", events); err != nil {
		return err
	}
	go logEvents(ctx, events, logger.Logger)

	op := buildOperator(ctx, cfg, commander, store, broker, logger.Logger)
	if op != nil {
		defer op.Close()
	}

	task := loop.Start(ctx)
	console := &console{
		commander: commander,
		operator:  op,
		store:     store,
		stop:      task.Stop,
		out:       cmd.OutOrStdout(),
		logger:    logger.Logger,
	}
	go console.serve(ctx, cmd.InOrStdin())

	if err := task.Wait(); err != nil {
		return fmt.Errorf("control loop failed: %w", err)
	}
	status := loop.Status()
	logger.Info().Uint64("steps", status.Steps).Dur("elapsed", status.EndTime.Sub(status.StartTime)).Msg("session finished")
	return nil
}

// logEvents logs every arrival reported in the step stream.
func logEvents(ctx context.Context, events <-chan messaging.Message, logger zerolog.Logger) {
	arrived := map[int]bool{}
	for {
		select {
		case msg := <-events:
			ev, ok := msg.Content.(core.StepEvent)
			if !ok {
				continue
			}
			for i, done := range ev.Dones {
				if done && !arrived[i] {
					logger.Info().Uint64("step", ev.Step).Int("agent", i).Msg("agent reached its goal")
				}
				arrived[i] = done
			}
		case <-ctx.Done():
			return
		}
	}
}
