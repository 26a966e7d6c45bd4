package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/boristopalov/airwrap/internal/logging"
	"github.com/boristopalov/airwrap/pkg/command"
	"github.com/boristopalov/airwrap/pkg/config"
	"github.com/boristopalov/airwrap/pkg/core"
	"github.com/boristopalov/airwrap/pkg/environment"
	"github.com/boristopalov/airwrap/pkg/messaging"
	"github.com/boristopalov/airwrap/pkg/operator"
	"github.com/boristopalov/airwrap/pkg/policy"
	"github.com/boristopalov/airwrap/pkg/position"
	"github.com/boristopalov/airwrap/pkg/providers"
	"github.com/boristopalov/airwrap/pkg/remote"
)

func newLogger(cfg *config.Config, out io.Writer) (*logging.Logger, error) {
	return logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		File:   cfg.Logging.File,
	}, out)
}

func newKinematic(cfg *config.Config) (*environment.Kinematic, error) {
	return environment.NewKinematic(environment.KinematicConfig{
		Drones:       cfg.Environment.Drones,
		Speed:        cfg.Environment.Speed,
		ArriveRadius: cfg.Environment.ArriveRadius,
		Extent:       cfg.Environment.Extent,
		Jitter:       cfg.Environment.Jitter,
		Seed:         cfg.Algorithm.Seed,
		SceneObjects: cfg.Environment.SceneObjects,
	})
}

// buildEnvironment returns the configured environment and a func releasing it.
func buildEnvironment(cfg *config.Config) (remote.Backend, func() error, error) {
	switch cfg.Environment.Type {
	case "remote":
		client, err := remote.Dial(cfg.Environment.Address)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	default:
		env, err := newKinematic(cfg)
		if err != nil {
			return nil, nil, err
		}
		return env, func() error { return nil }, nil
	}
}

func buildPolicy(cfg *config.Config, logger zerolog.Logger) (policy.Policy, error) {
	switch cfg.Policy.Type {
	case "fixed":
		return policy.Fixed{Action: cfg.Policy.Action, ObsSize: core.ObservationSize, HiddenSize: cfg.Policy.HiddenSize}, nil
	case "greedy":
		return policy.Greedy{HiddenSize: cfg.Policy.HiddenSize, Deadband: cfg.Policy.Deadband}, nil
	default:
		if cfg.Algorithm.CUDA || cfg.Algorithm.Device != "cpu" {
			logger.Warn().Str("device", cfg.Algorithm.Device).Msg("only cpu inference is available, using cpu")
		}
		actor, err := policy.LoadActor(cfg.Algorithm.ModelDir)
		if err != nil {
			return nil, err
		}
		if actor.ObservationSize() != core.ObservationSize {
			return nil, fmt.Errorf("%w: actor expects %d features, environment produces %d",
				core.ErrShapeMismatch, actor.ObservationSize(), core.ObservationSize)
		}
		return actor, nil
	}
}

// buildOperator returns nil when the provider cannot be set up; the loop runs
// without natural-language commands in that case.
func buildOperator(ctx context.Context, cfg *config.Config, commander *command.Commander, store *position.Store,
	broker messaging.Broker, logger zerolog.Logger) *operator.Operator {
	if cfg.Operator.Provider == "" {
		return nil
	}
	var opts []providers.ProviderOption
	if cfg.Operator.BaseURL != "" {
		opts = append(opts, providers.WithBaseURL(cfg.Operator.BaseURL))
	}
	client, err := providers.New(ctx, cfg.Operator.Provider, opts...)
	if err != nil {
		logger.Warn().Err(err).Msg("operator disabled")
		return nil
	}
	op, err := operator.New(client, commander, store,
		operator.WithModel(cfg.Operator.Model),
		operator.WithBroker(broker),
		operator.WithLogger(logger),
	)
	if err != nil {
		logger.Warn().Err(err).Msg("operator disabled")
		return nil
	}
	op.StartMessageHandler(ctx)
	return op
}
