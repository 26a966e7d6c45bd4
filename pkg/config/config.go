// Package config loads the controller's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/boristopalov/airwrap/pkg/environment"
)

type Config struct {
	Algorithm   AlgorithmConfig `yaml:"algorithm"`
	Options     OptionsConfig   `yaml:"options"`
	Environment EnvConfig       `yaml:"environment"`
	Policy      PolicyConfig    `yaml:"policy"`
	Loop        LoopConfig      `yaml:"loop"`
	Operator    OperatorConfig  `yaml:"operator"`
	Logging     LogConfig       `yaml:"logging"`
	Commands    []string        `yaml:"commands"`
}

// AlgorithmConfig carries the settings the policy was trained and exported with.
type AlgorithmConfig struct {
	Device            string `yaml:"device"`
	Seed              int64  `yaml:"seed"`
	NTrainingThreads  int    `yaml:"n_training_threads"`
	ModelDir          string `yaml:"model_dir"`
	CUDA              bool   `yaml:"cuda"`
	CUDADeterministic bool   `yaml:"cuda_deterministic"`
}

type OptionsConfig struct {
	NumOfDrone int `yaml:"num_of_drone"`
}

type EnvConfig struct {
	Type         string                    `yaml:"type"` // kinematic or remote
	Address      string                    `yaml:"address"`
	Drones       []environment.DroneSpec   `yaml:"drones"`
	Speed        float64                   `yaml:"speed"`
	ArriveRadius float64                   `yaml:"arrive_radius"`
	Extent       float64                   `yaml:"extent"`
	Jitter       float64                   `yaml:"jitter"`
	SceneObjects []environment.SceneObject `yaml:"scene_objects"`
}

type PolicyConfig struct {
	Type       string  `yaml:"type"` // actor, fixed or greedy
	Action     int     `yaml:"action"`
	HiddenSize int     `yaml:"hidden_size"`
	Deadband   float64 `yaml:"deadband"`
}

type LoopConfig struct {
	StepInterval   time.Duration `yaml:"step_interval"`
	MaskDoneAgents bool          `yaml:"mask_done_agents"`
	History        int           `yaml:"history"`
}

type OperatorConfig struct {
	Provider string `yaml:"provider"` // openai or gemini
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
	File   string `yaml:"file"`
}

// Defaults returns the configuration used for any key the file leaves out.
func Defaults() Config {
	return Config{
		Algorithm: AlgorithmConfig{
			Device:           "cpu",
			Seed:             1,
			NTrainingThreads: 1,
			ModelDir:         "models/actor.json",
		},
		Options: OptionsConfig{NumOfDrone: 3},
		Environment: EnvConfig{
			Type:         "kinematic",
			Speed:        1,
			ArriveRadius: 1,
			Extent:       1000,
		},
		Policy: PolicyConfig{
			Type:       "actor",
			HiddenSize: 64,
		},
		Loop: LoopConfig{
			StepInterval: 100 * time.Millisecond,
			History:      256,
		},
		Operator: OperatorConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Logging: LogConfig{Level: "info"},
	}
}

// LoadConfig reads path over Defaults, fills in the drone roster and validates.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.fillDrones()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// fillDrones generates cf_friend_<i> drones in a row when none are listed.
func (c *Config) fillDrones() {
	if len(c.Environment.Drones) > 0 || c.Options.NumOfDrone <= 0 {
		return
	}
	c.Environment.Drones = make([]environment.DroneSpec, c.Options.NumOfDrone)
	for i := range c.Environment.Drones {
		c.Environment.Drones[i] = environment.DroneSpec{
			Name: fmt.Sprintf("cf_friend_%d", i),
		}
		c.Environment.Drones[i].Start.Y = float64(i) * 2
	}
}

func (c *Config) Validate() error {
	if c.Options.NumOfDrone <= 0 {
		return fmt.Errorf("options.num_of_drone must be positive, got %d", c.Options.NumOfDrone)
	}
	if c.Algorithm.NTrainingThreads < 0 {
		return fmt.Errorf("algorithm.n_training_threads must not be negative")
	}

	switch c.Environment.Type {
	case "kinematic":
		if len(c.Environment.Drones) != c.Options.NumOfDrone {
			return fmt.Errorf("environment.drones lists %d drones, options.num_of_drone is %d",
				len(c.Environment.Drones), c.Options.NumOfDrone)
		}
	case "remote":
		if c.Environment.Address == "" {
			return fmt.Errorf("environment.address is required for a remote environment")
		}
	default:
		return fmt.Errorf("unknown environment type %q", c.Environment.Type)
	}

	switch c.Policy.Type {
	case "actor":
		if c.Algorithm.ModelDir == "" {
			return fmt.Errorf("algorithm.model_dir is required for the actor policy")
		}
	case "fixed", "greedy":
		if c.Policy.HiddenSize <= 0 {
			return fmt.Errorf("policy.hidden_size must be positive")
		}
	default:
		return fmt.Errorf("unknown policy type %q", c.Policy.Type)
	}

	switch c.Operator.Provider {
	case "", "openai", "gemini":
	default:
		return fmt.Errorf("unknown operator provider %q", c.Operator.Provider)
	}

	if c.Loop.StepInterval < 0 {
		return fmt.Errorf("loop.step_interval must not be negative")
	}
	return nil
}
