package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/airwrap/pkg/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "airwrap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults fill the gaps", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, `
algorithm:
  seed: 7
options:
  num_of_drone: 2
`))
		require.NoError(t, err)
		assert.Equal(t, int64(7), cfg.Algorithm.Seed)
		assert.Equal(t, "cpu", cfg.Algorithm.Device)
		assert.Equal(t, "kinematic", cfg.Environment.Type)
		assert.Equal(t, 100*time.Millisecond, cfg.Loop.StepInterval)
		require.Len(t, cfg.Environment.Drones, 2)
		assert.Equal(t, "cf_friend_1", cfg.Environment.Drones[1].Name)
		assert.Equal(t, core.Position{X: 0, Y: 2}, cfg.Environment.Drones[1].Start)
	})

	t.Run("full file", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, `
algorithm:
  device: cpu
  seed: 1
  n_training_threads: 4
  model_dir: /models/actor.json
options:
  num_of_drone: 1
environment:
  type: kinematic
  drones:
    - name: cf_friend_0
      start: {x: 3, y: 4}
  scene_objects:
    - name: people2_5
      pose: {x: 50, y: 50, z: -2}
policy:
  type: greedy
  deadband: 0.01
loop:
  step_interval: 250ms
  mask_done_agents: true
operator:
  provider: gemini
  model: gemini-2.0-flash-exp
logging:
  level: debug
  pretty: true
commands:
  - follow cf_friend_0 people2_5
`))
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Algorithm.NTrainingThreads)
		assert.Equal(t, core.Position{X: 3, Y: 4}, cfg.Environment.Drones[0].Start)
		assert.Equal(t, core.Pose{X: 50, Y: 50, Z: -2}, cfg.Environment.SceneObjects[0].Pose)
		assert.Equal(t, "greedy", cfg.Policy.Type)
		assert.Equal(t, 250*time.Millisecond, cfg.Loop.StepInterval)
		assert.True(t, cfg.Loop.MaskDoneAgents)
		assert.Equal(t, "gemini", cfg.Operator.Provider)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, []string{"follow cf_friend_0 people2_5"}, cfg.Commands)
	})

	t.Run("invalid files", func(t *testing.T) {
		cases := map[string]string{
			"drone count":     "options: {num_of_drone: 2}\nenvironment: {drones: [{name: a}]}",
			"env type":        "environment: {type: airsim}",
			"remote address":  "environment: {type: remote}",
			"policy type":     "policy: {type: transformer}",
			"provider":        "operator: {provider: mystery}",
			"no drones":       "options: {num_of_drone: 0}",
			"malformed yaml":  "options: [",
			"negative thread": "algorithm: {n_training_threads: -1}",
		}
		for name, body := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := LoadConfig(writeConfig(t, body))
				assert.Error(t, err)
			})
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
