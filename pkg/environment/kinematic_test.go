package environment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/airwrap/pkg/core"
)

func newTestWorld(t *testing.T) *Kinematic {
	t.Helper()
	env, err := NewKinematic(KinematicConfig{
		Drones: []DroneSpec{
			{Name: "cf_friend_0", Start: core.Position{X: 0, Y: 0}},
			{Name: "cf_friend_1", Start: core.Position{X: 10, Y: 10}},
		},
		Speed:        2,
		ArriveRadius: 1,
		Extent:       100,
		SceneObjects: []SceneObject{{Name: "people2_5", Pose: core.Pose{X: 50, Y: 50, Z: -3}}},
	})
	require.NoError(t, err)
	return env
}

func TestKinematic(t *testing.T) {
	ctx := context.Background()

	t.Run("reset holds every drone in place", func(t *testing.T) {
		env := newTestWorld(t)
		obs, err := env.Reset(ctx)
		require.NoError(t, err)
		require.Len(t, obs, 2)
		for _, o := range obs {
			assert.Len(t, o, core.ObservationSize)
		}
		for _, a := range env.Agents() {
			assert.Equal(t, a.Position(), a.Goal())
		}
		assert.Equal(t, "idle", env.GetState().Status)
	})

	t.Run("step moves drones by action", func(t *testing.T) {
		env := newTestWorld(t)
		_, err := env.Reset(ctx)
		require.NoError(t, err)

		env.Agents()[0].SetGoal(core.Position{X: 4, Y: 0})
		res, err := env.Step(ctx, core.JointAction{core.ActionNorth, core.ActionWest})
		require.NoError(t, err)

		agents := env.Agents()
		assert.Equal(t, core.Position{X: 2, Y: 0}, agents[0].Position())
		assert.Equal(t, core.Position{X: 10, Y: 8}, agents[1].Position())
		assert.InDelta(t, -2, res.Rewards[0], 1e-9)
		assert.False(t, res.Dones[0])
		assert.InDelta(t, 0.02, res.Observations[0][2], 1e-9)
		assert.Equal(t, uint32(1), env.GetState().Step)

		res, err = env.Step(ctx, core.JointAction{core.ActionNorth, core.ActionHold})
		require.NoError(t, err)
		assert.True(t, res.Dones[0])
	})

	t.Run("positions are clamped to the world", func(t *testing.T) {
		env := newTestWorld(t)
		_, err := env.Reset(ctx)
		require.NoError(t, err)
		for i := 0; i < 100; i++ {
			_, err := env.Step(ctx, core.JointAction{core.ActionSouth, core.ActionHold})
			require.NoError(t, err)
		}
		assert.Equal(t, -100.0, env.Agents()[0].Position().X)
	})

	t.Run("joint action must match drone count", func(t *testing.T) {
		env := newTestWorld(t)
		_, err := env.Step(ctx, core.JointAction{core.ActionHold})
		require.ErrorIs(t, err, core.ErrShapeMismatch)

		_, err = env.Step(ctx, core.JointAction{core.ActionHold, 42})
		require.ErrorIs(t, err, core.ErrShapeMismatch)
	})

	t.Run("scene queries", func(t *testing.T) {
		env := newTestWorld(t)
		pose, err := env.ObjectPose(ctx, "people2_5")
		require.NoError(t, err)
		assert.Equal(t, core.Position{X: 50, Y: 50}, pose.Planar())

		pose, err = env.ObjectPose(ctx, "cf_friend_1")
		require.NoError(t, err)
		assert.Equal(t, core.Position{X: 10, Y: 10}, pose.Planar())

		_, err = env.ObjectPose(ctx, "target_X")
		require.ErrorIs(t, err, core.ErrTargetNotFound)

		names, err := env.SceneObjects(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"cf_friend_0", "cf_friend_1", "people2_5"}, names)

		vehicles, err := env.Vehicles(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"cf_friend_0", "cf_friend_1"}, vehicles)
	})

	t.Run("placed objects become resolvable", func(t *testing.T) {
		env := newTestWorld(t)
		env.PlaceObject("target_X", core.Pose{X: -5, Y: 7})
		pose, err := env.ObjectPose(ctx, "target_X")
		require.NoError(t, err)
		assert.Equal(t, core.Position{X: -5, Y: 7}, pose.Planar())

		env.PlaceObject("target_X", core.Pose{X: 1, Y: 1})
		pose, err = env.ObjectPose(ctx, "target_X")
		require.NoError(t, err)
		assert.Equal(t, core.Position{X: 1, Y: 1}, pose.Planar())
	})

	t.Run("seeded jitter is reproducible", func(t *testing.T) {
		cfg := KinematicConfig{
			Drones: []DroneSpec{{Name: "a"}},
			Speed:  1, Extent: 100, Jitter: 5, Seed: 7,
		}
		e1, err := NewKinematic(cfg)
		require.NoError(t, err)
		e2, err := NewKinematic(cfg)
		require.NoError(t, err)
		o1, err := e1.Reset(ctx)
		require.NoError(t, err)
		o2, err := e2.Reset(ctx)
		require.NoError(t, err)
		assert.Equal(t, o1, o2)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewKinematic(KinematicConfig{Speed: 1, Extent: 1})
		require.Error(t, err)
		_, err = NewKinematic(KinematicConfig{Drones: []DroneSpec{{Name: "a"}, {Name: "a"}}, Speed: 1, Extent: 1})
		require.Error(t, err)
	})
}
