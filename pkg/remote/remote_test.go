package remote

import (
	"context"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/boristopalov/airwrap/pkg/core"
	"github.com/boristopalov/airwrap/pkg/environment"
)

func startServer(t *testing.T) (*Client, *environment.Kinematic) {
	t.Helper()
	env, err := environment.NewKinematic(environment.KinematicConfig{
		Drones: []environment.DroneSpec{
			{Name: "cf_friend_0", Start: core.Position{X: 0, Y: 0}},
			{Name: "cf_friend_1", Start: core.Position{X: 5, Y: 5}},
		},
		Speed:        1,
		ArriveRadius: 0.5,
		Extent:       100,
		SceneObjects: []environment.SceneObject{{Name: "target_X", Pose: core.Pose{X: 50, Y: 50}}},
	})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	g := NewGRPCServer()
	NewServer(env, zerolog.Nop()).Register(g)
	go func() { _ = g.Serve(lis) }()
	t.Cleanup(g.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn), env
}

func TestRemoteEnvironment(t *testing.T) {
	ctx := context.Background()

	t.Run("reset mirrors remote agents", func(t *testing.T) {
		client, _ := startServer(t)
		obs, err := client.Reset(ctx)
		require.NoError(t, err)
		require.Len(t, obs, 2)

		agents := client.Agents()
		require.Len(t, agents, 2)
		assert.Equal(t, "cf_friend_1", agents[1].Name())
		assert.Equal(t, core.Position{X: 5, Y: 5}, agents[1].Position())
	})

	t.Run("goals travel with the step", func(t *testing.T) {
		client, env := startServer(t)
		_, err := client.Reset(ctx)
		require.NoError(t, err)

		client.Agents()[0].SetGoal(core.Position{X: 3, Y: 0})
		res, err := client.Step(ctx, core.JointAction{core.ActionNorth, core.ActionHold})
		require.NoError(t, err)
		assert.Len(t, res.Observations, 2)
		assert.InDelta(t, -2, res.Rewards[0], 1e-9)

		assert.Equal(t, core.Position{X: 3, Y: 0}, env.Agents()[0].Goal())
		assert.Equal(t, core.Position{X: 1, Y: 0}, client.Agents()[0].Position())
	})

	t.Run("shape errors come back as sentinels", func(t *testing.T) {
		client, _ := startServer(t)
		_, err := client.Reset(ctx)
		require.NoError(t, err)
		_, err = client.Step(ctx, core.JointAction{core.ActionHold})
		require.ErrorIs(t, err, core.ErrShapeMismatch)
	})

	t.Run("scene queries", func(t *testing.T) {
		client, _ := startServer(t)
		pose, err := client.ObjectPose(ctx, "target_X")
		require.NoError(t, err)
		assert.Equal(t, core.Position{X: 50, Y: 50}, pose.Planar())

		_, err = client.ObjectPose(ctx, "nowhere")
		require.ErrorIs(t, err, core.ErrTargetNotFound)

		names, err := client.SceneObjects(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, "target_X")

		vehicles, err := client.Vehicles(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"cf_friend_0", "cf_friend_1"}, vehicles)
	})
}
