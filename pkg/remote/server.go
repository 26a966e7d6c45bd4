package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/boristopalov/airwrap/pkg/core"
)

// Backend is what a Server exposes: an environment that also answers scene queries.
type Backend interface {
	core.Environment
	core.Simulator
}

// EnvironmentService is the server-side contract registered with gRPC.
type EnvironmentService interface {
	Reset(ctx context.Context, req *ResetRequest) (*ResetResponse, error)
	Step(ctx context.Context, req *StepRequest) (*StepResponse, error)
	ObjectPose(ctx context.Context, req *PoseRequest) (*PoseResponse, error)
	SceneObjects(ctx context.Context, req *ListRequest) (*ListResponse, error)
	Vehicles(ctx context.Context, req *ListRequest) (*ListResponse, error)
}

// Server serves a Backend. Reset and Step are serialized; scene queries are not.
type Server struct {
	backend Backend
	logger  zerolog.Logger
	mu      sync.Mutex
}

func NewServer(backend Backend, logger zerolog.Logger) *Server {
	return &Server{
		backend: backend,
		logger:  logger.With().Str("component", "remote").Logger(),
	}
}

// NewGRPCServer returns a grpc.Server that speaks this package's codec.
func NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	return grpc.NewServer(append(opts, grpc.ForceServerCodec(structCodec{}))...)
}

// Register attaches the service to g.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&serviceDesc, s)
}

func (s *Server) Reset(ctx context.Context, _ *ResetRequest) (*ResetResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obs, err := s.backend.Reset(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("reset failed")
		return nil, toStatus(err)
	}
	s.logger.Info().Int("agents", len(obs)).Msg("environment reset")
	return &ResetResponse{Observations: obs, Agents: snapshot(s.backend.Agents())}, nil
}

func (s *Server) Step(ctx context.Context, req *StepRequest) (*StepResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agents := s.backend.Agents()
	if len(req.Goals) > 0 {
		byName := make(map[string]core.Agent, len(agents))
		for _, a := range agents {
			byName[a.Name()] = a
		}
		for name, goal := range req.Goals {
			a, ok := byName[name]
			if !ok {
				return nil, toStatus(fmt.Errorf("%w: %s", core.ErrUnknownAgent, name))
			}
			a.SetGoal(goal)
		}
	}

	res, err := s.backend.Step(ctx, req.Actions)
	if err != nil {
		s.logger.Error().Err(err).Msg("step failed")
		return nil, toStatus(err)
	}
	return &StepResponse{Result: res, Agents: snapshot(agents)}, nil
}

func (s *Server) ObjectPose(ctx context.Context, req *PoseRequest) (*PoseResponse, error) {
	pose, err := s.backend.ObjectPose(ctx, req.Name)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PoseResponse{Pose: pose}, nil
}

func (s *Server) SceneObjects(ctx context.Context, _ *ListRequest) (*ListResponse, error) {
	names, err := s.backend.SceneObjects(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListResponse{Names: names}, nil
}

func (s *Server) Vehicles(ctx context.Context, _ *ListRequest) (*ListResponse, error) {
	names, err := s.backend.Vehicles(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListResponse{Names: names}, nil
}

func snapshot(agents []core.Agent) []core.AgentSnapshot {
	out := make([]core.AgentSnapshot, len(agents))
	for i, a := range agents {
		out[i] = core.AgentSnapshot{Name: a.Name(), Position: a.Position(), Goal: a.Goal()}
	}
	return out
}

func unary[Req, Resp any](name string, call func(EnvironmentService, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			svc := srv.(EnvironmentService)
			if interceptor == nil {
				return call(svc, ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + name}
			return interceptor(ctx, req, info, func(ctx context.Context, r any) (any, error) {
				return call(svc, ctx, r.(*Req))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EnvironmentService)(nil),
	Methods: []grpc.MethodDesc{
		unary("Reset", EnvironmentService.Reset),
		unary("Step", EnvironmentService.Step),
		unary("ObjectPose", EnvironmentService.ObjectPose),
		unary("SceneObjects", EnvironmentService.SceneObjects),
		unary("Vehicles", EnvironmentService.Vehicles),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "airwrap/environment",
}
