package prioritization

import (
	"context"

	"connectrpc.com/connect"

	"github.com/kazz187/eisenhower/internal/auth"
	"github.com/kazz187/eisenhower/internal/runstate"
	"github.com/kazz187/eisenhower/pkg/connectjson"
)

const (
	PrioritizeProcedure  = "/eisenhower.v1.PrioritizationService/Prioritize"
	GetRunStateProcedure = "/eisenhower.v1.PrioritizationService/GetRunState"
)

type PrioritizeRequest struct {
	Force  bool `json:"force"`
	DryRun bool `json:"dryRun"`
}

type PrioritizeResponse struct {
	Result *RunResult `json:"result"`
}

type GetRunStateRequest struct{}

type GetRunStateResponse struct {
	State *runstate.State `json:"state"`
	// CurrentHash is the fingerprint of the active task set right now; it
	// differs from State.PrioritizationHash when a run is due.
	CurrentHash        string `json:"currentHash"`
	PrioritizeInFlight bool   `json:"prioritizeInFlight"`
	ScheduleInFlight   bool   `json:"scheduleInFlight"`
}

type Server struct {
	service *Service
}

func NewServer(service *Service) *Server {
	return &Server{service: service}
}

func (s *Server) Routes(opts ...connect.HandlerOption) []connectjson.Route {
	return []connectjson.Route{
		connectjson.Unary(PrioritizeProcedure, s.Prioritize, opts...),
		connectjson.Unary(GetRunStateProcedure, s.GetRunState, opts...),
	}
}

func (s *Server) Prioritize(ctx context.Context, req *PrioritizeRequest) (*PrioritizeResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.service.Run(ctx, userID, RunOptions{
		Force:   req.Force,
		DryRun:  req.DryRun,
		Trigger: TriggerManual,
	})
	if err != nil {
		return nil, err
	}
	return &PrioritizeResponse{Result: res}, nil
}

func (s *Server) GetRunState(ctx context.Context, _ *GetRunStateRequest) (*GetRunStateResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	st, hash, err := s.service.State(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &GetRunStateResponse{
		State:              st,
		CurrentHash:        hash,
		PrioritizeInFlight: s.service.tracker.InFlight(userID, runstate.OpPrioritize),
		ScheduleInFlight:   s.service.tracker.InFlight(userID, runstate.OpSchedule),
	}, nil
}
