package scheduling

import (
	"context"

	"connectrpc.com/connect"

	"github.com/kazz187/eisenhower/internal/auth"
	"github.com/kazz187/eisenhower/internal/task"
	"github.com/kazz187/eisenhower/pkg/connectjson"
)

const (
	ScheduleProcedure     = "/eisenhower.v1.SchedulingService/Schedule"
	ListEligibleProcedure = "/eisenhower.v1.SchedulingService/ListEligible"
)

type ScheduleRequest struct{}

type ScheduleResponse struct {
	Result *RunResult `json:"result"`
}

type ListEligibleRequest struct{}

type ListEligibleResponse struct {
	Tasks    []*task.Task `json:"tasks"`
	Excluded []Exclusion  `json:"excluded"`
}

type Server struct {
	service *Service
}

func NewServer(service *Service) *Server {
	return &Server{service: service}
}

func (s *Server) Routes(opts ...connect.HandlerOption) []connectjson.Route {
	return []connectjson.Route{
		connectjson.Unary(ScheduleProcedure, s.Schedule, opts...),
		connectjson.Unary(ListEligibleProcedure, s.ListEligible, opts...),
	}
}

// Schedule runs a manual scheduling pass for the caller.
func (s *Server) Schedule(ctx context.Context, _ *ScheduleRequest) (*ScheduleResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.service.Run(ctx, userID, TriggerManual)
	if err != nil {
		return nil, err
	}
	return &ScheduleResponse{Result: res}, nil
}

func (s *Server) ListEligible(ctx context.Context, _ *ListEligibleRequest) (*ListEligibleResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	tasks, excluded, err := s.service.Explain(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ListEligibleResponse{Tasks: tasks, Excluded: excluded}, nil
}
