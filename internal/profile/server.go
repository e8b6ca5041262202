package profile

import (
	"context"
	"fmt"
	"time"

	"connectrpc.com/connect"

	"github.com/kazz187/eisenhower/internal/auth"
	"github.com/kazz187/eisenhower/internal/eventbus"
	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/connectjson"
)

const (
	GetProfileProcedure    = "/eisenhower.v1.ProfileService/GetProfile"
	UpdateProfileProcedure = "/eisenhower.v1.ProfileService/UpdateProfile"
)

type GetProfileRequest struct{}

type GetProfileResponse struct {
	Profile *Profile `json:"profile"`
}

type UpdateProfileRequest struct {
	PrioritizingRules *string `json:"prioritizingRules,omitempty"`
	SchedulingRules   *string `json:"schedulingRules,omitempty"`
	Tier              *Tier   `json:"tier,omitempty"`
	AutoPrioritize    *bool   `json:"autoPrioritize,omitempty"`
	AutoSchedule      *bool   `json:"autoSchedule,omitempty"`
	Timezone          *string `json:"timezone,omitempty"`
	WorkdayStart      *string `json:"workdayStart,omitempty"`
	WorkdayEnd        *string `json:"workdayEnd,omitempty"`
}

type UpdateProfileResponse struct {
	Profile *Profile `json:"profile"`
}

type Server struct {
	repo     Repository
	eventBus *eventbus.Bus
}

func NewServer(repo Repository, eventBus *eventbus.Bus) *Server {
	return &Server{repo: repo, eventBus: eventBus}
}

func (s *Server) Routes(opts ...connect.HandlerOption) []connectjson.Route {
	return []connectjson.Route{
		connectjson.Unary(GetProfileProcedure, s.GetProfile, opts...),
		connectjson.Unary(UpdateProfileProcedure, s.UpdateProfile, opts...),
	}
}

func (s *Server) GetProfile(ctx context.Context, _ *GetProfileRequest) (*GetProfileResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &GetProfileResponse{Profile: p}, nil
}

func (s *Server) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*UpdateProfileResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := req.apply(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.eventBus.PublishNew(eventbus.ProfileUpdated, userID, userID, nil)
	return &UpdateProfileResponse{Profile: p}, nil
}

func (req *UpdateProfileRequest) apply(p *Profile) error {
	invalid := cerr.NewError(cerr.InvalidArgument, "invalid profile", nil)
	if req.Tier != nil {
		if *req.Tier != TierFree && *req.Tier != TierPro {
			invalid.AddDetailMessageWithCode(fmt.Sprintf("unknown tier %q", *req.Tier), "tier.enum")
		}
		p.Tier = *req.Tier
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			invalid.AddDetailMessageWithCode(fmt.Sprintf("unknown timezone %q", *req.Timezone), "timezone.iana")
		}
		p.Timezone = *req.Timezone
	}
	if req.WorkdayStart != nil {
		p.WorkdayStart = *req.WorkdayStart
	}
	if req.WorkdayEnd != nil {
		p.WorkdayEnd = *req.WorkdayEnd
	}
	start, end := p.Workday()
	startT, errStart := time.Parse("15:04", start)
	endT, errEnd := time.Parse("15:04", end)
	switch {
	case errStart != nil || errEnd != nil:
		invalid.AddDetailMessageWithCode("workday bounds must be HH:MM", "workday.format")
	case !endT.After(startT):
		invalid.AddDetailMessageWithCode("workday end must be after start", "workday.order")
	}
	if len(invalid.Details) > 0 {
		return invalid
	}

	if req.PrioritizingRules != nil {
		p.PrioritizingRules = *req.PrioritizingRules
	}
	if req.SchedulingRules != nil {
		p.SchedulingRules = *req.SchedulingRules
	}
	if req.AutoPrioritize != nil {
		p.AutoPrioritize = *req.AutoPrioritize
	}
	if req.AutoSchedule != nil {
		p.AutoSchedule = *req.AutoSchedule
	}
	return nil
}
