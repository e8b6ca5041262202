package pushnotification

import (
	"context"
	"time"

	"connectrpc.com/connect"

	"github.com/kazz187/eisenhower/internal/auth"
	"github.com/kazz187/eisenhower/internal/config"
	"github.com/kazz187/eisenhower/internal/pushsubscription"
	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/connectjson"
)

const (
	GetVapidPublicKeyProcedure      = "/eisenhower.v1.PushService/GetVapidPublicKey"
	RegisterSubscriptionProcedure   = "/eisenhower.v1.PushService/RegisterSubscription"
	UnregisterSubscriptionProcedure = "/eisenhower.v1.PushService/UnregisterSubscription"
)

type GetVapidPublicKeyRequest struct{}

type GetVapidPublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

type RegisterSubscriptionRequest struct {
	Endpoint  string `json:"endpoint"`
	P256dhKey string `json:"p256dhKey"`
	AuthKey   string `json:"authKey"`
}

type RegisterSubscriptionResponse struct{}

type UnregisterSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
}

type UnregisterSubscriptionResponse struct{}

type Server struct {
	pushEnv *config.PushEnv
	repo    pushsubscription.Repository
}

func NewServer(pushEnv *config.PushEnv, repo pushsubscription.Repository) *Server {
	return &Server{pushEnv: pushEnv, repo: repo}
}

func (s *Server) Routes(opts ...connect.HandlerOption) []connectjson.Route {
	return []connectjson.Route{
		connectjson.Unary(GetVapidPublicKeyProcedure, s.GetVapidPublicKey, opts...),
		connectjson.Unary(RegisterSubscriptionProcedure, s.RegisterSubscription, opts...),
		connectjson.Unary(UnregisterSubscriptionProcedure, s.UnregisterSubscription, opts...),
	}
}

func (s *Server) GetVapidPublicKey(_ context.Context, _ *GetVapidPublicKeyRequest) (*GetVapidPublicKeyResponse, error) {
	if s.pushEnv.VAPIDPublicKey == "" {
		return nil, cerr.NewError(cerr.FailedPrecondition, "VAPID keys not configured", nil)
	}
	return &GetVapidPublicKeyResponse{PublicKey: s.pushEnv.VAPIDPublicKey}, nil
}

// RegisterSubscription is idempotent per endpoint: registering it again
// replaces the keys.
func (s *Server) RegisterSubscription(ctx context.Context, req *RegisterSubscriptionRequest) (*RegisterSubscriptionResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	invalid := cerr.NewError(cerr.InvalidArgument, "invalid push subscription", nil)
	if req.Endpoint == "" {
		invalid.AddDetailMessageWithCode("endpoint is required", "endpoint.required")
	}
	if req.P256dhKey == "" {
		invalid.AddDetailMessageWithCode("p256dhKey is required", "p256dh_key.required")
	}
	if req.AuthKey == "" {
		invalid.AddDetailMessageWithCode("authKey is required", "auth_key.required")
	}
	if len(invalid.Details) > 0 {
		return nil, invalid
	}

	sub := pushsubscription.New(userID, req.Endpoint, req.P256dhKey, req.AuthKey, time.Now())
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}
	return &RegisterSubscriptionResponse{}, nil
}

func (s *Server) UnregisterSubscription(ctx context.Context, req *UnregisterSubscriptionRequest) (*UnregisterSubscriptionResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	if req.Endpoint == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "endpoint is required", nil)
	}
	if err := s.repo.DeleteByEndpoint(ctx, userID, req.Endpoint); err != nil {
		return nil, err
	}
	return &UnregisterSubscriptionResponse{}, nil
}
