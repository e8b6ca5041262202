package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/eisenhower/internal/auth"
	"github.com/kazz187/eisenhower/internal/config"
	"github.com/kazz187/eisenhower/internal/prioritization"
	"github.com/kazz187/eisenhower/internal/profile"
	"github.com/kazz187/eisenhower/internal/pushnotification"
	"github.com/kazz187/eisenhower/internal/scheduling"
	"github.com/kazz187/eisenhower/internal/task"
	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/clog"
	"github.com/kazz187/eisenhower/pkg/connectjson"
)

type Server struct {
	server                 *http.Server
	env                    *config.Env
	taskServer             *task.Server
	profileServer          *profile.Server
	prioritizationServer   *prioritization.Server
	schedulingServer       *scheduling.Server
	pushNotificationServer *pushnotification.Server
	prioritizationService  *prioritization.Service
}

func NewServer(
	env *config.Env,
	taskServer *task.Server,
	profileServer *profile.Server,
	prioritizationServer *prioritization.Server,
	schedulingServer *scheduling.Server,
	pushNotificationServer *pushnotification.Server,
	prioritizationService *prioritization.Service,
) *Server {
	return &Server{
		env:                    env,
		taskServer:             taskServer,
		profileServer:          profileServer,
		prioritizationServer:   prioritizationServer,
		schedulingServer:       schedulingServer,
		pushNotificationServer: pushNotificationServer,
		prioritizationService:  prioritizationService,
	}
}

// Handler builds the full HTTP handler: health, /api chi routes and the
// connect services behind the JWT middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		r.Get("/fingerprint", s.fingerprint)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()

	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)
	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker(
		"eisenhower.v1.TaskService",
		"eisenhower.v1.ProfileService",
		"eisenhower.v1.PrioritizationService",
		"eisenhower.v1.SchedulingService",
		"eisenhower.v1.PushService",
	)))

	handlerOpts := connect.WithInterceptors(s.interceptors()...)
	connectjson.Mount(mux, s.taskServer.Routes(handlerOpts)...)
	connectjson.Mount(mux, s.profileServer.Routes(handlerOpts)...)
	connectjson.Mount(mux, s.prioritizationServer.Routes(handlerOpts)...)
	connectjson.Mount(mux, s.schedulingServer.Routes(handlerOpts)...)
	connectjson.Mount(mux, s.pushNotificationServer.Routes(handlerOpts)...)

	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(auth.New([]byte(s.env.JWTSecret)).Wrap(mux))
}

// ListenAndServe starts the HTTP server. ctx is the base context of every
// request.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.env.Addr()
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     h2c.NewHandler(s.Handler(), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) interceptors() []connect.Interceptor {
	return []connect.Interceptor{
		clog.NewSlogConnectInterceptor(),
		cerr.NewConvertConnectErrorInterceptor(),
	}
}

type fingerprintResponse struct {
	UserID      string `json:"userId"`
	CurrentHash string `json:"currentHash"`
	StoredHash  string `json:"storedHash"`
	Changed     bool   `json:"changed"`
}

func (s *Server) fingerprint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	st, hash, err := s.prioritizationService.State(ctx, userID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &fingerprintResponse{
		UserID:      userID,
		CurrentHash: hash,
		StoredHash:  st.PrioritizationHash,
		Changed:     hash != st.PrioritizationHash,
	})
}
