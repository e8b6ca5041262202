package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kazz187/eisenhower/internal/app"
	"github.com/kazz187/eisenhower/internal/config"
	"github.com/kazz187/eisenhower/internal/eventbus"
	"github.com/kazz187/eisenhower/internal/orchestrator"
	"github.com/kazz187/eisenhower/internal/prioritization"
	"github.com/kazz187/eisenhower/internal/profile"
	"github.com/kazz187/eisenhower/internal/pushnotification"
	pushsubrepo "github.com/kazz187/eisenhower/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/eisenhower/internal/scheduling"
	"github.com/kazz187/eisenhower/internal/task"
	"github.com/kazz187/eisenhower/pkg/clog"
	"github.com/kazz187/eisenhower/pkg/panicerr"

	server "github.com/kazz187/eisenhower/internal"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(clog.NewLogger(os.Stderr, env.Env, env.SlogLevel()))

	if env.JWTSecret == "" {
		slog.Error("EISENHOWER_JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := app.New(ctx, env, nil)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// Setup push notification
	pushSubRepo := pushsubrepo.NewYAMLRepository(a.Storage)
	pushSender := pushnotification.NewSender(&env.PushEnv, pushSubRepo)
	pushNotificationServer := pushnotification.NewServer(&env.PushEnv, pushSubRepo)
	pushDispatcher := pushnotification.NewDispatcher(a.Bus, pushSender)

	srv := server.NewServer(
		env,
		task.NewServer(a.Tasks, a.Bus),
		profile.NewServer(a.Profiles, a.Bus),
		prioritization.NewServer(a.Prioritization),
		scheduling.NewServer(a.Scheduling),
		pushNotificationServer,
		a.Prioritization,
	)

	orch := orchestrator.New(a.Bus, a.ProfileSource, a.Prioritization, a.Scheduling, orchestrator.Config{
		PrioritizeDebounce: env.PrioritizeDebounce,
		ScheduleDebounce:   env.ScheduleDebounce,
		ScheduleCooldown:   env.ScheduleCooldown,
	})
	orchDone := make(chan struct{})
	go func() {
		defer close(orchDone)
		if err := orch.Start(ctx); err != nil {
			slog.Error("orchestrator error", "error", err)
		}
	}()
	go pushDispatcher.Start(ctx)

	if a.Rules != nil {
		// A rules file edit counts as a profile change for the triggers.
		a.Rules.OnChange(func(userID string) {
			a.Bus.PublishNew(eventbus.ProfileUpdated, userID, userID, map[string]string{"source": "rules_dir"})
		})
		panicerr.Go(ctx, a.Rules.Watch, func(err error) {
			slog.Error("rules directory watch stopped", "error", err)
		})
	}

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	select {
	case <-orchDone:
	case <-shutdownCtx.Done():
		slog.Warn("automatic runs still in flight at shutdown")
	}
}
