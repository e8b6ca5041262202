package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/eisenhower/internal/completion"
	"github.com/kazz187/eisenhower/internal/eventbus"
	"github.com/kazz187/eisenhower/internal/profile"
	"github.com/kazz187/eisenhower/internal/runstate"
	"github.com/kazz187/eisenhower/internal/task"
	"github.com/kazz187/eisenhower/internal/tasksync"
	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/clog"
)

type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerAuto   Trigger = "auto"
)

type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeSuppressed Outcome = "suppressed"
)

type RunResult struct {
	RunID      string          `json:"runId"`
	Outcome    Outcome         `json:"outcome"`
	SkipReason string          `json:"skipReason,omitempty"`
	Scheduled  []tasksync.Slot `json:"scheduled,omitempty"`
	// Unscheduled are requested ids the completion left out.
	Unscheduled []string `json:"unscheduled,omitempty"`
	Written     int      `json:"written"`
	Failed      []string `json:"failed,omitempty"`
}

type Service struct {
	tasks      task.Repository
	profiles   profile.Reader
	states     runstate.Repository
	tracker    *runstate.Tracker
	completer  completion.Completer
	syncer     *tasksync.Syncer
	eventBus   *eventbus.Bus
	now        func() time.Time
	defaultLoc *time.Location
}

func NewService(
	tasks task.Repository,
	profiles profile.Reader,
	states runstate.Repository,
	tracker *runstate.Tracker,
	completer completion.Completer,
	syncer *tasksync.Syncer,
	eventBus *eventbus.Bus,
) *Service {
	return &Service{
		tasks:      tasks,
		profiles:   profiles,
		states:     states,
		tracker:    tracker,
		completer:  completer,
		syncer:     syncer,
		eventBus:   eventBus,
		now:        time.Now,
		defaultLoc: time.UTC,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) WithDefaultLocation(loc *time.Location) *Service {
	if loc != nil {
		s.defaultLoc = loc
	}
	return s
}

// Run computes time slots for the user's tasks. An automatic run only
// touches eligible tasks and only when the user opted in; a manual run
// recomputes every schedulable task. Failures are surfaced once and not
// retried.
func (s *Service) Run(ctx context.Context, userID string, trigger Trigger) (*RunResult, error) {
	if userID == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "user id is required", nil).
			AddDetailMessageWithCode("user id must not be empty", "user_id.required")
	}
	runID := ulid.Make().String()
	ctx = clog.ContextWithRun(ctx, userID, string(runstate.OpSchedule), runID)
	clog.AddAttribute(ctx, "trigger", string(trigger))
	result := &RunResult{RunID: runID}

	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if trigger == TriggerAuto && !p.AutoSchedule {
		result.Outcome, result.SkipReason = OutcomeSkipped, "automatic scheduling is disabled"
		return result, nil
	}

	release, ok := s.tracker.TryAcquire(userID, runstate.OpSchedule)
	if !ok {
		if trigger == TriggerManual {
			return nil, cerr.NewError(cerr.Aborted, "a scheduling run is already in progress", nil)
		}
		slog.InfoContext(ctx, "scheduling already in flight, suppressed")
		result.Outcome = OutcomeSuppressed
		return result, nil
	}
	defer release()

	started := s.now()
	if err := s.run(ctx, userID, p, trigger, result); err != nil {
		s.recordFailure(ctx, userID, err)
		return nil, err
	}
	slog.InfoContext(ctx, "scheduling finished",
		"outcome", result.Outcome,
		"scheduled", len(result.Scheduled),
		"unscheduled", len(result.Unscheduled),
		"failed", len(result.Failed),
		"duration", s.now().Sub(started))
	return result, nil
}

func (s *Service) run(ctx context.Context, userID string, p *profile.Profile, trigger Trigger, result *RunResult) error {
	now := s.now()
	loc := p.Location(s.defaultLoc)
	active, err := s.tasks.ListActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	toPlace := Eligible(active, now)
	if trigger == TriggerManual {
		toPlace = Schedulable(active, now)
	}
	if len(toPlace) == 0 {
		result.Outcome, result.SkipReason = OutcomeSkipped, "no tasks need scheduling"
		return nil
	}

	text, err := s.completer.Complete(ctx, BuildPrompt(toPlace, active, p, now, loc))
	if err != nil {
		return cerr.NewError(cerr.Unavailable, "scheduling service unavailable", err)
	}
	requested := make(map[string]bool, len(toPlace))
	for _, t := range toPlace {
		requested[t.ID] = true
	}
	slots, err := ParseSchedule(text, requested)
	if err != nil {
		return cerr.NewError(cerr.Internal, "scheduling response was malformed", err)
	}
	placed := make(map[string]bool, len(slots))
	for _, sl := range slots {
		placed[sl.ID] = true
	}
	for _, t := range toPlace {
		if !placed[t.ID] {
			result.Unscheduled = append(result.Unscheduled, t.ID)
		}
	}
	if len(result.Unscheduled) > 0 {
		slog.WarnContext(ctx, "completion left tasks unscheduled", "ids", result.Unscheduled)
	}

	before := tasksync.Fingerprint(active)
	report := s.syncer.ApplySchedule(ctx, slots, now)
	result.Outcome = OutcomeCompleted
	result.Scheduled = slots
	result.Written = report.Written
	result.Failed = report.Failed

	state, err := s.states.Get(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "failed to load run state", "error", err)
	} else {
		state.LastScheduledAt = &now
		state.LastScheduleError = ""
		// The written ranges move DueDate. When prioritization last saw this
		// exact task set, carry its hash over to the rescheduled set.
		if state.PrioritizationHash != "" && state.PrioritizationHash == before {
			s.refreshPrioritizationHash(ctx, userID, state)
		}
		if err := s.states.Save(ctx, state); err != nil {
			slog.WarnContext(ctx, "failed to save run state", "error", err)
		}
	}
	if s.eventBus != nil {
		s.eventBus.PublishNew(eventbus.ScheduleCompleted, userID, "", map[string]string{
			"trigger":     string(trigger),
			"scheduled":   strconv.Itoa(len(slots)),
			"unscheduled": strconv.Itoa(len(result.Unscheduled)),
		})
	}
	return nil
}

func (s *Service) refreshPrioritizationHash(ctx context.Context, userID string, state *runstate.State) {
	after, err := s.tasks.ListActiveByUser(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "failed to reload tasks for fingerprint", "error", err)
		return
	}
	state.PrioritizationHash = tasksync.Fingerprint(after)
}

func (s *Service) recordFailure(ctx context.Context, userID string, runErr error) {
	slog.ErrorContext(ctx, "scheduling failed", "error", runErr)
	state, err := s.states.Get(ctx, userID)
	if err == nil {
		state.LastScheduleError = runErr.Error()
		err = s.states.Save(ctx, state)
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to record schedule failure", "error", err)
	}
	if s.eventBus != nil {
		s.eventBus.PublishNew(eventbus.ScheduleFailed, userID, "", map[string]string{
			"error": fmt.Sprint(runErr),
		})
	}
}

// Exclusion is an active task left out of automatic scheduling, and why.
type Exclusion struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

// Explain splits the user's active tasks into eligible ones and the rest.
func (s *Service) Explain(ctx context.Context, userID string) ([]*task.Task, []Exclusion, error) {
	if userID == "" {
		return nil, nil, cerr.NewError(cerr.InvalidArgument, "user id is required", nil)
	}
	active, err := s.tasks.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	eligible := []*task.Task{}
	var excluded []Exclusion
	for _, t := range active {
		st := Classify(t, now)
		if st.Eligible() {
			eligible = append(eligible, t)
			continue
		}
		excluded = append(excluded, Exclusion{ID: t.ID, Status: st})
	}
	return eligible, excluded, nil
}
