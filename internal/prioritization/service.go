package prioritization

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/eisenhower/internal/eventbus"
	"github.com/kazz187/eisenhower/internal/profile"
	"github.com/kazz187/eisenhower/internal/runstate"
	"github.com/kazz187/eisenhower/internal/task"
	"github.com/kazz187/eisenhower/internal/tasksync"
	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/clog"
)

type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeSuppressed Outcome = "suppressed"
)

type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerAuto   Trigger = "auto"
)

type RunOptions struct {
	// Force ignores a matching fingerprint.
	Force   bool
	Trigger Trigger
	// DryRun computes the assignment without writing anything.
	DryRun bool
}

type RunResult struct {
	RunID      string       `json:"runId"`
	Outcome    Outcome      `json:"outcome"`
	Assignment *Assignment  `json:"assignment,omitempty"`
	Fallback   FailureClass `json:"fallback,omitempty"`
	Swept      []string     `json:"swept,omitempty"`
	Written    int          `json:"written"`
	Failed     []string     `json:"failed,omitempty"`
	Hash       string       `json:"hash"`
	Changes    []Change     `json:"changes,omitempty"`
	Diff       string       `json:"diff,omitempty"`
}

type Service struct {
	tasks       task.Repository
	profiles    profile.Reader
	states      runstate.Repository
	tracker     *runstate.Tracker
	prioritizer *Prioritizer
	syncer      *tasksync.Syncer
	eventBus    *eventbus.Bus
	now         func() time.Time
	defaultLoc  *time.Location
}

func NewService(
	tasks task.Repository,
	profiles profile.Reader,
	states runstate.Repository,
	tracker *runstate.Tracker,
	prioritizer *Prioritizer,
	syncer *tasksync.Syncer,
	eventBus *eventbus.Bus,
) *Service {
	return &Service{
		tasks:       tasks,
		profiles:    profiles,
		states:      states,
		tracker:     tracker,
		prioritizer: prioritizer,
		syncer:      syncer,
		eventBus:    eventBus,
		now:         time.Now,
		defaultLoc:  time.UTC,
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

// Run prioritizes the user's active tasks:
// sweep null priorities, short-circuit on an unchanged fingerprint, place
// events by date, ask the model for the rest, reconcile and persist.
func (s *Service) Run(ctx context.Context, userID string, opts RunOptions) (*RunResult, error) {
	if userID == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "user id is required", nil).
			AddDetailMessageWithCode("user id must not be empty", "user_id.required")
	}
	if opts.Trigger == "" {
		opts.Trigger = TriggerManual
	}
	runID := ulid.Make().String()
	ctx = clog.ContextWithRun(ctx, userID, string(runstate.OpPrioritize), runID)
	clog.AddAttribute(ctx, "trigger", string(opts.Trigger))

	tasks, err := s.tasks.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, cerr.NewError(cerr.FailedPrecondition, "no active tasks to prioritize", nil)
	}

	release, ok := s.tracker.TryAcquire(userID, runstate.OpPrioritize)
	if !ok {
		slog.InfoContext(ctx, "prioritization already in flight, suppressed")
		return &RunResult{RunID: runID, Outcome: OutcomeSuppressed}, nil
	}
	defer release()

	started := s.now()
	result, err := s.run(ctx, userID, tasks, opts)
	if err != nil {
		return nil, err
	}
	result.RunID = runID
	slog.InfoContext(ctx, "prioritization finished",
		"outcome", result.Outcome,
		"fallback", result.Fallback,
		"tasks", len(tasks),
		"swept", len(result.Swept),
		"written", result.Written,
		"failed", len(result.Failed),
		"duration", s.now().Sub(started))
	return result, nil
}

func (s *Service) run(ctx context.Context, userID string, tasks []*task.Task, opts RunOptions) (*RunResult, error) {
	now := s.now()
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	state, err := s.states.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	hash := tasksync.Fingerprint(tasks)
	result := &RunResult{Hash: hash}

	before := tasks
	var pinned []string
	if !opts.DryRun {
		var report tasksync.Report
		tasks, pinned, report = s.syncer.SweepNullPriority(ctx, tasks, now)
		result.Swept = pinned
		result.Written += report.Written
		result.Failed = append(result.Failed, report.Failed...)
	}

	if hash == state.PrioritizationHash && !opts.Force {
		result.Outcome = OutcomeSkipped
		if len(result.Swept) > 0 {
			// Swept tasks were re-prioritized and may need a new slot.
			s.publishCompleted(userID, opts.Trigger, map[string]string{"swept": strconv.Itoa(len(result.Swept))})
		}
		return result, nil
	}

	loc := p.Location(s.defaultLoc)
	pre := Preclassify(tasks, now, loc)
	pinnedSet := make(map[string]bool, len(pinned))
	for _, id := range pinned {
		pinnedSet[id] = true
	}
	var aiTasks []*task.Task
	for _, t := range tasks {
		if !t.IsEvent() && !pinnedSet[t.ID] {
			aiTasks = append(aiTasks, t)
		}
	}
	pr := s.prioritizer.Prioritize(ctx, Input{
		Tasks:    aiTasks,
		Rules:    p.PrioritizingRules,
		Tier:     p.EffectiveTier(),
		Now:      now,
		Location: loc,
	})
	final := Reconcile(pr.Assignment, pre, tasks, pinned)
	result.Assignment = &final
	result.Fallback = pr.Fallback
	result.Outcome = OutcomeCompleted
	result.Changes = Changes(before, final)
	if diff, err := Diff(before, final); err == nil {
		result.Diff = diff
	}
	if opts.DryRun {
		return result, nil
	}

	report := s.syncer.ApplyAssignment(ctx, tasks, Placements(final), now)
	result.Written += report.Written
	result.Failed = append(result.Failed, report.Failed...)

	state.PrioritizationHash = hash
	state.LastPrioritizedAt = &now
	if err := s.states.Save(ctx, state); err != nil {
		// The assignment is already persisted; the next run just won't skip.
		slog.WarnContext(ctx, "failed to save run state", "error", err)
	}
	s.publishCompleted(userID, opts.Trigger, map[string]string{"fallback": string(pr.Fallback)})
	return result, nil
}

func (s *Service) publishCompleted(userID string, trigger Trigger, metadata map[string]string) {
	if s.eventBus == nil {
		return
	}
	metadata["trigger"] = string(trigger)
	s.eventBus.PublishNew(eventbus.PrioritizationCompleted, userID, "", metadata)
}

// Placements flattens an assignment in quadrant order, DO first.
func Placements(a Assignment) []tasksync.Placement {
	out := make([]tasksync.Placement, 0, a.Total())
	for _, q := range task.Quadrants {
		for _, id := range a.List(q) {
			out = append(out, tasksync.Placement{ID: id, Priority: q, Reasoning: a.Reasoning.Individual[id]})
		}
	}
	return out
}

// State returns the stored run state plus the fingerprint of the current
// active task set.
func (s *Service) State(ctx context.Context, userID string) (*runstate.State, string, error) {
	if userID == "" {
		return nil, "", cerr.NewError(cerr.InvalidArgument, "user id is required", nil)
	}
	st, err := s.states.Get(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	tasks, err := s.tasks.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	return st, tasksync.Fingerprint(tasks), nil
}
