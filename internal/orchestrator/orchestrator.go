// Package orchestrator turns bus events into debounced automatic
// prioritization and scheduling runs.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/kazz187/eisenhower/internal/eventbus"
	"github.com/kazz187/eisenhower/internal/prioritization"
	"github.com/kazz187/eisenhower/internal/profile"
	"github.com/kazz187/eisenhower/internal/runstate"
	"github.com/kazz187/eisenhower/internal/scheduling"
	"github.com/kazz187/eisenhower/pkg/panicerr"
)

type Prioritizer interface {
	Run(ctx context.Context, userID string, opts prioritization.RunOptions) (*prioritization.RunResult, error)
}

type Scheduler interface {
	Run(ctx context.Context, userID string, trigger scheduling.Trigger) (*scheduling.RunResult, error)
}

type Config struct {
	PrioritizeDebounce time.Duration
	ScheduleDebounce   time.Duration
	// ScheduleCooldown is the minimum gap between two automatic scheduling
	// runs for the same user.
	ScheduleCooldown time.Duration
}

type key struct {
	userID string
	op     runstate.Operation
}

type Orchestrator struct {
	eventBus    *eventbus.Bus
	profiles    profile.Reader
	prioritizer Prioritizer
	scheduler   Scheduler
	config      Config
	now         func() time.Time

	ctx          context.Context
	mutex        sync.Mutex
	closed       bool
	timers       map[key]*time.Timer
	lastSchedule map[string]time.Time
	waitGroup    *conc.WaitGroup
}

func New(eventBus *eventbus.Bus, profiles profile.Reader, prioritizer Prioritizer, scheduler Scheduler, config Config) *Orchestrator {
	return &Orchestrator{
		eventBus:     eventBus,
		profiles:     profiles,
		prioritizer:  prioritizer,
		scheduler:    scheduler,
		config:       config,
		now:          time.Now,
		timers:       make(map[key]*time.Timer),
		lastSchedule: make(map[string]time.Time),
		waitGroup:    conc.NewWaitGroup(),
	}
}

// Start consumes bus events until ctx is done, then cancels pending timers
// and waits for runs already started.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mutex.Lock()
	if o.ctx != nil {
		o.mutex.Unlock()
		return fmt.Errorf("orchestrator is already running")
	}
	// Runs outlive the shutdown signal so they can finish their writes.
	o.ctx = context.WithoutCancel(ctx)
	o.mutex.Unlock()

	subID, events := o.eventBus.Subscribe(256)
	defer o.eventBus.Unsubscribe(subID)

	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return nil
		case ev, ok := <-events:
			if !ok {
				o.shutdown()
				return nil
			}
			o.handle(ctx, ev)
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, ev *eventbus.Event) {
	if ev.UserID == "" {
		return
	}
	switch ev.Type {
	case eventbus.TaskCreated, eventbus.TaskUpdated, eventbus.ProfileUpdated:
		p, err := o.profiles.Get(ctx, ev.UserID)
		if err != nil {
			slog.WarnContext(ctx, "failed to load profile for trigger", "user_id", ev.UserID, "error", err)
			return
		}
		if p.AutoPrioritize {
			o.debounce(ev.UserID, runstate.OpPrioritize, o.config.PrioritizeDebounce)
		}
		if p.AutoSchedule {
			o.debounce(ev.UserID, runstate.OpSchedule, o.config.ScheduleDebounce)
		}
	case eventbus.PrioritizationCompleted:
		o.debounce(ev.UserID, runstate.OpSchedule, o.config.ScheduleDebounce)
	}
}

// debounce (re)starts the timer for userID and op.
func (o *Orchestrator) debounce(userID string, op runstate.Operation, delay time.Duration) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.closed {
		return
	}
	k := key{userID: userID, op: op}
	if t, ok := o.timers[k]; ok {
		t.Stop()
	}
	o.timers[k] = time.AfterFunc(delay, func() { o.fire(k) })
}

func (o *Orchestrator) fire(k key) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.closed {
		return
	}
	delete(o.timers, k)

	if k.op == runstate.OpSchedule && o.config.ScheduleCooldown > 0 {
		if last, ok := o.lastSchedule[k.userID]; ok {
			if wait := o.config.ScheduleCooldown - o.now().Sub(last); wait > 0 {
				o.timers[k] = time.AfterFunc(wait, func() { o.fire(k) })
				return
			}
		}
	}
	ctx := o.ctx
	o.waitGroup.Go(func() {
		err := panicerr.SafeContext(func(ctx context.Context) error {
			return o.run(ctx, k)
		})(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "automatic run failed", "user_id", k.userID, "operation", k.op, "error", err)
		}
	})
}

func (o *Orchestrator) run(ctx context.Context, k key) error {
	switch k.op {
	case runstate.OpPrioritize:
		_, err := o.prioritizer.Run(ctx, k.userID, prioritization.RunOptions{Trigger: prioritization.TriggerAuto})
		return err
	case runstate.OpSchedule:
		res, err := o.scheduler.Run(ctx, k.userID, scheduling.TriggerAuto)
		if err == nil && res.Outcome != scheduling.OutcomeCompleted {
			return nil
		}
		// Failed runs start the cooldown as well.
		o.mutex.Lock()
		o.lastSchedule[k.userID] = o.now()
		o.mutex.Unlock()
		return err
	}
	return nil
}

func (o *Orchestrator) shutdown() {
	o.mutex.Lock()
	o.closed = true
	for k, t := range o.timers {
		t.Stop()
		delete(o.timers, k)
	}
	o.mutex.Unlock()
	o.waitGroup.Wait()
}

// Pending reports whether a debounced run is waiting for userID and op.
func (o *Orchestrator) Pending(userID string, op runstate.Operation) bool {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	_, ok := o.timers[key{userID: userID, op: op}]
	return ok
}
