package runstate

import "sync"

type Operation string

const (
	OpPrioritize Operation = "prioritize"
	OpSchedule   Operation = "schedule"
)

type key struct {
	userID string
	op     Operation
}

// Tracker holds the in-flight flags: at most one run per user and operation.
// A run started while another is in flight does not queue.
type Tracker struct {
	mu       sync.Mutex
	inFlight map[key]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{inFlight: make(map[key]struct{})}
}

// TryAcquire marks the run in flight. It returns a release func and true, or
// nil and false when a run is already in flight.
func (t *Tracker) TryAcquire(userID string, op Operation) (release func(), ok bool) {
	k := key{userID: userID, op: op}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.inFlight[k]; busy {
		return nil, false
	}
	t.inFlight[k] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.inFlight, k)
			t.mu.Unlock()
		})
	}, true
}

func (t *Tracker) InFlight(userID string, op Operation) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, busy := t.inFlight[key{userID: userID, op: op}]
	return busy
}
