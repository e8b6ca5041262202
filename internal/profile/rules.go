package profile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Rules are operator-managed rule texts read from <dir>/<user_id>.yaml.
// Non-empty values override the rules stored in the user's profile.
type Rules struct {
	PrioritizingRules string `yaml:"prioritizing_rules"`
	SchedulingRules   string `yaml:"scheduling_rules"`
}

const rulesDebounce = 100 * time.Millisecond

type RulesDir struct {
	dir string

	mu       sync.RWMutex
	rules    map[string]Rules
	onChange func(userID string)

	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

func NewRulesDir(dir string) *RulesDir {
	return &RulesDir{
		dir:    dir,
		rules:  make(map[string]Rules),
		timers: make(map[string]*time.Timer),
	}
}

// OnChange registers fn to be called with the user id whenever a rules file
// is created, changed or removed.
func (d *RulesDir) OnChange(fn func(userID string)) {
	d.mu.Lock()
	d.onChange = fn
	d.mu.Unlock()
}

func (d *RulesDir) Lookup(userID string) (Rules, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rules[userID]
	return r, ok
}

func userIDFromFile(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ".yaml") || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, ".yaml"), true
}

// Load reads every rules file in the directory.
func (d *RulesDir) Load() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("failed to read rules dir %s: %w", d.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if userID, ok := userIDFromFile(e.Name()); ok {
			if err := d.reload(userID); err != nil {
				slog.Warn("failed to load rules file", "user_id", userID, "error", err)
			}
		}
	}
	return nil
}

func (d *RulesDir) reload(userID string) error {
	data, err := os.ReadFile(filepath.Join(d.dir, userID+".yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		d.mu.Lock()
		delete(d.rules, userID)
		d.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("failed to parse rules for %s: %w", userID, err)
	}
	d.mu.Lock()
	d.rules[userID] = r
	d.mu.Unlock()
	return nil
}

// Watch reloads files as they change until ctx is done. Rapid bursts of
// events for one file (atomic save: write + rename) are collapsed.
func (d *RulesDir) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(d.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", d.dir, err)
	}
	slog.Info("watching rules directory", "dir", d.dir)

	for {
		select {
		case <-ctx.Done():
			d.stopTimers()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			userID, ok := userIDFromFile(event.Name)
			if !ok {
				continue
			}
			d.schedule(userID)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("fsnotify error", "error", err)
		}
	}
}

func (d *RulesDir) schedule(userID string) {
	d.timersMu.Lock()
	defer d.timersMu.Unlock()
	if t, ok := d.timers[userID]; ok {
		t.Stop()
	}
	d.timers[userID] = time.AfterFunc(rulesDebounce, func() {
		if err := d.reload(userID); err != nil {
			slog.Warn("failed to reload rules file", "user_id", userID, "error", err)
			return
		}
		slog.Info("rules reloaded", "user_id", userID)
		d.mu.RLock()
		fn := d.onChange
		d.mu.RUnlock()
		if fn != nil {
			fn(userID)
		}
	})
}

func (d *RulesDir) stopTimers() {
	d.timersMu.Lock()
	defer d.timersMu.Unlock()
	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
}
