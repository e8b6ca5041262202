package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env       string `envconfig:"ENV" default:"local"`
	HTTPHost  string `envconfig:"HTTP_HOST" default:""`
	HTTPPort  string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"debug"`
	JWTSecret string `envconfig:"JWT_SECRET"`
	// Timezone is the fallback for users without one in their profile.
	Timezone string `envconfig:"TIMEZONE" default:"UTC"`
}

type StorageEnv struct {
	// Type is "local", "s3" or "memory" (nothing survives the process).
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".eisenhower/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"eisenhower/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`

	// TaskStore selects the task repository: "yaml" (on Storage) or "postgres".
	TaskStore   string `envconfig:"TASK_STORE" default:"yaml"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
}

type CompletionEnv struct {
	Timeout     time.Duration `envconfig:"COMPLETION_TIMEOUT" default:"60s"`
	MaxAttempts int           `envconfig:"COMPLETION_MAX_ATTEMPTS" default:"3"`
	BaseDelay   time.Duration `envconfig:"COMPLETION_BASE_DELAY" default:"1s"`
	WorkDir     string        `envconfig:"COMPLETION_WORK_DIR" default:"."`
}

type OrchestratorEnv struct {
	PrioritizeDebounce time.Duration `envconfig:"PRIORITIZE_DEBOUNCE" default:"3s"`
	ScheduleDebounce   time.Duration `envconfig:"SCHEDULE_DEBOUNCE" default:"5s"`
	ScheduleCooldown   time.Duration `envconfig:"SCHEDULE_COOLDOWN" default:"1m"`
	PersistConcurrency int           `envconfig:"PERSIST_CONCURRENCY" default:"8"`
	RulesDir           string        `envconfig:"RULES_DIR"`
}

type PushEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT" default:"mailto:admin@example.com"`
}

type Env struct {
	BaseEnv
	StorageEnv
	CompletionEnv
	OrchestratorEnv
	PushEnv
}

const namespace = "EISENHOWER"

// LoadEnv reads .env files (when present) into the process environment and
// then processes EISENHOWER_* variables. Variables already set win over .env.
func LoadEnv(dotenvFiles ...string) (*Env, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) validate() error {
	switch e.StorageEnv.Type {
	case "local", "s3", "memory":
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", e.StorageEnv.Type)
	}
	switch e.TaskStore {
	case "yaml":
	case "postgres":
		if e.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when TASK_STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown TASK_STORE %q", e.TaskStore)
	}
	if _, err := time.LoadLocation(e.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", e.Timezone, err)
	}
	return nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

// Location returns the configured default timezone, UTC if it does not load.
func (e *BaseEnv) Location() *time.Location {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (e *BaseEnv) Addr() string {
	return fmt.Sprintf("%s:%s", e.HTTPHost, e.HTTPPort)
}
