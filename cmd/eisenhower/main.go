package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/kazz187/eisenhower/internal/auth"
	"github.com/kazz187/eisenhower/internal/client"
	"github.com/kazz187/eisenhower/internal/config"
	"github.com/kazz187/eisenhower/pkg/clog"
)

var (
	cli = kingpin.New("eisenhower", "Eisenhower matrix prioritization and scheduling")

	userID    = cli.Flag("user", "User to act for").Envar("EISENHOWER_USER").String()
	envFile   = cli.Flag("env-file", "dotenv file to load").Default(".env").String()
	serverURL = cli.Flag("server", "Base URL of a running eisenhower server; runs in-process when empty").Envar("EISENHOWER_SERVER").String()
	apiToken  = cli.Flag("token", "API token for --server; issued from EISENHOWER_JWT_SECRET when empty").Envar("EISENHOWER_TOKEN").String()

	prioritizeCmd    = cli.Command("prioritize", "Run a prioritization pass")
	prioritizeForce  = prioritizeCmd.Flag("force", "Run even if nothing changed since the last pass").Bool()
	prioritizeDryRun = prioritizeCmd.Flag("dry-run", "Show the assignment without writing it").Bool()
	prioritizeDiff   = prioritizeCmd.Flag("diff", "Print the matrix diff").Default("true").Bool()

	scheduleCmd = cli.Command("schedule", "Run a scheduling pass over every schedulable task")

	eligibleCmd = cli.Command("eligible", "List tasks that automatic scheduling would pick up")

	fingerprintCmd = cli.Command("fingerprint", "Show the current and stored task fingerprint")

	// Task commands go through the server so its orchestrator sees the change.
	addCmd      = cli.Command("add", "Create a task on the server")
	addTitle    = addCmd.Arg("title", "Task title").Required().String()
	addDesc     = addCmd.Flag("description", "Task description").Short('d').String()
	addEvent    = addCmd.Flag("event", "Create an event instead of a deadline task").Bool()
	addCategory = addCmd.Flag("category", "Task category").String()
	addDate     = addCmd.Flag("date", "Task date (YYYY-MM-DD or RFC3339)").String()

	listCmd = cli.Command("list", "List tasks on the server")
	listAll = listCmd.Flag("all", "Include done tasks").Bool()

	doneCmd = cli.Command("done", "Mark a task as done")
	doneID  = doneCmd.Arg("id", "Task ID").Required().String()

	tokenCmd = cli.Command("token", "Issue an API token for the user")
	tokenTTL = tokenCmd.Flag("ttl", "Token lifetime").Default("720h").Duration()
)

var errNoServer = errors.New("--server is required for task commands")

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

func main() {
	command := kingpin.MustParse(cli.Parse(os.Args[1:]))

	env, err := config.LoadEnv(*envFile)
	if err != nil {
		fatal(err)
	}
	slog.SetDefault(clog.NewLogger(os.Stderr, env.Env, env.SlogLevel()))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, command, env); err != nil {
		fatal(err)
	}
}

func run(ctx context.Context, command string, env *config.Env) error {
	if command == tokenCmd.FullCommand() {
		tok, err := issueToken(env, *userID, *tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	}

	var b backend
	if *serverURL != "" {
		tok := *apiToken
		if tok == "" {
			var err error
			if tok, err = issueToken(env, *userID, time.Hour); err != nil {
				return err
			}
		}
		c := client.New(*serverURL, tok, nil)
		switch command {
		case addCmd.FullCommand():
			return runAdd(ctx, c)
		case listCmd.FullCommand():
			return runList(ctx, c)
		case doneCmd.FullCommand():
			return runDone(ctx, c)
		}
		b = remoteBackend{c: c}
	} else {
		switch command {
		case addCmd.FullCommand(), listCmd.FullCommand(), doneCmd.FullCommand():
			return errNoServer
		}
		if *userID == "" {
			return errors.New("--user is required")
		}
		lb, err := newLocalBackend(ctx, env, *userID)
		if err != nil {
			return err
		}
		defer lb.Close()
		b = lb
	}

	switch command {
	case prioritizeCmd.FullCommand():
		return runPrioritize(ctx, b)
	case scheduleCmd.FullCommand():
		return runSchedule(ctx, b, env.Location())
	case eligibleCmd.FullCommand():
		return runEligible(ctx, b)
	case fingerprintCmd.FullCommand():
		return runFingerprint(ctx, b)
	}
	return fmt.Errorf("unknown command %q", command)
}

func fatal(err error) {
	red.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func issueToken(env *config.Env, user string, ttl time.Duration) (string, error) {
	if user == "" {
		return "", errors.New("--user is required to issue a token")
	}
	if env.JWTSecret == "" {
		return "", errors.New("EISENHOWER_JWT_SECRET is not set")
	}
	return auth.GenerateToken([]byte(env.JWTSecret), user, ttl, time.Now())
}
