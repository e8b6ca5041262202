package completion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	claudeagent "github.com/kazz187/claude-agent-sdk-go"

	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/retry"
)

// queryOutput is the part of a query result the completer reads.
type queryOutput struct {
	HasResult bool
	Text      string
	IsError   bool
	SessionID string
}

type queryFunc func(ctx context.Context, prompt string, opts *claudeagent.ClaudeAgentOptions) (queryOutput, error)

func runQuery(ctx context.Context, prompt string, opts *claudeagent.ClaudeAgentOptions) (queryOutput, error) {
	result, err := claudeagent.RunQuerySync(ctx, prompt, opts)
	if err != nil {
		return queryOutput{}, err
	}
	if result.Result == nil {
		return queryOutput{}, nil
	}
	return queryOutput{
		HasResult: true,
		Text:      result.Result.Result,
		IsError:   result.Result.IsError,
		SessionID: result.Result.SessionID,
	}, nil
}

// ClaudeCompleter runs one single-turn query per attempt. Transport errors
// are retried under the policy; an error result from the model is not.
type ClaudeCompleter struct {
	workDir string
	timeout time.Duration
	policy  retry.Policy
	query   queryFunc
}

func NewClaudeCompleter(workDir string, timeout time.Duration, policy retry.Policy) *ClaudeCompleter {
	return &ClaudeCompleter{
		workDir: workDir,
		timeout: timeout,
		policy:  policy,
		query:   runQuery,
	}
}

func (c *ClaudeCompleter) Complete(ctx context.Context, req Request) (string, error) {
	var text string
	err := retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) error {
		out, err := c.once(ctx, req)
		if err != nil {
			slog.WarnContext(ctx, "completion attempt failed",
				"operation", req.Operation, "attempt", attempt, "error", err)
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return "", cerr.NewError(cerr.Unavailable, "completion service unavailable", err)
	}
	return text, nil
}

func (c *ClaudeCompleter) once(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	maxTurns := 1
	opts := &claudeagent.ClaudeAgentOptions{
		SystemPrompt:   req.System,
		Cwd:            c.workDir,
		PermissionMode: claudeagent.PermissionModeDefault,
		MaxTurns:       &maxTurns,
		StderrCallback: func(line string) {
			slog.DebugContext(ctx, "claude stderr", "operation", req.Operation, "line", line)
		},
	}
	started := time.Now()
	result, err := c.query(ctx, req.Prompt, opts)
	if err != nil {
		return "", fmt.Errorf("query: %w", err)
	}
	if !result.HasResult {
		return "", retry.Permanent(ErrEmptyResponse)
	}
	if result.IsError {
		return "", retry.Permanent(fmt.Errorf("%w: %s", ErrModel, result.Text))
	}
	slog.DebugContext(ctx, "completion finished",
		"operation", req.Operation,
		"session_id", result.SessionID,
		"duration", time.Since(started))
	return result.Text, nil
}
