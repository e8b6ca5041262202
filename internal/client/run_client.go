package client

import (
	"context"
	"fmt"

	"connectrpc.com/connect"

	"github.com/kazz187/eisenhower/internal/prioritization"
	"github.com/kazz187/eisenhower/internal/scheduling"
	"github.com/kazz187/eisenhower/internal/task"
)

func (c *Client) Prioritize(ctx context.Context, force, dryRun bool) (*prioritization.RunResult, error) {
	resp, err := c.prioritize.CallUnary(ctx, connect.NewRequest(&prioritization.PrioritizeRequest{Force: force, DryRun: dryRun}))
	if err != nil {
		return nil, fmt.Errorf("failed to prioritize: %w", err)
	}
	return resp.Msg.Result, nil
}

func (c *Client) RunState(ctx context.Context) (*prioritization.GetRunStateResponse, error) {
	resp, err := c.getRunState.CallUnary(ctx, connect.NewRequest(&prioritization.GetRunStateRequest{}))
	if err != nil {
		return nil, fmt.Errorf("failed to get run state: %w", err)
	}
	return resp.Msg, nil
}

func (c *Client) Schedule(ctx context.Context) (*scheduling.RunResult, error) {
	resp, err := c.schedule.CallUnary(ctx, connect.NewRequest(&scheduling.ScheduleRequest{}))
	if err != nil {
		return nil, fmt.Errorf("failed to schedule: %w", err)
	}
	return resp.Msg.Result, nil
}

func (c *Client) ListEligible(ctx context.Context) ([]*task.Task, []scheduling.Exclusion, error) {
	resp, err := c.listEligible.CallUnary(ctx, connect.NewRequest(&scheduling.ListEligibleRequest{}))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list eligible tasks: %w", err)
	}
	return resp.Msg.Tasks, resp.Msg.Excluded, nil
}
