package client

import (
	"context"
	"fmt"

	"connectrpc.com/connect"

	"github.com/kazz187/eisenhower/internal/task"
)

// CreateTask creates a new task
func (c *Client) CreateTask(ctx context.Context, req *task.CreateTaskRequest) (*task.Task, error) {
	resp, err := c.createTask.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return resp.Msg.Task, nil
}

// ListTasks lists the caller's tasks
func (c *Client) ListTasks(ctx context.Context, includeDone bool) ([]*task.Task, error) {
	resp, err := c.listTasks.CallUnary(ctx, connect.NewRequest(&task.ListTasksRequest{IncludeDone: includeDone}))
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return resp.Msg.Tasks, nil
}

// CompleteTask marks a task as done
func (c *Client) CompleteTask(ctx context.Context, taskID string) (*task.Task, error) {
	done := true
	resp, err := c.updateTask.CallUnary(ctx, connect.NewRequest(&task.UpdateTaskRequest{ID: taskID, IsDone: &done}))
	if err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}
	return resp.Msg.Task, nil
}
