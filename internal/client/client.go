// Package client talks to a running eisenhower server over its connect API.
package client

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/kazz187/eisenhower/internal/prioritization"
	"github.com/kazz187/eisenhower/internal/scheduling"
	"github.com/kazz187/eisenhower/internal/task"
	"github.com/kazz187/eisenhower/pkg/connectjson"
)

type Client struct {
	createTask   *connect.Client[task.CreateTaskRequest, task.CreateTaskResponse]
	listTasks    *connect.Client[task.ListTasksRequest, task.ListTasksResponse]
	updateTask   *connect.Client[task.UpdateTaskRequest, task.UpdateTaskResponse]
	prioritize   *connect.Client[prioritization.PrioritizeRequest, prioritization.PrioritizeResponse]
	getRunState  *connect.Client[prioritization.GetRunStateRequest, prioritization.GetRunStateResponse]
	schedule     *connect.Client[scheduling.ScheduleRequest, scheduling.ScheduleResponse]
	listEligible *connect.Client[scheduling.ListEligibleRequest, scheduling.ListEligibleResponse]
}

// New returns a client for the server at baseURL. token is sent as a bearer
// token on every call. A nil httpClient means http.DefaultClient.
func New(baseURL, token string, httpClient connect.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	opts := []connect.ClientOption{connect.WithInterceptors(bearer(token))}
	return &Client{
		createTask:   connectjson.NewClient[task.CreateTaskRequest, task.CreateTaskResponse](httpClient, baseURL, task.CreateTaskProcedure, opts...),
		listTasks:    connectjson.NewClient[task.ListTasksRequest, task.ListTasksResponse](httpClient, baseURL, task.ListTasksProcedure, opts...),
		updateTask:   connectjson.NewClient[task.UpdateTaskRequest, task.UpdateTaskResponse](httpClient, baseURL, task.UpdateTaskProcedure, opts...),
		prioritize:   connectjson.NewClient[prioritization.PrioritizeRequest, prioritization.PrioritizeResponse](httpClient, baseURL, prioritization.PrioritizeProcedure, opts...),
		getRunState:  connectjson.NewClient[prioritization.GetRunStateRequest, prioritization.GetRunStateResponse](httpClient, baseURL, prioritization.GetRunStateProcedure, opts...),
		schedule:     connectjson.NewClient[scheduling.ScheduleRequest, scheduling.ScheduleResponse](httpClient, baseURL, scheduling.ScheduleProcedure, opts...),
		listEligible: connectjson.NewClient[scheduling.ListEligibleRequest, scheduling.ListEligibleResponse](httpClient, baseURL, scheduling.ListEligibleProcedure, opts...),
	}
}

func bearer(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token != "" {
				req.Header().Set("Authorization", "Bearer "+token)
			}
			return next(ctx, req)
		}
	}
}
