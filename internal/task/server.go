package task

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/eisenhower/internal/auth"
	"github.com/kazz187/eisenhower/internal/eventbus"
	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/connectjson"
)

const (
	CreateTaskProcedure = "/eisenhower.v1.TaskService/CreateTask"
	ListTasksProcedure  = "/eisenhower.v1.TaskService/ListTasks"
	UpdateTaskProcedure = "/eisenhower.v1.TaskService/UpdateTask"
)

type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        Type       `json:"type"`
	Category    string     `json:"category"`
	TaskDate    *time.Time `json:"taskDate,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
}

type CreateTaskResponse struct {
	Task *Task `json:"task"`
}

type ListTasksRequest struct {
	IncludeDone bool `json:"includeDone"`
}

type ListTasksResponse struct {
	Tasks []*Task `json:"tasks"`
}

type UpdateTaskRequest struct {
	ID          string     `json:"id"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Category    *string    `json:"category,omitempty"`
	TaskDate    *time.Time `json:"taskDate,omitempty"`
	IsDone      *bool      `json:"isDone,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	// Setting StartDate or EndDate by hand locks the task against automatic
	// scheduling unless AIScheduleLocked is given explicitly.
	StartDate        *time.Time `json:"startDate,omitempty"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	AIScheduleLocked *bool      `json:"aiScheduleLocked,omitempty"`
}

type UpdateTaskResponse struct {
	Task *Task `json:"task"`
}

type Server struct {
	repo     Repository
	eventBus *eventbus.Bus
	now      func() time.Time
}

func NewServer(repo Repository, eventBus *eventbus.Bus) *Server {
	return &Server{repo: repo, eventBus: eventBus, now: time.Now}
}

func (s *Server) Routes(opts ...connect.HandlerOption) []connectjson.Route {
	return []connectjson.Route{
		connectjson.Unary(CreateTaskProcedure, s.CreateTask, opts...),
		connectjson.Unary(ListTasksProcedure, s.ListTasks, opts...),
		connectjson.Unary(UpdateTaskProcedure, s.UpdateTask, opts...),
	}
}

func (s *Server) CreateTask(ctx context.Context, req *CreateTaskRequest) (*CreateTaskResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	typ := req.Type
	if typ == "" {
		typ = TypeDeadline
	}
	invalid := cerr.NewError(cerr.InvalidArgument, "invalid task", nil)
	if req.Title == "" {
		invalid.AddDetailMessageWithCode("title is required", "title.required")
	}
	if typ != TypeDeadline && typ != TypeEvent {
		invalid.AddDetailMessageWithCode("type must be deadline or event", "type.enum")
	}
	if !req.Priority.Valid() {
		invalid.AddDetailMessageWithCode("unknown priority", "priority.enum")
	}
	if len(invalid.Details) > 0 {
		return nil, invalid
	}

	now := s.now()
	t := &Task{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Type:        typ,
		Category:    req.Category,
		TaskDate:    req.TaskDate,
		Priority:    req.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.eventBus.PublishNew(eventbus.TaskCreated, userID, t.ID, nil)
	return &CreateTaskResponse{Task: t}, nil
}

func (s *Server) ListTasks(ctx context.Context, req *ListTasksRequest) (*ListTasksResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	var tasks []*Task
	if req.IncludeDone {
		tasks, err = s.repo.ListByUser(ctx, userID)
	} else {
		tasks, err = s.repo.ListActiveByUser(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*Task{}
	}
	return &ListTasksResponse{Tasks: tasks}, nil
}

func (s *Server) UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*UpdateTaskResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if current.UserID != userID {
		return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	patch, err := req.patch(current)
	if err != nil {
		return nil, err
	}
	t, err := s.repo.Update(ctx, req.ID, patch)
	if err != nil {
		return nil, err
	}
	s.eventBus.PublishNew(eventbus.TaskUpdated, userID, t.ID, nil)
	return &UpdateTaskResponse{Task: t}, nil
}

func (req *UpdateTaskRequest) patch(current *Task) (Patch, error) {
	invalid := cerr.NewError(cerr.InvalidArgument, "invalid task update", nil)
	if req.Title != nil && *req.Title == "" {
		invalid.AddDetailMessageWithCode("title must not be empty", "title.required")
	}
	if req.Priority != nil && !req.Priority.Valid() {
		invalid.AddDetailMessageWithCode("unknown priority", "priority.enum")
	}
	start, end := current.StartDate, current.EndDate
	if req.StartDate != nil {
		start = req.StartDate
	}
	if req.EndDate != nil {
		end = req.EndDate
	}
	if start != nil && end != nil && !end.After(*start) {
		invalid.AddDetailMessageWithCode("endDate must be after startDate", "end_date.after_start")
	}
	if len(invalid.Details) > 0 {
		return Patch{}, invalid
	}

	p := Patch{
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		TaskDate:         req.TaskDate,
		IsDone:           req.IsDone,
		Priority:         req.Priority,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		AIScheduleLocked: req.AIScheduleLocked,
	}
	if p.AIScheduleLocked == nil && (req.StartDate != nil || req.EndDate != nil) {
		locked := true
		p.AIScheduleLocked = &locked
	}
	return p, nil
}
