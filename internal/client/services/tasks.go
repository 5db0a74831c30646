package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/doccontrol/internal/client/client"
	"github.com/dmitrijs2005/doccontrol/internal/client/events"
	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/common"
	"github.com/dmitrijs2005/doccontrol/internal/logging"
)

// TaskBoard lists and edits the tasks of one document at a time. Status
// changes follow models.TaskStatus.CanTransitionTo; an illegal move is
// refused before any request is made.
type TaskBoard struct {
	client client.Client
	bus    *events.Bus
	log    logging.Logger

	mu    sync.RWMutex
	docID int64
	tasks []models.Task
}

func NewTaskBoard(c client.Client, bus *events.Bus, log logging.Logger) *TaskBoard {
	return &TaskBoard{client: c, bus: bus, log: log}
}

// Load fetches the tasks of docID and makes it the board's document.
func (b *TaskBoard) Load(ctx context.Context, docID int64) ([]models.Task, error) {
	tasks, err := b.client.ListTasks(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("list tasks of document %d: %w", docID, err)
	}

	b.mu.Lock()
	b.docID = docID
	b.tasks = slices.Clone(tasks)
	b.mu.Unlock()

	return tasks, nil
}

// Tasks returns the board as last loaded.
func (b *TaskBoard) Tasks() []models.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.tasks)
}

// Users lists the possible assignees.
func (b *TaskBoard) Users(ctx context.Context) ([]models.User, error) {
	users, err := b.client.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Create adds a task to docID. Title, due date and assignee are required;
// an empty priority means medium.
func (b *TaskBoard) Create(ctx context.Context, docID int64, req models.TaskCreate) (*models.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	switch {
	case req.Title == "":
		return nil, fmt.Errorf("create task: %w: title is required", common.ErrValidation)
	case req.DueDate.IsZero():
		return nil, fmt.Errorf("create task: %w: due date is required", common.ErrValidation)
	case req.AssignedToID <= 0:
		return nil, fmt.Errorf("create task: %w: assignee is required", common.ErrValidation)
	}

	p, err := models.ParsePriority(string(req.Priority))
	if err != nil {
		return nil, fmt.Errorf("create task: %w: %w", common.ErrValidation, err)
	}
	req.Priority = p

	task, err := b.client.CreateTask(ctx, docID, req)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	b.changed(ctx, docID)
	return task, nil
}

// Transition moves a task on the board to status to.
func (b *TaskBoard) Transition(ctx context.Context, taskID int64, to models.TaskStatus) (*models.Task, error) {
	b.mu.RLock()
	i := slices.IndexFunc(b.tasks, func(t models.Task) bool { return t.ID == taskID })
	var cur models.Task
	if i >= 0 {
		cur = b.tasks[i]
	}
	b.mu.RUnlock()

	if i < 0 {
		return nil, fmt.Errorf("task %d: %w", taskID, client.ErrNotFound)
	}
	if cur.Status.Terminal() {
		return nil, fmt.Errorf("task %d: %w: %s is final", taskID, common.ErrInvalidTransition, cur.Status)
	}
	if !cur.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("task %d: %w: %s -> %s, expected one of %v", taskID, common.ErrInvalidTransition, cur.Status, to, cur.Status.Next())
	}

	task, err := b.client.UpdateTaskStatus(ctx, taskID, to)
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", taskID, err)
	}

	b.log.Info(ctx, "task status changed", "task_id", taskID, "from", cur.Status, "to", task.Status)
	b.changed(ctx, cur.DocumentID)
	return task, nil
}

func (b *TaskBoard) Start(ctx context.Context, taskID int64) (*models.Task, error) {
	return b.Transition(ctx, taskID, models.TaskInProgress)
}

func (b *TaskBoard) Complete(ctx context.Context, taskID int64) (*models.Task, error) {
	return b.Transition(ctx, taskID, models.TaskCompleted)
}

func (b *TaskBoard) Reject(ctx context.Context, taskID int64) (*models.Task, error) {
	return b.Transition(ctx, taskID, models.TaskRejected)
}

// changed reloads the board and notifies the document view.
func (b *TaskBoard) changed(ctx context.Context, docID int64) {
	if _, err := b.Load(ctx, docID); err != nil {
		b.log.Warn(ctx, "reload task board failed", "document_id", docID, "error", err)
	}
	b.bus.Publish(ctx, events.NewEvent(events.EventTasksChanged, docID, "tasks"))
}
