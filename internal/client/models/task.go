package models

import (
	"fmt"
	"slices"

	"github.com/dmitrijs2005/doccontrol/internal/timex"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskRejected   TaskStatus = "rejected"
)

// taskTransitions is the whole legal status graph.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:    {TaskInProgress},
	TaskInProgress: {TaskCompleted, TaskRejected},
}

// CanTransitionTo reports whether to is a legal next status.
func (s TaskStatus) CanTransitionTo(to TaskStatus) bool {
	return slices.Contains(taskTransitions[s], to)
}

// Next lists the statuses reachable from s.
func (s TaskStatus) Next() []TaskStatus {
	return slices.Clone(taskTransitions[s])
}

// Terminal reports whether no transition leaves s.
func (s TaskStatus) Terminal() bool {
	return len(taskTransitions[s]) == 0
}

func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(s); st {
	case TaskPending, TaskInProgress, TaskCompleted, TaskRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	case "":
		return PriorityMedium, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

type Task struct {
	ID          int64      `json:"id"`
	DocumentID  int64      `json:"document_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     timex.Time `json:"due_date"`
	AssignedTo  User       `json:"assigned_to"`
	AssignedBy  User       `json:"assigned_by"`
	CreatedAt   timex.Time `json:"created_at"`
	UpdatedAt   timex.Time `json:"updated_at"`
}

// TaskCreate is the payload of POST /documents/{id}/tasks.
type TaskCreate struct {
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Priority     Priority   `json:"priority"`
	DueDate      timex.Time `json:"due_date"`
	AssignedToID int64      `json:"assigned_to_id"`
}

// TaskStatusUpdate is the payload of PATCH /tasks/{id}.
type TaskStatusUpdate struct {
	Status TaskStatus `json:"status"`
}
