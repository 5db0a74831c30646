package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/common"
	"github.com/dmitrijs2005/doccontrol/internal/timex"
)

var taskColumns = []int{6, 28, 13, 9, 12, 16}

// Tasks prints the task board of the current document.
func (a *App) Tasks(ctx context.Context) error {
	doc, err := a.currentDoc()
	if err != nil {
		return a.fail(err)
	}

	tasks, err := a.tasks.Load(ctx, doc.ID)
	if err != nil {
		return a.fail(err)
	}
	if len(tasks) == 0 {
		a.println("No tasks.")
		return nil
	}

	a.println(headerStyle.Render(row(taskColumns, "ID", "Title", "Status", "Priority", "Due", "Assignee", "Next")))
	for _, t := range tasks {
		a.println(row(taskColumns,
			strconv.FormatInt(t.ID, 10),
			t.Title,
			string(t.Status),
			string(t.Priority),
			t.DueDate.Date(),
			t.AssignedTo.DisplayName(),
			nextActions(t.Status),
		))
	}
	return nil
}

// AddTask prompts for a new task on the current document. The assignee is
// picked from the user list by id or email.
func (a *App) AddTask(ctx context.Context) error {
	doc, err := a.currentDoc()
	if err != nil {
		return a.fail(err)
	}

	title, err := getSimpleText(a.reader, "Enter title", a.out)
	if err != nil {
		return err
	}
	description, err := getMultiline(a.reader, "Enter description (optional)", a.out)
	if err != nil {
		return err
	}
	priority, err := getSimpleText(a.reader, "Enter priority: low, medium or high [medium]", a.out)
	if err != nil {
		return err
	}
	dueText, err := getSimpleText(a.reader, "Enter due date (YYYY-MM-DD)", a.out)
	if err != nil {
		return err
	}
	due, err := timex.ParseTime(dueText)
	if err != nil {
		return a.fail(fmt.Errorf("%w: due date %q is not YYYY-MM-DD", common.ErrValidation, dueText))
	}

	users, err := a.tasks.Users(ctx)
	if err != nil {
		return a.fail(err)
	}
	for _, u := range users {
		a.printf("  %d  %s <%s>\n", u.ID, u.DisplayName(), u.Email)
	}
	who, err := getSimpleText(a.reader, "Assign to (id or email)", a.out)
	if err != nil {
		return err
	}
	assignee, ok := findUser(users, who)
	if !ok {
		return a.fail(fmt.Errorf("%w: unknown user %q", common.ErrValidation, who))
	}

	task, err := a.tasks.Create(ctx, doc.ID, models.TaskCreate{
		Title:        title,
		Description:  description,
		Priority:     models.Priority(strings.ToLower(priority)),
		DueDate:      due,
		AssignedToID: assignee.ID,
	})
	if err != nil {
		return a.fail(err)
	}

	a.success("Created task #%d %s for %s.", task.ID, task.Title, task.AssignedTo.DisplayName())
	return nil
}

func findUser(users []models.User, who string) (models.User, bool) {
	who = strings.TrimSpace(who)
	id, idErr := strconv.ParseInt(who, 10, 64)
	for _, u := range users {
		if (idErr == nil && u.ID == id) || strings.EqualFold(u.Email, who) {
			return u, true
		}
	}
	return models.User{}, false
}

var taskActions = map[string]models.TaskStatus{
	"start":    models.TaskInProgress,
	"complete": models.TaskCompleted,
	"reject":   models.TaskRejected,
}

// nextActions names the commands that move a task on from s.
func nextActions(s models.TaskStatus) string {
	if s.Terminal() {
		return "-"
	}
	var names []string
	for _, to := range s.Next() {
		for name, st := range taskActions {
			if st == to {
				names = append(names, name)
			}
		}
	}
	return strings.Join(names, ", ")
}

// Task moves a task of the current document: task <id> <start|complete|reject>.
// A target status name such as in_progress is accepted too. The board is reloaded first so the transition is checked against the
// latest status.
func (a *App) Task(ctx context.Context, args []string) error {
	doc, err := a.currentDoc()
	if err != nil {
		return a.fail(err)
	}
	if len(args) != 2 {
		return a.fail(fmt.Errorf("%w: usage: task <id> <start|complete|reject>", common.ErrValidation))
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return a.fail(fmt.Errorf("%w: invalid task id %q", common.ErrValidation, args[0]))
	}
	to, ok := taskActions[args[1]]
	if !ok {
		st, err := models.ParseTaskStatus(strings.ToLower(args[1]))
		if err != nil {
			return a.fail(fmt.Errorf("%w: unknown action %q", common.ErrValidation, args[1]))
		}
		to = st
	}

	if _, err := a.tasks.Load(ctx, doc.ID); err != nil {
		return a.fail(err)
	}
	task, err := a.tasks.Transition(ctx, id, to)
	if err != nil {
		return a.fail(err)
	}

	a.success("Task #%d is now %s.", task.ID, task.Status)
	return nil
}
