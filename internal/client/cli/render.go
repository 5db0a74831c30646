package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dmitrijs2005/doccontrol/internal/client/client"
	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/common"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	selectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)

// row lays cells out in fixed-width columns; the last cell is unbounded.
func row(widths []int, cells ...string) string {
	rendered := make([]string, 0, len(cells))
	for i, c := range cells {
		if i < len(widths) && widths[i] > 0 {
			c = lipgloss.NewStyle().Width(widths[i]).MaxHeight(1).Render(c)
		}
		rendered = append(rendered, c)
	}
	return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, rendered...), " ")
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) success(format string, args ...any) {
	a.println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// fail prints err inline and returns it. An expired session has already
// been announced by the session handler and a stale response is dropped
// silently.
func (a *App) fail(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case client.IsUnauthorized(err), errors.Is(err, common.ErrStaleResponse):
		return err
	}
	a.println(errorStyle.Render(describe(err)))
	return err
}

// describe turns an error into the message shown to the user.
func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, common.ErrNotLockHolder):
		return "Error: the document is checked out by another user"
	case errors.Is(err, common.ErrNotCheckedOut):
		return "Error: the document is not checked out"
	case errors.Is(err, common.ErrInvalidTransition):
		return "Error: " + err.Error()
	case errors.Is(err, common.ErrUnsupportedContentType):
		return "Error: only text documents can be compared"
	case errors.Is(err, client.ErrUnavailable):
		return "Error: server unavailable, try again later"
	case errors.As(err, &apiErr) && apiErr.Detail != "":
		return "Error: " + apiErr.Detail
	}
	return "Error: " + err.Error()
}

func lockLabel(doc models.Document) string {
	switch l := doc.Lock().(type) {
	case models.CheckedOut:
		return "checked out by " + l.Holder.DisplayName()
	default:
		return "available"
	}
}

func formatDocument(doc models.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("#%d %s", doc.ID, doc.Title)))
	if doc.Description != "" {
		fmt.Fprintf(&b, "%s\n", doc.Description)
	}
	fmt.Fprintf(&b, "Version:  %d\n", doc.Version)
	fmt.Fprintf(&b, "Type:     %s\n", doc.MimeType)
	if tags := doc.TagNames(); len(tags) > 0 {
		fmt.Fprintf(&b, "Tags:     %s\n", strings.Join(tags, ", "))
	}
	if doc.CreatedBy != nil {
		fmt.Fprintf(&b, "Owner:    %s\n", doc.CreatedBy.DisplayName())
	}
	fmt.Fprintf(&b, "Updated:  %s\n", doc.UpdatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Status:   %s", lockLabel(doc))
	if co, ok := doc.Lock().(models.CheckedOut); ok {
		fmt.Fprintf(&b, " since %s", co.Since.Format("2006-01-02 15:04"))
		if co.Comments != "" {
			fmt.Fprintf(&b, " (%s)", co.Comments)
		}
	}
	return b.String()
}
