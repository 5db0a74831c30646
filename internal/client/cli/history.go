package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/doccontrol/internal/client/diff"
	"github.com/dmitrijs2005/doccontrol/internal/client/services"
	"github.com/dmitrijs2005/doccontrol/internal/common"
)

var (
	versionColumns  = []int{4, 6, 20, 18}
	activityColumns = []int{18, 20, 10}
)

func itoa(n int) string { return strconv.Itoa(n) }

// History prints the versions of the current document, newest first, and
// its activity log. Selected versions are marked.
func (a *App) History(ctx context.Context) error {
	doc, err := a.currentDoc()
	if err != nil {
		return a.fail(err)
	}

	h, err := a.history.Load(ctx, doc.ID)
	if err != nil {
		return a.fail(err)
	}

	sel := a.selected()
	a.println(headerStyle.Render(row(versionColumns, "", "Ver", "Author", "Date", "Comments")))
	for _, v := range h.Versions {
		mark := "[ ]"
		if sel.Contains(v.VersionNumber) {
			mark = selectStyle.Render("[x]")
		}
		a.println(row(versionColumns,
			mark,
			"v"+itoa(v.VersionNumber),
			v.CreatedBy.DisplayName(),
			v.CreatedAt.Format("2006-01-02 15:04"),
			v.Comments,
		))
	}

	if len(h.Activities) > 0 {
		a.println()
		a.println(headerStyle.Render(row(activityColumns, "Time", "User", "Activity", "Details")))
		for _, act := range h.Activities {
			a.println(row(activityColumns,
				act.ActivityTime.Format("2006-01-02 15:04"),
				act.User.DisplayName(),
				string(act.ActivityType),
				act.Details,
			))
		}
	}

	a.println(dimStyle.Render("select <v> to pick versions, then compare"))
	return nil
}

func (a *App) selected() *services.Selection {
	a.mu.Lock()
	defer a.mu.Unlock()
	var s services.Selection
	for _, n := range a.selection.Items() {
		s.Select(n)
	}
	return &s
}

// Select toggles a version in the comparison selection. At most two
// versions can be selected; a third is refused until one is deselected.
func (a *App) Select(ctx context.Context, args []string) error {
	if _, err := a.currentDoc(); err != nil {
		return a.fail(err)
	}
	if len(args) != 1 {
		return a.fail(fmt.Errorf("%w: usage: select <version>", common.ErrValidation))
	}
	_, n, err := a.versionArg(ctx, args)
	if err != nil {
		return a.fail(err)
	}

	a.mu.Lock()
	ok := a.selection.Toggle(n)
	items := a.selection.Items()
	a.mu.Unlock()

	if !ok {
		a.println("Two versions are already selected, deselect one or clear first.")
	}
	a.printf("Selected: %s\n", formatSelection(items))
	return nil
}

func (a *App) ClearSelection(context.Context) error {
	a.mu.Lock()
	a.selection.Clear()
	a.mu.Unlock()
	a.println("Selection cleared.")
	return nil
}

func formatSelection(items []int) string {
	if len(items) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(items))
	for _, n := range items {
		parts = append(parts, "v"+itoa(n))
	}
	return strings.Join(parts, ", ")
}

// Compare diffs the two selected versions. The default layout is split
// (side by side); "unified" prints one interleaved stream.
func (a *App) Compare(ctx context.Context, args []string) error {
	doc, err := a.currentDoc()
	if err != nil {
		return a.fail(err)
	}

	mode := "split"
	if len(args) > 0 {
		mode = args[0]
	}
	if mode != "split" && mode != "unified" {
		return a.fail(fmt.Errorf("%w: usage: compare [unified|split]", common.ErrValidation))
	}

	c, err := a.cmp.CompareSelection(ctx, doc, a.selected())
	if err != nil {
		return a.fail(err)
	}

	st := c.Stats()
	a.println(headerStyle.Render(fmt.Sprintf("v%d → v%d", c.Older, c.Newer)))
	if !st.Changed() {
		a.println("No differences.")
		return nil
	}
	a.println(addedStyle.Render(fmt.Sprintf("+%d", st.Added)) + " " +
		removedStyle.Render(fmt.Sprintf("-%d", st.Removed)) + " " +
		dimStyle.Render(fmt.Sprintf("=%d", st.Unchanged)))

	if mode == "unified" {
		a.printf("%s", colorUnified(c.Segments))
		return nil
	}

	a.println(diff.SideBySide(c.OlderText, c.NewerText, diff.SideBySideOptions{
		LeftTitle:  fmt.Sprintf("v%d", c.Older),
		RightTitle: fmt.Sprintf("v%d", c.Newer),
		Width:      a.config.DiffWidth,
	}))
	return nil
}

func colorUnified(segments []diff.Segment) string {
	lines := strings.SplitAfter(diff.Unified(segments), "\n")
	var sb strings.Builder
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "+"):
			sb.WriteString(addedStyle.Render(strings.TrimSuffix(l, "\n")) + "\n")
		case strings.HasPrefix(l, "-"):
			sb.WriteString(removedStyle.Render(strings.TrimSuffix(l, "\n")) + "\n")
		default:
			sb.WriteString(l)
		}
	}
	return sb.String()
}
