package cli

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/doccontrol/internal/client/services"
)

// View loads the current document, or one of its versions, into the
// viewer. Text is printed; PDFs and images are written to a preview file.
func (a *App) View(ctx context.Context, args []string) error {
	doc, n, err := a.versionArg(ctx, args)
	if err != nil {
		return a.fail(err)
	}

	c, err := a.content.Load(ctx, doc, n)
	if err != nil {
		return a.fail(err)
	}
	a.printContent(c)
	return nil
}

func (a *App) printContent(c *services.Content) {
	a.println(dimStyle.Render(contentHeader(c)))

	switch {
	case c.IsPreview():
		a.printf("Preview: %s\n", c.PreviewPath)
		a.printf("Open:    %s\n", c.PreviewURL)
	case !printable(c.Text):
		a.println("No preview available for this file type, use download.")
	case c.Text == "":
		a.println("(empty)")
	default:
		a.println(strings.TrimRight(c.Text, "\n"))
	}
}

func contentHeader(c *services.Content) string {
	h := fmt.Sprintf("v%d", c.Version)
	if c.Filename != "" {
		h += " " + c.Filename
	}
	if c.ContentType != "" {
		h += " [" + c.ContentType + "]"
	}
	return fmt.Sprintf("%s %d bytes", h, c.Size)
}

// printable rejects payloads a terminal cannot show.
func printable(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}
