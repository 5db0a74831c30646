package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/doccontrol/internal/client/client"
	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/client/services"
	"github.com/dmitrijs2005/doccontrol/internal/common"
)

// Checkout locks the current document. Everything after the command is
// taken as the checkout comment.
func (a *App) Checkout(ctx context.Context, args []string) error {
	doc, err := a.currentDoc()
	if err != nil {
		return a.fail(err)
	}

	updated, err := a.ctl.Checkout(ctx, doc.ID, strings.Join(args, " "))
	if err != nil {
		return a.fail(err)
	}
	a.success("Checked out #%d %s.", updated.ID, updated.Title)
	return nil
}

// Checkin releases the lock on the current document, optionally with a new
// file that becomes the next version. Only the holder gets past the local
// check; the server enforces the same rule.
func (a *App) Checkin(ctx context.Context) error {
	cur, err := a.currentDoc()
	if err != nil {
		return a.fail(err)
	}
	doc, err := a.docs.Get(ctx, cur.ID)
	if err != nil {
		return a.fail(err)
	}
	if !services.CanCheckIn(*doc, a.auth.CurrentUser()) {
		if _, ok := doc.Lock().(models.CheckedOut); ok {
			return a.fail(fmt.Errorf("checkin: %w (%w)", common.ErrNotLockHolder, client.ErrConflict))
		}
		return a.fail(fmt.Errorf("checkin: %w", common.ErrNotCheckedOut))
	}

	path, err := getSimpleText(a.reader, "Enter path of the new revision (empty to release without changes)", a.out)
	if err != nil {
		return err
	}
	var file *models.FileContent
	if path != "" {
		if file, err = models.ReadFileContent(path); err != nil {
			return a.fail(err)
		}
	}

	comments, err := getSimpleText(a.reader, "Enter comments (optional)", a.out)
	if err != nil {
		return err
	}

	updated, err := a.ctl.Checkin(ctx, doc.ID, comments, file)
	if err != nil {
		return a.fail(err)
	}

	if file != nil {
		a.success("Checked in #%d as v%d.", updated.ID, updated.Version)
	} else {
		a.success("Released #%d, still at v%d.", updated.ID, updated.Version)
	}
	return nil
}
