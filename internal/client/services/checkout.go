package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/doccontrol/internal/client/client"
	"github.com/dmitrijs2005/doccontrol/internal/client/events"
	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/common"
	"github.com/dmitrijs2005/doccontrol/internal/logging"
)

// CheckoutController runs the lock state machine of a document:
//
//	Available --checkout--> CheckedOut{holder}
//	CheckedOut{holder} --checkin by holder--> Available
//
// It reads the lock from a fresh fetch before every request and re-fetches
// after every success; the returned document is always the re-fetched one.
// The server enforces the same rules, so a lost race surfaces as
// client.ErrConflict.
type CheckoutController struct {
	client client.Client
	docs   *DocumentRepository
	ident  Identity
	bus    *events.Bus
	log    logging.Logger
}

func NewCheckoutController(c client.Client, docs *DocumentRepository, ident Identity, bus *events.Bus, log logging.Logger) *CheckoutController {
	return &CheckoutController{client: c, docs: docs, ident: ident, bus: bus, log: log}
}

// CanCheckIn reports whether user holds the lock on doc. Views use it to
// disable check-in for everyone else.
func CanCheckIn(doc models.Document, user *models.User) bool {
	return user != nil && doc.HeldBy(user.ID)
}

func (c *CheckoutController) actor() (*models.User, error) {
	u := c.ident.CurrentUser()
	if u == nil {
		return nil, fmt.Errorf("%w: not logged in", client.ErrUnauthorized)
	}
	return u, nil
}

// Checkout locks docID for the acting user. Checking out a document the
// user already holds returns it unchanged without a request.
func (c *CheckoutController) Checkout(ctx context.Context, docID int64, comments string) (*models.Document, error) {
	user, err := c.actor()
	if err != nil {
		return nil, err
	}

	doc, err := c.docs.Get(ctx, docID)
	if err != nil {
		return nil, err
	}

	if lock, ok := doc.Lock().(models.CheckedOut); ok {
		if lock.Holder.ID == user.ID {
			return doc, nil
		}
		return nil, fmt.Errorf("checkout document %d: %w: held by %s", docID, client.ErrConflict, lock.Holder.DisplayName())
	}

	if _, err := c.client.Checkout(ctx, docID, comments); err != nil {
		if errors.Is(err, client.ErrConflict) {
			c.resync(ctx, docID)
		}
		return nil, fmt.Errorf("checkout document %d: %w", docID, err)
	}

	fresh, err := c.settle(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !fresh.HeldBy(user.ID) {
		return fresh, fmt.Errorf("checkout document %d: %w: lock is %s", docID, client.ErrConflict, fresh.Lock())
	}

	c.log.Info(ctx, "document checked out", "document_id", docID, "user_id", user.ID)
	return fresh, nil
}

// Checkin releases the lock. When content is non-nil the server appends it
// as the next version.
func (c *CheckoutController) Checkin(ctx context.Context, docID int64, comments string, content *models.FileContent) (*models.Document, error) {
	user, err := c.actor()
	if err != nil {
		return nil, err
	}

	doc, err := c.docs.Get(ctx, docID)
	if err != nil {
		return nil, err
	}

	switch lock := doc.Lock().(type) {
	case models.Available:
		return nil, fmt.Errorf("check in document %d: %w", docID, common.ErrNotCheckedOut)
	case models.CheckedOut:
		if lock.Holder.ID != user.ID {
			return nil, fmt.Errorf("check in document %d: %w (%w): held by %s",
				docID, common.ErrNotLockHolder, client.ErrConflict, lock.Holder.DisplayName())
		}
	}

	prev := doc.Version
	if _, err := c.client.Checkin(ctx, docID, comments, content); err != nil {
		if errors.Is(err, client.ErrConflict) {
			c.resync(ctx, docID)
		}
		return nil, fmt.Errorf("check in document %d: %w", docID, err)
	}

	fresh, err := c.settle(ctx, docID)
	if err != nil {
		return nil, err
	}
	if _, locked := fresh.Lock().(models.CheckedOut); locked {
		return fresh, fmt.Errorf("check in document %d: %w: lock is %s", docID, client.ErrConflict, fresh.Lock())
	}

	want := prev
	if content != nil {
		want = prev + 1
	}
	if fresh.Version != want {
		c.log.Warn(ctx, "unexpected version after check-in",
			"document_id", docID, "previous", prev, "expected", want, "actual", fresh.Version)
	}

	c.log.Info(ctx, "document checked in", "document_id", docID, "user_id", user.ID, "version", fresh.Version)
	return fresh, nil
}

// settle re-reads the document after a mutation, refreshes the list and
// announces the change.
func (c *CheckoutController) settle(ctx context.Context, docID int64) (*models.Document, error) {
	fresh, err := c.docs.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if _, err := c.docs.List(ctx); err != nil {
		c.log.Warn(ctx, "refresh after lock change failed", "error", err)
	}
	c.bus.Publish(ctx, events.NewEvent(events.EventDocumentChanged, docID, "checkout"))
	return fresh, nil
}

// resync pulls the server's view after a lost race so the cache shows who
// holds the lock.
func (c *CheckoutController) resync(ctx context.Context, docID int64) {
	if _, err := c.docs.Get(ctx, docID); err != nil {
		c.log.Warn(ctx, "resync after conflict failed", "document_id", docID, "error", err)
	}
}
