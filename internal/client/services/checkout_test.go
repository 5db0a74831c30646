package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/doccontrol/internal/client/client"
	"github.com/dmitrijs2005/doccontrol/internal/client/diff"
	"github.com/dmitrijs2005/doccontrol/internal/client/events"
	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/common"
	"github.com/dmitrijs2005/doccontrol/internal/logging"
)

const (
	checkoutRoute = "POST /api/v1/documents/{id}/checkout"
	checkinRoute  = "POST /api/v1/documents/{id}/checkin"
)

func TestScenario_UploadCheckoutCheckinDiff(t *testing.T) {
	e := newEnv(t, newServer(t))
	alice := e.loginAs(t, "alice@example.com", "Alice")
	ctx := context.Background()

	doc := e.upload(t, "Manual.txt", "text/plain", "line1\nline2")

	out, err := e.ctl.Checkout(ctx, doc.ID, "editing")
	require.NoError(t, err)
	lock, ok := out.Lock().(models.CheckedOut)
	require.True(t, ok)
	assert.Equal(t, alice.ID, lock.Holder.ID)
	assert.Equal(t, "editing", lock.Comments)

	in, err := e.ctl.Checkin(ctx, doc.ID, "fix", textFile("line1\nlineX"))
	require.NoError(t, err)
	assert.Equal(t, 2, in.Version)
	assert.Equal(t, models.Available{}, in.Lock())

	h, err := e.history.Load(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, h.Versions, 2)
	assert.Equal(t, 2, h.Versions[0].VersionNumber)
	assert.Equal(t, "fix", h.Versions[0].Comments)
	assert.Equal(t, 1, h.Versions[1].VersionNumber)

	var sel Selection
	require.True(t, sel.Toggle(2))
	require.True(t, sel.Toggle(1))

	c, err := e.cmp.CompareSelection(ctx, *in, &sel)
	require.NoError(t, err)
	assert.Equal(t, []diff.Segment{
		{Op: diff.Unchanged, Value: "line1"},
		{Op: diff.Removed, Value: "line2"},
		{Op: diff.Added, Value: "lineX"},
	}, c.Segments)
	assert.Equal(t, diff.Stats{Added: 1, Removed: 1, Unchanged: 1}, c.Stats())
}

func TestCheckout_SameHolderIsNoop(t *testing.T) {
	e := newEnv(t, newServer(t))
	e.loginAs(t, "alice@example.com", "Alice")
	ctx := context.Background()
	doc := e.upload(t, "Manual.txt", "text/plain", "x")

	first, err := e.ctl.Checkout(ctx, doc.ID, "editing")
	require.NoError(t, err)

	again, err := e.ctl.Checkout(ctx, doc.ID, "again")
	require.NoError(t, err)
	assert.Equal(t, first.CurrentCheckout, again.CurrentCheckout)
	assert.Equal(t, 1, e.srv.Hits(checkoutRoute))
}

func TestCheckout_HeldByAnotherUser(t *testing.T) {
	e := newEnv(t, newServer(t))
	e.loginAs(t, "alice@example.com", "Alice")
	ctx := context.Background()
	doc := e.upload(t, "Manual.txt", "text/plain", "x")

	bob := e.srv.AddUser("bob@example.com", "pw", "Bob")
	e.srv.ForceCheckout(doc.ID, bob.ID, "")

	_, err := e.ctl.Checkout(ctx, doc.ID, "mine")
	require.ErrorIs(t, err, client.ErrConflict)
	assert.Contains(t, err.Error(), "Bob")
	assert.Zero(t, e.srv.Hits(checkoutRoute), "no request when the lock is visibly held")

	got, _ := e.srv.Document(doc.ID)
	assert.Equal(t, bob.ID, got.CurrentCheckout.CheckedOutBy.ID, "lock is never stolen")
}

func TestCheckout_LostRaceResyncsCache(t *testing.T) {
	e := newEnv(t, newServer(t))
	e.loginAs(t, "alice@example.com", "Alice")
	ctx := context.Background()
	doc := e.upload(t, "Manual.txt", "text/plain", "x")
	_, err := e.docs.Open(ctx, doc.ID)
	require.NoError(t, err)

	e.srv.FailNext(checkoutRoute, http.StatusBadRequest, "Document is already checked out by another user")

	_, err = e.ctl.Checkout(ctx, doc.ID, "mine")
	require.ErrorIs(t, err, client.ErrConflict)
	assert.Equal(t, 1, e.srv.Hits(checkoutRoute))
}

func TestCheckout_ConcurrentUsersOneWins(t *testing.T) {
	srv := newServer(t)
	alice := newEnv(t, srv)
	bob := newEnv(t, srv)
	alice.loginAs(t, "alice@example.com", "Alice")
	bob.loginAs(t, "bob@example.com", "Bob")

	doc := alice.upload(t, "Manual.txt", "text/plain", "x")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, e := range []*env{alice, bob} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.ctl.Checkout(context.Background(), doc.ID, "race")
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, client.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	got, _ := srv.Document(doc.ID)
	require.NotNil(t, got.CurrentCheckout)
}

func TestCheckin_WithoutContentKeepsVersion(t *testing.T) {
	e := newEnv(t, newServer(t))
	e.loginAs(t, "alice@example.com", "Alice")
	ctx := context.Background()
	doc := e.upload(t, "Manual.txt", "text/plain", "x")

	_, err := e.ctl.Checkout(ctx, doc.ID, "")
	require.NoError(t, err)

	in, err := e.ctl.Checkin(ctx, doc.ID, "nothing changed", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, in.Version)
	assert.Equal(t, models.Available{}, in.Lock())

	versions, err := e.api.ListVersions(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	acts, err := e.api.ListActivities(ctx, doc.ID)
	require.NoError(t, err)
	var kinds []models.ActivityType
	for _, a := range acts {
		kinds = append(kinds, a.ActivityType)
	}
	assert.Equal(t, []models.ActivityType{models.ActivityCheckout, models.ActivityCheckin}, kinds)
}

func TestCheckin_Refusals(t *testing.T) {
	e := newEnv(t, newServer(t))
	alice := e.loginAs(t, "alice@example.com", "Alice")
	ctx := context.Background()
	doc := e.upload(t, "Manual.txt", "text/plain", "x")

	_, err := e.ctl.Checkin(ctx, doc.ID, "", nil)
	require.ErrorIs(t, err, common.ErrNotCheckedOut)

	bob := e.srv.AddUser("bob@example.com", "pw", "Bob")
	e.srv.ForceCheckout(doc.ID, bob.ID, "")

	_, err = e.ctl.Checkin(ctx, doc.ID, "", textFile("y"))
	require.ErrorIs(t, err, common.ErrNotLockHolder)
	require.ErrorIs(t, err, client.ErrConflict)
	assert.Zero(t, e.srv.Hits(checkinRoute))

	cur, err := e.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, CanCheckIn(*cur, alice))
	assert.True(t, CanCheckIn(*cur, &bob))
	assert.False(t, CanCheckIn(*cur, nil))
}

func TestCheckin_ServerRejectsNonHolder(t *testing.T) {
	e := newEnv(t, newServer(t))
	e.loginAs(t, "alice@example.com", "Alice")
	ctx := context.Background()
	doc := e.upload(t, "Manual.txt", "text/plain", "x")

	_, err := e.ctl.Checkout(ctx, doc.ID, "")
	require.NoError(t, err)

	e.srv.FailNext(checkinRoute, http.StatusBadRequest, "Document is checked out by another user")
	_, err = e.ctl.Checkin(ctx, doc.ID, "", textFile("y"))
	require.ErrorIs(t, err, client.ErrConflict)

	got, _ := e.srv.Document(doc.ID)
	assert.Equal(t, 1, got.Version)
}

func TestCheckout_RequiresLogin(t *testing.T) {
	e := newEnv(t, newServer(t))

	_, err := e.ctl.Checkout(context.Background(), 1, "")
	require.ErrorIs(t, err, client.ErrUnauthorized)
	_, err = e.ctl.Checkin(context.Background(), 1, "", nil)
	require.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestCheckout_PublishesDocumentChanged(t *testing.T) {
	e := newEnv(t, newServer(t))
	e.loginAs(t, "alice@example.com", "Alice")
	ctx := context.Background()
	doc := e.upload(t, "Manual.txt", "text/plain", "x")

	rec := record(e.bus)
	_, err := e.ctl.Checkout(ctx, doc.ID, "")
	require.NoError(t, err)
	_, err = e.ctl.Checkin(ctx, doc.ID, "", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.count(events.EventDocumentChanged))
	assert.Equal(t, 2, rec.count(events.EventDocumentsRefreshed))
}

// The controller trusts the re-fetch, not the mutation response.
func TestCheckout_ContradictoryRefetchIsConflict(t *testing.T) {
	user := &models.User{ID: 1, FullName: "Alice"}
	available := &models.Document{ID: 5, Version: 1}

	fc := &fakeClient{
		getDocument:   func(context.Context, int64) (*models.Document, error) { return available, nil },
		listDocuments: func(context.Context) ([]models.Document, error) { return []models.Document{*available}, nil },
		checkout: func(context.Context, int64, string) (*models.Document, error) {
			held := *available
			held.CurrentCheckout = &models.CheckOutLog{CheckedOutBy: *user, Status: models.CheckoutStatusCheckedOut}
			return &held, nil
		},
	}

	bus := events.NewBus()
	docs := NewDocumentRepository(fc, bus, logging.Nop())
	defer docs.Close()
	ctl := NewCheckoutController(fc, docs, fixedIdentity{user: user}, bus, logging.Nop())

	got, err := ctl.Checkout(context.Background(), 5, "")
	require.ErrorIs(t, err, client.ErrConflict)
	require.NotNil(t, got)
	assert.Equal(t, models.Available{}, got.Lock())
}
