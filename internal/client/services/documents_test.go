package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/doccontrol/internal/client/client"
	"github.com/dmitrijs2005/doccontrol/internal/client/events"
	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/common"
	"github.com/dmitrijs2005/doccontrol/internal/logging"
)

func TestDocuments_UploadListOpen(t *testing.T) {
	e := newEnv(t, newServer(t))
	e.loginAs(t, "alice@example.com", "Alice")
	rec := record(e.bus)
	ctx := context.Background()

	doc := e.upload(t, "Manual.txt", "text/plain", "line1\nline2")
	assert.Equal(t, 1, doc.Version)

	cached := e.docs.Cached()
	require.Len(t, cached, 1, "upload refreshes the list")
	assert.Equal(t, doc.ID, cached[0].ID)
	assert.Equal(t, 1, rec.count(events.EventDocumentChanged))
	assert.Equal(t, 1, rec.count(events.EventDocumentsRefreshed))

	_, ok := e.docs.Current()
	assert.False(t, ok)

	opened, err := e.docs.Open(ctx, doc.ID)
	require.NoError(t, err)
	cur, ok := e.docs.Current()
	require.True(t, ok)
	assert.Equal(t, *opened, cur)

	_, err = e.docs.Get(ctx, 12345)
	require.ErrorIs(t, err, client.ErrNotFound)
	_, err = e.docs.Open(ctx, 12345)
	require.ErrorIs(t, err, client.ErrNotFound)
}

func TestDocuments_UploadValidation(t *testing.T) {
	e := newEnv(t, newServer(t))
	e.loginAs(t, "alice@example.com", "Alice")
	ctx := context.Background()

	_, err := e.docs.Upload(ctx, models.DocumentUpload{Title: "  ", File: models.FileContent{Data: []byte("x")}})
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = e.docs.Upload(ctx, models.DocumentUpload{Title: "x"})
	require.ErrorIs(t, err, common.ErrValidation)

	assert.Zero(t, e.srv.Hits("POST /api/v1/documents"))
}

func TestDocuments_RefreshFollowsServer(t *testing.T) {
	e := newEnv(t, newServer(t))
	e.loginAs(t, "alice@example.com", "Alice")
	ctx := context.Background()

	doc := e.upload(t, "Manual.txt", "text/plain", "x")
	_, err := e.docs.Open(ctx, doc.ID)
	require.NoError(t, err)

	bob := e.srv.AddUser("bob@example.com", "pw", "Bob")
	e.srv.ForceCheckout(doc.ID, bob.ID, "his turn")

	cur, _ := e.docs.Current()
	assert.Equal(t, models.Available{}, cur.Lock(), "cache is not updated behind the server's back")

	require.NoError(t, e.docs.Refresh(ctx))

	cur, _ = e.docs.Current()
	lock, ok := cur.Lock().(models.CheckedOut)
	require.True(t, ok)
	assert.Equal(t, bob.ID, lock.Holder.ID)
	assert.Equal(t, "his turn", lock.Comments)
	assert.True(t, e.docs.Cached()[0].HeldBy(bob.ID))
}

func TestDocuments_TaskChangeRefreshes(t *testing.T) {
	e := newEnv(t, newServer(t))
	e.loginAs(t, "alice@example.com", "Alice")
	ctx := context.Background()

	doc := e.upload(t, "Manual.txt", "text/plain", "x")
	_, err := e.docs.Open(ctx, doc.ID)
	require.NoError(t, err)

	lists := e.srv.Hits("GET /api/v1/documents")
	gets := e.srv.Hits("GET /api/v1/documents/{id}")
	e.bus.Publish(ctx, events.NewEvent(events.EventTasksChanged, doc.ID, "test"))
	assert.Equal(t, lists+1, e.srv.Hits("GET /api/v1/documents"))
	assert.Equal(t, gets+1, e.srv.Hits("GET /api/v1/documents/{id}"))
	require.Len(t, e.docs.Cached(), 1)

	e.docs.Reset()
	e.bus.Publish(ctx, events.NewEvent(events.EventTasksChanged, doc.ID, "test"))
	assert.Equal(t, lists+2, e.srv.Hits("GET /api/v1/documents"))
	assert.Equal(t, gets+1, e.srv.Hits("GET /api/v1/documents/{id}"), "nothing open, nothing to reload")
}

func TestDocuments_SessionExpiredResets(t *testing.T) {
	e := newEnv(t, newServer(t))
	e.loginAs(t, "alice@example.com", "Alice")
	ctx := context.Background()

	doc := e.upload(t, "Manual.txt", "text/plain", "x")
	_, err := e.docs.Open(ctx, doc.ID)
	require.NoError(t, err)

	e.bus.Publish(ctx, events.Event{Type: events.EventSessionExpired})

	assert.Empty(t, e.docs.Cached())
	_, ok := e.docs.Current()
	assert.False(t, ok)
}

func TestDocuments_ListErrorKeepsCache(t *testing.T) {
	calls := 0
	fc := &fakeClient{
		listDocuments: func(context.Context) ([]models.Document, error) {
			calls++
			if calls > 1 {
				return nil, client.ErrUnavailable
			}
			return []models.Document{{ID: 1, Title: "a"}}, nil
		},
	}
	bus := events.NewBus()
	repo := NewDocumentRepository(fc, bus, logging.Nop())
	defer repo.Close()

	_, err := repo.List(context.Background())
	require.NoError(t, err)

	_, err = repo.List(context.Background())
	require.True(t, errors.Is(err, client.ErrUnavailable))
	assert.Len(t, repo.Cached(), 1)
}
