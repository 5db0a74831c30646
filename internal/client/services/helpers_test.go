package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/doccontrol/internal/client/apitest"
	"github.com/dmitrijs2005/doccontrol/internal/client/client"
	"github.com/dmitrijs2005/doccontrol/internal/client/events"
	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/client/session"
	"github.com/dmitrijs2005/doccontrol/internal/logging"
)

// ---- end-to-end wiring over apitest ----

type env struct {
	srv     *apitest.Server
	bus     *events.Bus
	session *session.Session
	api     *client.HTTPClient
	auth    AuthService
	docs    *DocumentRepository
	ctl     *CheckoutController
	history *VersionHistory
	cmp     *VersionComparer
	content *ContentLoader
	tasks   *TaskBoard
}

func newServer(t *testing.T) *apitest.Server {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	return srv
}

// newEnv wires every service against srv, the way the CLI does.
func newEnv(t *testing.T, srv *apitest.Server) *env {
	t.Helper()

	log := logging.Nop()
	sess := session.New(session.NewMemoryStore(), log)
	api, err := client.NewHTTPClient(srv.URL(), sess, log, 5*time.Second)
	require.NoError(t, err)

	bus := events.NewBus()
	auth := NewAuthService(api, sess, log)
	docs := NewDocumentRepository(api, bus, log)
	t.Cleanup(docs.Close)

	content := NewContentLoader(api, t.TempDir(), log)
	t.Cleanup(content.Close)

	return &env{
		srv:     srv,
		bus:     bus,
		session: sess,
		api:     api,
		auth:    auth,
		docs:    docs,
		ctl:     NewCheckoutController(api, docs, auth, bus, log),
		history: NewVersionHistory(api, log),
		cmp:     NewVersionComparer(api, log),
		content: content,
		tasks:   NewTaskBoard(api, bus, log),
	}
}

// loginAs creates the account on the server and logs in through the
// auth service.
func (e *env) loginAs(t *testing.T, email, name string) *models.User {
	t.Helper()
	e.srv.AddUser(email, "secret", name)
	u, err := e.auth.Login(context.Background(), email, []byte("secret"))
	require.NoError(t, err)
	return u
}

func (e *env) upload(t *testing.T, title, contentType, body string) *models.Document {
	t.Helper()
	doc, err := e.docs.Upload(context.Background(), models.DocumentUpload{
		Title: title,
		File:  models.FileContent{Name: title, ContentType: contentType, Data: []byte(body)},
	})
	require.NoError(t, err)
	return doc
}

func textFile(body string) *models.FileContent {
	return &models.FileContent{Name: "content.txt", ContentType: "text/plain", Data: []byte(body)}
}

// recorder collects bus events.
type recorder struct {
	events []events.Event
}

func record(bus *events.Bus) *recorder {
	r := &recorder{}
	bus.Subscribe(nil, func(_ context.Context, e events.Event) { r.events = append(r.events, e) })
	return r
}

func (r *recorder) count(t events.EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// ---- fakes ----

// fakeClient implements client.Client; only the hooks a test sets are
// callable.
type fakeClient struct {
	client.Client

	getDocument     func(ctx context.Context, id int64) (*models.Document, error)
	listDocuments   func(ctx context.Context) ([]models.Document, error)
	download        func(ctx context.Context, id int64, n int) (*models.Blob, error)
	downloadVersion func(ctx context.Context, id int64, n int) (*models.Blob, error)
	listVersions    func(ctx context.Context, id int64) ([]models.DocumentVersion, error)
	listActivities  func(ctx context.Context, id int64) ([]models.DocumentActivity, error)
	checkout        func(ctx context.Context, id int64, comments string) (*models.Document, error)
	checkin         func(ctx context.Context, id int64, comments string, content *models.FileContent) (*models.Document, error)
}

func (f *fakeClient) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	return f.getDocument(ctx, id)
}

func (f *fakeClient) ListDocuments(ctx context.Context) ([]models.Document, error) {
	return f.listDocuments(ctx)
}

func (f *fakeClient) Download(ctx context.Context, id int64, n int) (*models.Blob, error) {
	return f.download(ctx, id, n)
}

func (f *fakeClient) DownloadVersion(ctx context.Context, id int64, n int) (*models.Blob, error) {
	return f.downloadVersion(ctx, id, n)
}

func (f *fakeClient) ListVersions(ctx context.Context, id int64) ([]models.DocumentVersion, error) {
	return f.listVersions(ctx, id)
}

func (f *fakeClient) ListActivities(ctx context.Context, id int64) ([]models.DocumentActivity, error) {
	return f.listActivities(ctx, id)
}

func (f *fakeClient) Checkout(ctx context.Context, id int64, comments string) (*models.Document, error) {
	return f.checkout(ctx, id, comments)
}

func (f *fakeClient) Checkin(ctx context.Context, id int64, comments string, content *models.FileContent) (*models.Document, error) {
	return f.checkin(ctx, id, comments, content)
}

type fixedIdentity struct {
	user *models.User
}

func (f fixedIdentity) CurrentUser() *models.User { return f.user }
