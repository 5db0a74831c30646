package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/doccontrol/internal/client/client"
	"github.com/dmitrijs2005/doccontrol/internal/client/config"
	"github.com/dmitrijs2005/doccontrol/internal/client/events"
	"github.com/dmitrijs2005/doccontrol/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/doccontrol/internal/client/services"
	"github.com/dmitrijs2005/doccontrol/internal/client/session"
	"github.com/dmitrijs2005/doccontrol/internal/dbx"
	"github.com/dmitrijs2005/doccontrol/internal/logging"
)

type App struct {
	config    *config.Config
	db        *sql.DB
	closeOnce sync.Once

	session *session.Session
	auth    services.AuthService
	docs    *services.DocumentRepository
	ctl     *services.CheckoutController
	history *services.VersionHistory
	cmp     *services.VersionComparer
	content *services.ContentLoader
	tasks   *services.TaskBoard
	bus     *events.Bus
	log     logging.Logger

	reader *bufio.Reader
	out    io.Writer

	mu        sync.Mutex
	selection services.Selection

	// expired is set once the session end has been announced and cleared
	// by the next login.
	expired atomic.Bool
}

// NewApp opens the local database at cfg.DatabaseDSN and wires the services
// against cfg.ServerURL. The caller must call Close.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	store := session.NewMetadataStore(metadata.NewSQLiteRepository(db))
	a, err := assemble(cfg, store, log, os.Stdin, os.Stdout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.db = db
	return a, nil
}

func assemble(cfg *config.Config, store session.TokenStore, log logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	sess := session.New(store, log)
	api, err := client.NewHTTPClient(cfg.ServerURL, sess, log, cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	auth := services.NewAuthService(api, sess, log)
	docs := services.NewDocumentRepository(api, bus, log)

	a := &App{
		config:  cfg,
		session: sess,
		auth:    auth,
		docs:    docs,
		ctl:     services.NewCheckoutController(api, docs, auth, bus, log),
		history: services.NewVersionHistory(api, log),
		cmp:     services.NewVersionComparer(api, log),
		content: services.NewContentLoader(api, cfg.PreviewDir, log),
		tasks:   services.NewTaskBoard(api, bus, log),
		bus:     bus,
		log:     log,
		reader:  bufio.NewReader(in),
		out:     out,
	}

	sess.OnUnauthorized(func() {
		// parallel requests can all come back 401
		if !a.expired.CompareAndSwap(false, true) {
			return
		}
		fmt.Fprintln(a.out, "Session expired, please log in again.")
		bus.Publish(context.Background(), events.NewEvent(events.EventSessionExpired, 0, "session"))
	})
	bus.Subscribe([]events.EventType{events.EventSessionExpired}, func(context.Context, events.Event) {
		a.resetView()
	})
	bus.Subscribe([]events.EventType{events.EventDocumentChanged}, a.onDocumentChanged)

	return a, nil
}

// Run resumes a saved session if there is one and blocks in the REPL until
// the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	u, err := a.auth.Restore(ctx)
	if err != nil {
		a.log.Warn(ctx, "could not restore session", "error", err)
	}
	if u != nil {
		a.expired.Store(false)
		fmt.Fprintf(a.out, "Welcome back, %s.\n", u.DisplayName())
	}

	scanner := bufio.NewScanner(a.reader)
	runREPL(ctx, a, a.status, scanner)
}

// Close releases previews, caches and the local database. It is safe to
// call more than once and from the signal handler.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.content.Close()
		a.docs.Close()
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				a.log.Warn(context.Background(), "closing database", "error", err)
			}
		}
	})
}

// wipeMetadata empties the local metadata table in one transaction so no
// trace of the previous user survives a logout.
func (a *App) wipeMetadata(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		keys, err := repo.List(ctx)
		if err != nil {
			return err
		}
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		a.log.Debug(ctx, "local metadata wiped", "keys", len(keys))
		return nil
	})
}

func (a *App) isLoggedIn() bool {
	return a.auth.CurrentUser() != nil
}

func (a *App) status() string {
	u := a.auth.CurrentUser()
	if u == nil {
		return "guest"
	}
	if doc, ok := a.docs.Current(); ok {
		return fmt.Sprintf("%s @ #%d %s v%d", u.DisplayName(), doc.ID, doc.Title, doc.Version)
	}
	return u.DisplayName()
}

// resetView forgets everything tied to the previous user.
func (a *App) resetView() {
	a.content.Close()
	a.mu.Lock()
	a.selection.Clear()
	a.mu.Unlock()
}

// onDocumentChanged drops a loaded view of a document that just changed
// so the viewer never shows content older than the cached metadata.
func (a *App) onDocumentChanged(ctx context.Context, e events.Event) {
	c, ok := a.content.Current()
	if !ok || c.DocumentID != e.DocumentID {
		return
	}
	a.log.Debug(ctx, "dropping viewed content", "document_id", e.DocumentID, "source", e.Source)
	a.content.Close()
}
