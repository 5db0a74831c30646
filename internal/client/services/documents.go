package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/doccontrol/internal/client/client"
	"github.com/dmitrijs2005/doccontrol/internal/client/events"
	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/common"
	"github.com/dmitrijs2005/doccontrol/internal/logging"
)

// DocumentRepository caches the document list and the open document.
//
// Every cached value is a server response. Nothing here edits version or
// current_checkout locally; callers that mutate a document re-fetch it
// through Get.
type DocumentRepository struct {
	client client.Client
	bus    *events.Bus
	log    logging.Logger

	mu      sync.RWMutex
	docs    []models.Document
	current *models.Document

	subs []int
}

func NewDocumentRepository(c client.Client, bus *events.Bus, log logging.Logger) *DocumentRepository {
	r := &DocumentRepository{client: c, bus: bus, log: log}

	r.subs = append(r.subs,
		bus.Subscribe([]events.EventType{events.EventTasksChanged}, r.onTasksChanged),
		bus.Subscribe([]events.EventType{events.EventSessionExpired}, func(context.Context, events.Event) { r.Reset() }),
	)
	return r
}

// Close detaches the repository from the bus.
func (r *DocumentRepository) Close() {
	for _, id := range r.subs {
		r.bus.Unsubscribe(id)
	}
	r.subs = nil
}

// onTasksChanged refreshes the list and the open document, whichever
// document the tasks belong to.
func (r *DocumentRepository) onTasksChanged(ctx context.Context, e events.Event) {
	if err := r.Refresh(ctx); err != nil {
		r.log.Warn(ctx, "refresh after task change failed", "document_id", e.DocumentID, "error", err)
	}
}

// List fetches the document list and replaces the cache with it.
func (r *DocumentRepository) List(ctx context.Context) ([]models.Document, error) {
	docs, err := r.client.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	r.mu.Lock()
	r.docs = slices.Clone(docs)
	r.mu.Unlock()

	r.bus.Publish(ctx, events.NewEvent(events.EventDocumentsRefreshed, 0, "documents"))
	return docs, nil
}

// Get fetches one document and stores it wherever the cache holds it.
func (r *DocumentRepository) Get(ctx context.Context, id int64) (*models.Document, error) {
	doc, err := r.client.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document %d: %w", id, err)
	}
	r.store(*doc)
	return doc, nil
}

func (r *DocumentRepository) store(doc models.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil && r.current.ID == doc.ID {
		d := doc
		r.current = &d
	}
	if i := slices.IndexFunc(r.docs, func(d models.Document) bool { return d.ID == doc.ID }); i >= 0 {
		r.docs[i] = doc
	}
}

// Open fetches id and makes it the current document.
func (r *DocumentRepository) Open(ctx context.Context, id int64) (*models.Document, error) {
	doc, err := r.client.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open document %d: %w", id, err)
	}

	d := *doc
	r.mu.Lock()
	r.current = &d
	r.mu.Unlock()

	r.store(d)
	return doc, nil
}

// Current returns the open document as last fetched.
func (r *DocumentRepository) Current() (models.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return models.Document{}, false
	}
	return *r.current, true
}

// Cached returns the list as last fetched.
func (r *DocumentRepository) Cached() []models.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.docs)
}

// Refresh re-fetches the list and, when one is open, the current document.
func (r *DocumentRepository) Refresh(ctx context.Context) error {
	if _, err := r.List(ctx); err != nil {
		return err
	}
	if cur, ok := r.Current(); ok {
		if _, err := r.Get(ctx, cur.ID); err != nil {
			return err
		}
	}
	return nil
}

// Upload creates a document and refreshes the list.
func (r *DocumentRepository) Upload(ctx context.Context, req models.DocumentUpload) (*models.Document, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("upload: %w: title is required", common.ErrValidation)
	}
	if len(req.File.Data) == 0 {
		return nil, fmt.Errorf("upload: %w: file is empty", common.ErrValidation)
	}

	doc, err := r.client.UploadDocument(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	r.log.Info(ctx, "document uploaded", "document_id", doc.ID, "title", doc.Title)

	if err := r.Refresh(ctx); err != nil {
		r.log.Warn(ctx, "refresh after upload failed", "error", err)
	}
	r.bus.Publish(ctx, events.NewEvent(events.EventDocumentChanged, doc.ID, "upload"))
	return doc, nil
}

// Reset forgets everything cached, e.g. after the session ended.
func (r *DocumentRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = nil
	r.current = nil
}
