// Package events is a small in-process bus the client services use to tell
// views that server state changed and should be re-read.
package events

import (
	"context"
	"slices"
	"sync"
	"time"
)

type EventType string

const (
	// EventDocumentsRefreshed follows every successful list fetch.
	EventDocumentsRefreshed EventType = "documents_refreshed"
	// EventDocumentChanged follows a checkout, check-in or upload.
	EventDocumentChanged EventType = "document_changed"
	// EventTasksChanged follows a task create or status change.
	EventTasksChanged EventType = "tasks_changed"
	// EventSessionExpired follows a 401 that cleared the session.
	EventSessionExpired EventType = "session_expired"
)

type Event struct {
	Type       EventType
	DocumentID int64
	Timestamp  time.Time
	Source     string
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, documentID int64, source string) Event {
	return Event{Type: t, DocumentID: documentID, Timestamp: time.Now(), Source: source}
}

type Handler func(ctx context.Context, e Event)

type subscription struct {
	id      int
	types   []EventType
	handler Handler
}

func (s subscription) matches(t EventType) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

// Bus delivers events synchronously, in subscription order, on the
// publisher's goroutine. Handlers may publish or (un)subscribe.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID int
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler for types; no types means every event. The
// returned id is passed to Unsubscribe.
func (b *Bus) Subscribe(types []EventType, handler Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs = append(b.subs, subscription{id: b.nextID, types: slices.Clone(types), handler: handler})
	return b.nextID
}

func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.id == id })
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.matches(e.Type) {
			s.handler(ctx, e)
		}
	}
}
