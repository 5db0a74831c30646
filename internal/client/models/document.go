package models

import (
	"time"

	"github.com/dmitrijs2005/doccontrol/internal/timex"
)

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CheckoutStatus is the state of a single checkout record.
type CheckoutStatus string

const (
	CheckoutStatusCheckedOut CheckoutStatus = "checked_out"
	CheckoutStatusCheckedIn  CheckoutStatus = "checked_in"
)

// CheckOutLog is one checkout record. Only the open record of a document is
// ever delivered as its current_checkout.
type CheckOutLog struct {
	ID           int64          `json:"id"`
	DocumentID   int64          `json:"document_id"`
	CheckedOutBy User           `json:"checked_out_by"`
	CheckedOutAt timex.Time     `json:"checked_out_at"`
	CheckedInAt  *timex.Time    `json:"checked_in_at,omitempty"`
	Status       CheckoutStatus `json:"status"`
	Comments     string         `json:"comments,omitempty"`
}

// Document is the server's view of a controlled document. Version starts at
// 1 and only the server changes it.
type Document struct {
	ID              int64        `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	FilePath        string       `json:"file_path"`
	MimeType        string       `json:"mime_type"`
	Version         int          `json:"version"`
	OwnerID         int64        `json:"owner_id"`
	Tags            []Tag        `json:"tags"`
	CreatedBy       *User        `json:"created_by,omitempty"`
	CreatedAt       timex.Time   `json:"created_at"`
	UpdatedAt       timex.Time   `json:"updated_at"`
	CurrentCheckout *CheckOutLog `json:"current_checkout,omitempty"`
}

// LockState is either Available or CheckedOut. Switch on the concrete type.
type LockState interface {
	isLockState()
	String() string
}

// Available means nobody holds the document.
type Available struct{}

// CheckedOut means Holder has held the document since Since.
type CheckedOut struct {
	Holder   User
	Since    time.Time
	Comments string
}

func (Available) isLockState()  {}
func (CheckedOut) isLockState() {}

func (Available) String() string { return "available" }

func (c CheckedOut) String() string {
	return "checked out by " + c.Holder.DisplayName()
}

// Lock derives the lock state from the checkout record the server sent.
func (d Document) Lock() LockState {
	co := d.CurrentCheckout
	if co == nil || co.Status == CheckoutStatusCheckedIn {
		return Available{}
	}
	return CheckedOut{Holder: co.CheckedOutBy, Since: co.CheckedOutAt.Time, Comments: co.Comments}
}

// HeldBy reports whether userID currently holds the lock.
func (d Document) HeldBy(userID int64) bool {
	co, ok := d.Lock().(CheckedOut)
	return ok && co.Holder.ID == userID
}

// TagNames returns the tag names in server order.
func (d Document) TagNames() []string {
	names := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		names = append(names, t.Name)
	}
	return names
}
