package models

import "github.com/dmitrijs2005/doccontrol/internal/timex"

// DocumentVersion is an immutable snapshot created by a content check-in.
type DocumentVersion struct {
	ID            int64      `json:"id"`
	VersionNumber int        `json:"version_number"`
	FilePath      string     `json:"file_path"`
	CreatedBy     User       `json:"created_by"`
	CreatedAt     timex.Time `json:"created_at"`
	Comments      string     `json:"comments,omitempty"`
}

type ActivityType string

const (
	ActivityCheckout ActivityType = "checkout"
	ActivityCheckin  ActivityType = "checkin"
	ActivityView     ActivityType = "view"
)

type DocumentActivity struct {
	ID           int64        `json:"id"`
	ActivityType ActivityType `json:"activity_type"`
	ActivityTime timex.Time   `json:"activity_time"`
	User         User         `json:"user"`
	Details      string       `json:"details,omitempty"`
}
