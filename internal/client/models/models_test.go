package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const documentJSON = `{
  "id": 3,
  "title": "Manual",
  "description": "draft",
  "file_path": "uploads/3/manual.txt",
  "mime_type": "text/plain",
  "version": 2,
  "owner_id": 1,
  "tags": [{"id": 1, "name": "eng"}, {"id": 2, "name": "draft"}],
  "created_at": "2024-05-01T09:00:00",
  "updated_at": "2024-05-02T10:30:00.250000",
  "current_checkout": {
    "id": 11,
    "document_id": 3,
    "checked_out_by": {"id": 2, "email": "bob@example.com", "full_name": "Bob", "is_active": true, "is_superuser": false},
    "checked_out_at": "2024-05-02T11:00:00",
    "checked_in_at": null,
    "status": "checked_out",
    "comments": "editing"
  }
}`

func TestDocument_DecodeAndLock(t *testing.T) {
	var d Document
	require.NoError(t, json.Unmarshal([]byte(documentJSON), &d))

	assert.Equal(t, int64(3), d.ID)
	assert.Equal(t, 2, d.Version)
	assert.Equal(t, []string{"eng", "draft"}, d.TagNames())
	assert.Equal(t, time.Date(2024, 5, 2, 10, 30, 0, 250000000, time.UTC), d.UpdatedAt.Time)

	co, ok := d.Lock().(CheckedOut)
	require.True(t, ok)
	assert.Equal(t, "Bob", co.Holder.DisplayName())
	assert.Equal(t, "editing", co.Comments)
	assert.Equal(t, time.Date(2024, 5, 2, 11, 0, 0, 0, time.UTC), co.Since)
	assert.True(t, d.HeldBy(2))
	assert.False(t, d.HeldBy(1))
	assert.Equal(t, "checked out by Bob", d.Lock().String())
}

func TestDocument_Lock_Available(t *testing.T) {
	tests := []struct {
		name string
		co   *CheckOutLog
	}{
		{name: "no record", co: nil},
		{name: "closed record", co: &CheckOutLog{Status: CheckoutStatusCheckedIn, CheckedOutBy: User{ID: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Document{CurrentCheckout: tt.co}
			assert.Equal(t, Available{}, d.Lock())
			assert.False(t, d.HeldBy(2))
		})
	}
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Ann", User{FullName: "Ann", Username: "ann", Email: "a@x"}.DisplayName())
	assert.Equal(t, "ann", User{Username: "ann", Email: "a@x"}.DisplayName())
	assert.Equal(t, "a@x", User{Email: "a@x"}.DisplayName())
}

func TestTaskStatus_Transitions(t *testing.T) {
	all := []TaskStatus{TaskPending, TaskInProgress, TaskCompleted, TaskRejected}
	legal := map[[2]TaskStatus]bool{
		{TaskPending, TaskInProgress}:   true,
		{TaskInProgress, TaskCompleted}: true,
		{TaskInProgress, TaskRejected}:  true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]TaskStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, TaskCompleted.Terminal())
	assert.True(t, TaskRejected.Terminal())
	assert.False(t, TaskPending.Terminal())
	assert.Equal(t, []TaskStatus{TaskCompleted, TaskRejected}, TaskInProgress.Next())
}

func TestParseTaskStatusAndPriority(t *testing.T) {
	st, err := ParseTaskStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, TaskInProgress, st)

	_, err = ParseTaskStatus("done")
	require.Error(t, err)

	p, err := ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, p)

	p, err = ParsePriority("high")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)

	_, err = ParsePriority("urgent")
	require.Error(t, err)
}

func TestBlob_IsText(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{"text/plain", true},
		{"text/markdown; charset=utf-8", true},
		{"TEXT/CSV", true},
		{"application/pdf", false},
		{"image/png", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Blob{ContentType: tt.ct}.IsText(), tt.ct)
	}
}

func TestReadFileContent(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello\n"), 0o600))

	fc, err := ReadFileContent(txt)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", fc.Name)
	assert.Equal(t, "text/plain", MediaType(fc.ContentType))
	assert.Equal(t, []byte("hello\n"), fc.Data)

	noext := filepath.Join(dir, "README")
	require.NoError(t, os.WriteFile(noext, []byte("plain words"), 0o600))
	fc, err = ReadFileContent(noext)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", MediaType(fc.ContentType))

	_, err = ReadFileContent(filepath.Join(dir, "missing"))
	require.Error(t, err)
}
