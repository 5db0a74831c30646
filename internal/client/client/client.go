package client

import (
	"context"

	"github.com/dmitrijs2005/doccontrol/internal/client/models"
)

// Client is the document-control REST API. Every method fails with an
// error matching one of ErrNotFound, ErrConflict, ErrUnauthorized,
// ErrValidation, ErrUnavailable or ErrTransport.
type Client interface {
	Login(ctx context.Context, username, password string) (*models.Token, error)
	Register(ctx context.Context, req models.UserCreate) (*models.User, error)
	Me(ctx context.Context) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	ListDocuments(ctx context.Context) ([]models.Document, error)
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	UploadDocument(ctx context.Context, req models.DocumentUpload) (*models.Document, error)
	// Download fetches the current content, or version n when n > 0.
	Download(ctx context.Context, id int64, n int) (*models.Blob, error)
	DownloadVersion(ctx context.Context, id int64, n int) (*models.Blob, error)

	ListVersions(ctx context.Context, id int64) ([]models.DocumentVersion, error)
	ListActivities(ctx context.Context, id int64) ([]models.DocumentActivity, error)

	Checkout(ctx context.Context, id int64, comments string) (*models.Document, error)
	// Checkin releases the lock; content, when non-nil, becomes the next version.
	Checkin(ctx context.Context, id int64, comments string, content *models.FileContent) (*models.Document, error)

	ListTasks(ctx context.Context, documentID int64) ([]models.Task, error)
	CreateTask(ctx context.Context, documentID int64, req models.TaskCreate) (*models.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID int64, status models.TaskStatus) (*models.Task, error)
}
