package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmitrijs2005/doccontrol/internal/client/client"
	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/common"
	"github.com/dmitrijs2005/doccontrol/internal/filex"
	"github.com/dmitrijs2005/doccontrol/internal/logging"
)

// Content is a loaded document body. Text payloads carry Text; PDF and
// image payloads are written to a preview file and carry PreviewPath and
// PreviewURL instead.
type Content struct {
	DocumentID  int64
	Version     int
	ContentType string
	Filename    string
	Size        int
	Text        string
	PreviewPath string
	PreviewURL  string
}

func (c *Content) IsPreview() bool {
	return c.PreviewPath != ""
}

// previewable reports whether a media type gets a file-backed preview.
func previewable(mediaType string) bool {
	return mediaType == "application/pdf" || strings.HasPrefix(mediaType, "image/")
}

// ContentLoader fetches document bodies for viewing.
//
// It owns at most one preview file at a time: the previous one is removed
// before a new one is created, and Close removes the last. Loads are
// ordered by request, not by completion: a response that arrives after a
// newer Load started is dropped and its Load returns common.ErrStaleResponse.
type ContentLoader struct {
	client client.Client
	dir    string
	log    logging.Logger

	mu      sync.Mutex
	seq     uint64
	current *Content
}

// NewContentLoader stores previews under dir, or the system temp dir when
// dir is empty.
func NewContentLoader(c client.Client, dir string, log logging.Logger) *ContentLoader {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "doccontrol-previews")
	}
	return &ContentLoader{client: c, dir: dir, log: log}
}

// Load fetches version of doc, or the latest when version is 0.
func (l *ContentLoader) Load(ctx context.Context, doc models.Document, version int) (*Content, error) {
	l.mu.Lock()
	l.seq++
	token := l.seq
	l.mu.Unlock()

	blob, err := l.client.Download(ctx, doc.ID, version)

	l.mu.Lock()
	defer l.mu.Unlock()

	if token != l.seq {
		l.log.Debug(ctx, "stale content response dropped", "document_id", doc.ID, "version", version)
		return nil, common.ErrStaleResponse
	}
	if err != nil {
		return nil, fmt.Errorf("load document %d: %w", doc.ID, err)
	}

	ct := blob.ContentType
	if ct == "" {
		ct = doc.MimeType
	}

	c := &Content{
		DocumentID:  doc.ID,
		Version:     version,
		ContentType: ct,
		Filename:    blob.Filename,
		Size:        len(blob.Data),
	}
	if c.Version == 0 {
		c.Version = doc.Version
	}

	l.releaseLocked(ctx)

	if previewable(models.MediaType(ct)) {
		path, err := l.writePreview(doc.ID, c.Version, ct, blob.Data)
		if err != nil {
			return nil, fmt.Errorf("load document %d: %w", doc.ID, err)
		}
		c.PreviewPath = path
		c.PreviewURL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
	} else {
		c.Text = string(blob.Data)
	}

	l.current = c
	out := *c
	return &out, nil
}

func (l *ContentLoader) writePreview(docID int64, version int, contentType string, data []byte) (string, error) {
	dir, err := filex.EnsureDir(l.dir)
	if err != nil {
		return "", err
	}

	ext := ""
	if exts, _ := mime.ExtensionsByType(models.MediaType(contentType)); len(exts) > 0 {
		ext = exts[0]
	}

	f, err := os.CreateTemp(dir, fmt.Sprintf("doc%d-v%d-*%s", docID, version, ext))
	if err != nil {
		return "", fmt.Errorf("create preview: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write preview: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write preview: %w", err)
	}
	return f.Name(), nil
}

func (l *ContentLoader) releaseLocked(ctx context.Context) {
	if l.current == nil {
		return
	}
	if p := l.current.PreviewPath; p != "" {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			l.log.Warn(ctx, "failed to remove preview", "path", p, "error", err)
		}
	}
	l.current = nil
}

// Current returns the content of the last accepted Load.
func (l *ContentLoader) Current() (*Content, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return nil, false
	}
	out := *l.current
	return &out, true
}

// Close removes the preview file and makes any Load still in flight stale.
func (l *ContentLoader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.releaseLocked(context.Background())
}

// Export downloads version of doc into dir and returns the written path.
// It does not touch the viewer state.
func (l *ContentLoader) Export(ctx context.Context, doc models.Document, version int, dir string) (string, error) {
	blob, err := l.client.Download(ctx, doc.ID, version)
	if err != nil {
		return "", fmt.Errorf("download document %d: %w", doc.ID, err)
	}

	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return "", err
	}

	name := filex.SafeName(doc.Title, fmt.Sprintf("document-%d", doc.ID))
	if version > 0 {
		ext := filepath.Ext(name)
		name = fmt.Sprintf("%s.v%d%s", strings.TrimSuffix(name, ext), version, ext)
	}

	path := filepath.Join(abs, name)
	if err := os.WriteFile(path, blob.Data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	l.log.Info(ctx, "document exported", "document_id", doc.ID, "path", path)
	return path, nil
}
