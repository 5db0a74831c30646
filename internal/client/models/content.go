package models

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Blob is a downloaded document body with the Content-Type the server
// reported for it.
type Blob struct {
	ContentType string
	Filename    string
	Data        []byte
}

// MediaType is the Content-Type without parameters, lower-cased.
func (b Blob) MediaType() string {
	return MediaType(b.ContentType)
}

// IsText reports whether the blob is a text/* payload.
func (b Blob) IsText() bool {
	return strings.HasPrefix(b.MediaType(), "text/")
}

// MediaType strips parameters from a Content-Type value.
func MediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// FileContent is a local file staged for upload or check-in.
type FileContent struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReadFileContent loads path and guesses its content type from the
// extension, falling back to sniffing the first bytes.
func ReadFileContent(path string) (*FileContent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ct == "" {
		ct = http.DetectContentType(data)
	}

	return &FileContent{Name: filepath.Base(path), ContentType: ct, Data: data}, nil
}

// DocumentUpload is the payload of POST /documents.
type DocumentUpload struct {
	Title       string
	Description string
	Tags        []string
	File        FileContent
}
