package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/common"
	"github.com/dmitrijs2005/doccontrol/internal/logging"
	"github.com/dmitrijs2005/doccontrol/internal/netx"
)

// maxErrorBody bounds how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// Authenticator supplies the bearer token and is told when the server
// rejects it. *session.Session implements it.
// Authenticator supplies the bearer token. Token returns "" once the token
// has expired while Held keeps reporting true until Invalidate runs.
type Authenticator interface {
	Token() string
	Held() bool
	Invalidate(ctx context.Context)
}

type HTTPClient struct {
	baseURL   *url.URL
	http      *http.Client
	auth      Authenticator
	log       logging.Logger
	requestID func() string
}

type Option func(*HTTPClient)

// WithRequestID replaces the X-Request-ID generator.
func WithRequestID(fn func() string) Option {
	return func(c *HTTPClient) { c.requestID = fn }
}

// NewHTTPClient builds a client rooted at baseURL, for example
// http://localhost:8002/api/v1. timeout bounds each request.
func NewHTTPClient(baseURL string, auth Authenticator, log logging.Logger, timeout time.Duration, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}

	c := &HTTPClient{
		baseURL:   u,
		http:      &http.Client{Timeout: timeout},
		auth:      auth,
		log:       log,
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HTTPClient) endpoint(query url.Values, elems ...string) string {
	u := c.baseURL.JoinPath(elems...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

// do sends the request and returns the response for 2xx statuses only.
// Every other outcome is mapped to the error taxonomy.
func (c *HTTPClient) do(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	reqID := c.requestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeader, reqID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	token := c.auth.Token()
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "request failed", "method", method, "url", target, "request_id", reqID, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, req.URL.Path, err)
	}

	c.log.Debug(ctx, "request done", "method", method, "url", target, "status", resp.StatusCode, "request_id", reqID)

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, c.mapResponse(ctx, resp, token != "" || c.auth.Held())
	}
	return resp, nil
}

// mapResponse converts a non-2xx response into an *APIError. A 401 on an
// authenticated request invalidates the session.
func (c *HTTPClient) mapResponse(ctx context.Context, resp *http.Response, authenticated bool) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode, Detail: parseDetail(raw)}

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized:
		apiErr.Err = ErrUnauthorized
		if authenticated {
			c.auth.Invalidate(ctx)
		}
	case code == http.StatusNotFound:
		apiErr.Err = ErrNotFound
	case code == http.StatusConflict, code == http.StatusLocked:
		apiErr.Err = ErrConflict
	case code == http.StatusBadRequest && isLockConflict(apiErr.Detail):
		apiErr.Err = ErrConflict
	case code >= http.StatusInternalServerError:
		apiErr.Err = ErrUnavailable
	default:
		apiErr.Err = ErrValidation
	}
	return apiErr
}

// isLockConflict recognises the 400 the backend uses for lock contention.
func isLockConflict(detail string) bool {
	d := strings.ToLower(detail)
	return strings.Contains(d, "already checked out") || strings.Contains(d, "checked out by another user")
}

// parseDetail extracts a human message from an error body. FastAPI sends
// {"detail": "..."} or {"detail": [{"loc": [...], "msg": "..."}]}.
func parseDetail(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Detail) == 0 {
		if len(raw) > 200 {
			raw = raw[:200]
		}
		return string(raw)
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if len(it.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return string(envelope.Detail)
}

func (c *HTTPClient) doJSON(ctx context.Context, method, target string, in, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, target, body, contentType)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *HTTPClient) doForm(ctx context.Context, target string, fields map[string]string, out any, files ...netx.FormFile) error {
	body, contentType, err := netx.MultipartForm(fields, files...)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, target, body, contentType)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrTransport, err)
	}
	return nil
}

func (c *HTTPClient) download(ctx context.Context, target string) (*models.Blob, error) {
	resp, err := c.do(ctx, http.MethodGet, target, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	blob := &models.Blob{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		blob.Filename = params["filename"]
	}
	return blob, nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (*models.Token, error) {
	form := url.Values{"username": {username}, "password": {password}}

	resp, err := c.do(ctx, http.MethodPost, c.endpoint(nil, "auth", "login"),
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}

	var tok models.Token
	if err := decode(resp, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response without access token", ErrTransport)
	}
	return &tok, nil
}

func (c *HTTPClient) Register(ctx context.Context, req models.UserCreate) (*models.User, error) {
	var u models.User
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint(nil, "users")+"/", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint(nil, "users", "me"), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint(nil, "users"), nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *HTTPClient) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint(nil, "documents"), nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *HTTPClient) GetDocument(ctx context.Context, docID int64) (*models.Document, error) {
	var d models.Document
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint(nil, "documents", id(docID)), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) UploadDocument(ctx context.Context, req models.DocumentUpload) (*models.Document, error) {
	fields := map[string]string{
		"title":       req.Title,
		"description": req.Description,
		"tags":        strings.Join(req.Tags, ","),
	}
	file := netx.FormFile{Field: "file", Name: req.File.Name, ContentType: req.File.ContentType, Data: req.File.Data}

	var d models.Document
	if err := c.doForm(ctx, c.endpoint(nil, "documents"), fields, &d, file); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) Download(ctx context.Context, docID int64, n int) (*models.Blob, error) {
	var q url.Values
	if n > 0 {
		q = url.Values{"version": {strconv.Itoa(n)}}
	}
	return c.download(ctx, c.endpoint(q, "documents", id(docID), "download"))
}

func (c *HTTPClient) DownloadVersion(ctx context.Context, docID int64, n int) (*models.Blob, error) {
	return c.download(ctx, c.endpoint(nil, "documents", id(docID), "versions", strconv.Itoa(n), "download"))
}

func (c *HTTPClient) ListVersions(ctx context.Context, docID int64) ([]models.DocumentVersion, error) {
	var versions []models.DocumentVersion
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint(nil, "documents", id(docID), "versions"), nil, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

func (c *HTTPClient) ListActivities(ctx context.Context, docID int64) ([]models.DocumentActivity, error) {
	var acts []models.DocumentActivity
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint(nil, "documents", id(docID), "activities"), nil, &acts); err != nil {
		return nil, err
	}
	return acts, nil
}

func (c *HTTPClient) Checkout(ctx context.Context, docID int64, comments string) (*models.Document, error) {
	var d models.Document
	err := c.doForm(ctx, c.endpoint(nil, "documents", id(docID), "checkout"), map[string]string{"comments": comments}, &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) Checkin(ctx context.Context, docID int64, comments string, content *models.FileContent) (*models.Document, error) {
	var files []netx.FormFile
	if content != nil {
		files = append(files, netx.FormFile{Field: "new_version", Name: content.Name, ContentType: content.ContentType, Data: content.Data})
	}

	var d models.Document
	err := c.doForm(ctx, c.endpoint(nil, "documents", id(docID), "checkin"), map[string]string{"comments": comments}, &d, files...)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) ListTasks(ctx context.Context, documentID int64) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint(nil, "documents", id(documentID), "tasks"), nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *HTTPClient) CreateTask(ctx context.Context, documentID int64, req models.TaskCreate) (*models.Task, error) {
	var t models.Task
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint(nil, "documents", id(documentID), "tasks"), req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) UpdateTaskStatus(ctx context.Context, taskID int64, status models.TaskStatus) (*models.Task, error) {
	var t models.Task
	err := c.doJSON(ctx, http.MethodPatch, c.endpoint(nil, "tasks", id(taskID)), models.TaskStatusUpdate{Status: status}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

var _ Client = (*HTTPClient)(nil)

// IsUnauthorized is a shorthand for errors.Is(err, ErrUnauthorized).
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
