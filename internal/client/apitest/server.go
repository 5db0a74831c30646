// Package apitest runs an in-memory document-control backend over
// httptest for exercising the real HTTP client in tests.
//
// It implements the REST contract the client consumes, including the lock
// rules: a document has at most one open checkout, only the holder may check
// in, and a check-in with new content appends exactly one version.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/common"
	"github.com/dmitrijs2005/doccontrol/internal/timex"
)

// BasePath is the API prefix the server mounts its routes under.
const BasePath = "/api/v1"

type userRecord struct {
	user     models.User
	password string
}

type versionRecord struct {
	meta        models.DocumentVersion
	contentType string
	data        []byte
}

type documentRecord struct {
	doc        models.Document
	versions   []versionRecord
	activities []models.DocumentActivity
}

type failure struct {
	status int
	detail string
}

type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	users    map[int64]*userRecord
	tokens   map[string]int64
	docs     map[int64]*documentRecord
	tasks    map[int64]*models.Task
	hits     map[string]int
	failures map[string][]failure
	nextID   int64
	now      func() time.Time
}

// New starts a server. Callers Close it when done.
func New() *Server {
	s := &Server{
		users:    make(map[int64]*userRecord),
		tokens:   make(map[string]int64),
		docs:     make(map[int64]*documentRecord),
		tasks:    make(map[int64]*models.Task),
		hits:     make(map[string]int),
		failures: make(map[string][]failure),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
	s.srv = httptest.NewServer(s.routes())
	return s
}

// URL is the API base URL, suitable for client.NewHTTPClient.
func (s *Server) URL() string {
	return s.srv.URL + BasePath
}

func (s *Server) Close() {
	s.srv.Close()
}

// AddUser registers an account directly.
func (s *Server) AddUser(email, password, fullName string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, fullName)
}

func (s *Server) addUserLocked(email, password, fullName string) models.User {
	s.nextID++
	u := models.User{ID: s.nextID, Email: email, Username: email, FullName: fullName, IsActive: true}
	s.users[u.ID] = &userRecord{user: u, password: password}
	return u
}

// TokenFor issues a bearer token for userID without a login round trip.
func (s *Server) TokenFor(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := uuid.NewString()
	s.tokens[tok] = userID
	return tok
}

// RevokeTokens forgets every issued token, so the next call gets a 401.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]int64)
}

// FailNext makes the next request matching route answer status with
// detail. route is a mux pattern such as "POST /api/v1/documents/{id}/checkout".
func (s *Server) FailNext(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failure{status: status, detail: detail})
}

// Hits reports how many requests reached route.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Document returns the stored document, as a GET would.
func (s *Server) Document(id int64) (models.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.docs[id]
	if !ok {
		return models.Document{}, false
	}
	return rec.doc, true
}

// ForceCheckout opens a checkout for userID as if another client did it.
func (s *Server) ForceCheckout(docID, userID int64, comments string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.docs[docID]
	s.checkoutLocked(rec, s.users[userID].user, comments)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	p := func(method, path string) string { return method + " " + BasePath + path }

	mux.HandleFunc(p("POST", "/auth/login"), s.wrap(s.login, false))
	mux.HandleFunc(p("POST", "/users/"), s.wrap(s.register, false))
	mux.HandleFunc(p("GET", "/users/me"), s.wrap(s.me, true))
	mux.HandleFunc(p("GET", "/users"), s.wrap(s.listUsers, true))

	mux.HandleFunc(p("GET", "/documents"), s.wrap(s.listDocuments, true))
	mux.HandleFunc(p("POST", "/documents"), s.wrap(s.uploadDocument, true))
	mux.HandleFunc(p("GET", "/documents/{id}"), s.wrap(s.getDocument, true))
	mux.HandleFunc(p("GET", "/documents/{id}/download"), s.wrap(s.download, true))
	mux.HandleFunc(p("GET", "/documents/{id}/versions/{n}/download"), s.wrap(s.downloadVersion, true))
	mux.HandleFunc(p("GET", "/documents/{id}/versions"), s.wrap(s.listVersions, true))
	mux.HandleFunc(p("GET", "/documents/{id}/activities"), s.wrap(s.listActivities, true))
	mux.HandleFunc(p("POST", "/documents/{id}/checkout"), s.wrap(s.checkout, true))
	mux.HandleFunc(p("POST", "/documents/{id}/checkin"), s.wrap(s.checkin, true))
	mux.HandleFunc(p("GET", "/documents/{id}/tasks"), s.wrap(s.listTasks, true))
	mux.HandleFunc(p("POST", "/documents/{id}/tasks"), s.wrap(s.createTask, true))
	mux.HandleFunc(p("PATCH", "/tasks/{id}"), s.wrap(s.updateTask, true))

	return mux
}

type handler func(w http.ResponseWriter, r *http.Request, user *models.User)

// wrap counts the hit, applies injected failures and, when auth is set,
// resolves the bearer token. The store lock is held for the whole request.
func (s *Server) wrap(h handler, auth bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.hits[r.Pattern]++

		if queue := s.failures[r.Pattern]; len(queue) > 0 {
			s.failures[r.Pattern] = queue[1:]
			writeDetail(w, queue[0].status, queue[0].detail)
			return
		}

		var user *models.User
		if auth {
			tok, ok := strings.CutPrefix(r.Header.Get(common.AuthorizationHeader), common.BearerPrefix)
			uid, known := s.tokens[tok]
			if !ok || !known {
				writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}
			u := s.users[uid].user
			user = &u
		}

		h(w, r, user)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeFieldError(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{"loc": []string{"body", field}, "msg": msg, "type": "value_error"}},
	})
}

func pathID(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return v, err == nil
}

func (s *Server) document(w http.ResponseWriter, r *http.Request) (*documentRecord, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFieldError(w, "id", "value is not a valid integer")
		return nil, false
	}
	rec, ok := s.docs[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Document not found")
		return nil, false
	}
	return rec, true
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, _ *models.User) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	for _, rec := range s.users {
		if rec.user.Email == username && rec.password == password {
			tok := uuid.NewString()
			s.tokens[tok] = rec.user.ID
			writeJSON(w, http.StatusOK, models.Token{AccessToken: tok, TokenType: "bearer"})
			return
		}
	}
	writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
}

func (s *Server) register(w http.ResponseWriter, r *http.Request, _ *models.User) {
	var req models.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeFieldError(w, "email", "value is not a valid email address")
		return
	}
	for _, rec := range s.users {
		if rec.user.Email == req.Email {
			writeDetail(w, http.StatusBadRequest, "The user with this email already exists in the system")
			return
		}
	}
	writeJSON(w, http.StatusOK, s.addUserLocked(req.Email, req.Password, req.FullName))
}

func (s *Server) me(w http.ResponseWriter, _ *http.Request, user *models.User) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request, _ *models.User) {
	users := make([]models.User, 0, len(s.users))
	for id := int64(1); id <= s.nextID; id++ {
		if rec, ok := s.users[id]; ok {
			users = append(users, rec.user)
		}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) listDocuments(w http.ResponseWriter, _ *http.Request, _ *models.User) {
	docs := make([]models.Document, 0, len(s.docs))
	for id := int64(1); id <= s.nextID; id++ {
		if rec, ok := s.docs[id]; ok {
			docs = append(docs, rec.doc)
		}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request, _ *models.User) {
	rec, ok := s.document(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec.doc)
}

func readFile(r *http.Request, field string) (name, contentType string, data []byte, ok bool, err error) {
	f, hdr, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return "", "", nil, false, nil
	}
	if err != nil {
		return "", "", nil, false, err
	}
	defer f.Close()

	data, err = io.ReadAll(f)
	if err != nil {
		return "", "", nil, false, err
	}
	ct := hdr.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return hdr.Filename, ct, data, true, nil
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request, user *models.User) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		writeFieldError(w, "title", "field required")
		return
	}
	name, ct, data, ok, err := readFile(r, "file")
	if err != nil || !ok {
		writeFieldError(w, "file", "field required")
		return
	}

	now := s.now()
	s.nextID++
	doc := models.Document{
		ID:          s.nextID,
		Title:       title,
		Description: r.FormValue("description"),
		FilePath:    fmt.Sprintf("uploads/%d/v1/%s", s.nextID, name),
		MimeType:    ct,
		Version:     1,
		OwnerID:     user.ID,
		Tags:        []models.Tag{},
		CreatedBy:   user,
		CreatedAt:   timex.NewTime(now),
		UpdatedAt:   timex.NewTime(now),
	}
	for _, tag := range strings.Split(r.FormValue("tags"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			s.nextID++
			doc.Tags = append(doc.Tags, models.Tag{ID: s.nextID, Name: tag})
		}
	}

	rec := &documentRecord{doc: doc}
	s.appendVersionLocked(rec, *user, "Initial version", ct, data)
	s.docs[doc.ID] = rec

	writeJSON(w, http.StatusOK, rec.doc)
}

func (s *Server) appendVersionLocked(rec *documentRecord, user models.User, comments, ct string, data []byte) {
	s.nextID++
	n := len(rec.versions) + 1
	rec.versions = append(rec.versions, versionRecord{
		meta: models.DocumentVersion{
			ID:            s.nextID,
			VersionNumber: n,
			FilePath:      fmt.Sprintf("uploads/%d/v%d", rec.doc.ID, n),
			CreatedBy:     user,
			CreatedAt:     timex.NewTime(s.now()),
			Comments:      comments,
		},
		contentType: ct,
		data:        append([]byte(nil), data...),
	})
	rec.doc.Version = n
	rec.doc.MimeType = ct
	rec.doc.FilePath = rec.versions[n-1].meta.FilePath
}

func (s *Server) activityLocked(rec *documentRecord, kind models.ActivityType, user models.User, details string) {
	s.nextID++
	rec.activities = append(rec.activities, models.DocumentActivity{
		ID:           s.nextID,
		ActivityType: kind,
		ActivityTime: timex.NewTime(s.now()),
		User:         user,
		Details:      details,
	})
}

func writeBlob(w http.ResponseWriter, v versionRecord) {
	w.Header().Set("Content-Type", v.contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": fmt.Sprintf("v%d", v.meta.VersionNumber),
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(v.data)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request, user *models.User) {
	rec, ok := s.document(w, r)
	if !ok {
		return
	}
	n := rec.doc.Version
	if q := r.URL.Query().Get("version"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil {
			writeFieldError(w, "version", "value is not a valid integer")
			return
		}
		n = v
	}
	if n < 1 || n > len(rec.versions) {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Version %d not found", n))
		return
	}
	s.activityLocked(rec, models.ActivityView, *user, fmt.Sprintf("version %d", n))
	writeBlob(w, rec.versions[n-1])
}

func (s *Server) downloadVersion(w http.ResponseWriter, r *http.Request, _ *models.User) {
	rec, ok := s.document(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 || n > len(rec.versions) {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Version %s not found", r.PathValue("n")))
		return
	}
	writeBlob(w, rec.versions[n-1])
}

func (s *Server) listVersions(w http.ResponseWriter, r *http.Request, _ *models.User) {
	rec, ok := s.document(w, r)
	if !ok {
		return
	}
	out := make([]models.DocumentVersion, 0, len(rec.versions))
	for _, v := range rec.versions {
		out = append(out, v.meta)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request, _ *models.User) {
	rec, ok := s.document(w, r)
	if !ok {
		return
	}
	out := append([]models.DocumentActivity{}, rec.activities...)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) checkoutLocked(rec *documentRecord, user models.User, comments string) {
	s.nextID++
	rec.doc.CurrentCheckout = &models.CheckOutLog{
		ID:           s.nextID,
		DocumentID:   rec.doc.ID,
		CheckedOutBy: user,
		CheckedOutAt: timex.NewTime(s.now()),
		Status:       models.CheckoutStatusCheckedOut,
		Comments:     comments,
	}
	s.activityLocked(rec, models.ActivityCheckout, user, comments)
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request, user *models.User) {
	rec, ok := s.document(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	if co := rec.doc.CurrentCheckout; co != nil {
		if co.CheckedOutBy.ID != user.ID {
			writeDetail(w, http.StatusBadRequest, "Document is already checked out by another user")
			return
		}
		writeJSON(w, http.StatusOK, rec.doc)
		return
	}

	s.checkoutLocked(rec, *user, r.FormValue("comments"))
	writeJSON(w, http.StatusOK, rec.doc)
}

func (s *Server) checkin(w http.ResponseWriter, r *http.Request, user *models.User) {
	rec, ok := s.document(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	co := rec.doc.CurrentCheckout
	if co == nil {
		writeDetail(w, http.StatusBadRequest, "Document is not checked out")
		return
	}
	if co.CheckedOutBy.ID != user.ID {
		writeDetail(w, http.StatusBadRequest, "Document is checked out by another user")
		return
	}

	comments := r.FormValue("comments")
	_, ct, data, hasFile, err := readFile(r, "new_version")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if hasFile {
		s.appendVersionLocked(rec, *user, comments, ct, data)
	}

	rec.doc.CurrentCheckout = nil
	rec.doc.UpdatedAt = timex.NewTime(s.now())
	s.activityLocked(rec, models.ActivityCheckin, *user, comments)

	writeJSON(w, http.StatusOK, rec.doc)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request, _ *models.User) {
	rec, ok := s.document(w, r)
	if !ok {
		return
	}
	out := []models.Task{}
	for id := int64(1); id <= s.nextID; id++ {
		if t, ok := s.tasks[id]; ok && t.DocumentID == rec.doc.ID {
			out = append(out, *t)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request, user *models.User) {
	rec, ok := s.document(w, r)
	if !ok {
		return
	}
	var req models.TaskCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	switch {
	case strings.TrimSpace(req.Title) == "":
		writeFieldError(w, "title", "field required")
		return
	case req.DueDate.IsZero():
		writeFieldError(w, "due_date", "field required")
		return
	}
	assignee, ok := s.users[req.AssignedToID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Assignee not found")
		return
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}

	now := timex.NewTime(s.now())
	s.nextID++
	t := &models.Task{
		ID:          s.nextID,
		DocumentID:  rec.doc.ID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskPending,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		AssignedTo:  assignee.user,
		AssignedBy:  *user,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks[t.ID] = t
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request, _ *models.User) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFieldError(w, "id", "value is not a valid integer")
		return
	}
	t, ok := s.tasks[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	var req models.TaskStatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !t.Status.CanTransitionTo(req.Status) {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Cannot move task from %s to %s", t.Status, req.Status))
		return
	}
	t.Status = req.Status
	t.UpdatedAt = timex.NewTime(s.now())
	writeJSON(w, http.StatusOK, t)
}
