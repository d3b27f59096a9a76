// Package backendtest provides an in-memory crowdfunding backend served over
// httptest for exercising the real HTTP client in tests.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/jredh-dev/easyhope/pkg/models"
)

// Account is a user known to the fake backend.
type Account struct {
	Identity models.Identity
	Password string
}

// Backend is a minimal stand-in for the REST API.
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	accounts  map[string]*Account // by email
	tokens    map[string]int64    // token -> user id
	projects  []models.Project
	comments  []models.Comment
	donations []models.Donation
	stats     models.Stats
	orders    map[string]float64
	requests  []string
	failures  map[string]int // "METHOD /path" -> status
	nextID    int64
	verifyOK  bool
	verified  []map[string]any
	hook      func(r *http.Request)
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		accounts: make(map[string]*Account),
		tokens:   make(map[string]int64),
		orders:   make(map[string]float64),
		failures: make(map[string]int),
		nextID:   1000,
		verifyOK: true,
	}
	b.Server = httptest.NewServer(b.router())
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the fake's base URL.
func (b *Backend) URL() string { return b.Server.URL }

// AddAccount registers a user and returns a bearer token for it.
func (b *Backend) AddAccount(id models.Identity, password string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[id.Email] = &Account{Identity: id, Password: password}
	token := fmt.Sprintf("token-%d", id.ID)
	b.tokens[token] = id.ID
	return token
}

// AddProjects appends campaigns.
func (b *Backend) AddProjects(ps ...models.Project) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.projects = append(b.projects, ps...)
}

// AddComments appends comments.
func (b *Backend) AddComments(cs ...models.Comment) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.comments = append(b.comments, cs...)
}

// AddDonations appends donations.
func (b *Backend) AddDonations(ds ...models.Donation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.donations = append(b.donations, ds...)
}

// SetStats replaces the admin counters.
func (b *Backend) SetStats(s models.Stats) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = s
}

// Fail makes "METHOD /path" answer with status until cleared with 0.
func (b *Backend) Fail(method, path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + path
	if status == 0 {
		delete(b.failures, key)
		return
	}
	b.failures[key] = status
}

// SetVerifyResult controls whether payment verification succeeds.
func (b *Backend) SetVerifyResult(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.verifyOK = ok
}

// OnRequest installs a hook run before each request is served.
func (b *Backend) OnRequest(fn func(r *http.Request)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hook = fn
}

// Requests returns "METHOD /path" for every request received so far.
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

// Count returns how often "METHOD /path" was requested.
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r == method+" "+path {
			n++
		}
	}
	return n
}

// Verified returns the verify-payment bodies received.
func (b *Backend) Verified() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.verified...)
}

// Project returns the current state of a campaign.
func (b *Backend) Project(id int64) (models.Project, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.projects {
		if p.ID == id {
			return p, true
		}
	}
	return models.Project{}, false
}

func (b *Backend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Get("/api/projects", b.listProjects)
	r.Post("/api/projects", b.authed(b.createProject))
	r.Get("/api/projects/user/{id}", b.authed(b.userProjects))
	r.Get("/api/projects/{id}", b.getProject)

	r.Get("/api/donations", b.authed(b.listDonations))
	r.Get("/api/donations/user/{id}", b.authed(b.userDonations))
	r.Post("/api/donations/create-order", b.createOrder)
	r.Post("/api/donations/verify-payment", b.verifyPayment)

	r.Get("/api/comments/{projectID}", b.listComments)
	r.Post("/api/comments/{projectID}/comments", b.authed(b.postComment))
	r.Delete("/api/comments/{id}", b.authed(b.deleteComment))

	r.Post("/api/auth/login", b.login)
	r.Get("/api/auth/me", b.authed(b.me))
	r.Post("/api/auth/logout", b.authed(func(w http.ResponseWriter, r *http.Request, _ int64) {
		w.WriteHeader(http.StatusOK)
	}))
	r.Post("/api/users/register", b.register)
	r.Put("/api/users/update", b.authed(b.updateUser))
	r.Delete("/api/users/delete-user/{id}", b.authed(b.deleteUser))

	r.Get("/api/admin/stats", b.authed(b.adminStats))
	r.Get("/api/admin/pending-projects", b.authed(b.pendingProjects))
	r.Get("/api/admin/users", b.authed(b.adminUsers))
	r.Get("/api/admin/projects", b.authed(b.adminProjects))
	r.Get("/api/admin/comments", b.authed(b.adminComments))
	r.Post("/api/admin/approve-project/{id}", b.authed(b.setStatus(models.StatusApproved)))
	r.Post("/api/admin/reject-project/{id}", b.authed(b.setStatus(models.StatusRejected)))
	r.Delete("/api/admin/delete-project/{id}", b.authed(b.deleteProject))
	return r
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.requests = append(b.requests, key)
		status := b.failures[key]
		hook := b.hook
		b.mu.Unlock()

		if hook != nil {
			hook(r)
		}
		if status != 0 {
			writeJSON(w, status, map[string]string{"message": "forced failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authed(fn func(w http.ResponseWriter, r *http.Request, uid int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		uid, ok := b.tokens[token]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
			return
		}
		fn(w, r, uid)
	}
}

func (b *Backend) identity(uid int64) *models.Identity {
	for _, a := range b.accounts {
		if a.Identity.ID == uid {
			id := a.Identity
			return &id
		}
	}
	return nil
}

func (b *Backend) listProjects(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, append([]models.Project{}, b.projects...))
}

func (b *Backend) getProject(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.projects {
		if p.ID == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "project not found"})
}

func (b *Backend) userProjects(w http.ResponseWriter, r *http.Request, _ int64) {
	id := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Project
	for _, p := range b.projects {
		if p.CreatorID == id {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no projects"})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createProject(w http.ResponseWriter, r *http.Request, _ int64) {
	var p models.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad json"})
		return
	}
	b.mu.Lock()
	b.nextID++
	p.ID = b.nextID
	p.Status = models.StatusPending
	b.projects = append(b.projects, p)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, p)
}

func (b *Backend) listDonations(w http.ResponseWriter, _ *http.Request, _ int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, append([]models.Donation{}, b.donations...))
}

func (b *Backend) userDonations(w http.ResponseWriter, r *http.Request, _ int64) {
	id := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Donation{}
	for _, d := range b.donations {
		if d.UserID == id {
			out = append(out, d)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid amount"})
		return
	}
	b.mu.Lock()
	b.nextID++
	orderID := fmt.Sprintf("order_%d", b.nextID)
	b.orders[orderID] = req.Amount
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, models.Order{OrderID: orderID, Amount: req.Amount * 100, Currency: "INR", Key: "rzp_test_key"})
}

func (b *Backend) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad json"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.verified = append(b.verified, body)
	if !b.verifyOK {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "signature mismatch"})
		return
	}
	projectID, _ := body["projectId"].(float64)
	amount, _ := body["amount"].(float64)
	for i := range b.projects {
		if b.projects[i].ID == int64(projectID) {
			b.projects[i].RaisedAmount += amount
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "verified"})
}

func (b *Backend) listComments(w http.ResponseWriter, r *http.Request) {
	pid := pathID(r, "projectID")
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []map[string]any{}
	for _, c := range b.comments {
		if c.ProjectID == pid {
			out = append(out, map[string]any{
				"id":        c.ID,
				"text":      c.Text,
				"projectId": c.ProjectID,
				"user":      map[string]any{"id": c.UserID, "name": c.UserName, "image": c.ProfileImage},
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) postComment(w http.ResponseWriter, r *http.Request, uid int64) {
	pid := pathID(r, "projectID")
	var req struct {
		Text   string `json:"text"`
		UserID int64  `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "text required"})
		return
	}
	b.mu.Lock()
	b.nextID++
	c := models.Comment{ID: b.nextID, Text: req.Text, UserID: uid, ProjectID: pid}
	if id := b.identity(uid); id != nil {
		c.UserName = id.Name
		c.ProfileImage = id.Image
	}
	b.comments = append(b.comments, c)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, c)
}

func (b *Backend) deleteComment(w http.ResponseWriter, r *http.Request, _ int64) {
	id := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, c := range b.comments {
		if c.ID == id {
			b.comments = append(b.comments[:i], b.comments[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "comment not found"})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad json"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[req.Email]
	if !ok || a.Password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	token := fmt.Sprintf("token-%d", a.Identity.ID)
	b.tokens[token] = a.Identity.ID
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": a.Identity})
}

func (b *Backend) me(w http.ResponseWriter, _ *http.Request, uid int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.identity(uid)
	if id == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "unknown user"})
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "multipart required"})
		return
	}
	email := r.FormValue("email")
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[email]; exists {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Email already registered"})
		return
	}
	b.nextID++
	id := models.Identity{ID: b.nextID, Name: r.FormValue("name"), Email: email, Role: models.RoleUser}
	if _, hdr, err := r.FormFile("image"); err == nil {
		id.Image = "/uploads/" + hdr.Filename
	}
	b.accounts[email] = &Account{Identity: id, Password: r.FormValue("password")}
	writeJSON(w, http.StatusCreated, id)
}

func (b *Backend) updateUser(w http.ResponseWriter, r *http.Request, uid int64) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "multipart required"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for email, a := range b.accounts {
		if a.Identity.ID != uid {
			continue
		}
		delete(b.accounts, email)
		a.Identity.Name = r.FormValue("name")
		a.Identity.Email = r.FormValue("email")
		if p := r.FormValue("password"); p != "" {
			a.Password = p
		}
		if _, hdr, err := r.FormFile("image"); err == nil {
			a.Identity.Image = "/uploads/" + hdr.Filename
		}
		b.accounts[a.Identity.Email] = a
		writeJSON(w, http.StatusOK, a.Identity)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "user not found"})
}

func (b *Backend) deleteUser(w http.ResponseWriter, r *http.Request, _ int64) {
	id := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for email, a := range b.accounts {
		if a.Identity.ID == id {
			delete(b.accounts, email)
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "user not found"})
}

func (b *Backend) adminStats(w http.ResponseWriter, _ *http.Request, _ int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.stats)
}

func (b *Backend) pendingProjects(w http.ResponseWriter, _ *http.Request, _ int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Project{}
	for _, p := range b.projects {
		if p.Status == models.StatusPending {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) adminUsers(w http.ResponseWriter, _ *http.Request, _ int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Identity{}
	for _, a := range b.accounts {
		out = append(out, a.Identity)
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) adminProjects(w http.ResponseWriter, _ *http.Request, _ int64) {
	b.listProjects(w, nil)
}

func (b *Backend) adminComments(w http.ResponseWriter, _ *http.Request, _ int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, append([]models.Comment{}, b.comments...))
}

func (b *Backend) setStatus(status models.ProjectStatus) func(http.ResponseWriter, *http.Request, int64) {
	return func(w http.ResponseWriter, r *http.Request, _ int64) {
		id := pathID(r, "id")
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.projects {
			if b.projects[i].ID == id {
				b.projects[i].Status = status
				writeJSON(w, http.StatusOK, b.projects[i])
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "project not found"})
	}
}

func (b *Backend) deleteProject(w http.ResponseWriter, r *http.Request, _ int64) {
	id := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.projects {
		if p.ID == id {
			b.projects = append(b.projects[:i], b.projects[i+1:]...)
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "project not found"})
}

func pathID(r *http.Request, key string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
