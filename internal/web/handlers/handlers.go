package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jredh-dev/easyhope/config"
	"github.com/jredh-dev/easyhope/internal/backend"
	"github.com/jredh-dev/easyhope/internal/comments"
	"github.com/jredh-dev/easyhope/internal/donation"
	"github.com/jredh-dev/easyhope/internal/events"
	"github.com/jredh-dev/easyhope/internal/flash"
	"github.com/jredh-dev/easyhope/internal/logging"
	"github.com/jredh-dev/easyhope/internal/moderation"
	"github.com/jredh-dev/easyhope/internal/money"
	"github.com/jredh-dev/easyhope/internal/nav"
	"github.com/jredh-dev/easyhope/internal/session"
	"github.com/jredh-dev/easyhope/internal/web/templates"
	"github.com/jredh-dev/easyhope/pkg/models"
)

// Deps are the services the handlers call into.
type Deps struct {
	Config    *config.Config
	API       backend.Client
	Sessions  *session.Manager
	Comments  *comments.Service
	Donations *donation.Service
	Admin     *moderation.Service
	Events    *events.Recorder
	Log       zerolog.Logger
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	cfg       *config.Config
	api       backend.Client
	sessions  *session.Manager
	comments  *comments.Service
	donations *donation.Service
	admin     *moderation.Service
	events    *events.Recorder
	log       zerolog.Logger
	templates map[string]*template.Template
	actions   *nav.Registry
}

var pages = []string{
	"home.html", "explore.html", "project.html", "checkout.html",
	"login.html", "register.html", "dashboard.html", "campaign.html",
	"admin.html", "confirm.html", "error.html",
}

// New creates a handler with parsed templates.
func New(d Deps) (*Handler, error) {
	h := &Handler{
		cfg:       d.Config,
		api:       d.API,
		sessions:  d.Sessions,
		comments:  d.Comments,
		donations: d.Donations,
		admin:     d.Admin,
		events:    d.Events,
		log:       d.Log,
		templates: make(map[string]*template.Template),
		actions:   nav.New(),
	}

	// Collect shared templates: base.html + all partials.
	shared := []string{"base.html"}
	partials, err := fs.Glob(templates.FS, "partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob partials: %w", err)
	}
	shared = append(shared, partials...)

	funcs := h.funcs()
	for _, page := range pages {
		files := make([]string, 0, len(shared)+1)
		files = append(files, shared...)
		files = append(files, page)

		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templates.FS, files...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		h.templates[page] = tmpl
	}
	return h, nil
}

func (h *Handler) funcs() template.FuncMap {
	base := h.cfg.Backend.BaseURL
	return template.FuncMap{
		"money": money.Format,
		"asset": func(path string) string { return models.AssetURL(base, path) },
		"avatar": func(c models.Comment) string {
			return comments.Avatar(base, c)
		},
		"userImage": func(id *models.Identity) string {
			if id == nil || id.Image == "" {
				return comments.DefaultAvatar
			}
			return models.AssetURL(base, id.Image)
		},
		"date": func(t models.Timestamp) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"ms": func(d time.Duration) int64 { return d.Milliseconds() },
	}
}

// render executes a page inside the base layout. Every page receives the
// session, the navbar links and any pending flash notice.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	tmpl, ok := h.templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %s not found", name), http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = map[string]any{}
	}

	sess := session.FromContext(r.Context())
	viewer := nav.Viewer{LoggedIn: sess.Authenticated(), IsAdmin: sess.IsAdmin()}
	data["Year"] = time.Now().Year()
	data["Brand"] = h.cfg.Checkout.BrandName
	data["LoggedIn"] = viewer.LoggedIn
	data["IsAdmin"] = viewer.IsAdmin
	if viewer.LoggedIn {
		data["User"] = sess.Identity
	}
	data["Nav"] = h.actions.Links(viewer)
	data["Path"] = r.URL.Path
	if notice, ok := flash.ReadAndClear(w, r); ok {
		data["Flash"] = notice
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		logging.From(r).Error().Err(err).Str("template", name).Msg("render template")
	}
}

// renderError shows a full-page error message.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.render(w, r, status, "error.html", map[string]any{
		"Title":   http.StatusText(status),
		"Message": msg,
	})
}

// redirectWith stores a flash notice and redirects with 303.
func redirectWith(w http.ResponseWriter, r *http.Request, target string, notice flash.Notice) {
	flash.Write(w, r, notice)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	return id, err == nil && id > 0
}

func projectPath(id int64) string {
	return "/project/" + strconv.FormatInt(id, 10)
}
