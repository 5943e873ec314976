// Package frontend renders the job list and build history pages
package frontend

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/ethpandaops/buildhistory/pkg/builds"
	"github.com/ethpandaops/buildhistory/pkg/history"
	"github.com/ethpandaops/buildhistory/pkg/jobs"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

// Query parameters shared with the API
const (
	paramNewerThan = "newer-than"
	paramOlderThan = "older-than"
	paramSearch    = "search"
	paramLimit     = "limit"
)

// BuildService is the part of builds.Service the pages use
type BuildService interface {
	Jobs() []jobs.Job
	Job(name string) (jobs.Job, error)
	History(ctx context.Context, job string, query builds.Query) (*history.Page, error)
}

type handler struct {
	cfg       *Config
	builds    BuildService
	templates map[string]*template.Template
	mux       *http.ServeMux
	log       logrus.FieldLogger
}

type jobsView struct {
	Title string
	Job   *jobs.Job
	Jobs  []jobs.Job
}

type historyView struct {
	Title     string
	Job       *jobs.Job
	Page      *history.Page
	Search    string
	NewerLink string
	OlderLink string
}

// NewHandler creates the frontend HTTP handler
func NewHandler(cfg *Config, buildService BuildService, log logrus.FieldLogger) (http.Handler, error) {
	h := &handler{
		cfg:       cfg,
		builds:    buildService,
		templates: make(map[string]*template.Template),
		mux:       http.NewServeMux(),
		log:       log.WithField("component", "frontend"),
	}

	for _, page := range []string{"jobs.html", "history.html"} {
		tmpl, err := template.New(page).
			Funcs(funcMap()).
			ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		h.templates[page] = tmpl
	}

	h.mux.HandleFunc("GET /{$}", h.listJobs)
	h.mux.HandleFunc("GET /jobs/{job}", h.jobHistory)

	return h, nil
}

func funcMap() template.FuncMap {
	fm := sprig.FuncMap()

	fm["resultName"] = func(entry *history.CompletedEntry) string {
		if entry.Result == nil {
			return ""
		}
		return string(*entry.Result)
	}
	fm["elapsed"] = func(d time.Duration) string {
		return d.Round(time.Millisecond).String()
	}

	return fm
}

// ServeHTTP implements http.Handler
func (h *handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.mux.ServeHTTP(w, req)
}

func (h *handler) listJobs(w http.ResponseWriter, _ *http.Request) {
	h.render(w, "jobs.html", jobsView{
		Title: h.cfg.Title,
		Jobs:  h.builds.Jobs(),
	})
}

func (h *handler) jobHistory(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("job")

	job, err := h.builds.Job(name)
	if err != nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	query, err := parseQuery(req.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := h.builds.History(req.Context(), name, query)
	if err != nil {
		h.log.WithError(err).WithField("job", name).Error("Failed to compute history page")
		http.Error(w, "failed to load build history", http.StatusInternalServerError)
		return
	}

	view := historyView{
		Title:  h.cfg.Title,
		Job:    &job,
		Page:   page,
		Search: query.Search,
	}

	if page.HasNewerPage {
		view.NewerLink = pageLink(name, paramNewerThan, page.NewestShown, query)
	}

	if page.HasOlderPage {
		view.OlderLink = pageLink(name, paramOlderThan, page.OldestShown, query)
	}

	h.render(w, "history.html", view)
}

func (h *handler) render(w http.ResponseWriter, page string, data any) {
	var buf bytes.Buffer
	if err := h.templates[page].ExecuteTemplate(&buf, page, data); err != nil {
		h.log.WithError(err).WithField("page", page).Error("Failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func parseQuery(values url.Values) (builds.Query, error) {
	query := builds.Query{Search: values.Get(paramSearch)}

	for param, dest := range map[string]**history.SequenceID{
		paramNewerThan: &query.NewerThan,
		paramOlderThan: &query.OlderThan,
	} {
		raw := values.Get(param)
		if raw == "" {
			continue
		}

		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return builds.Query{}, fmt.Errorf("invalid %s: %q", param, raw)
		}

		id := history.SequenceID(parsed)
		*dest = &id
	}

	if raw := values.Get(paramLimit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return builds.Query{}, fmt.Errorf("invalid %s: %q", paramLimit, raw)
		}
		query.Limit = limit
	}

	return query, nil
}

// pageLink keeps the search and limit of the current page
func pageLink(job, cursor string, id history.SequenceID, query builds.Query) string {
	values := url.Values{}
	values.Set(cursor, strconv.FormatInt(int64(id), 10))

	if query.Search != "" {
		values.Set(paramSearch, query.Search)
	}

	if query.Limit > 0 {
		values.Set(paramLimit, strconv.Itoa(query.Limit))
	}

	return "/jobs/" + url.PathEscape(job) + "?" + values.Encode()
}
