package handlers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/icco/mango/handlers/templates"
	"github.com/icco/mango/lib/catalog"
	"github.com/icco/mango/lib/metrics"
	"github.com/icco/mango/lib/seed"
	"github.com/icco/mango/lib/session"
	"github.com/icco/mango/lib/watchlist"
	"github.com/icco/mango/models"
	"gorm.io/gorm"
)

// DBSource hands out the shared database connection, opening it on demand.
type DBSource interface {
	DB(ctx context.Context) (*gorm.DB, error)
}

// Deps are the collaborators shared by the page handlers.
type Deps struct {
	DB       DBSource
	Sessions *session.Store
	Seeder   *seed.Seeder
	Metrics  *metrics.Recorder
	Logger   *slog.Logger

	// Now is used for the footer year. Defaults to time.Now.
	Now func() time.Time

	indexPage *template.Template
	errorPage *template.Template
}

// Init parses the page templates. It must be called before the handlers run.
func (d *Deps) Init() error {
	var err error
	if d.indexPage, err = templates.ParseTemplates("base.html", "index.html"); err != nil {
		return fmt.Errorf("failed to parse index template: %w", err)
	}
	if d.errorPage, err = templates.ParseTemplates("base.html", "error.html"); err != nil {
		return fmt.Errorf("failed to parse error template: %w", err)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return nil
}

// Assets serves the embedded stylesheet.
func Assets() http.Handler {
	return http.FileServerFS(templates.Static())
}

// Layout is what the shared header and footer render from. WatchlistCount is
// only shown when ShowCount is set, that is once the watchlist was read.
type Layout struct {
	Title          string
	Year           int
	Params         catalog.Params
	Links          catalog.Links
	WatchlistCount int
	ShowCount      bool
}

type indexData struct {
	Layout
	DBError    string
	Cards      []catalog.Card
	EmptyState catalog.EmptyState
	EmptyHint  string
	CSRF       string
	Back       string
}

type errorData struct {
	Layout
	Heading string
	Message string
	Detail  string
}

func (d *Deps) layout(title string, p catalog.Params) Layout {
	return Layout{
		Title:  title,
		Year:   d.Now().Year(),
		Params: p,
		Links:  catalog.LinksFor(p),
	}
}

func (d *Deps) renderError(w http.ResponseWriter, p catalog.Params, heading, message, detail string, status int) {
	data := errorData{
		Layout:  d.layout("Error", p),
		Heading: heading,
		Message: message,
		Detail:  detail,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := d.errorPage.ExecuteTemplate(w, "base", data); err != nil {
		d.Logger.Error("Failed to execute error template", slog.Any("error", err))
	}
}

// HandleIndex renders the catalog for GET /.
func HandleIndex(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sess, err := d.Sessions.Load(w, r)
		if err != nil {
			d.Logger.ErrorContext(ctx, "Failed to load session", slog.Any("error", err))
			d.renderError(w, catalog.ParseParams(r.URL.Query()), "Something went wrong", "We couldn't start your session.", "", http.StatusInternalServerError)
			return
		}

		params := catalog.ParseParams(r.URL.Query())
		data := indexData{
			Layout: d.layout("Movies", params),
			CSRF:   sess.CSRF,
			Back:   r.URL.RequestURI(),
		}

		gormDB, err := d.DB.DB(ctx)
		if err != nil {
			d.Logger.WarnContext(ctx, "Database not connected", slog.Any("error", err))
			d.Metrics.PageView(string(params.View), "db_error")
			data.DBError = err.Error()
			d.render(w, data)
			return
		}

		svc := watchlist.New(gormDB, d.Logger)
		if err := svc.EnsureDemoUser(ctx); err != nil {
			d.Logger.WarnContext(ctx, "Failed to ensure demo user", slog.Any("error", err))
		}

		ids, err := svc.IDs(ctx, models.DemoUserID)
		if err != nil {
			d.Logger.WarnContext(ctx, "Failed to load watchlist, continuing without it", slog.Any("error", err))
			ids = models.NewIDSet()
		} else {
			data.ShowCount = true
		}

		res, err := catalog.New(gormDB).Find(ctx, params, ids)
		if err != nil {
			d.Logger.ErrorContext(ctx, "Failed to load catalog", slog.Any("error", err))
			d.renderError(w, params, "Something went wrong", "We couldn't load the movie list. Please try again later.", "", http.StatusInternalServerError)
			return
		}

		data.WatchlistCount = len(ids)
		data.Cards = catalog.ResolveAll(res.Movies, ids)
		data.EmptyState = res.Empty
		data.EmptyHint = res.Empty.Hint()
		d.Metrics.PageView(string(params.View), res.Empty.String())
		d.render(w, data)
	}
}

func (d *Deps) render(w http.ResponseWriter, data indexData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.indexPage.ExecuteTemplate(w, "base", data); err != nil {
		d.Logger.Error("Failed to execute index template", slog.Any("error", err))
	}
}

// HandleMutation applies a watchlist form post for POST / and redirects back.
func HandleMutation(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad request.", http.StatusBadRequest)
			return
		}

		if err := d.Sessions.Verify(r, r.PostForm.Get("csrf")); err != nil {
			d.Logger.WarnContext(ctx, "Rejected form post", slog.Any("error", err))
			d.Metrics.CSRFRejected()
			http.Error(w, "Bad request (CSRF).", http.StatusBadRequest)
			return
		}

		back := SafeRedirect(r.PostForm.Get("back"))
		m := watchlist.ParseMutation(r.PostForm.Get("action"), r.PostForm.Get("movie_id"))
		if !m.Valid() {
			d.Metrics.Mutation(string(m.Action), "ignored")
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}

		gormDB, err := d.DB.DB(ctx)
		if err != nil {
			d.Logger.WarnContext(ctx, "Database not connected, skipping watchlist change", slog.Any("error", err))
			d.Metrics.Mutation(string(m.Action), "db_error")
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}

		if err := watchlist.New(gormDB, d.Logger).Apply(ctx, m); err != nil {
			if errors.Is(err, watchlist.ErrIgnored) {
				d.Metrics.Mutation(string(m.Action), "ignored")
				http.Redirect(w, r, back, http.StatusSeeOther)
				return
			}
			d.Logger.ErrorContext(ctx, "Failed to update watchlist",
				slog.String("action", string(m.Action)),
				slog.Int64("movie_id", m.MovieID),
				slog.Any("error", err))
			d.Metrics.Mutation(string(m.Action), "error")
			d.renderError(w, backParams(back), "Something went wrong", "We couldn't update your watchlist.", "", http.StatusInternalServerError)
			return
		}

		d.Metrics.Mutation(string(m.Action), "ok")
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
}

// HandleSeed inserts the sample movies when the catalog is empty, then
// redirects to the catalog.
func HandleSeed(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		gormDB, err := d.DB.DB(ctx)
		if err == nil {
			var n int
			n, err = d.Seeder.SeedIfEmpty(ctx, gormDB)
			d.Metrics.SeededMovies(n)
		}
		if err != nil {
			d.Logger.ErrorContext(ctx, "Seeding failed", slog.Any("error", err))
			d.renderError(w, catalog.ParseParams(r.URL.Query()), "Seeding failed",
				"Make sure the database is reachable and migrated (run “mango migrate”) first.",
				err.Error(), http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/", http.StatusFound)
	}
}

// backParams recovers the catalog filters from a sanitized back path.
func backParams(back string) catalog.Params {
	u, err := url.Parse(back)
	if err != nil {
		return catalog.ParseParams(nil)
	}
	return catalog.ParseParams(u.Query())
}

// SafeRedirect returns back when it is a same-site path, and "/" otherwise.
func SafeRedirect(back string) string {
	if back == "" || !strings.HasPrefix(back, "/") || strings.HasPrefix(back, "//") || strings.HasPrefix(back, `/\`) {
		return "/"
	}
	if strings.ContainsAny(back, "\r\n") {
		return "/"
	}
	u, err := url.Parse(back)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return back
}
