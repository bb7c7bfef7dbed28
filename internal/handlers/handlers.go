package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"transcribeAnything/internal/config"
	"transcribeAnything/internal/ledger"
	"transcribeAnything/internal/models"
	"transcribeAnything/internal/objectstore"
	"transcribeAnything/internal/transcribe"
	"transcribeAnything/internal/transcripts"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	multipartMemory  = 8 << 20
	multipartSlack   = 1 << 20
	requestTimeout   = 5 * time.Minute
	defaultJobsLimit = 20
)

type App struct {
	logger *slog.Logger
	cfg    *config.Config

	router    *chi.Mux
	submitter *transcribe.Submitter
	catalog   *transcripts.Catalog
	ledger    ledger.Store
	events    *Events
	limiter   *RateLimiter
}

// NewApp wires the HTTP surface. store may be nil, in which case
// /jobs always answers with an empty list.
func NewApp(logger *slog.Logger, cfg *config.Config, submitter *transcribe.Submitter, catalog *transcripts.Catalog, store ledger.Store, events *Events) *App {
	app := &App{
		logger:    logger,
		cfg:       cfg,
		router:    chi.NewRouter(),
		submitter: submitter,
		catalog:   catalog,
		ledger:    store,
		events:    events,
		limiter:   NewRateLimiter(cfg.SubmitRateLimit),
	}

	app.registerRoutes()
	return app
}

func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) registerRoutes() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(a.requestLogger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(a.corsMiddleware)

	a.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/", a.index)
		r.With(a.limiter.Middleware).Post("/transcribe", a.transcribe)
		r.Get("/transcriptions", a.listTranscriptions)
		r.Get("/download/*", a.download)
		r.Get("/jobs", a.recentJobs)
		r.Get("/healthz", a.health)
	})

	a.router.Get("/ws", a.events.ServeWS)
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "timestamp": time.Now().Format(time.RFC3339)})
}

func (a *App) index(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, IndexPage())
}

func (a *App) transcribe(w http.ResponseWriter, r *http.Request) {
	a.logger.Info("transcribe request received")

	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, transcribe.FormatLimitExceeded(a.cfg.MaxUploadBytes), http.StatusBadRequest)
			return
		}
		a.logger.Warn("invalid transcribe form", "error", err)
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	req := transcribe.Request{URL: r.FormValue("url")}
	if r.MultipartForm != nil {
		file, header, err := r.FormFile("file")
		switch {
		case err == nil:
			defer file.Close()
			req.File = &transcribe.Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Body:        file,
			}
		case !errors.Is(err, http.ErrMissingFile):
			a.logger.Warn("unreadable upload", "error", err)
			http.Error(w, "Invalid file upload", http.StatusBadRequest)
			return
		}
	}

	job, err := a.submitter.Submit(r.Context(), req)
	if err != nil {
		a.writeSubmitError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Transcription job '%s' initiated. The VM is spinning up.", job.ID)
}

func (a *App) writeSubmitError(w http.ResponseWriter, err error) {
	var inputErr *transcribe.InputError
	var upErr *transcribe.UpstreamError
	switch {
	case errors.As(err, &inputErr):
		a.logger.Warn("rejected transcribe request", "reason", inputErr.Msg)
		http.Error(w, inputErr.Msg, http.StatusBadRequest)
	case errors.As(err, &upErr):
		http.Error(w, fmt.Sprintf("Failed to initiate transcription: %s step failed", upErr.Step), http.StatusInternalServerError)
	default:
		a.logger.Error("transcribe failed", "error", err)
		http.Error(w, "Failed to initiate transcription", http.StatusInternalServerError)
	}
}

func (a *App) listTranscriptions(w http.ResponseWriter, r *http.Request) {
	a.logger.Info("listing transcriptions")
	base := a.baseURL(r)
	items, err := a.catalog.List(r.Context(), func(name string) string {
		return base + "/download/" + escapeObjectPath(name)
	})
	if err != nil {
		a.logger.Error("failed to list transcriptions", "error", err)
		a.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list transcriptions"})
		return
	}
	a.respondJSON(w, http.StatusOK, items)
}

func (a *App) download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
	}
	a.logger.Info("download requested", "path", name)

	f, err := a.catalog.Open(r.Context(), name)
	if errors.Is(err, objectstore.ErrNotExist) {
		a.logger.Warn("file not found for download", "path", name)
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.logger.Error("failed to serve file", "path", name, "error", err)
		http.Error(w, "Failed to serve file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(f.Name)}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(f.Data); err != nil {
		a.logger.Warn("download interrupted", "path", name, "error", err)
	}
}

func (a *App) recentJobs(w http.ResponseWriter, r *http.Request) {
	subs := []*models.Submission{}
	if a.ledger != nil {
		limit := defaultJobsLimit
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			limit = v
		}
		found, err := a.ledger.Recent(r.Context(), limit)
		if err != nil {
			a.logger.Error("failed to load submissions", "error", err)
			a.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load submissions"})
			return
		}
		if found != nil {
			subs = found
		}
	}
	a.respondJSON(w, http.StatusOK, subs)
}

// baseURL is the absolute origin used for download links.
func (a *App) baseURL(r *http.Request) string {
	if a.cfg.PublicBaseURL != "" {
		return a.cfg.PublicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + r.Host
}

func escapeObjectPath(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (a *App) render(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		a.logger.Error("failed to render template", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

func (a *App) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("failed to encode json", "error", err)
	}
}

// StartCleanupLoop prunes old ledger rows and idle rate-limiter entries
// every interval until ctx is done.
func (a *App) StartCleanupLoop(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.cleanup(ctx, ttl)
			}
		}
	}()
}

func (a *App) cleanup(ctx context.Context, ttl time.Duration) {
	evicted := a.limiter.Evict(time.Now().Add(-limiterIdle))

	var pruned int64
	if a.ledger != nil && ttl > 0 {
		n, err := a.ledger.Prune(ctx, time.Now().Add(-ttl))
		if err != nil {
			a.logger.Error("ledger cleanup failed", "error", err)
		}
		pruned = n
	}

	if pruned > 0 || evicted > 0 {
		a.logger.Info("cleanup completed", "pruned_submissions", pruned, "evicted_limiters", evicted)
	}
}

func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// corsMiddleware allows the configured origins. No origins disables
// CORS; a single "*" allows any.
func (a *App) corsMiddleware(next http.Handler) http.Handler {
	origins := a.cfg.CORSOrigins
	if len(origins) == 0 {
		return next
	}
	allowAll := len(origins) == 1 && origins[0] == "*"
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
