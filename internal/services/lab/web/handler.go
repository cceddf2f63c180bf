// Package web serves the browser lab: the HTML page, its form actions, the
// live state socket and a read-only JSON API.
package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/smartlab/internal/lab/catalog"
	"github.com/louisbranch/smartlab/internal/lab/imagery"
	"github.com/louisbranch/smartlab/internal/lab/journal"
	"github.com/louisbranch/smartlab/internal/lab/reaction"
	"github.com/louisbranch/smartlab/internal/lab/search"
	"github.com/louisbranch/smartlab/internal/lab/session"
	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
	"github.com/louisbranch/smartlab/internal/platform/httpx"
	i18ncatalog "github.com/louisbranch/smartlab/internal/platform/i18n/catalog"
	"github.com/louisbranch/smartlab/internal/platform/observability"
	"github.com/louisbranch/smartlab/internal/platform/sessiontoken"
)

const sessionCookieName = "smartlab_session"

// JournalReader lists recorded simulations.
type JournalReader interface {
	ListRecent(ctx context.Context, limit int) ([]journal.Record, error)
}

// Config defines the collaborators of the lab handler.
type Config struct {
	Registry *session.Registry
	Catalog  *catalog.Catalog
	Signer   *sessiontoken.Signer
	Images   *imagery.Builder
	// Journal is optional; without it /api/journal lists nothing.
	Journal JournalReader
	// Metrics is mounted at /metrics when set.
	Metrics       http.Handler
	SecureCookies bool
	Logger        *log.Logger
}

type handler struct {
	registry *session.Registry
	catalog  *catalog.Catalog
	index    *search.Index
	signer   *sessiontoken.Signer
	images   *imagery.Builder
	journal  JournalReader
	secure   bool
	locales  *localizer
}

// NewHandler builds the lab root handler with its middleware chain.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Registry == nil {
		return nil, errors.New("session registry is required")
	}
	if cfg.Signer == nil {
		return nil, errors.New("session signer is required")
	}
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	images := cfg.Images
	if images == nil {
		images = imagery.New("")
	}
	h := &handler{
		registry: cfg.Registry,
		catalog:  cat,
		index:    search.New(cat),
		signer:   cfg.Signer,
		images:   images,
		journal:  cfg.Journal,
		secure:   cfg.SecureCookies,
		locales:  newLocalizer(i18ncatalog.Default()),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /search", h.handleSearchFragment)
	mux.HandleFunc("GET /substances/{id}", h.handleSubstanceDetail)
	mux.HandleFunc("POST /selection", h.withSession(h.handleAdd))
	mux.HandleFunc("POST /selection/{id}/remove", h.withSession(h.handleRemove))
	mux.HandleFunc("POST /options", h.withSession(h.handleOptions))
	mux.HandleFunc("POST /simulate", h.withSession(h.handleSimulate))
	mux.HandleFunc("POST /result/dismiss", h.withSession(h.handleDismiss))
	mux.HandleFunc("POST /clear", h.withSession(h.handleClear))
	mux.HandleFunc("GET /ws", h.requireSession(h.handleWS))

	mux.HandleFunc("GET /api/state", h.handleAPIState)
	mux.HandleFunc("GET /api/search", h.handleAPISearch)
	mux.HandleFunc("GET /api/catalog", h.handleAPICatalog)
	mux.HandleFunc("GET /api/journal", h.handleAPIJournal)

	return httpx.Chain(mux,
		httpx.RecoverPanic(),
		httpx.RequestID(),
		observability.RequestLogger(cfg.Logger),
	), nil
}

type sessionHandler func(http.ResponseWriter, *http.Request, *session.Controller)

// withSession resolves the caller's controller from the signed cookie,
// starting a new session when the cookie is missing, invalid or expired.
// Only state-changing routes use it, so page views never allocate sessions.
func (h *handler) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := h.resolveSession(w, r)
		if err != nil {
			log.Printf("resolve session failed request_id=%s err=%v", httpx.RequestIDFrom(r), err)
			locale := h.locales.locale(r)
			h.renderLab(w, r, session.IdleState(), apperrors.HTTPStatus(err), apperrors.UserMessage(locale, err))
			return
		}
		next(w, r, ctrl)
	}
}

// requireSession serves only callers that already hold a live session.
// Websocket upgrades hijack the connection before a Set-Cookie header could
// be sent, so they cannot start one.
func (h *handler) requireSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, ok := h.existingSession(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next(w, r, ctrl)
	}
}

func (h *handler) cookieSessionID(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	id, err := h.signer.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return id
}

func (h *handler) existingSession(r *http.Request) (*session.Controller, bool) {
	id := h.cookieSessionID(r)
	if id == "" {
		return nil, false
	}
	return h.registry.Get(id)
}

// currentState is the caller's session snapshot, or a fresh idle state when
// they have none yet.
func (h *handler) currentState(r *http.Request) session.State {
	if ctrl, ok := h.existingSession(r); ok {
		return ctrl.State()
	}
	return session.IdleState()
}

func (h *handler) resolveSession(w http.ResponseWriter, r *http.Request) (*session.Controller, error) {
	ctrl, created, err := h.registry.Resolve(h.cookieSessionID(r))
	if err != nil {
		return nil, err
	}
	if !created {
		return ctrl, nil
	}
	token, err := h.signer.Issue(ctrl.ID())
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.signer.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return ctrl, nil
}

func (h *handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderLab(w, r, h.currentState(r), http.StatusOK, "")
}

// renderLab writes the full page. A non-empty notice is shown as an alert.
func (h *handler) renderLab(w http.ResponseWriter, r *http.Request, st session.State, status int, notice string) {
	locale := h.locales.locale(r)
	query := r.URL.Query().Get("q")
	view := labPageView{
		Locale:      locale,
		Printer:     h.locales.printer(locale),
		State:       st,
		Query:       query,
		Suggestions: h.index.Query(query),
		Browse:      h.browseGroups(),
		Notice:      notice,
	}
	if st.Result != nil {
		if url, err := h.images.ResultImageURL(st.Result.ImageDescription); err == nil {
			view.ResultImage = url
		}
	}
	templ.Handler(labPage(view), templ.WithStatus(status)).ServeHTTP(w, r)
}

func (h *handler) browseGroups() []categoryGroup {
	groups := make([]categoryGroup, 0, len(catalog.Categories()))
	for _, category := range catalog.Categories() {
		substances := h.catalog.ByCategory(category, browsePerCategory)
		if len(substances) == 0 {
			continue
		}
		groups = append(groups, categoryGroup{Category: category, Substances: substances})
	}
	return groups
}

// afterMutation redirects back to the lab on success and re-renders it with
// the localized error otherwise.
func (h *handler) afterMutation(w http.ResponseWriter, r *http.Request, ctrl *session.Controller, err error) {
	if err == nil {
		httpx.WriteRedirect(w, r, "/")
		return
	}
	locale := h.locales.locale(r)
	h.renderLab(w, r, ctrl.State(), apperrors.HTTPStatus(err), apperrors.UserMessage(locale, err))
}

func (h *handler) handleAdd(w http.ResponseWriter, r *http.Request, ctrl *session.Controller) {
	substance, err := h.catalog.Get(strings.TrimSpace(r.FormValue("id")))
	if err == nil {
		err = ctrl.Add(substance)
	}
	h.afterMutation(w, r, ctrl, err)
}

func (h *handler) handleRemove(w http.ResponseWriter, r *http.Request, ctrl *session.Controller) {
	h.afterMutation(w, r, ctrl, ctrl.Remove(r.PathValue("id")))
}

func (h *handler) handleOptions(w http.ResponseWriter, r *http.Request, ctrl *session.Controller) {
	concentration, err := reaction.ParseConcentration(r.FormValue("concentration"))
	if err == nil {
		ctrl.SetOptions(reaction.Options{
			Concentration: concentration,
			UseIndicator:  formBool(r.FormValue("use_indicator")),
		})
	}
	h.afterMutation(w, r, ctrl, err)
}

func (h *handler) handleSimulate(w http.ResponseWriter, r *http.Request, ctrl *session.Controller) {
	_, err := ctrl.Launch(r.Context())
	h.afterMutation(w, r, ctrl, err)
}

func (h *handler) handleDismiss(w http.ResponseWriter, r *http.Request, ctrl *session.Controller) {
	ctrl.Dismiss()
	h.afterMutation(w, r, ctrl, nil)
}

func (h *handler) handleClear(w http.ResponseWriter, r *http.Request, ctrl *session.Controller) {
	ctrl.Clear()
	h.afterMutation(w, r, ctrl, nil)
}

// handleSearchFragment renders suggestions for the search box. Blank
// queries render nothing.
func (h *handler) handleSearchFragment(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		_ = httpx.WriteHTML(w, http.StatusOK, "")
		return
	}
	p := h.locales.printer(h.locales.locale(r))
	templ.Handler(suggestionList(p, h.index.Query(query))).ServeHTTP(w, r)
}

func (h *handler) handleSubstanceDetail(w http.ResponseWriter, r *http.Request) {
	locale := h.locales.locale(r)
	substance, err := h.catalog.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, apperrors.UserMessage(locale, err), apperrors.HTTPStatus(err))
		return
	}
	structure, _ := h.images.StructureURL(substance.Name)
	placeholder, _ := h.images.PlaceholderURL(substance.Formula)
	templ.Handler(substanceDetail(h.locales.printer(locale), substance, structure, placeholder)).ServeHTTP(w, r)
}

func formBool(raw string) bool {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "on") {
		return true
	}
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}
