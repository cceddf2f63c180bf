package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/louisbranch/smartlab/internal/lab/catalog"
	"github.com/louisbranch/smartlab/internal/lab/journal"
	"github.com/louisbranch/smartlab/internal/lab/session"
	"github.com/louisbranch/smartlab/internal/platform/httpx"
)

// stateView is the wire form of a session snapshot. Message carries the
// localized failure text so clients never map codes themselves.
type stateView struct {
	session.State
	Message     string `json:"message,omitempty"`
	ResultImage string `json:"result_image,omitempty"`
}

func (h *handler) newStateView(st session.State, locale string) stateView {
	view := stateView{State: st}
	if st.Failure != nil {
		view.Message = st.Failure.Message(locale)
	}
	if st.Result != nil {
		if url, err := h.images.ResultImageURL(st.Result.ImageDescription); err == nil {
			view.ResultImage = url
		}
	}
	return view
}

type searchResponse struct {
	Query   string              `json:"query"`
	Results []catalog.Substance `json:"results"`
}

type catalogGroup struct {
	Category   catalog.Category    `json:"category"`
	Substances []catalog.Substance `json:"substances"`
}

type catalogResponse struct {
	Categories []catalogGroup `json:"categories"`
}

type journalResponse struct {
	Simulations []journal.Record `json:"simulations"`
}

func (h *handler) handleAPIState(w http.ResponseWriter, r *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, h.newStateView(h.currentState(r), h.locales.locale(r)))
}

func (h *handler) handleAPISearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	_ = httpx.WriteJSON(w, http.StatusOK, searchResponse{
		Query:   query,
		Results: h.index.Query(query),
	})
}

func (h *handler) handleAPICatalog(w http.ResponseWriter, _ *http.Request) {
	resp := catalogResponse{Categories: []catalogGroup{}}
	for _, category := range catalog.Categories() {
		substances := h.catalog.ByCategory(category, 0)
		if len(substances) == 0 {
			continue
		}
		resp.Categories = append(resp.Categories, catalogGroup{Category: category, Substances: substances})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *handler) handleAPIJournal(w http.ResponseWriter, r *http.Request) {
	resp := journalResponse{Simulations: []journal.Record{}}
	if h.journal == nil {
		_ = httpx.WriteJSON(w, http.StatusOK, resp)
		return
	}
	limit := journal.DefaultListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	records, err := h.journal.ListRecent(r.Context(), limit)
	if err != nil {
		_ = httpx.WriteJSONError(w, h.locales.locale(r), err)
		return
	}
	if records != nil {
		resp.Simulations = records
	}
	_ = httpx.WriteJSON(w, http.StatusOK, resp)
}
