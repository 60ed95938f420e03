package httpapi

import (
	"net/http"
	"strings"

	"leadgenius-engine/internal/config"
	"leadgenius-engine/internal/domain"
	"leadgenius-engine/internal/events"
	"leadgenius-engine/internal/leads"
	"leadgenius-engine/internal/rank"
)

type LeadsHandler struct {
	Leads  LeadStore
	Scout  Scouter
	Hub    *events.Hub
	Config *config.Holder
}

// filterFromQuery reads the dashboard filters off the query string.
func filterFromQuery(r *http.Request) (leads.Filter, error) {
	f := leads.Filter{
		SavedOnly: queryBool(r, "saved"),
		Chatbot:   queryBool(r, "chatbot"),
		Booking:   queryBool(r, "booking"),
		Sentiment: strings.TrimSpace(r.URL.Query().Get("sentiment")),
	}
	var err error
	if f.MinRating, err = queryFloat(r, "minRating"); err != nil {
		return f, err
	}
	if f.MaxRating, err = queryFloat(r, "maxRating"); err != nil {
		return f, err
	}
	return f, nil
}

func (h LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	all, err := h.Leads.GetAll(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	out := f.Apply(all)

	switch r.URL.Query().Get("sort") {
	case "", "newest":
		writeJSON(w, map[string]any{"leads": out, "count": len(out)})
	case "opportunity":
		cfg := config.Default()
		if h.Config != nil {
			cfg = h.Config.Get()
		}
		ranked, scores := rank.Rank(rank.YAMLScorer{Cfg: cfg}, out)
		writeJSON(w, map[string]any{"leads": ranked, "count": len(ranked), "scores": scores})
	default:
		WriteError(w, r, http.StatusBadRequest, "invalid_params", "sort must be newest or opportunity")
	}
}

func (h LeadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	lead, err := h.Leads.GetByID(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if lead == nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "no lead with id "+id)
		return
	}
	writeJSON(w, lead)
}

func (h LeadsHandler) ToggleSave(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	saved, err := h.Leads.ToggleSave(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	h.Hub.Emit(RequestIDFrom(r.Context()), events.LeadSaved, events.LeadChange{ID: id, IsSaved: &saved, Source: "ui"})
	writeJSON(w, map[string]any{"id": id, "isSaved": saved})
}

func (h LeadsHandler) PatchIntelligence(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch domain.IntelligencePatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if err := h.Leads.UpdateIntelligence(r.Context(), id, patch); err != nil {
		writeErr(w, r, err)
		return
	}
	if !patch.Empty() {
		h.Hub.Emit(RequestIDFrom(r.Context()), events.LeadUpdated, events.LeadChange{ID: id, Source: "ui"})
	}
	lead, err := h.Leads.GetByID(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, lead)
}

type competitorReq struct {
	URL string `json:"url"`
}

func (h LeadsHandler) Competitor(w http.ResponseWriter, r *http.Request) {
	var req competitorReq
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_params", "url is required")
		return
	}
	id := r.PathValue("id")
	lead, err := h.Leads.GetByID(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if lead == nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "no lead with id "+id)
		return
	}
	rep, err := h.Scout.AnalyzeCompetitor(r.Context(), *lead, req.URL)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, rep)
}
