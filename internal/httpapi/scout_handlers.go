package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"leadgenius-engine/internal/domain"
	"leadgenius-engine/internal/events"
	"leadgenius-engine/internal/leads"
	"leadgenius-engine/internal/scout"
)

type ScoutHandler struct {
	Scout   Scouter
	Tracker *scout.StatusTracker
	Hub     *events.Hub
	Log     *zap.Logger
}

func (h ScoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Tracker.Get())
}

// Run scouts synchronously; the dashboard waits on the result. Only one run
// may be in flight.
func (h ScoutHandler) Run(w http.ResponseWriter, r *http.Request) {
	var params domain.SearchParams
	if !decodeBody(w, r, &params) {
		return
	}
	if !h.Tracker.Begin() {
		WriteError(w, r, http.StatusConflict, "already_running", "a scouting run is already in progress")
		return
	}

	found, err := h.Scout.Scout(r.Context(), params)
	h.Tracker.End(len(found), err)
	if err != nil {
		h.Log.Warn("scout failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("industry", params.Industry),
			zap.String("location", params.Location),
			zap.Error(err))
		writeErr(w, r, err)
		return
	}

	ids := make([]string, 0, len(found))
	for _, l := range found {
		ids = append(ids, l.ID)
	}
	h.Hub.Emit(RequestIDFrom(r.Context()), events.LeadsScouted, map[string]any{"ids": ids})

	// Sidebar toggles narrow what comes back; everything found is stored.
	shown := leads.FilterFromSearch(params).Apply(found)
	writeJSON(w, map[string]any{"leads": shown, "count": len(shown), "found": len(found)})
}
