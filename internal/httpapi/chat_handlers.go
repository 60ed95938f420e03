package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"leadgenius-engine/internal/assistant"
	"leadgenius-engine/internal/domain"
)

type ChatHandler struct {
	Assistant Chatter
	Greeting  string
	Log       *zap.Logger
}

type chatReq struct {
	History []domain.ChatMessage `json:"history"`
	Message string               `json:"message"`
}

func (h ChatHandler) Greet(w http.ResponseWriter, r *http.Request) {
	g := h.Greeting
	if strings.TrimSpace(g) == "" {
		g = assistant.DefaultGreeting
	}
	writeJSON(w, domain.ChatMessage{Role: domain.RoleAssistant, Content: g})
}

// Turn runs one conversational turn. Model failures still produce a 200 with
// the fallback reply so the transcript stays readable; Unauthorized tells the
// UI to ask for a key.
func (h ChatHandler) Turn(w http.ResponseWriter, r *http.Request) {
	var req chatReq
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_params", "message is required")
		return
	}

	turn := h.Assistant.Chat(r.Context(), req.History, req.Message)
	if turn.Err != nil {
		h.Log.Warn("chat turn failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Bool("unauthorized", turn.Unauthorized),
			zap.Error(turn.Err))
	}
	writeJSON(w, turn)
}
