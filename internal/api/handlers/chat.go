package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-report/internal/advisor"
	"github.com/dvloznov/credit-report/internal/api/middleware"
)

const maxChatBody = 1 << 20

// ChatHandler serves the advisor chat.
type ChatHandler struct {
	advisor ChatResponder
	log     zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(advisor ChatResponder, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{advisor: advisor, log: log}
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []advisor.Message `json:"messages"`
}

// ChatResponse carries the assistant's reply.
type ChatResponse struct {
	Message advisor.Message `json:"message"`
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reply, err := h.advisor.Reply(r.Context(), req.Messages)
	switch {
	case err == nil:
		middleware.WriteJSON(w, http.StatusOK, ChatResponse{Message: *reply})
	case errors.Is(err, advisor.ErrNoMessages), errors.Is(err, advisor.ErrInvalidMessage):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Chat completion failed")
		middleware.WriteErrorCode(w, http.StatusBadGateway, "llm_unavailable", "The assistant is unavailable. Please try again later.")
	}
}
