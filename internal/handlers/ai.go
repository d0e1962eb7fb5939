package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/idfuturestars/starguide/internal/middleware"
	"github.com/idfuturestars/starguide/pkg/models"
)

type AIHandler struct {
	events eventRecorder
}

func NewAIHandler(events eventRecorder) *AIHandler {
	return &AIHandler{events: events}
}

// Chat accepts a tutoring prompt and returns an echo acknowledgement turn.
// The transcript is ephemeral and owned by the caller; nothing is stored
// server-side.
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"message": "Message is required"}, r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	h.events.RecordEvent(r.Context(), userID, models.EventAIInteraction, map[string]string{
		"subject": req.Subject,
		"topic":   req.Topic,
	})

	writeJSON(w, http.StatusOK, models.ChatResponse{
		Response:  "Received: " + message,
		Provider:  "starguide",
		Model:     "echo",
		Timestamp: time.Now().UTC(),
	})
}
