package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerchat/internal/api/middleware"
	"github.com/dvloznov/ledgerchat/internal/extract"
)

// AssistantHandler turns free-form messages into transaction candidates.
// It never writes to the ledger; confirmation goes through the
// transactions endpoint.
type AssistantHandler struct {
	interpreter *extract.Interpreter
	log         zerolog.Logger
}

func NewAssistantHandler(interpreter *extract.Interpreter, log zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{interpreter: interpreter, log: log}
}

// Parse handles POST /api/assistant/parse
func (h *AssistantHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Text is required")
		return
	}

	result := h.interpreter.Interpret(r.Context(), req.Text)

	// Extraction failures are normal outcomes, not HTTP errors: the body
	// carries success=false plus guidance text.
	middleware.WriteJSON(w, http.StatusOK, result)
}
