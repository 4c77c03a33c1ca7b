package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"sentinel/internal/engine/detect"
	"sentinel/internal/engine/escalation"
	"sentinel/internal/engine/policy"
	pkgerrors "sentinel/internal/pkg/errors"
)

// MessageHandler ingests inbound message or transcript text and opens an
// escalation case when an auto-escalating urgent keyword matches.
type MessageHandler struct {
	detector *detect.Detector
	cases    *escalation.Service
}

func NewMessageHandler(detector *detect.Detector, cases *escalation.Service) *MessageHandler {
	return &MessageHandler{detector: detector, cases: cases}
}

func (h *MessageHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceID  string `json:"source_id"`
		Text      string `json:"text"`
		Recipient string `json:"recipient,omitempty"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		pkgerrors.WriteError(w, http.StatusBadRequest, pkgerrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.SourceID == "" || req.Text == "" {
		pkgerrors.WriteError(w, http.StatusBadRequest, pkgerrors.ErrCodeInvalidInput, "source_id and text are required", nil)
		return
	}

	matches, err := h.detector.Detect(req.Text)
	if err != nil {
		pkgerrors.WriteError(w, http.StatusInternalServerError, pkgerrors.ErrCodeInternal, "Keyword detection failed", nil)
		return
	}

	for _, m := range matches {
		log.Info().
			Str("source_id", req.SourceID).
			Str("keyword", m.Keyword).
			Int("priority", m.PriorityLevel).
			Msg("urgent keyword matched")
	}

	top := detect.Top(matches)
	if top == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches, "escalated": false})
		return
	}
	if !top.AutoEscalate {
		log.Info().Str("source_id", req.SourceID).Str("keyword", top.Keyword).Msg("matched keyword does not auto-escalate")
		writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches, "escalated": false})
		return
	}

	c, err := h.cases.Open(req.SourceID, req.Text, *top, req.Recipient)
	if errors.Is(err, policy.ErrPolicyNotFound) || errors.Is(err, escalation.ErrNoRecipient) {
		log.Warn().Err(err).Str("source_id", req.SourceID).Int("priority", top.PriorityLevel).Msg("escalation skipped")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"matches":   matches,
			"escalated": false,
			"skipped":   err.Error(),
		})
		return
	}
	if err != nil {
		pkgerrors.WriteError(w, http.StatusInternalServerError, pkgerrors.ErrCodeInternal, "Failed to open escalation case", nil)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"matches":   matches,
		"escalated": true,
		"case":      c,
	})
}
