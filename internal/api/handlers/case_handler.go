package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	apiContext "sentinel/internal/api/context"
	"sentinel/internal/engine/escalation"
	"sentinel/internal/engine/ledger"
	"sentinel/internal/pkg/errors"
)

type CaseHandler struct {
	cases  *escalation.Service
	ledger *ledger.Ledger
}

func NewCaseHandler(cases *escalation.Service, ldg *ledger.Ledger) *CaseHandler {
	return &CaseHandler{cases: cases, ledger: ldg}
}

func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	cases, err := h.cases.List(status, limit, offset)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list cases", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cases": cases})
}

func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := paramFromContext(r, "case_id")

	c, err := h.cases.Get(id)
	if err == sql.ErrNoRows {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Case not found", nil)
		return
	}
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load case", nil)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Attempts returns the case's delivery ledger, oldest first.
func (h *CaseHandler) Attempts(w http.ResponseWriter, r *http.Request) {
	id := paramFromContext(r, "case_id")

	attempts, err := h.ledger.History(id)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load attempts", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attempts": attempts})
}

// Acknowledge is the external acknowledgment signal. A signal for a case
// that already reached a terminal state is reported, not failed.
func (h *CaseHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := paramFromContext(r, "case_id")

	c, acked, err := h.cases.Acknowledge(id)
	if err == sql.ErrNoRows {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Case not found", nil)
		return
	}
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to acknowledge case", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"case":         c,
		"acknowledged": acked,
	})
}

func paramFromContext(r *http.Request, name string) string {
	if params, ok := r.Context().Value(apiContext.Params).(httprouter.Params); ok {
		return params.ByName(name)
	}
	return ""
}
