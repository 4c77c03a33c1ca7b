package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"sentinel/internal/engine/policy"
	pkgerrors "sentinel/internal/pkg/errors"
	"sentinel/internal/platform/audit"
	"sentinel/internal/platform/models"
)

type RuleHandler struct {
	store *policy.Store
	audit *audit.Logger
}

func NewRuleHandler(store *policy.Store, auditLog *audit.Logger) *RuleHandler {
	return &RuleHandler{store: store, audit: auditLog}
}

func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	// is_active defaults to true when omitted, same as keyword creation.
	var req struct {
		RuleName        string `json:"rule_name"`
		PriorityLevel   int    `json:"priority_level"`
		StepOrder       int    `json:"step_order"`
		WaitTimeMinutes int    `json:"wait_time_minutes"`
		EscalateTo      string `json:"escalate_to"`
		IsActive        *bool  `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkgerrors.WriteError(w, http.StatusBadRequest, pkgerrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	rule := models.EscalationRule{
		RuleName:        req.RuleName,
		PriorityLevel:   req.PriorityLevel,
		StepOrder:       req.StepOrder,
		WaitTimeMinutes: req.WaitTimeMinutes,
		EscalateTo:      models.Channel(req.EscalateTo),
		IsActive:        true,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	err := h.store.Create(&rule)
	if errors.Is(err, policy.ErrDuplicateStep) {
		pkgerrors.WriteError(w, http.StatusConflict, pkgerrors.ErrCodeConflict, err.Error(), nil)
		return
	}
	if err != nil {
		pkgerrors.WriteError(w, http.StatusBadRequest, pkgerrors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	h.audit.Log(r.Context(), "rule.created", "escalation_rule", rule.ID, map[string]interface{}{
		"priority_level": rule.PriorityLevel,
		"step_order":     rule.StepOrder,
		"escalate_to":    string(rule.EscalateTo),
	})
	writeJSON(w, http.StatusCreated, rule)
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.List()
	if err != nil {
		pkgerrors.WriteError(w, http.StatusInternalServerError, pkgerrors.ErrCodeInternal, "Failed to list rules", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rules": rules})
}

func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := paramFromContext(r, "rule_id")

	existing, err := h.store.GetByID(id)
	if err == sql.ErrNoRows {
		pkgerrors.WriteError(w, http.StatusNotFound, pkgerrors.ErrCodeNotFound, "Rule not found", nil)
		return
	}
	if err != nil {
		pkgerrors.WriteError(w, http.StatusInternalServerError, pkgerrors.ErrCodeInternal, "Failed to load rule", nil)
		return
	}

	var req struct {
		RuleName        *string `json:"rule_name"`
		PriorityLevel   *int    `json:"priority_level"`
		StepOrder       *int    `json:"step_order"`
		WaitTimeMinutes *int    `json:"wait_time_minutes"`
		EscalateTo      *string `json:"escalate_to"`
		IsActive        *bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkgerrors.WriteError(w, http.StatusBadRequest, pkgerrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if req.RuleName != nil {
		existing.RuleName = *req.RuleName
	}
	if req.PriorityLevel != nil {
		existing.PriorityLevel = *req.PriorityLevel
	}
	if req.StepOrder != nil {
		existing.StepOrder = *req.StepOrder
	}
	if req.WaitTimeMinutes != nil {
		existing.WaitTimeMinutes = *req.WaitTimeMinutes
	}
	if req.EscalateTo != nil {
		existing.EscalateTo = models.Channel(*req.EscalateTo)
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	err = h.store.Update(existing)
	if errors.Is(err, policy.ErrDuplicateStep) {
		pkgerrors.WriteError(w, http.StatusConflict, pkgerrors.ErrCodeConflict, err.Error(), nil)
		return
	}
	if err != nil {
		pkgerrors.WriteError(w, http.StatusBadRequest, pkgerrors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	h.audit.Log(r.Context(), "rule.updated", "escalation_rule", existing.ID, nil)
	writeJSON(w, http.StatusOK, existing)
}

func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := paramFromContext(r, "rule_id")

	if err := h.store.Delete(id); err != nil {
		pkgerrors.WriteError(w, http.StatusInternalServerError, pkgerrors.ErrCodeInternal, "Failed to delete rule", nil)
		return
	}

	h.audit.Log(r.Context(), "rule.deleted", "escalation_rule", id, nil)
	w.WriteHeader(http.StatusNoContent)
}
