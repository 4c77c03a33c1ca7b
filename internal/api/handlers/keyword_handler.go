package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"sentinel/internal/engine/detect"
	"sentinel/internal/pkg/errors"
	"sentinel/internal/platform/audit"
	"sentinel/internal/platform/models"
)

type KeywordHandler struct {
	repo  *detect.Repository
	audit *audit.Logger
}

func NewKeywordHandler(repo *detect.Repository, auditLog *audit.Logger) *KeywordHandler {
	return &KeywordHandler{repo: repo, audit: auditLog}
}

func (h *KeywordHandler) Create(w http.ResponseWriter, r *http.Request) {
	// is_active defaults to true when omitted; a keyword is born active
	// unless the caller disables it explicitly.
	var req struct {
		Keyword       string `json:"keyword"`
		PriorityLevel int    `json:"priority_level"`
		AutoEscalate  bool   `json:"auto_escalate"`
		IsActive      *bool  `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Keyword == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "keyword is required", nil)
		return
	}
	if req.PriorityLevel < 1 || req.PriorityLevel > 5 {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "priority_level must be 1..5", nil)
		return
	}

	kw := models.UrgentKeyword{
		Keyword:       req.Keyword,
		PriorityLevel: req.PriorityLevel,
		AutoEscalate:  req.AutoEscalate,
		IsActive:      true,
	}
	if req.IsActive != nil {
		kw.IsActive = *req.IsActive
	}

	if err := h.repo.Create(&kw); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create keyword", nil)
		return
	}

	h.audit.Log(r.Context(), "keyword.created", "urgent_keyword", kw.ID, map[string]interface{}{"keyword": kw.Keyword})
	writeJSON(w, http.StatusCreated, kw)
}

func (h *KeywordHandler) List(w http.ResponseWriter, r *http.Request) {
	keywords, err := h.repo.List()
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list keywords", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"keywords": keywords})
}

func (h *KeywordHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := paramFromContext(r, "keyword_id")

	existing, err := h.repo.GetByID(id)
	if err == sql.ErrNoRows {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Keyword not found", nil)
		return
	}
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load keyword", nil)
		return
	}

	var req struct {
		Keyword       *string `json:"keyword"`
		PriorityLevel *int    `json:"priority_level"`
		AutoEscalate  *bool   `json:"auto_escalate"`
		IsActive      *bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if req.Keyword != nil {
		existing.Keyword = *req.Keyword
	}
	if req.PriorityLevel != nil {
		if *req.PriorityLevel < 1 || *req.PriorityLevel > 5 {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "priority_level must be 1..5", nil)
			return
		}
		existing.PriorityLevel = *req.PriorityLevel
	}
	if req.AutoEscalate != nil {
		existing.AutoEscalate = *req.AutoEscalate
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	if err := h.repo.Update(existing); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to update keyword", nil)
		return
	}

	h.audit.Log(r.Context(), "keyword.updated", "urgent_keyword", existing.ID, nil)
	writeJSON(w, http.StatusOK, existing)
}

func (h *KeywordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := paramFromContext(r, "keyword_id")

	if err := h.repo.Delete(id); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to delete keyword", nil)
		return
	}

	h.audit.Log(r.Context(), "keyword.deleted", "urgent_keyword", id, nil)
	w.WriteHeader(http.StatusNoContent)
}
