package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"sentinel/internal/pkg/errors"
	"sentinel/internal/platform/audit"
	"sentinel/internal/platform/models"
	"sentinel/internal/platform/repositories"
)

type WebhookHandler struct {
	repo  *repositories.WebhookRepository
	audit *audit.Logger
}

func NewWebhookHandler(repo *repositories.WebhookRepository, auditLog *audit.Logger) *WebhookHandler {
	return &WebhookHandler{repo: repo, audit: auditLog}
}

func validateEvents(events []string) (string, bool) {
	if len(events) == 0 {
		return "events must not be empty", false
	}
	for _, e := range events {
		if !models.ValidEventType(e) {
			return "unknown event type: " + e, false
		}
	}
	return "", true
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.WebhookConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.URL == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "url is required", nil)
		return
	}
	if msg, ok := validateEvents(req.Events); !ok {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, msg, nil)
		return
	}

	if err := h.repo.Create(&req); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create webhook", nil)
		return
	}

	h.audit.Log(r.Context(), "webhook.created", "webhook", req.ID, map[string]interface{}{"url": req.URL})
	writeJSON(w, http.StatusCreated, req)
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	webhooks, err := h.repo.List()
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list webhooks", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"webhooks": webhooks})
}

func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := paramFromContext(r, "webhook_id")

	webhook, err := h.repo.GetByID(id)
	if err == sql.ErrNoRows {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook not found", nil)
		return
	}
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load webhook", nil)
		return
	}
	writeJSON(w, http.StatusOK, webhook)
}

func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := paramFromContext(r, "webhook_id")

	webhook, err := h.repo.GetByID(id)
	if err == sql.ErrNoRows {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook not found", nil)
		return
	}
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load webhook", nil)
		return
	}

	var req struct {
		Name           *string            `json:"name"`
		URL            *string            `json:"url"`
		Secret         *string            `json:"secret"`
		Events         []string           `json:"events"`
		Headers        *map[string]string `json:"headers"`
		RetryCount     *int               `json:"retry_count"`
		TimeoutSeconds *int               `json:"timeout_seconds"`
		IsActive       *bool              `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if req.Name != nil {
		webhook.Name = *req.Name
	}
	if req.URL != nil {
		webhook.URL = *req.URL
	}
	if req.Secret != nil {
		webhook.Secret = *req.Secret
	}
	if req.Events != nil {
		if msg, ok := validateEvents(req.Events); !ok {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, msg, nil)
			return
		}
		webhook.Events = req.Events
	}
	if req.Headers != nil {
		webhook.Headers = *req.Headers
	}
	if req.RetryCount != nil {
		webhook.RetryCount = *req.RetryCount
	}
	if req.TimeoutSeconds != nil {
		webhook.TimeoutSeconds = *req.TimeoutSeconds
	}
	if req.IsActive != nil {
		webhook.IsActive = *req.IsActive
	}

	if err := h.repo.Update(webhook); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to update webhook", nil)
		return
	}

	h.audit.Log(r.Context(), "webhook.updated", "webhook", webhook.ID, nil)
	writeJSON(w, http.StatusOK, webhook)
}

func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := paramFromContext(r, "webhook_id")

	if err := h.repo.Delete(id); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to delete webhook", nil)
		return
	}

	h.audit.Log(r.Context(), "webhook.deleted", "webhook", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *WebhookHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	id := paramFromContext(r, "webhook_id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	deliveries, err := h.repo.ListDeliveries(id, limit)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list deliveries", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deliveries": deliveries})
}
