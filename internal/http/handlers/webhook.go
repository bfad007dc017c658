package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"wasgate/internal/http/responses"
	"wasgate/internal/usecases/webhooks"
	"wasgate/pkg/logger"
)

// WebhookHandler implementa o CRUD de webhooks do painel
type WebhookHandler struct {
	webhooks *webhooks.UseCase
	logger   logger.Logger
}

// NewWebhookHandler cria uma nova instância do webhook handler
func NewWebhookHandler(uc *webhooks.UseCase, log logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhooks: uc,
		logger:   log.WithComponent("webhook-handler"),
	}
}

// Create registra um webhook para (usuário, sessão, tipo)
func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var input webhooks.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		responses.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	if err := validate.Struct(input); err != nil {
		responses.BadRequest(w, "Missing required fields", err.Error())
		return
	}

	wh, err := h.webhooks.Create(r.Context(), userID, input)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Created(w, "Webhook created", wh)
}

// List devolve os webhooks do usuário
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	list, err := h.webhooks.List(r.Context(), userID)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Webhooks retrieved", list)
}

// Update aplica mudanças parciais a um webhook
func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	id, err := uuid.Parse(chi.URLParam(r, "webhookID"))
	if err != nil {
		responses.BadRequest(w, "Invalid webhook id", nil)
		return
	}

	var input webhooks.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		responses.BadRequest(w, "Invalid request body", err.Error())
		return
	}

	wh, err := h.webhooks.Update(r.Context(), userID, id, input)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Webhook updated", wh)
}

// Delete remove um webhook e seus logs
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	id, err := uuid.Parse(chi.URLParam(r, "webhookID"))
	if err != nil {
		responses.BadRequest(w, "Invalid webhook id", nil)
		return
	}

	if err := h.webhooks.Delete(r.Context(), userID, id); err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Webhook deleted", nil)
}

// Logs lista as tentativas de entrega mais recentes de um webhook
func (h *WebhookHandler) Logs(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	id, err := uuid.Parse(chi.URLParam(r, "webhookID"))
	if err != nil {
		responses.BadRequest(w, "Invalid webhook id", nil)
		return
	}

	logs, err := h.webhooks.Logs(r.Context(), userID, id, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Webhook logs retrieved", logs)
}

// Test dispara um evento sintético pelo caminho real de entrega
func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	id, err := uuid.Parse(chi.URLParam(r, "webhookID"))
	if err != nil {
		responses.BadRequest(w, "Invalid webhook id", nil)
		return
	}

	if err := h.webhooks.Test(r.Context(), userID, id); err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Test event dispatched", nil)
}
