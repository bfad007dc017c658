package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wasgate/internal/http/responses"
	"wasgate/internal/usecases/billing"
	"wasgate/pkg/logger"
)

// SubscriptionHandler implementa os handlers de assinatura do painel
type SubscriptionHandler struct {
	billing *billing.UseCase
	logger  logger.Logger
}

// NewSubscriptionHandler cria uma nova instância do subscription handler
func NewSubscriptionHandler(uc *billing.UseCase, log logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		billing: uc,
		logger:  log.WithComponent("subscription-handler"),
	}
}

// Tiers lista os planos disponíveis
func (h *SubscriptionHandler) Tiers(w http.ResponseWriter, r *http.Request) {
	responses.Success(w, "Tiers retrieved", h.billing.Tiers())
}

// Get devolve a assinatura ativa do usuário
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	sub, err := h.billing.Subscription(r.Context(), userID)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Subscription retrieved", sub)
}

// SubscribeRequest é o corpo da ativação de assinatura
type SubscribeRequest struct {
	UserID string `json:"userId" validate:"required"`
	Tier   string `json:"tier" validate:"required"`
}

// Create ativa uma assinatura do plano pedido
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		responses.BadRequest(w, "Missing required fields", err.Error())
		return
	}

	sub, err := h.billing.Subscribe(r.Context(), req.UserID, req.Tier)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Created(w, "Subscription activated", sub)
}
