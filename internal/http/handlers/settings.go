package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wasgate/internal/http/responses"
	"wasgate/internal/usecases/billing"
	"wasgate/pkg/logger"
)

// SettingsHandler implementa os handlers de limites de envio por usuário
type SettingsHandler struct {
	billing *billing.UseCase
	logger  logger.Logger
}

// NewSettingsHandler cria uma nova instância do settings handler
func NewSettingsHandler(uc *billing.UseCase, log logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		billing: uc,
		logger:  log.WithComponent("settings-handler"),
	}
}

// Get devolve os limites de envio do usuário
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	settings, err := h.billing.RateLimits(r.Context(), userID)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Settings retrieved", settings)
}

// UpdateSettingsRequest é o corpo da atualização de limites
type UpdateSettingsRequest struct {
	PerMinute int `json:"perMinute" validate:"required,gt=0"`
	PerHour   int `json:"perHour" validate:"required,gt=0"`
	PerDay    int `json:"perDay" validate:"required,gt=0"`
}

// Update grava novos limites de envio para o usuário
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		responses.BadRequest(w, "Missing required fields", err.Error())
		return
	}

	settings, err := h.billing.UpdateRateLimits(r.Context(), userID, req.PerMinute, req.PerHour, req.PerDay)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Settings updated", settings)
}
