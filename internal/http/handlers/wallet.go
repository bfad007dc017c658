package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wasgate/internal/http/responses"
	"wasgate/internal/usecases/billing"
	"wasgate/pkg/logger"
)

// WalletHandler implementa os handlers de carteira do painel
type WalletHandler struct {
	billing *billing.UseCase
	logger  logger.Logger
}

// NewWalletHandler cria uma nova instância do wallet handler
func NewWalletHandler(uc *billing.UseCase, log logger.Logger) *WalletHandler {
	return &WalletHandler{
		billing: uc,
		logger:  log.WithComponent("wallet-handler"),
	}
}

// Balance devolve o saldo atual do usuário
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	wallet, err := h.billing.Balance(r.Context(), userID)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Balance retrieved", wallet)
}

// Transactions lista as movimentações mais recentes do usuário
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	txns, err := h.billing.Transactions(r.Context(), userID, limit, offset)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Transactions retrieved", txns)
}

// TopUpRequest é o corpo de uma recarga
type TopUpRequest struct {
	UserID string `json:"userId" validate:"required"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}

// TopUp credita uma recarga com o bônus por faixa de valor
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		responses.BadRequest(w, "Missing required fields", err.Error())
		return
	}

	result, err := h.billing.TopUp(r.Context(), req.UserID, req.Amount)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Wallet topped up", result)
}
