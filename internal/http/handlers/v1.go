package handlers

import (
	"encoding/json"
	"net/http"

	"wasgate/internal/domain/msglog"
	"wasgate/internal/http/middleware"
	"wasgate/internal/http/responses"
	"wasgate/internal/usecases/admission"
	"wasgate/internal/usecases/billing"
	"wasgate/internal/usecases/sessions"
	"wasgate/pkg/logger"
)

// V1Handler implementa a família /api/v1 autenticada por chave de API.
// O par (usuário, sessão) vem da chave; o corpo nunca os carrega.
type V1Handler struct {
	pipeline *admission.Pipeline
	sessions *sessions.UseCase
	billing  *billing.UseCase
	logger   logger.Logger
}

// NewV1Handler cria uma nova instância do v1 handler
func NewV1Handler(
	pipeline *admission.Pipeline,
	sessionsUC *sessions.UseCase,
	billingUC *billing.UseCase,
	log logger.Logger,
) *V1Handler {
	return &V1Handler{
		pipeline: pipeline,
		sessions: sessionsUC,
		billing:  billingUC,
		logger:   log.WithComponent("v1-handler"),
	}
}

// AuthInfo devolve o vínculo da chave autenticada
func (h *V1Handler) AuthInfo(w http.ResponseWriter, r *http.Request) {
	responses.Success(w, "Authenticated", map[string]any{
		"userId":    middleware.AuthUserID(r.Context()),
		"sessionId": middleware.AuthSessionID(r.Context()),
	})
}

// SessionStatus devolve o estado da sessão vinculada à chave
func (h *V1Handler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	info, err := h.sessions.Get(r.Context(), middleware.AuthUserID(r.Context()), middleware.AuthSessionID(r.Context()))
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Session status retrieved", info)
}

// WalletBalance devolve o saldo do usuário vinculado à chave
func (h *V1Handler) WalletBalance(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.billing.Balance(r.Context(), middleware.AuthUserID(r.Context()))
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Balance retrieved", wallet)
}

// WalletTransactions lista as movimentações do usuário vinculado à chave
func (h *V1Handler) WalletTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.billing.Transactions(r.Context(), middleware.AuthUserID(r.Context()),
		queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Transactions retrieved", txns)
}

// V1SendRequest é o corpo do envio único da API v1
type V1SendRequest struct {
	Recipient string `json:"recipient" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

// Send envia uma mensagem única pela sessão vinculada à chave
func (h *V1Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req V1SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		responses.BadRequest(w, "Missing required fields", err.Error())
		return
	}

	result, err := h.pipeline.SendSingle(r.Context(), admission.SingleRequest{
		UserID:    middleware.AuthUserID(r.Context()),
		SessionID: middleware.AuthSessionID(r.Context()),
		Recipient: req.Recipient,
		Message:   req.Message,
		Type:      msglog.SendAPIMessage,
	})
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Message sent", result)
}

// V1SendBulkRequest é o corpo do envio em lote da API v1
type V1SendBulkRequest struct {
	Recipients []string `json:"recipients" validate:"required,min=1"`
	Message    string   `json:"message" validate:"required"`
}

// SendBulk envia a mesma mensagem para vários destinatários
func (h *V1Handler) SendBulk(w http.ResponseWriter, r *http.Request) {
	var req V1SendBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		responses.BadRequest(w, "Missing required fields", err.Error())
		return
	}

	result, err := h.pipeline.SendBulk(r.Context(), admission.BulkRequest{
		UserID:     middleware.AuthUserID(r.Context()),
		SessionID:  middleware.AuthSessionID(r.Context()),
		Recipients: req.Recipients,
		Message:    req.Message,
	})
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Bulk send dispatched", result)
}

// V1SendOTPRequest é o corpo do envio de OTP da API v1
type V1SendOTPRequest struct {
	Recipient string `json:"recipient" validate:"required"`
	Code      string `json:"code" validate:"required"`
	Language  string `json:"language"`
}

// SendOTP envia um código OTP pela sessão vinculada à chave
func (h *V1Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req V1SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		responses.BadRequest(w, "Missing required fields", err.Error())
		return
	}

	result, err := h.pipeline.SendOTP(r.Context(), admission.OTPRequest{
		UserID:    middleware.AuthUserID(r.Context()),
		SessionID: middleware.AuthSessionID(r.Context()),
		Recipient: req.Recipient,
		Code:      req.Code,
		Language:  req.Language,
	})
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "OTP sent", result)
}
