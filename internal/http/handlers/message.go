package handlers

import (
	"encoding/json"
	"net/http"

	"wasgate/internal/domain/msglog"
	"wasgate/internal/http/responses"
	"wasgate/internal/usecases/admission"
	"wasgate/pkg/logger"
)

// MessageHandler implementa os envios do painel: OTP, anúncio em lote e
// mensagem de teste. Todos atravessam o pipeline de admissão.
type MessageHandler struct {
	pipeline *admission.Pipeline
	logger   logger.Logger
}

// NewMessageHandler cria uma nova instância do message handler
func NewMessageHandler(pipeline *admission.Pipeline, log logger.Logger) *MessageHandler {
	return &MessageHandler{
		pipeline: pipeline,
		logger:   log.WithComponent("message-handler"),
	}
}

// SendOTPRequest é o corpo do envio de OTP
type SendOTPRequest struct {
	UserID    string `json:"userId" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
	Recipient string `json:"recipient" validate:"required"`
	Code      string `json:"code" validate:"required"`
	Language  string `json:"language"`
}

// SendOTP envia um código OTP usando o template do idioma pedido
func (h *MessageHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		responses.BadRequest(w, "Missing required fields", err.Error())
		return
	}

	result, err := h.pipeline.SendOTP(r.Context(), admission.OTPRequest{
		UserID:    req.UserID,
		SessionID: req.SessionID,
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

// SendAnnouncementRequest é o corpo do envio em lote
type SendAnnouncementRequest struct {
	UserID     string   `json:"userId" validate:"required"`
	SessionID  string   `json:"sessionId" validate:"required"`
	Recipients []string `json:"recipients" validate:"required,min=1"`
	Message    string   `json:"message" validate:"required"`
}

// SendAnnouncement envia a mesma mensagem para vários destinatários
func (h *MessageHandler) SendAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req SendAnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		responses.BadRequest(w, "Missing required fields", err.Error())
		return
	}

	result, err := h.pipeline.SendBulk(r.Context(), admission.BulkRequest{
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Recipients: req.Recipients,
		Message:    req.Message,
	})
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Announcement dispatched", result)
}

// TestMessageRequest é o corpo da mensagem de teste do painel
type TestMessageRequest struct {
	UserID    string `json:"userId" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
	Recipient string `json:"recipient" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

// TestMessage envia uma mensagem única de teste
func (h *MessageHandler) TestMessage(w http.ResponseWriter, r *http.Request) {
	var req TestMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		responses.BadRequest(w, "Missing required fields", err.Error())
		return
	}

	result, err := h.pipeline.SendSingle(r.Context(), admission.SingleRequest{
		UserID:    req.UserID,
		SessionID: req.SessionID,
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
