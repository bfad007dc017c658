package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wasgate/internal/http/responses"
	"wasgate/internal/usecases/sessions"
	"wasgate/pkg/logger"
)

// SessionHandler implementa os handlers de sessão do painel
type SessionHandler struct {
	sessions *sessions.UseCase
	logger   logger.Logger
}

// NewSessionHandler cria uma nova instância do session handler
func NewSessionHandler(uc *sessions.UseCase, log logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: uc,
		logger:   log.WithComponent("session-handler"),
	}
}

// ConnectRequest é o corpo do connect do painel
type ConnectRequest struct {
	UserID    string `json:"userId" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
}

// Connect inicia ou retoma uma sessão e devolve o QR inicial quando houver
func (h *SessionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		responses.BadRequest(w, "Missing required fields", err.Error())
		return
	}

	info, err := h.sessions.Connect(r.Context(), req.UserID, req.SessionID)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}

	responses.Created(w, "Session connection started", info)
}

// Get devolve a visão atual de uma sessão
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		responses.BadRequest(w, "userId is required", nil)
		return
	}

	info, err := h.sessions.Get(r.Context(), userID, sessionID)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Session retrieved", info)
}

// List devolve as sessões de um usuário
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		responses.BadRequest(w, "userId is required", nil)
		return
	}

	infos, err := h.sessions.List(r.Context(), userID)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Sessions retrieved", infos)
}

// DisconnectRequest é o corpo do disconnect do painel
type DisconnectRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// Disconnect desloga a sessão e apaga a linha e as credenciais
func (h *SessionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req DisconnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responses.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		responses.BadRequest(w, "Missing required fields", err.Error())
		return
	}

	if err := h.sessions.Disconnect(r.Context(), req.UserID, sessionID); err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Session disconnected", nil)
}
