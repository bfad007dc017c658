package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"wasgate/internal/http/responses"
	"wasgate/internal/usecases/sessions"
	"wasgate/pkg/logger"
)

// StrengthHandler expõe as métricas de força da conta e o disparo da
// cadeia de fortalecimento
type StrengthHandler struct {
	sessions *sessions.UseCase
	logger   logger.Logger
}

// NewStrengthHandler cria uma nova instância do strength handler
func NewStrengthHandler(uc *sessions.UseCase, log logger.Logger) *StrengthHandler {
	return &StrengthHandler{
		sessions: uc,
		logger:   log.WithComponent("strength-handler"),
	}
}

// Get devolve as métricas acumuladas da sessão
func (h *StrengthHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sessionID := chi.URLParam(r, "sessionID")

	strength, err := h.sessions.Strength(r.Context(), userID, sessionID)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Account strength retrieved", strength)
}

// Logs lista o histórico de eventos de conexão da sessão
func (h *StrengthHandler) Logs(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sessionID := chi.URLParam(r, "sessionID")

	events, err := h.sessions.ConnectionEvents(r.Context(), userID, sessionID, queryInt(r, "limit", 50))
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Connection events retrieved", events)
}

// Strengthen executa a cadeia de atividades inofensivas na sessão
func (h *StrengthHandler) Strengthen(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sessionID := chi.URLParam(r, "sessionID")

	report, err := h.sessions.Strengthen(r.Context(), userID, sessionID)
	if err != nil {
		writeUseCaseError(w, h.logger, err)
		return
	}
	responses.Success(w, "Strengthening completed", report)
}
