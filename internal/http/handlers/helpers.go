package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"wasgate/internal/domain/billing"
	"wasgate/internal/domain/session"
	"wasgate/internal/domain/webhook"
	wa "wasgate/internal/domain/whatsapp"
	"wasgate/internal/http/responses"
	"wasgate/internal/usecases/admission"
	"wasgate/internal/usecases/send"
	"wasgate/pkg/logger"
)

// validate é o validador compartilhado das structs de requisição
var validate = validator.New()

// writeUseCaseError traduz erros dos casos de uso em respostas HTTP.
// Vereditos do pipeline de admissão carregam o próprio status; erros de
// domínio conhecidos são mapeados; o resto vira 500 com a mensagem original.
func writeUseCaseError(w http.ResponseWriter, log logger.Logger, err error) {
	var gate *admission.GateError
	if errors.As(err, &gate) {
		responses.WriteError(w, gate.Status, gate.Code, gate.Message, gate.Details)
		return
	}

	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, webhook.ErrWebhookNotFound),
		errors.Is(err, billing.ErrSubscriptionNotFound),
		errors.Is(err, billing.ErrWalletNotFound),
		errors.Is(err, sql.ErrNoRows):
		responses.NotFound(w, "Resource not found")

	case errors.Is(err, session.ErrDuplicateConnected):
		responses.BadRequest(w, "User already has a connected session", nil)

	case errors.Is(err, session.ErrInvalidSessionID):
		responses.BadRequest(w, "Invalid session id", nil)

	case errors.Is(err, session.ErrSessionAlreadyExists):
		responses.Conflict(w, "Session id is already in use", nil)

	case errors.Is(err, webhook.ErrDuplicateSubscription):
		responses.Conflict(w, "A webhook for this session and type already exists", nil)

	case errors.Is(err, wa.ErrNotReady):
		responses.ServiceUnavailable(w, "Session is not ready, retry shortly", map[string]any{"retryAfterSeconds": 5})

	case errors.Is(err, wa.ErrSessionClosed):
		responses.BadRequest(w, "Session is closed, reconnect via dashboard", nil)

	case errors.Is(err, webhook.ErrInvalidType),
		errors.Is(err, webhook.ErrInvalidURL),
		errors.Is(err, billing.ErrInvalidTier),
		errors.Is(err, billing.ErrInvalidAmount),
		errors.Is(err, send.ErrInvalidRecipient):
		responses.BadRequest(w, err.Error(), nil)

	default:
		log.WithError(err).Error().Msg("Unhandled usecase error")
		responses.InternalError(w, err.Error())
	}
}

// queryInt lê um inteiro da query string com valor padrão
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
