package middleware

import (
	"context"
	"net/http"
	"strings"

	"wasgate/internal/domain/apikey"
	"wasgate/internal/http/responses"
	"wasgate/pkg/logger"
)

type contextKey string

const (
	ctxKeyUserID    contextKey = "auth_user_id"
	ctxKeySessionID contextKey = "auth_session_id"
	ctxKeyAPIKeyID  contextKey = "auth_api_key_id"
)

// NewAPIKeyAuth autentica a família /api/v1 por chave de API. A chave
// vem de X-API-Key ou de Authorization: Bearer; uma chave ativa anota a
// requisição com o par (usuário, sessão) vinculado e toca o uso.
func NewAPIKeyAuth(repo apikey.Repository, log logger.Logger) func(http.Handler) http.Handler {
	authLog := log.WithComponent("apikey-auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractKey(r)
			if key == "" {
				responses.Unauthorized(w, apikey.ErrKeyRequired.Error())
				return
			}

			record, err := repo.GetActiveByKey(r.Context(), key)
			if err != nil {
				responses.Unauthorized(w, apikey.ErrKeyInvalid.Error())
				return
			}

			if err := repo.Touch(r.Context(), record.ID); err != nil {
				authLog.WithError(err).Debug().Msg("Failed to touch API key usage")
			}

			ctx := context.WithValue(r.Context(), ctxKeyUserID, record.UserID)
			ctx = context.WithValue(ctx, ctxKeySessionID, record.SessionID)
			ctx = context.WithValue(ctx, ctxKeyAPIKeyID, record.ID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractKey procura a chave em X-API-Key e em Authorization: Bearer
func extractKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// AuthUserID devolve o usuário autenticado pela chave de API
func AuthUserID(ctx context.Context) string {
	value, _ := ctx.Value(ctxKeyUserID).(string)
	return value
}

// AuthSessionID devolve a sessão vinculada à chave de API
func AuthSessionID(ctx context.Context) string {
	value, _ := ctx.Value(ctxKeySessionID).(string)
	return value
}
