package admission

import (
	"fmt"
	"net/http"
)

// Códigos estruturados dos vereditos de admissão
const (
	CodeSessionNotFound     = "session_not_found"
	CodeSessionBad          = "session_bad"
	CodeSessionInitializing = "session_initializing"
	CodeBadRecipient        = "bad_recipient"
	CodeSubscription        = "subscription_exceeded"
	CodeRateLimit           = "rate_limit"
	CodeInsufficientBalance = "insufficient_balance"
	CodeSendFailed          = "send_failed"
)

// GateError é o veredito estruturado de um portão que recusou o envio.
// Status é a dica de código HTTP para a camada de transporte.
type GateError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errSessionNotFound(sessionID string) *GateError {
	return &GateError{
		Status:  http.StatusNotFound,
		Code:    CodeSessionNotFound,
		Message: fmt.Sprintf("session %s not found", sessionID),
	}
}

func errSessionBad(reason string) *GateError {
	return &GateError{
		Status:  http.StatusBadRequest,
		Code:    CodeSessionBad,
		Message: reason,
	}
}

func errSessionInitializing() *GateError {
	return &GateError{
		Status:  http.StatusServiceUnavailable,
		Code:    CodeSessionInitializing,
		Message: "session is initializing, retry shortly",
		Details: map[string]any{"retryAfterSeconds": 5},
	}
}

func errBadRecipient(raw string) *GateError {
	return &GateError{
		Status:  http.StatusBadRequest,
		Code:    CodeBadRecipient,
		Message: fmt.Sprintf("invalid recipient %q", raw),
	}
}

func errSubscription(reason string, limit, used int64) *GateError {
	return &GateError{
		Status:  http.StatusForbidden,
		Code:    CodeSubscription,
		Message: reason,
		Details: map[string]any{"limit": limit, "used": used},
	}
}

func errRateLimit(window string, limit, current int) *GateError {
	return &GateError{
		Status:  http.StatusTooManyRequests,
		Code:    CodeRateLimit,
		Message: fmt.Sprintf("rate limit exceeded for %s window", window),
		Details: map[string]any{
			"reason":  "rate_limit_" + window,
			"limit":   limit,
			"current": current,
		},
	}
}

func errInsufficientBalance(balance, required int64) *GateError {
	return &GateError{
		Status:  http.StatusPaymentRequired,
		Code:    CodeInsufficientBalance,
		Message: "Insufficient balance",
		Details: map[string]any{"balance": balance, "required": required},
	}
}

func errSendFailed(reason string) *GateError {
	return &GateError{
		Status:  http.StatusInternalServerError,
		Code:    CodeSendFailed,
		Message: reason,
	}
}
