package responses

import (
	"encoding/json"
	"net/http"
)

// APIResponse representa a estrutura padronizada de resposta da API
type APIResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError representa detalhes de erro na resposta
type APIError struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON escreve uma resposta JSON padronizada
func WriteJSON(w http.ResponseWriter, statusCode int, success bool, message string, data any, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: success,
		Message: message,
		Data:    data,
		Error:   err,
	}

	json.NewEncoder(w).Encode(response)
}

// Success escreve uma resposta de sucesso (200)
func Success(w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, true, message, data, nil)
}

// Created escreve uma resposta de recurso criado (201)
func Created(w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusCreated, true, message, data, nil)
}

// NoContent escreve uma resposta vazia (204)
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// BadRequest escreve uma resposta de requisição inválida (400)
func BadRequest(w http.ResponseWriter, message string, details any) {
	WriteJSON(w, http.StatusBadRequest, false, message, nil, &APIError{
		Code:    "BAD_REQUEST",
		Details: details,
	})
}

// Unauthorized escreve uma resposta de autenticação ausente ou inválida (401)
func Unauthorized(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusUnauthorized, false, message, nil, &APIError{
		Code: "UNAUTHORIZED",
	})
}

// PaymentRequired escreve uma resposta de saldo insuficiente (402)
func PaymentRequired(w http.ResponseWriter, message string, details any) {
	WriteJSON(w, http.StatusPaymentRequired, false, message, nil, &APIError{
		Code:    "INSUFFICIENT_BALANCE",
		Details: details,
	})
}

// Forbidden escreve uma resposta de limite de assinatura (403)
func Forbidden(w http.ResponseWriter, message string, details any) {
	WriteJSON(w, http.StatusForbidden, false, message, nil, &APIError{
		Code:    "FORBIDDEN",
		Details: details,
	})
}

// NotFound escreve uma resposta de recurso não encontrado (404)
func NotFound(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusNotFound, false, message, nil, &APIError{
		Code: "NOT_FOUND",
	})
}

// Conflict escreve uma resposta de conflito (409)
func Conflict(w http.ResponseWriter, message string, details any) {
	WriteJSON(w, http.StatusConflict, false, message, nil, &APIError{
		Code:    "CONFLICT",
		Details: details,
	})
}

// TooManyRequests escreve uma resposta de rate limit excedido (429)
func TooManyRequests(w http.ResponseWriter, message string, details any) {
	WriteJSON(w, http.StatusTooManyRequests, false, message, nil, &APIError{
		Code:    "RATE_LIMIT_EXCEEDED",
		Details: details,
	})
}

// InternalError escreve uma resposta de erro interno (500)
func InternalError(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusInternalServerError, false, message, nil, &APIError{
		Code: "INTERNAL_ERROR",
	})
}

// ServiceUnavailable escreve uma resposta de serviço indisponível (503)
func ServiceUnavailable(w http.ResponseWriter, message string, details any) {
	WriteJSON(w, http.StatusServiceUnavailable, false, message, nil, &APIError{
		Code:    "SERVICE_UNAVAILABLE",
		Details: details,
	})
}

// WriteError escreve um erro com status e código explícitos. É a saída
// dos vereditos estruturados do pipeline de admissão.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details any) {
	WriteJSON(w, statusCode, false, message, nil, &APIError{
		Code:    code,
		Details: details,
	})
}
