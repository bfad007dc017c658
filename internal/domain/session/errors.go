package session

import (
	"errors"
	"fmt"
)

// Erros de domínio específicos para sessões
var (
	// ErrSessionNotFound indica que a sessão não foi encontrada
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionAlreadyExists indica que uma sessão com o id já existe
	ErrSessionAlreadyExists = errors.New("session already exists")

	// ErrDuplicateConnected indica que o usuário já possui outra sessão conectada
	ErrDuplicateConnected = errors.New("user already has a connected session")

	// ErrSessionTerminal indica que a sessão está em um estado terminal
	ErrSessionTerminal = errors.New("session is in a terminal state")

	// ErrSessionInitializing indica que a sessão ainda não ficou pronta
	ErrSessionInitializing = errors.New("session is initializing")

	// ErrInvalidSessionID indica que o identificador da sessão é inválido
	ErrInvalidSessionID = errors.New("invalid session id")
)

// SessionError representa um erro de sessão com contexto da operação
type SessionError struct {
	SessionID string
	Op        string
	Err       error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError cria um novo erro de sessão
func NewSessionError(sessionID, op string, err error) *SessionError {
	return &SessionError{
		SessionID: sessionID,
		Op:        op,
		Err:       err,
	}
}
