package whatsapp

import "errors"

// Erros tipados do worker. Substituem a classificação por substring
// nas mensagens de erro do cliente.
var (
	// ErrSessionClosed indica que a conexão subjacente foi encerrada.
	// Um envio que falha com este erro derruba o supervisor da sessão.
	ErrSessionClosed = errors.New("session closed")

	// ErrNotReady indica que o worker ainda não está pronto para enviar
	ErrNotReady = errors.New("worker not ready")

	// ErrRecipientNotFound indica que o número não existe no WhatsApp
	ErrRecipientNotFound = errors.New("recipient not found on whatsapp")

	// ErrNotAuthenticated indica worker sem identidade pareada
	ErrNotAuthenticated = errors.New("worker not authenticated")
)
