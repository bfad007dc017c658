package webhook

import "errors"

var (
	// ErrWebhookNotFound indica que o webhook não existe
	ErrWebhookNotFound = errors.New("webhook not found")

	// ErrDuplicateSubscription indica que já existe webhook para (user, session, type)
	ErrDuplicateSubscription = errors.New("webhook already exists for this session and type")

	// ErrInvalidType indica um tipo de inscrição desconhecido
	ErrInvalidType = errors.New("invalid webhook type")

	// ErrInvalidURL indica uma URL de destino inválida
	ErrInvalidURL = errors.New("invalid webhook url")
)
