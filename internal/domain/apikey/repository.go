package apikey

import (
	"context"

	"github.com/google/uuid"
)

// Repository define as operações de persistência das chaves de API
type Repository interface {
	// Create insere uma nova chave
	Create(ctx context.Context, key *APIKey) error

	// GetActiveByKey busca uma chave ativa pelo valor da chave
	GetActiveByKey(ctx context.Context, key string) (*APIKey, error)

	// GetActiveBySession busca a chave ativa vinculada à sessão
	GetActiveBySession(ctx context.Context, sessionID string) (*APIKey, error)

	// Touch atualiza last_used_at e incrementa usage_count
	Touch(ctx context.Context, id uuid.UUID) error

	// Deactivate revoga a chave
	Deactivate(ctx context.Context, id uuid.UUID) error

	// DeactivateBySession revoga as chaves da sessão
	DeactivateBySession(ctx context.Context, sessionID string) error
}
