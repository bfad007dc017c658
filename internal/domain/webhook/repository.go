package webhook

import (
	"context"

	"github.com/google/uuid"
)

// Repository define as operações de persistência de webhooks e seus logs
type Repository interface {
	// Create insere um novo webhook
	Create(ctx context.Context, wh *Webhook) error

	// GetByID busca um webhook pelo id
	GetByID(ctx context.Context, id uuid.UUID) (*Webhook, error)

	// ListByUser lista os webhooks do usuário
	ListByUser(ctx context.Context, userID string) ([]*Webhook, error)

	// ListForEvent seleciona os webhooks ativos de (user, session) inscritos
	// em qualquer um dos tipos informados ou em "all"
	ListForEvent(ctx context.Context, userID, sessionID string, types []Type) ([]*Webhook, error)

	// Update persiste alterações em um webhook
	Update(ctx context.Context, wh *Webhook) error

	// Delete remove o webhook e seus logs
	Delete(ctx context.Context, id uuid.UUID) error

	// InsertLog grava o registro de uma tentativa de entrega
	InsertLog(ctx context.Context, log *WebhookLog) error

	// ListLogs lista as tentativas mais recentes de um webhook
	ListLogs(ctx context.Context, webhookID uuid.UUID, limit, offset int) ([]*WebhookLog, error)

	// UpdateStats atualiza os contadores acumulados após o desfecho final
	UpdateStats(ctx context.Context, webhookID uuid.UUID, success bool) error
}
