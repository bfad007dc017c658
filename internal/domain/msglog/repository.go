package msglog

import (
	"context"
	"time"
)

// AutomationLogRepository define a persistência dos registros de envio
type AutomationLogRepository interface {
	// Insert grava um registro de envio
	Insert(ctx context.Context, log *AutomationLog) error

	// CountForUserSince conta os registros do usuário desde o instante informado.
	// É a fonte da contagem das janelas de rate limit.
	CountForUserSince(ctx context.Context, userID string, since time.Time) (int, error)

	// ListByUser lista os registros mais recentes do usuário
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*AutomationLog, error)

	// ListBySession lista os registros mais recentes da sessão
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*AutomationLog, error)
}

// DeliveryRepository define a persistência do rastreio de entrega
type DeliveryRepository interface {
	// Create registra uma mensagem recém enviada com status sent
	Create(ctx context.Context, t *DeliveryTracking) error

	// MarkDelivered marca a mensagem como entregue
	MarkDelivered(ctx context.Context, messageID string, at time.Time) (*DeliveryTracking, error)

	// MarkRead marca a mensagem como lida
	MarkRead(ctx context.Context, messageID string, at time.Time) (*DeliveryTracking, error)
}

// ConnectionEventRepository define a persistência dos eventos de conexão
type ConnectionEventRepository interface {
	// Insert grava um evento de conexão
	Insert(ctx context.Context, e *ConnectionEvent) error

	// ListBySession lista os eventos mais recentes da sessão
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*ConnectionEvent, error)
}

// StrengthRepository define a persistência das métricas de força da conta
type StrengthRepository interface {
	// GetOrCreate busca as métricas da sessão, criando zeradas se ausentes
	GetOrCreate(ctx context.Context, userID, sessionID string) (*AccountStrength, error)

	// RecordActivity acumula as atividades executadas e recalcula o score
	RecordActivity(ctx context.Context, userID, sessionID string, profileFetches, messagesRead, contactsSynced int) error
}
