package billing

import "context"

// LimitCheck é o resultado da verificação de limites da assinatura
type LimitCheck struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Limit   int64  `json:"limit,omitempty"`
	Used    int64  `json:"used,omitempty"`
}

// WalletRepository define as operações de persistência da carteira.
// Deduct e Credit gravam saldo e transação em uma única transação de banco.
type WalletRepository interface {
	// GetOrCreate busca a carteira do usuário, criando com saldo inicial se ausente
	GetOrCreate(ctx context.Context, userID string) (*Wallet, error)

	// Deduct debita amount do saldo de forma serializável por usuário.
	// Retorna ErrInsufficientBalance sem mutação se o saldo for menor que amount.
	Deduct(ctx context.Context, userID, sessionID string, amount int64, description, referenceID string) (*WalletTransaction, error)

	// Credit credita amount no saldo e grava a transação correspondente
	Credit(ctx context.Context, userID, sessionID string, amount int64, description, referenceID string) (*WalletTransaction, error)

	// TopUp credita amount mais o bônus calculado pelo banco
	TopUp(ctx context.Context, userID string, amount int64) (*WalletTransaction, int64, error)

	// Transactions lista as movimentações mais recentes do usuário
	Transactions(ctx context.Context, userID string, limit, offset int) ([]*WalletTransaction, error)
}

// SubscriptionRepository define as operações de persistência de assinaturas
type SubscriptionRepository interface {
	// GetActive busca a assinatura ativa do usuário
	GetActive(ctx context.Context, userID string) (*Subscription, error)

	// Create ativa uma nova assinatura, desativando a anterior se houver
	Create(ctx context.Context, sub *Subscription) error

	// CheckLimits verifica se o usuário pode consumir messages/numbers adicionais
	CheckLimits(ctx context.Context, userID string, messagesNeeded, numbersNeeded int) (*LimitCheck, error)

	// IncrementUsage soma messages ao contador messages_used
	IncrementUsage(ctx context.Context, userID string, messages int) error

	// RegisterNumber incrementa numbers_used de forma transacional,
	// contando sessões conectadas distintas para evitar dupla contagem
	RegisterNumber(ctx context.Context, userID, sessionID string) error
}

// RateLimitRepository define a persistência dos limites por usuário
type RateLimitRepository interface {
	// GetOrDefault busca os limites do usuário, devolvendo os padrões se ausentes
	GetOrDefault(ctx context.Context, userID string) (*RateLimitSettings, error)

	// Upsert grava os limites do usuário
	Upsert(ctx context.Context, settings *RateLimitSettings) error
}
