package billing

import (
	"errors"
	"fmt"
)

// Erros de domínio de cobrança e quotas
var (
	// ErrWalletNotFound indica que a carteira não existe
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientBalance indica saldo insuficiente para o débito
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrSubscriptionNotFound indica que o usuário não tem assinatura ativa
	ErrSubscriptionNotFound = errors.New("no active subscription")

	// ErrSubscriptionExpired indica que a assinatura ativa expirou
	ErrSubscriptionExpired = errors.New("subscription expired")

	// ErrInvalidTier indica que o plano informado não existe
	ErrInvalidTier = errors.New("invalid subscription tier")

	// ErrInvalidAmount indica um valor de movimentação inválido
	ErrInvalidAmount = errors.New("invalid amount")
)

// SubscriptionLimitError indica que um limite da assinatura foi atingido
type SubscriptionLimitError struct {
	Reason string
	Limit  int64
	Used   int64
}

func (e *SubscriptionLimitError) Error() string {
	return fmt.Sprintf("subscription limit exceeded: %s (used %d of %d)", e.Reason, e.Used, e.Limit)
}

// RateLimitError indica que uma janela de rate limit foi estourada
type RateLimitError struct {
	Window  string
	Limit   int
	Current int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %s window (current %d, limit %d)", e.Window, e.Current, e.Limit)
}
