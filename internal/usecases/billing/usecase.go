package billing

import (
	"context"

	"wasgate/internal/domain/billing"
	"wasgate/pkg/logger"
)

// UseCase expõe as operações de carteira, assinatura e limites de
// envio usadas pelos handlers do painel
type UseCase struct {
	wallets billing.WalletRepository
	subs    billing.SubscriptionRepository
	rates   billing.RateLimitRepository
	logger  logger.Logger
}

// NewUseCase cria o caso de uso de cobrança
func NewUseCase(
	wallets billing.WalletRepository,
	subs billing.SubscriptionRepository,
	rates billing.RateLimitRepository,
	log logger.Logger,
) *UseCase {
	return &UseCase{
		wallets: wallets,
		subs:    subs,
		rates:   rates,
		logger:  log.WithComponent("billing-usecase"),
	}
}

// Balance devolve a carteira do usuário, criando com o saldo inicial
// na primeira consulta
func (uc *UseCase) Balance(ctx context.Context, userID string) (*billing.Wallet, error) {
	return uc.wallets.GetOrCreate(ctx, userID)
}

// Transactions lista as movimentações mais recentes da carteira
func (uc *UseCase) Transactions(ctx context.Context, userID string, limit, offset int) ([]*billing.WalletTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return uc.wallets.Transactions(ctx, userID, limit, offset)
}

// TopUpResult resume uma recarga com o bônus aplicado
type TopUpResult struct {
	Amount       int64 `json:"amount"`
	Bonus        int64 `json:"bonus"`
	TotalCredit  int64 `json:"totalCredit"`
	BalanceAfter int64 `json:"balanceAfter"`
}

// TopUp credita uma recarga na carteira. O bônus por faixa de valor é
// calculado no banco junto com o crédito.
func (uc *UseCase) TopUp(ctx context.Context, userID string, amount int64) (*TopUpResult, error) {
	if amount <= 0 {
		return nil, billing.ErrInvalidAmount
	}

	// Garante a existência da carteira antes do crédito
	if _, err := uc.wallets.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	txn, bonus, err := uc.wallets.TopUp(ctx, userID, amount)
	if err != nil {
		return nil, err
	}

	uc.logger.WithField("user_id", userID).
		WithField("amount", amount).
		WithField("bonus", bonus).
		Info().Msg("Wallet topped up")

	return &TopUpResult{
		Amount:       amount,
		Bonus:        bonus,
		TotalCredit:  amount + bonus,
		BalanceAfter: txn.BalanceAfter,
	}, nil
}

// Tiers lista os planos de assinatura disponíveis
func (uc *UseCase) Tiers() []billing.Tier {
	return billing.AllTiers()
}

// Subscription devolve a assinatura ativa do usuário
func (uc *UseCase) Subscription(ctx context.Context, userID string) (*billing.Subscription, error) {
	return uc.subs.GetActive(ctx, userID)
}

// Subscribe ativa uma assinatura do plano pedido, substituindo a
// anterior se houver
func (uc *UseCase) Subscribe(ctx context.Context, userID, tierName string) (*billing.Subscription, error) {
	tier, ok := billing.TierByName(tierName)
	if !ok {
		return nil, billing.ErrInvalidTier
	}

	sub := billing.NewSubscription(userID, tier)
	if err := uc.subs.Create(ctx, sub); err != nil {
		return nil, err
	}

	uc.logger.WithField("user_id", userID).
		WithField("tier", tier.Name).
		Info().Msg("Subscription activated")
	return sub, nil
}

// RateLimits devolve os limites de envio do usuário
func (uc *UseCase) RateLimits(ctx context.Context, userID string) (*billing.RateLimitSettings, error) {
	return uc.rates.GetOrDefault(ctx, userID)
}

// UpdateRateLimits grava novos limites de envio. Todos os valores devem
// ser positivos e as janelas maiores não podem ser menores que as menores.
func (uc *UseCase) UpdateRateLimits(ctx context.Context, userID string, perMinute, perHour, perDay int) (*billing.RateLimitSettings, error) {
	if perMinute <= 0 || perHour <= 0 || perDay <= 0 {
		return nil, billing.ErrInvalidAmount
	}
	if perHour < perMinute || perDay < perHour {
		return nil, billing.ErrInvalidAmount
	}

	settings, err := uc.rates.GetOrDefault(ctx, userID)
	if err != nil {
		return nil, err
	}
	settings.PerMinute = perMinute
	settings.PerHour = perHour
	settings.PerDay = perDay

	if err := uc.rates.Upsert(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
