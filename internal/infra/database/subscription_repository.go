package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"wasgate/internal/domain/billing"
)

// subscriptionRepository implementa billing.SubscriptionRepository sobre o Bun
type subscriptionRepository struct {
	db *bun.DB
}

// NewSubscriptionRepository cria uma nova instância do repositório de assinaturas
func NewSubscriptionRepository(db *bun.DB) billing.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// GetActive busca a assinatura ativa do usuário
func (r *subscriptionRepository) GetActive(ctx context.Context, userID string) (*billing.Subscription, error) {
	sub := new(billing.Subscription)
	err := r.db.NewSelect().
		Model(sub).
		Where("user_id = ?", userID).
		Where("is_active = ?", true).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

// Create ativa uma nova assinatura, desativando a anterior se houver
func (r *subscriptionRepository) Create(ctx context.Context, sub *billing.Subscription) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*billing.Subscription)(nil)).
			Set("is_active = ?", false).
			Set("updated_at = ?", time.Now()).
			Where("user_id = ?", sub.UserID).
			Where("is_active = ?", true).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewInsert().Model(sub).Exec(ctx)
		return err
	})
}

// CheckLimits verifica via check_subscription_limits se o usuário pode
// consumir messages/numbers adicionais
func (r *subscriptionRepository) CheckLimits(ctx context.Context, userID string, messagesNeeded, numbersNeeded int) (*billing.LimitCheck, error) {
	check := new(billing.LimitCheck)
	err := r.db.QueryRowContext(ctx,
		"SELECT * FROM check_subscription_limits(?, ?, ?)",
		userID, messagesNeeded, numbersNeeded,
	).Scan(&check.Allowed, &check.Reason, &check.Limit, &check.Used)
	if err != nil {
		return nil, fmt.Errorf("check_subscription_limits: %w", err)
	}
	return check, nil
}

// IncrementUsage soma messages ao contador messages_used
func (r *subscriptionRepository) IncrementUsage(ctx context.Context, userID string, messages int) error {
	if messages <= 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, "SELECT increment_subscription_usage(?, ?)", userID, messages)
	if err != nil {
		return fmt.Errorf("increment_subscription_usage: %w", err)
	}
	return nil
}

// RegisterNumber incrementa numbers_used contando sessões conectadas distintas.
// A função SQL trava a assinatura, então restauração e conexão concorrentes
// não contam o mesmo número duas vezes.
func (r *subscriptionRepository) RegisterNumber(ctx context.Context, userID, sessionID string) error {
	_, err := r.db.ExecContext(ctx, "SELECT register_session_number(?, ?)", userID, sessionID)
	if err != nil {
		return fmt.Errorf("register_session_number: %w", err)
	}
	return nil
}
