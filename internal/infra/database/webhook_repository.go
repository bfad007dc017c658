package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"wasgate/internal/domain/webhook"
)

// webhookRepository implementa webhook.Repository sobre o Bun
type webhookRepository struct {
	db *bun.DB
}

// NewWebhookRepository cria uma nova instância do repositório de webhooks
func NewWebhookRepository(db *bun.DB) webhook.Repository {
	return &webhookRepository{db: db}
}

// Create insere um novo webhook
func (r *webhookRepository) Create(ctx context.Context, wh *webhook.Webhook) error {
	_, err := r.db.NewInsert().Model(wh).Exec(ctx)
	if err != nil && strings.Contains(err.Error(), "idx_webhooks_user_session_type") {
		return webhook.ErrDuplicateSubscription
	}
	return err
}

// GetByID busca um webhook pelo id
func (r *webhookRepository) GetByID(ctx context.Context, id uuid.UUID) (*webhook.Webhook, error) {
	wh := new(webhook.Webhook)
	err := r.db.NewSelect().Model(wh).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, webhook.ErrWebhookNotFound
		}
		return nil, err
	}
	return wh, nil
}

// ListByUser lista os webhooks do usuário
func (r *webhookRepository) ListByUser(ctx context.Context, userID string) ([]*webhook.Webhook, error) {
	var webhooks []*webhook.Webhook
	err := r.db.NewSelect().
		Model(&webhooks).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return webhooks, nil
}

// ListForEvent seleciona os webhooks ativos de (user, session) inscritos
// em qualquer um dos tipos informados ou em "all"
func (r *webhookRepository) ListForEvent(ctx context.Context, userID, sessionID string, types []webhook.Type) ([]*webhook.Webhook, error) {
	selected := append(append([]webhook.Type{}, types...), webhook.TypeAll)
	var webhooks []*webhook.Webhook
	err := r.db.NewSelect().
		Model(&webhooks).
		Where("user_id = ?", userID).
		Where("session_id = ?", sessionID).
		Where("is_active = ?", true).
		Where("type IN (?)", bun.In(selected)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return webhooks, nil
}

// Update persiste alterações em um webhook
func (r *webhookRepository) Update(ctx context.Context, wh *webhook.Webhook) error {
	wh.UpdatedAt = time.Now()
	res, err := r.db.NewUpdate().
		Model(wh).
		Where("id = ?", wh.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return webhook.ErrWebhookNotFound
	}
	return nil
}

// Delete remove o webhook e seus logs
func (r *webhookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*webhook.WebhookLog)(nil)).
			Where("webhook_id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*webhook.Webhook)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return webhook.ErrWebhookNotFound
		}
		return nil
	})
}

// InsertLog grava o registro de uma tentativa de entrega
func (r *webhookRepository) InsertLog(ctx context.Context, log *webhook.WebhookLog) error {
	_, err := r.db.NewInsert().Model(log).Exec(ctx)
	return err
}

// ListLogs lista as tentativas mais recentes de um webhook
func (r *webhookRepository) ListLogs(ctx context.Context, webhookID uuid.UUID, limit, offset int) ([]*webhook.WebhookLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []*webhook.WebhookLog
	err := r.db.NewSelect().
		Model(&logs).
		Where("webhook_id = ?", webhookID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// UpdateStats atualiza os contadores acumulados via update_webhook_stats
func (r *webhookRepository) UpdateStats(ctx context.Context, webhookID uuid.UUID, success bool) error {
	_, err := r.db.ExecContext(ctx, "SELECT update_webhook_stats(?, ?)", webhookID, success)
	if err != nil {
		return fmt.Errorf("update_webhook_stats: %w", err)
	}
	return nil
}
