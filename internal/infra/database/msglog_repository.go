package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"wasgate/internal/domain/msglog"
)

// automationLogRepository implementa msglog.AutomationLogRepository sobre o Bun
type automationLogRepository struct {
	db *bun.DB
}

// NewAutomationLogRepository cria uma nova instância do repositório de envios
func NewAutomationLogRepository(db *bun.DB) msglog.AutomationLogRepository {
	return &automationLogRepository{db: db}
}

// Insert grava um registro de envio
func (r *automationLogRepository) Insert(ctx context.Context, log *msglog.AutomationLog) error {
	_, err := r.db.NewInsert().Model(log).Exec(ctx)
	return err
}

// CountForUserSince conta os registros do usuário desde o instante informado
func (r *automationLogRepository) CountForUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return r.db.NewSelect().
		Model((*msglog.AutomationLog)(nil)).
		Where("user_id = ?", userID).
		Where("created_at >= ?", since).
		Count(ctx)
}

// ListByUser lista os registros mais recentes do usuário
func (r *automationLogRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*msglog.AutomationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []*msglog.AutomationLog
	err := r.db.NewSelect().
		Model(&logs).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// ListBySession lista os registros mais recentes da sessão
func (r *automationLogRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*msglog.AutomationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []*msglog.AutomationLog
	err := r.db.NewSelect().
		Model(&logs).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// deliveryRepository implementa msglog.DeliveryRepository sobre o Bun
type deliveryRepository struct {
	db *bun.DB
}

// NewDeliveryRepository cria uma nova instância do repositório de entregas
func NewDeliveryRepository(db *bun.DB) msglog.DeliveryRepository {
	return &deliveryRepository{db: db}
}

// Create registra uma mensagem recém enviada com status sent
func (r *deliveryRepository) Create(ctx context.Context, t *msglog.DeliveryTracking) error {
	_, err := r.db.NewInsert().
		Model(t).
		On("CONFLICT (message_id) DO NOTHING").
		Exec(ctx)
	return err
}

// MarkDelivered marca a mensagem como entregue
func (r *deliveryRepository) MarkDelivered(ctx context.Context, messageID string, at time.Time) (*msglog.DeliveryTracking, error) {
	_, err := r.db.NewUpdate().
		Model((*msglog.DeliveryTracking)(nil)).
		Set("status = ?", msglog.DeliveryDelivered).
		Set("delivered_at = ?", at).
		Set("updated_at = ?", time.Now()).
		Where("message_id = ?", messageID).
		Where("status = ?", msglog.DeliverySent).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return r.getByMessageID(ctx, messageID)
}

// MarkRead marca a mensagem como lida
func (r *deliveryRepository) MarkRead(ctx context.Context, messageID string, at time.Time) (*msglog.DeliveryTracking, error) {
	_, err := r.db.NewUpdate().
		Model((*msglog.DeliveryTracking)(nil)).
		Set("status = ?", msglog.DeliveryRead).
		Set("read_at = ?", at).
		Set("delivered_at = COALESCE(delivered_at, ?)", at).
		Set("updated_at = ?", time.Now()).
		Where("message_id = ?", messageID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return r.getByMessageID(ctx, messageID)
}

func (r *deliveryRepository) getByMessageID(ctx context.Context, messageID string) (*msglog.DeliveryTracking, error) {
	t := new(msglog.DeliveryTracking)
	err := r.db.NewSelect().Model(t).Where("message_id = ?", messageID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// connectionEventRepository implementa msglog.ConnectionEventRepository sobre o Bun
type connectionEventRepository struct {
	db *bun.DB
}

// NewConnectionEventRepository cria uma nova instância do repositório de eventos
func NewConnectionEventRepository(db *bun.DB) msglog.ConnectionEventRepository {
	return &connectionEventRepository{db: db}
}

// Insert grava um evento de conexão
func (r *connectionEventRepository) Insert(ctx context.Context, e *msglog.ConnectionEvent) error {
	_, err := r.db.NewInsert().Model(e).Exec(ctx)
	return err
}

// ListBySession lista os eventos mais recentes da sessão
func (r *connectionEventRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*msglog.ConnectionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []*msglog.ConnectionEvent
	err := r.db.NewSelect().
		Model(&events).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// strengthRepository implementa msglog.StrengthRepository sobre o Bun
type strengthRepository struct {
	db *bun.DB
}

// NewStrengthRepository cria uma nova instância do repositório de métricas
func NewStrengthRepository(db *bun.DB) msglog.StrengthRepository {
	return &strengthRepository{db: db}
}

// GetOrCreate busca as métricas da sessão, criando zeradas se ausentes
func (r *strengthRepository) GetOrCreate(ctx context.Context, userID, sessionID string) (*msglog.AccountStrength, error) {
	strength := new(msglog.AccountStrength)
	err := r.db.NewSelect().
		Model(strength).
		Where("user_id = ?", userID).
		Where("session_id = ?", sessionID).
		Scan(ctx)
	if err == nil {
		return strength, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if err := r.RecordActivity(ctx, userID, sessionID, 0, 0, 0); err != nil {
		return nil, err
	}
	err = r.db.NewSelect().
		Model(strength).
		Where("user_id = ?", userID).
		Where("session_id = ?", sessionID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return strength, nil
}

// RecordActivity acumula atividades via update_account_strength_metrics
func (r *strengthRepository) RecordActivity(ctx context.Context, userID, sessionID string, profileFetches, messagesRead, contactsSynced int) error {
	_, err := r.db.ExecContext(ctx,
		"SELECT update_account_strength_metrics(?, ?, ?, ?, ?)",
		userID, sessionID, profileFetches, messagesRead, contactsSynced,
	)
	if err != nil {
		return fmt.Errorf("update_account_strength_metrics: %w", err)
	}
	return nil
}
