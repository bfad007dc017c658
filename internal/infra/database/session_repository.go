package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"wasgate/internal/domain/session"
)

// sessionRepository implementa session.Repository sobre o Bun
type sessionRepository struct {
	db *bun.DB
}

// NewSessionRepository cria uma nova instância do repositório de sessões
func NewSessionRepository(db *bun.DB) session.Repository {
	return &sessionRepository{db: db}
}

// Create insere uma nova sessão
func (r *sessionRepository) Create(ctx context.Context, s *session.Session) error {
	_, err := r.db.NewInsert().Model(s).Exec(ctx)
	return err
}

// GetByID busca uma sessão pelo identificador
func (r *sessionRepository) GetByID(ctx context.Context, id string) (*session.Session, error) {
	s := new(session.Session)
	err := r.db.NewSelect().Model(s).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListByUser lista as sessões de um usuário
func (r *sessionRepository) ListByUser(ctx context.Context, userID string) ([]*session.Session, error) {
	var sessions []*session.Session
	err := r.db.NewSelect().
		Model(&sessions).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListByStatus lista sessões em um determinado status
func (r *sessionRepository) ListByStatus(ctx context.Context, status session.Status) ([]*session.Session, error) {
	var sessions []*session.Session
	err := r.db.NewSelect().
		Model(&sessions).
		Where("status = ?", status).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// Update persiste o estado atual da sessão
func (r *sessionRepository) Update(ctx context.Context, s *session.Session) error {
	s.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(s).
		Where("id = ?", s.ID).
		Exec(ctx)
	return err
}

// UpdateStatus aplica apenas uma transição de status
func (r *sessionRepository) UpdateStatus(ctx context.Context, id string, status session.Status) error {
	_, err := r.db.NewUpdate().
		Model((*session.Session)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// SetQRCode grava o último QR emitido e marca qr_pending
func (r *sessionRepository) SetQRCode(ctx context.Context, id, code string) error {
	_, err := r.db.NewUpdate().
		Model((*session.Session)(nil)).
		Set("qr_code = ?", code).
		Set("status = ?", session.StatusQRPending).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// MarkReady grava telefone, limpa QR e carimba last_activity
func (r *sessionRepository) MarkReady(ctx context.Context, id, phone string) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*session.Session)(nil)).
		Set("status = ?", session.StatusConnected).
		Set("phone = ?", phone).
		Set("qr_code = ''").
		Set("last_activity = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// TouchActivity atualiza last_activity da sessão
func (r *sessionRepository) TouchActivity(ctx context.Context, id string) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*session.Session)(nil)).
		Set("last_activity = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// DisconnectOthers força para disconnected as demais sessões conectadas do usuário
func (r *sessionRepository) DisconnectOthers(ctx context.Context, userID, keepSessionID string) (int, error) {
	res, err := r.db.NewUpdate().
		Model((*session.Session)(nil)).
		Set("status = ?", session.StatusDisconnected).
		Set("updated_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Where("status = ?", session.StatusConnected).
		Where("id != ?", keepSessionID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// CountConnectedByUser conta as sessões conectadas do usuário
func (r *sessionRepository) CountConnectedByUser(ctx context.Context, userID string) (int, error) {
	return r.db.NewSelect().
		Model((*session.Session)(nil)).
		Where("user_id = ?", userID).
		Where("status = ?", session.StatusConnected).
		Count(ctx)
}

// HasOtherConnected verifica se o usuário possui outra sessão conectada
func (r *sessionRepository) HasOtherConnected(ctx context.Context, userID, exceptSessionID string) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*session.Session)(nil)).
		Where("user_id = ?", userID).
		Where("status = ?", session.StatusConnected).
		Where("id != ?", exceptSessionID).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete remove a sessão
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().
		Model((*session.Session)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
