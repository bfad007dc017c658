package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"wasgate/internal/domain/apikey"
)

// apiKeyRepository implementa apikey.Repository sobre o Bun
type apiKeyRepository struct {
	db *bun.DB
}

// NewAPIKeyRepository cria uma nova instância do repositório de chaves
func NewAPIKeyRepository(db *bun.DB) apikey.Repository {
	return &apiKeyRepository{db: db}
}

// Create insere uma nova chave
func (r *apiKeyRepository) Create(ctx context.Context, key *apikey.APIKey) error {
	_, err := r.db.NewInsert().Model(key).Exec(ctx)
	return err
}

// GetActiveByKey busca uma chave ativa pelo valor da chave
func (r *apiKeyRepository) GetActiveByKey(ctx context.Context, key string) (*apikey.APIKey, error) {
	ak := new(apikey.APIKey)
	err := r.db.NewSelect().
		Model(ak).
		Where("key = ?", key).
		Where("is_active = ?", true).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apikey.ErrKeyNotFound
		}
		return nil, err
	}
	return ak, nil
}

// GetActiveBySession busca a chave ativa vinculada à sessão
func (r *apiKeyRepository) GetActiveBySession(ctx context.Context, sessionID string) (*apikey.APIKey, error) {
	ak := new(apikey.APIKey)
	err := r.db.NewSelect().
		Model(ak).
		Where("session_id = ?", sessionID).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apikey.ErrKeyNotFound
		}
		return nil, err
	}
	return ak, nil
}

// Touch atualiza last_used_at e incrementa usage_count
func (r *apiKeyRepository) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*apikey.APIKey)(nil)).
		Set("last_used_at = ?", time.Now()).
		Set("usage_count = usage_count + 1").
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// Deactivate revoga a chave
func (r *apiKeyRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*apikey.APIKey)(nil)).
		Set("is_active = ?", false).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// DeactivateBySession revoga as chaves da sessão
func (r *apiKeyRepository) DeactivateBySession(ctx context.Context, sessionID string) error {
	_, err := r.db.NewUpdate().
		Model((*apikey.APIKey)(nil)).
		Set("is_active = ?", false).
		Where("session_id = ?", sessionID).
		Exec(ctx)
	return err
}
