package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"wasgate/internal/domain/billing"
)

// rateLimitRepository implementa billing.RateLimitRepository sobre o Bun
type rateLimitRepository struct {
	db *bun.DB
}

// NewRateLimitRepository cria uma nova instância do repositório de limites
func NewRateLimitRepository(db *bun.DB) billing.RateLimitRepository {
	return &rateLimitRepository{db: db}
}

// GetOrDefault busca os limites do usuário, devolvendo os padrões se ausentes
func (r *rateLimitRepository) GetOrDefault(ctx context.Context, userID string) (*billing.RateLimitSettings, error) {
	settings := new(billing.RateLimitSettings)
	err := r.db.NewSelect().Model(settings).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return billing.DefaultRateLimitSettings(userID), nil
		}
		return nil, err
	}
	return settings, nil
}

// Upsert grava os limites do usuário
func (r *rateLimitRepository) Upsert(ctx context.Context, settings *billing.RateLimitSettings) error {
	settings.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().
		Model(settings).
		On("CONFLICT (user_id) DO UPDATE").
		Set("per_minute = EXCLUDED.per_minute").
		Set("per_hour = EXCLUDED.per_hour").
		Set("per_day = EXCLUDED.per_day").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
