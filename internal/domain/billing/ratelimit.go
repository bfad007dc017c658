package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Valores padrão dos limites por janela
const (
	DefaultPerMinute = 10
	DefaultPerHour   = 100
	DefaultPerDay    = 1000
)

// RateLimitSettings define os limites de envio por usuário em três janelas
type RateLimitSettings struct {
	bun.BaseModel `bun:"table:rate_limit_settings,alias:rls"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	UserID    string    `bun:"user_id,type:varchar(100),notnull,unique" json:"userId"`
	PerMinute int       `bun:"per_minute,type:int,notnull" json:"perMinute"`
	PerHour   int       `bun:"per_hour,type:int,notnull" json:"perHour"`
	PerDay    int       `bun:"per_day,type:int,notnull" json:"perDay"`
	CreatedAt time.Time `bun:"created_at,type:timestamptz,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,type:timestamptz,notnull,default:current_timestamp" json:"updatedAt"`
}

// DefaultRateLimitSettings retorna os limites padrão para o usuário
func DefaultRateLimitSettings(userID string) *RateLimitSettings {
	now := time.Now()
	return &RateLimitSettings{
		ID:        uuid.New(),
		UserID:    userID,
		PerMinute: DefaultPerMinute,
		PerHour:   DefaultPerHour,
		PerDay:    DefaultPerDay,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Window descreve uma janela de contagem de rate limit
type Window struct {
	Name     string
	Duration time.Duration
	Limit    int
}

// Windows devolve as janelas na ordem de verificação
func (s *RateLimitSettings) Windows() []Window {
	return []Window{
		{Name: "minute", Duration: time.Minute, Limit: s.PerMinute},
		{Name: "hour", Duration: time.Hour, Limit: s.PerHour},
		{Name: "day", Duration: 24 * time.Hour, Limit: s.PerDay},
	}
}
