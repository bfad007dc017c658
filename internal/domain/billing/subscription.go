package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Unlimited marca um limite sem teto (tier premium)
const Unlimited int64 = -1

// Tier descreve um plano de assinatura
type Tier struct {
	Name          string `json:"name"`
	MessagesLimit int64  `json:"messagesLimit"`
	NumbersLimit  int64  `json:"numbersLimit"`
	DurationDays  int    `json:"durationDays"`
}

// Tiers disponíveis. Premium é ilimitado e nunca expira.
var (
	TierBasic    = Tier{Name: "basic", MessagesLimit: 1200, NumbersLimit: 1, DurationDays: 30}
	TierStandard = Tier{Name: "standard", MessagesLimit: 3000, NumbersLimit: 3, DurationDays: 30}
	TierPremium  = Tier{Name: "premium", MessagesLimit: Unlimited, NumbersLimit: Unlimited, DurationDays: 0}
)

// AllTiers lista os planos na ordem de apresentação
func AllTiers() []Tier {
	return []Tier{TierBasic, TierStandard, TierPremium}
}

// TierByName busca um plano pelo nome
func TierByName(name string) (Tier, bool) {
	switch name {
	case TierBasic.Name:
		return TierBasic, true
	case TierStandard.Name:
		return TierStandard, true
	case TierPremium.Name:
		return TierPremium, true
	}
	return Tier{}, false
}

// Subscription representa a assinatura ativa de um usuário.
// Invariante: no máximo uma assinatura ativa por usuário.
type Subscription struct {
	bun.BaseModel `bun:"table:subscriptions,alias:sub"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	UserID        string     `bun:"user_id,type:varchar(100),notnull" json:"userId"`
	Tier          string     `bun:"tier,type:varchar(20),notnull" json:"tier"`
	MessagesLimit int64      `bun:"messages_limit,type:bigint,notnull" json:"messagesLimit"`
	NumbersLimit  int64      `bun:"numbers_limit,type:bigint,notnull" json:"numbersLimit"`
	MessagesUsed  int64      `bun:"messages_used,type:bigint,notnull,default:0" json:"messagesUsed"`
	NumbersUsed   int64      `bun:"numbers_used,type:bigint,notnull,default:0" json:"numbersUsed"`
	IsActive      bool       `bun:"is_active,type:boolean,notnull,default:true" json:"isActive"`
	StartsAt      time.Time  `bun:"starts_at,type:timestamptz,notnull" json:"startsAt"`
	ExpiresAt     *time.Time `bun:"expires_at,type:timestamptz" json:"expiresAt,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,type:timestamptz,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time  `bun:"updated_at,type:timestamptz,notnull,default:current_timestamp" json:"updatedAt"`
}

// NewSubscription cria uma assinatura a partir de um plano
func NewSubscription(userID string, tier Tier) *Subscription {
	now := time.Now()
	sub := &Subscription{
		ID:            uuid.New(),
		UserID:        userID,
		Tier:          tier.Name,
		MessagesLimit: tier.MessagesLimit,
		NumbersLimit:  tier.NumbersLimit,
		IsActive:      true,
		StartsAt:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if tier.DurationDays > 0 {
		expires := now.AddDate(0, 0, tier.DurationDays)
		sub.ExpiresAt = &expires
	}
	return sub
}

// IsUnlimited verifica se o plano é ilimitado
func (s *Subscription) IsUnlimited() bool {
	return s.MessagesLimit == Unlimited
}

// IsExpired verifica se a assinatura expirou
func (s *Subscription) IsExpired() bool {
	return s.ExpiresAt != nil && time.Now().After(*s.ExpiresAt)
}
