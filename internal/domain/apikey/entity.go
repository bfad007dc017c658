package apikey

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// KeyPrefix identifica as chaves emitidas por este serviço
const KeyPrefix = "wass_"

// keyEntropyBytes é a entropia mínima de uma chave gerada
const keyEntropyBytes = 32

// APIKey vincula uma chave de API a um usuário e a uma única sessão
type APIKey struct {
	bun.BaseModel `bun:"table:api_keys,alias:ak"`

	ID         uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Key        string     `bun:"key,type:varchar(100),notnull,unique" json:"key"`
	Secret     string     `bun:"secret,type:varchar(100),notnull" json:"-"`
	UserID     string     `bun:"user_id,type:varchar(100),notnull" json:"userId"`
	SessionID  string     `bun:"session_id,type:varchar(100),notnull" json:"sessionId"`
	IsActive   bool       `bun:"is_active,type:boolean,notnull,default:true" json:"isActive"`
	LastUsedAt *time.Time `bun:"last_used_at,type:timestamptz" json:"lastUsedAt,omitempty"`
	UsageCount int64      `bun:"usage_count,type:bigint,notnull,default:0" json:"usageCount"`
	CreatedAt  time.Time  `bun:"created_at,type:timestamptz,notnull,default:current_timestamp" json:"createdAt"`
}

// New gera uma nova chave ativa para a sessão informada
func New(userID, sessionID string) (*APIKey, error) {
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}
	return &APIKey{
		ID:        uuid.New(),
		Key:       key,
		Secret:    secret,
		UserID:    userID,
		SessionID: sessionID,
		IsActive:  true,
		CreatedAt: time.Now(),
	}, nil
}

// GenerateKey gera uma chave com prefixo wass_ e 32 bytes de entropia
func GenerateKey() (string, error) {
	raw, err := randomToken()
	if err != nil {
		return "", err
	}
	return KeyPrefix + raw, nil
}

// GenerateSecret gera o segredo independente associado à chave
func GenerateSecret() (string, error) {
	return randomToken()
}

func randomToken() (string, error) {
	buf := make([]byte, keyEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
