package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultInitialBalance é o saldo inicial em IQD creditado na criação da carteira
const DefaultInitialBalance int64 = 1000

// TransactionType representa o tipo de movimentação da carteira
type TransactionType string

const (
	TransactionInitial TransactionType = "initial"
	TransactionDebit   TransactionType = "debit"
	TransactionCredit  TransactionType = "credit"
)

// Wallet representa a carteira pré-paga de um usuário, em IQD
type Wallet struct {
	bun.BaseModel `bun:"table:wallets,alias:w"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	UserID    string    `bun:"user_id,type:varchar(100),notnull,unique" json:"userId"`
	Balance   int64     `bun:"balance,type:bigint,notnull" json:"balance"`
	CreatedAt time.Time `bun:"created_at,type:timestamptz,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,type:timestamptz,notnull,default:current_timestamp" json:"updatedAt"`
}

// NewWallet cria uma carteira com o saldo inicial padrão
func NewWallet(userID string) *Wallet {
	now := time.Now()
	return &Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   DefaultInitialBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WalletTransaction registra uma movimentação de saldo.
// Invariante: BalanceAfter = BalanceBefore ± Amount.
type WalletTransaction struct {
	bun.BaseModel `bun:"table:wallet_transactions,alias:wt"`

	ID            uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	UserID        string          `bun:"user_id,type:varchar(100),notnull" json:"userId"`
	SessionID     string          `bun:"session_id,type:varchar(100)" json:"sessionId,omitempty"`
	Type          TransactionType `bun:"type,type:varchar(10),notnull" json:"type"`
	Amount        int64           `bun:"amount,type:bigint,notnull" json:"amount"`
	BalanceBefore int64           `bun:"balance_before,type:bigint,notnull" json:"balanceBefore"`
	BalanceAfter  int64           `bun:"balance_after,type:bigint,notnull" json:"balanceAfter"`
	Description   string          `bun:"description,type:text" json:"description,omitempty"`
	ReferenceID   string          `bun:"reference_id,type:varchar(100)" json:"referenceId,omitempty"`
	CreatedAt     time.Time       `bun:"created_at,type:timestamptz,notnull,default:current_timestamp" json:"createdAt"`
}

// RefundReferenceID deriva o reference_id do estorno a partir do débito original
func RefundReferenceID(debitReferenceID string) string {
	return "refund_" + debitReferenceID
}
