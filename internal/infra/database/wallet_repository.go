package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"wasgate/internal/domain/billing"
)

// walletRepository implementa billing.WalletRepository sobre o Bun.
// Débito e crédito delegam para funções SQL que travam a linha da carteira
// e gravam a transação no mesmo statement.
type walletRepository struct {
	db *bun.DB
}

// NewWalletRepository cria uma nova instância do repositório de carteiras
func NewWalletRepository(db *bun.DB) billing.WalletRepository {
	return &walletRepository{db: db}
}

// GetOrCreate busca a carteira do usuário, criando com saldo inicial se ausente
func (r *walletRepository) GetOrCreate(ctx context.Context, userID string) (*billing.Wallet, error) {
	wallet := new(billing.Wallet)
	err := r.db.NewSelect().Model(wallet).Where("user_id = ?", userID).Scan(ctx)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	wallet = billing.NewWallet(userID)
	_, err = r.db.NewInsert().
		Model(wallet).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	// Registrar o crédito inicial; em corrida a inserção acima não afeta
	// linhas e a transação inicial já existe
	initial := &billing.WalletTransaction{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          billing.TransactionInitial,
		Amount:        billing.DefaultInitialBalance,
		BalanceBefore: 0,
		BalanceAfter:  billing.DefaultInitialBalance,
		Description:   "Initial wallet balance",
	}
	if _, err := r.db.NewInsert().Model(initial).Exec(ctx); err != nil {
		return nil, err
	}

	err = r.db.NewSelect().Model(wallet).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// Deduct debita amount do saldo via deduct_wallet_balance.
// Retorna ErrInsufficientBalance sem mutação se o saldo for menor que amount.
func (r *walletRepository) Deduct(ctx context.Context, userID, sessionID string, amount int64, description, referenceID string) (*billing.WalletTransaction, error) {
	if amount <= 0 {
		return nil, billing.ErrInvalidAmount
	}
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	var success bool
	var before, after int64
	err := r.db.QueryRowContext(ctx,
		"SELECT * FROM deduct_wallet_balance(?, ?, ?, ?, ?)",
		userID, sessionID, amount, description, referenceID,
	).Scan(&success, &before, &after)
	if err != nil {
		return nil, fmt.Errorf("deduct_wallet_balance: %w", err)
	}
	if !success {
		return nil, billing.ErrInsufficientBalance
	}

	return &billing.WalletTransaction{
		UserID:        userID,
		SessionID:     sessionID,
		Type:          billing.TransactionDebit,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   description,
		ReferenceID:   referenceID,
	}, nil
}

// Credit credita amount no saldo via credit_wallet_balance
func (r *walletRepository) Credit(ctx context.Context, userID, sessionID string, amount int64, description, referenceID string) (*billing.WalletTransaction, error) {
	if amount <= 0 {
		return nil, billing.ErrInvalidAmount
	}
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	var before, after int64
	err := r.db.QueryRowContext(ctx,
		"SELECT * FROM credit_wallet_balance(?, ?, ?, ?, ?)",
		userID, sessionID, amount, description, referenceID,
	).Scan(&before, &after)
	if err != nil {
		return nil, fmt.Errorf("credit_wallet_balance: %w", err)
	}

	return &billing.WalletTransaction{
		UserID:        userID,
		SessionID:     sessionID,
		Type:          billing.TransactionCredit,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   description,
		ReferenceID:   referenceID,
	}, nil
}

// TopUp credita amount mais o bônus calculado por calculate_topup_bonus
func (r *walletRepository) TopUp(ctx context.Context, userID string, amount int64) (*billing.WalletTransaction, int64, error) {
	if amount <= 0 {
		return nil, 0, billing.ErrInvalidAmount
	}

	var bonus int64
	err := r.db.QueryRowContext(ctx, "SELECT calculate_topup_bonus(?)", amount).Scan(&bonus)
	if err != nil {
		return nil, 0, fmt.Errorf("calculate_topup_bonus: %w", err)
	}

	description := fmt.Sprintf("Top-up of %d IQD (bonus %d)", amount, bonus)
	txn, err := r.Credit(ctx, userID, "", amount+bonus, description, "topup_"+uuid.NewString())
	if err != nil {
		return nil, 0, err
	}
	return txn, bonus, nil
}

// Transactions lista as movimentações mais recentes do usuário
func (r *walletRepository) Transactions(ctx context.Context, userID string, limit, offset int) ([]*billing.WalletTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txns []*billing.WalletTransaction
	err := r.db.NewSelect().
		Model(&txns).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return txns, nil
}
