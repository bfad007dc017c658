package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"wasgate/internal/domain/apikey"
	"wasgate/internal/domain/billing"
	"wasgate/internal/domain/msglog"
	"wasgate/internal/domain/session"
	"wasgate/internal/domain/webhook"
)

// RunMigrations cria as tabelas, índices e funções SQL do gateway
func RunMigrations(db *bun.DB) error {
	ctx := context.Background()

	models := []interface{}{
		(*session.Session)(nil),
		(*apikey.APIKey)(nil),
		(*billing.Wallet)(nil),
		(*billing.WalletTransaction)(nil),
		(*billing.Subscription)(nil),
		(*billing.RateLimitSettings)(nil),
		(*msglog.AutomationLog)(nil),
		(*msglog.DeliveryTracking)(nil),
		(*msglog.ConnectionEvent)(nil),
		(*msglog.AccountStrength)(nil),
		(*webhook.Webhook)(nil),
		(*webhook.WebhookLog)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}

	for _, ddl := range indexes {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	for _, ddl := range functions {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create function: %w", err)
		}
	}

	return nil
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_status ON sessions (user_id, status)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_webhooks_user_session_type ON webhooks (user_id, session_id, type)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_logs_webhook ON webhook_logs (webhook_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_automation_logs_user_created ON automation_logs (user_id, created_at DESC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_user_active ON subscriptions (user_id) WHERE is_active`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_strength_user_session ON account_strength (user_id, session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_wallet_txn_user_created ON wallet_transactions (user_id, created_at DESC)`,
}

// Funções SQL chamadas por nome pelos repositórios. A mutação de saldo e os
// incrementos de quota rodam inteiros dentro do banco, em uma única transação.
var functions = []string{
	`CREATE OR REPLACE FUNCTION deduct_wallet_balance(
		p_user_id varchar, p_session_id varchar, p_amount bigint,
		p_description text, p_reference_id varchar
	) RETURNS TABLE (success boolean, balance_before bigint, balance_after bigint) AS $$
	DECLARE
		v_balance bigint;
	BEGIN
		SELECT balance INTO v_balance FROM wallets WHERE user_id = p_user_id FOR UPDATE;
		IF NOT FOUND OR v_balance < p_amount THEN
			RETURN QUERY SELECT false, COALESCE(v_balance, 0), COALESCE(v_balance, 0);
			RETURN;
		END IF;
		UPDATE wallets SET balance = v_balance - p_amount, updated_at = now()
			WHERE user_id = p_user_id;
		INSERT INTO wallet_transactions
			(id, user_id, session_id, type, amount, balance_before, balance_after, description, reference_id, created_at)
		VALUES
			(gen_random_uuid(), p_user_id, p_session_id, 'debit', p_amount, v_balance, v_balance - p_amount, p_description, p_reference_id, now());
		RETURN QUERY SELECT true, v_balance, v_balance - p_amount;
	END;
	$$ LANGUAGE plpgsql`,

	`CREATE OR REPLACE FUNCTION credit_wallet_balance(
		p_user_id varchar, p_session_id varchar, p_amount bigint,
		p_description text, p_reference_id varchar
	) RETURNS TABLE (balance_before bigint, balance_after bigint) AS $$
	DECLARE
		v_balance bigint;
	BEGIN
		SELECT balance INTO v_balance FROM wallets WHERE user_id = p_user_id FOR UPDATE;
		IF NOT FOUND THEN
			RAISE EXCEPTION 'wallet not found for user %', p_user_id;
		END IF;
		UPDATE wallets SET balance = v_balance + p_amount, updated_at = now()
			WHERE user_id = p_user_id;
		INSERT INTO wallet_transactions
			(id, user_id, session_id, type, amount, balance_before, balance_after, description, reference_id, created_at)
		VALUES
			(gen_random_uuid(), p_user_id, p_session_id, 'credit', p_amount, v_balance, v_balance + p_amount, p_description, p_reference_id, now());
		RETURN QUERY SELECT v_balance, v_balance + p_amount;
	END;
	$$ LANGUAGE plpgsql`,

	`CREATE OR REPLACE FUNCTION calculate_topup_bonus(p_amount bigint) RETURNS bigint AS $$
	BEGIN
		IF p_amount >= 50000 THEN
			RETURN p_amount / 5;
		ELSIF p_amount >= 10000 THEN
			RETURN p_amount / 10;
		ELSIF p_amount >= 5000 THEN
			RETURN p_amount / 20;
		END IF;
		RETURN 0;
	END;
	$$ LANGUAGE plpgsql IMMUTABLE`,

	`CREATE OR REPLACE FUNCTION check_subscription_limits(
		p_user_id varchar, p_messages bigint, p_numbers bigint
	) RETURNS TABLE (allowed boolean, reason text, limit_value bigint, used_value bigint) AS $$
	DECLARE
		v_sub subscriptions%ROWTYPE;
	BEGIN
		SELECT * INTO v_sub FROM subscriptions
			WHERE user_id = p_user_id AND is_active LIMIT 1;
		IF NOT FOUND THEN
			RETURN QUERY SELECT false, 'no_active_subscription', 0::bigint, 0::bigint;
			RETURN;
		END IF;
		IF v_sub.expires_at IS NOT NULL AND v_sub.expires_at < now() THEN
			RETURN QUERY SELECT false, 'subscription_expired', 0::bigint, 0::bigint;
			RETURN;
		END IF;
		IF v_sub.messages_limit >= 0 AND v_sub.messages_used + p_messages > v_sub.messages_limit THEN
			RETURN QUERY SELECT false, 'messages_limit_exceeded', v_sub.messages_limit, v_sub.messages_used;
			RETURN;
		END IF;
		IF v_sub.numbers_limit >= 0 AND v_sub.numbers_used + p_numbers > v_sub.numbers_limit THEN
			RETURN QUERY SELECT false, 'numbers_limit_exceeded', v_sub.numbers_limit, v_sub.numbers_used;
			RETURN;
		END IF;
		RETURN QUERY SELECT true, ''::text, v_sub.messages_limit, v_sub.messages_used;
	END;
	$$ LANGUAGE plpgsql`,

	`CREATE OR REPLACE FUNCTION increment_subscription_usage(
		p_user_id varchar, p_messages bigint
	) RETURNS void AS $$
	BEGIN
		UPDATE subscriptions
			SET messages_used = messages_used + p_messages, updated_at = now()
			WHERE user_id = p_user_id AND is_active;
	END;
	$$ LANGUAGE plpgsql`,

	`CREATE OR REPLACE FUNCTION register_session_number(
		p_user_id varchar, p_session_id varchar
	) RETURNS void AS $$
	DECLARE
		v_connected bigint;
	BEGIN
		PERFORM 1 FROM subscriptions WHERE user_id = p_user_id AND is_active FOR UPDATE;
		SELECT count(DISTINCT id) INTO v_connected FROM sessions
			WHERE user_id = p_user_id AND status = 'connected';
		UPDATE subscriptions
			SET numbers_used = GREATEST(numbers_used, v_connected), updated_at = now()
			WHERE user_id = p_user_id AND is_active;
	END;
	$$ LANGUAGE plpgsql`,

	`CREATE OR REPLACE FUNCTION update_webhook_stats(
		p_webhook_id uuid, p_success boolean
	) RETURNS void AS $$
	BEGIN
		UPDATE webhooks SET
			total_calls = total_calls + 1,
			success_calls = success_calls + CASE WHEN p_success THEN 1 ELSE 0 END,
			failed_calls = failed_calls + CASE WHEN p_success THEN 0 ELSE 1 END,
			last_called_at = now(),
			last_success_at = CASE WHEN p_success THEN now() ELSE last_success_at END,
			last_failure_at = CASE WHEN p_success THEN last_failure_at ELSE now() END,
			updated_at = now()
		WHERE id = p_webhook_id;
	END;
	$$ LANGUAGE plpgsql`,

	`CREATE OR REPLACE FUNCTION update_account_strength_metrics(
		p_user_id varchar, p_session_id varchar,
		p_profile_fetches bigint, p_messages_read bigint, p_contacts_synced bigint
	) RETURNS void AS $$
	BEGIN
		INSERT INTO account_strength
			(id, user_id, session_id, strength_score, profile_fetches, messages_read, contacts_synced, last_activity_at, created_at, updated_at)
		VALUES
			(gen_random_uuid(), p_user_id, p_session_id, 0, 0, 0, 0, now(), now(), now())
		ON CONFLICT (user_id, session_id) DO NOTHING;
		UPDATE account_strength SET
			profile_fetches = profile_fetches + p_profile_fetches,
			messages_read = messages_read + p_messages_read,
			contacts_synced = contacts_synced + p_contacts_synced,
			strength_score = LEAST(100, (profile_fetches + p_profile_fetches) * 2
				+ (messages_read + p_messages_read) + (contacts_synced + p_contacts_synced) * 3),
			last_activity_at = now(),
			updated_at = now()
		WHERE user_id = p_user_id AND session_id = p_session_id;
	END;
	$$ LANGUAGE plpgsql`,
}
