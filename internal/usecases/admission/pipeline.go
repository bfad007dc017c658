package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wasgate/internal/domain/billing"
	"wasgate/internal/domain/msglog"
	"wasgate/internal/domain/session"
	"wasgate/internal/domain/webhook"
	wa "wasgate/internal/domain/whatsapp"
	"wasgate/internal/usecases/send"
	"wasgate/pkg/logger"
)

// Parâmetros da espera de prontidão da sessão
const (
	readyPollInterval = 500 * time.Millisecond
	readyPollTimeout  = 15 * time.Second
)

// SessionHandle é a fatia do supervisor usada pelo pipeline
type SessionHandle interface {
	Send(ctx context.Context, recipient, text string) (string, error)
	IsReady(ctx context.Context) bool
}

// SessionControl abstrai o registro de supervisores para o pipeline
type SessionControl interface {
	Get(sessionID string) (SessionHandle, bool)
	CreateIfAbsent(ctx context.Context, sessionID, userID string) (SessionHandle, error)
}

// Emitter publica eventos para o fan-out de webhooks
type Emitter interface {
	Emit(evt webhook.Event)
}

// Pipeline é a cadeia ordenada de portões que todo envio atravessa:
// prontidão da sessão, validação do destinatário, assinatura, rate limit,
// débito da carteira, despacho e acerto com estorno compensatório.
type Pipeline struct {
	control  SessionControl
	sessions session.Repository
	wallets  billing.WalletRepository
	subs     billing.SubscriptionRepository
	rates    billing.RateLimitRepository
	logs     msglog.AutomationLogRepository
	executor *send.Executor
	emitter  Emitter
	cost     int64
	logger   logger.Logger
}

// NewPipeline cria o pipeline de admissão
func NewPipeline(
	control SessionControl,
	sessions session.Repository,
	wallets billing.WalletRepository,
	subs billing.SubscriptionRepository,
	rates billing.RateLimitRepository,
	logs msglog.AutomationLogRepository,
	executor *send.Executor,
	emitter Emitter,
	costPerMessage int64,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		control:  control,
		sessions: sessions,
		wallets:  wallets,
		subs:     subs,
		rates:    rates,
		logs:     logs,
		executor: executor,
		emitter:  emitter,
		cost:     costPerMessage,
		logger:   log.WithComponent("admission"),
	}
}

// SingleRequest é um envio de mensagem única
type SingleRequest struct {
	UserID    string
	SessionID string
	Recipient string
	Message   string
	Type      msglog.SendType
}

// SingleResult é o desfecho de um envio único admitido
type SingleResult struct {
	MessageID    string `json:"messageId"`
	Recipient    string `json:"recipient"`
	Cost         int64  `json:"cost"`
	BalanceAfter int64  `json:"balanceAfter"`
}

// BulkRequest é um envio em lote
type BulkRequest struct {
	UserID     string
	SessionID  string
	Recipients []string
	Message    string
}

// BulkResult é o desfecho de um envio em lote admitido
type BulkResult struct {
	Sent         int                   `json:"sent"`
	Failed       int                   `json:"failed"`
	MessageIDs   []string              `json:"messageIds,omitempty"`
	Errors       []send.RecipientError `json:"errors,omitempty"`
	TotalCost    int64                 `json:"totalCost"`
	Refunded     int64                 `json:"refunded"`
	BalanceAfter int64                 `json:"balanceAfter"`
}

// OTPRequest é um envio de código OTP
type OTPRequest struct {
	UserID    string
	SessionID string
	Recipient string
	Code      string
	Language  string
}

// SendSingle atravessa os portões e despacha uma mensagem única.
// O débito acontece antes do despacho; qualquer falha posterior gera
// um crédito compensatório com reference_id derivado do débito.
func (p *Pipeline) SendSingle(ctx context.Context, req SingleRequest) (*SingleResult, error) {
	handle, err := p.admitSession(ctx, req.UserID, req.SessionID)
	if err != nil {
		return nil, err
	}

	recipient, err := send.NormalizeRecipient(req.Recipient)
	if err != nil {
		return nil, errBadRecipient(req.Recipient)
	}

	if err := p.checkSubscription(ctx, req.UserID, 1); err != nil {
		return nil, err
	}
	if err := p.checkRateLimit(ctx, req.UserID, 1); err != nil {
		return nil, err
	}

	referenceID := "send_" + uuid.NewString()
	txn, err := p.wallets.Deduct(ctx, req.UserID, req.SessionID, p.cost,
		fmt.Sprintf("Message to %s", recipient), referenceID)
	if err != nil {
		if errors.Is(err, billing.ErrInsufficientBalance) {
			return nil, p.insufficientBalance(ctx, req.UserID)
		}
		return nil, err
	}

	messageID, sendErr := p.executor.SendSingle(ctx, handle, req.UserID, req.SessionID, req.Type, recipient, req.Message)
	if sendErr != nil {
		p.refund(ctx, req.UserID, req.SessionID, p.cost, referenceID, sendErr)
		return nil, p.classifyDispatchError(ctx, req.SessionID, sendErr)
	}

	if err := p.subs.IncrementUsage(ctx, req.UserID, 1); err != nil {
		p.logger.WithError(err).Error().Msg("Failed to increment subscription usage")
	}

	return &SingleResult{
		MessageID:    messageID,
		Recipient:    recipient,
		Cost:         p.cost,
		BalanceAfter: txn.BalanceAfter,
	}, nil
}

// SendOTP monta a mensagem de OTP e a envia como mensagem única,
// emitindo otp_sent ou otp_failed para o fan-out
func (p *Pipeline) SendOTP(ctx context.Context, req OTPRequest) (*SingleResult, error) {
	message := send.OTPMessage(req.Code, req.Language)

	result, err := p.SendSingle(ctx, SingleRequest{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Recipient: req.Recipient,
		Message:   message,
		Type:      msglog.SendOTP,
	})

	success := err == nil
	name := webhook.EventOTPSent
	if !success {
		name = webhook.EventOTPFailed
	}
	fields := map[string]any{
		"recipient": req.Recipient,
		"code":      req.Code,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	p.emitter.Emit(webhook.Event{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Name:      name,
		Types:     []webhook.Type{webhook.TypeOTP},
		Success:   &success,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	})

	return result, err
}

// SendBulk debita o custo total adiantado, despacha sequencialmente e
// estorna de uma vez o custo das falhas ao final
func (p *Pipeline) SendBulk(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	handle, err := p.admitSession(ctx, req.UserID, req.SessionID)
	if err != nil {
		return nil, err
	}

	var valid []string
	var preErrors []send.RecipientError
	for _, raw := range req.Recipients {
		recipient, err := send.NormalizeRecipient(raw)
		if err != nil {
			preErrors = append(preErrors, send.RecipientError{
				Recipient: raw,
				Error:     send.ErrInvalidRecipient.Error(),
			})
			continue
		}
		valid = append(valid, recipient)
	}
	if len(valid) == 0 {
		return nil, errBadRecipient("no valid recipients")
	}

	total := len(valid)
	if err := p.checkSubscription(ctx, req.UserID, total); err != nil {
		return nil, err
	}
	if err := p.checkRateLimit(ctx, req.UserID, total); err != nil {
		return nil, err
	}

	totalCost := p.cost * int64(total)
	referenceID := "bulk_" + uuid.NewString()
	txn, err := p.wallets.Deduct(ctx, req.UserID, req.SessionID, totalCost,
		fmt.Sprintf("Bulk send to %d recipients", total), referenceID)
	if err != nil {
		if errors.Is(err, billing.ErrInsufficientBalance) {
			return nil, p.insufficientBalance(ctx, req.UserID)
		}
		return nil, err
	}

	outcome := p.executor.SendBulk(ctx, handle, req.UserID, req.SessionID, valid, req.Message)

	result := &BulkResult{
		Sent:         outcome.Sent,
		Failed:       outcome.Failed + len(preErrors),
		MessageIDs:   outcome.MessageIDs,
		Errors:       append(preErrors, outcome.Errors...),
		TotalCost:    totalCost,
		BalanceAfter: txn.BalanceAfter,
	}

	// Um único crédito cobre todas as falhas do lote
	if result.Failed > 0 {
		refund := p.cost * int64(outcome.Failed)
		if refund > 0 {
			refundTxn, err := p.wallets.Credit(ctx, req.UserID, req.SessionID, refund,
				fmt.Sprintf("Refund for %d failed bulk messages", outcome.Failed),
				billing.RefundReferenceID(referenceID))
			if err != nil {
				p.logger.WithError(err).Error().Msg("Failed to refund bulk failures")
			} else {
				result.Refunded = refund
				result.BalanceAfter = refundTxn.BalanceAfter
			}
		}
	}

	if outcome.Sent > 0 {
		if err := p.subs.IncrementUsage(ctx, req.UserID, outcome.Sent); err != nil {
			p.logger.WithError(err).Error().Msg("Failed to increment subscription usage")
		}
	}

	if outcome.SessionClosed {
		p.logger.WithField("session_id", req.SessionID).Warn().Msg("Bulk send interrupted by closed session")
	}

	success := result.Failed == 0
	p.emitter.Emit(webhook.Event{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Name:      webhook.EventAnnouncementSent,
		Types:     []webhook.Type{webhook.TypeAnnouncement},
		Success:   &success,
		Fields: map[string]any{
			"sent":   result.Sent,
			"failed": result.Failed,
			"errors": result.Errors,
		},
		Timestamp: time.Now().UTC(),
	})

	return result, nil
}

// admitSession verifica a posse da sessão, localiza o supervisor,
// dispara a restauração sob demanda quando a linha diz connected e
// espera a prontidão até o limite do poll
func (p *Pipeline) admitSession(ctx context.Context, userID, sessionID string) (SessionHandle, error) {
	// A posse vem da linha, nunca do registro: um supervisor registrado
	// não diz nada sobre qual usuário pode usá-lo
	row, err := p.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, errSessionNotFound(sessionID)
		}
		return nil, err
	}
	if row.UserID != userID {
		return nil, errSessionNotFound(sessionID)
	}

	handle, ok := p.control.Get(sessionID)
	if !ok {
		switch {
		case row.Status == session.StatusConnected:
			// Restauração sob demanda após restart do processo
			handle, err = p.control.CreateIfAbsent(ctx, sessionID, userID)
			if err != nil {
				p.logger.WithError(err).WithField("session_id", sessionID).
					Warn().Msg("On-demand restoration failed")
				if uerr := p.sessions.UpdateStatus(ctx, sessionID, session.StatusDisconnected); uerr != nil {
					p.logger.WithError(uerr).Error().Msg("Failed to mark session disconnected")
				}
				return nil, errSessionBad("session restoration failed, reconnect via dashboard")
			}
		case row.Status.IsTerminal():
			return nil, errSessionBad(fmt.Sprintf("session is %s, reconnect via dashboard", row.Status))
		default:
			return nil, errSessionInitializing()
		}
	}

	deadline := time.Now().Add(readyPollTimeout)
	for !handle.IsReady(ctx) {
		if time.Now().After(deadline) {
			return nil, errSessionInitializing()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(readyPollInterval):
		}
	}

	return handle, nil
}

func (p *Pipeline) checkSubscription(ctx context.Context, userID string, messages int) error {
	check, err := p.subs.CheckLimits(ctx, userID, messages, 0)
	if err != nil {
		return err
	}
	if !check.Allowed {
		return errSubscription(check.Reason, check.Limit, check.Used)
	}
	return nil
}

func (p *Pipeline) checkRateLimit(ctx context.Context, userID string, messages int) error {
	settings, err := p.rates.GetOrDefault(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, window := range settings.Windows() {
		current, err := p.logs.CountForUserSince(ctx, userID, now.Add(-window.Duration))
		if err != nil {
			return err
		}
		if current+messages > window.Limit {
			return errRateLimit(window.Name, window.Limit, current)
		}
	}
	return nil
}

// refund emite o crédito compensatório de um débito cujo envio falhou
func (p *Pipeline) refund(ctx context.Context, userID, sessionID string, amount int64, referenceID string, cause error) {
	_, err := p.wallets.Credit(ctx, userID, sessionID, amount,
		fmt.Sprintf("Refund for failed send: %v", cause),
		billing.RefundReferenceID(referenceID))
	if err != nil {
		p.logger.WithError(err).WithField("reference_id", referenceID).
			Error().Msg("Failed to issue compensating credit")
	}
}

func (p *Pipeline) insufficientBalance(ctx context.Context, userID string) error {
	balance := int64(0)
	if wallet, err := p.wallets.GetOrCreate(ctx, userID); err == nil {
		balance = wallet.Balance
	}
	return errInsufficientBalance(balance, p.cost)
}

// classifyDispatchError traduz erros do despacho em vereditos
func (p *Pipeline) classifyDispatchError(ctx context.Context, sessionID string, err error) error {
	switch {
	case errors.Is(err, wa.ErrSessionClosed):
		return errSessionBad("session closed during send, reconnect via dashboard")
	case errors.Is(err, wa.ErrNotReady):
		return errSessionInitializing()
	case errors.Is(err, wa.ErrRecipientNotFound):
		return &GateError{
			Status:  400,
			Code:    CodeBadRecipient,
			Message: "recipient is not reachable on WhatsApp",
		}
	default:
		return errSendFailed(err.Error())
	}
}
