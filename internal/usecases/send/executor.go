package send

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"wasgate/internal/domain/msglog"
	wa "wasgate/internal/domain/whatsapp"
	"wasgate/pkg/logger"
)

// Dispatcher é a fatia do supervisor que o executor usa: envio
// serializado e verificação de prontidão
type Dispatcher interface {
	Send(ctx context.Context, recipient, text string) (string, error)
	IsReady(ctx context.Context) bool
}

// Executor despacha envios para o supervisor da sessão e grava um
// registro de automação por tentativa. Não conhece carteira nem quotas.
type Executor struct {
	logs   msglog.AutomationLogRepository
	logger logger.Logger
}

// NewExecutor cria o executor de envios
func NewExecutor(logs msglog.AutomationLogRepository, log logger.Logger) *Executor {
	return &Executor{
		logs:   logs,
		logger: log.WithComponent("send-executor"),
	}
}

// RecipientError é a falha de um destinatário em um envio em lote
type RecipientError struct {
	Recipient string `json:"recipient"`
	Error     string `json:"error"`
}

// BulkOutcome resume um envio em lote
type BulkOutcome struct {
	Sent       int
	Failed     int
	MessageIDs []string
	Errors     []RecipientError
	// SessionClosed indica que o lote foi interrompido pela queda da sessão
	SessionClosed bool
}

// SendSingle despacha uma mensagem e grava o registro de automação.
// O destinatário já deve estar normalizado.
func (e *Executor) SendSingle(ctx context.Context, dispatcher Dispatcher, userID, sessionID string, sendType msglog.SendType, recipient, message string) (string, error) {
	messageID, err := dispatcher.Send(ctx, recipient, message)

	log := &msglog.AutomationLog{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: sessionID,
		Type:      sendType,
		Recipient: recipient,
		Message:   message,
	}
	if err != nil {
		log.Status = msglog.StatusFailed
		log.ErrorMessage = err.Error()
		log.FailedCount = 1
	} else {
		log.Status = msglog.StatusSent
		log.SentCount = 1
	}

	// O registro é gravado depois do despacho para refletir a realidade
	if logErr := e.logs.Insert(ctx, log); logErr != nil {
		e.logger.WithError(logErr).Error().Msg("Failed to insert automation log")
	}

	return messageID, err
}

// SendBulk despacha sequencialmente para cada destinatário, reavaliando
// a prontidão entre envios. Uma queda de sessão interrompe o restante do
// lote. Um único registro de automação cobre o lote inteiro.
func (e *Executor) SendBulk(ctx context.Context, dispatcher Dispatcher, userID, sessionID string, recipients []string, message string) *BulkOutcome {
	outcome := &BulkOutcome{}

	for _, recipient := range recipients {
		if outcome.SessionClosed || !dispatcher.IsReady(ctx) {
			outcome.Failed++
			outcome.Errors = append(outcome.Errors, RecipientError{
				Recipient: recipient,
				Error:     wa.ErrSessionClosed.Error(),
			})
			continue
		}

		messageID, err := dispatcher.Send(ctx, recipient, message)
		if err != nil {
			outcome.Failed++
			outcome.Errors = append(outcome.Errors, RecipientError{
				Recipient: recipient,
				Error:     err.Error(),
			})
			if errors.Is(err, wa.ErrSessionClosed) {
				outcome.SessionClosed = true
			}
			continue
		}

		outcome.Sent++
		outcome.MessageIDs = append(outcome.MessageIDs, messageID)
	}

	status := msglog.StatusSent
	switch {
	case outcome.Sent == 0:
		status = msglog.StatusFailed
	case outcome.Failed > 0:
		status = msglog.StatusPartial
	}

	log := &msglog.AutomationLog{
		ID:          uuid.New(),
		UserID:      userID,
		SessionID:   sessionID,
		Type:        msglog.SendAnnouncement,
		Recipients:  recipients,
		Message:     message,
		Status:      status,
		SentCount:   outcome.Sent,
		FailedCount: outcome.Failed,
	}
	if len(outcome.Errors) > 0 {
		if encoded, err := json.Marshal(outcome.Errors); err == nil {
			log.ErrorMessage = string(encoded)
		}
	}
	if err := e.logs.Insert(ctx, log); err != nil {
		e.logger.WithError(err).Error().Msg("Failed to insert automation log")
	}

	return outcome
}
