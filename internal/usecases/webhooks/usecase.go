package webhooks

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"wasgate/internal/domain/webhook"
	"wasgate/pkg/logger"
)

// Emitter publica eventos no motor de fan-out
type Emitter interface {
	Emit(evt webhook.Event)
}

// UseCase expõe o CRUD de webhooks, o histórico de entregas e o
// disparo de eventos de teste
type UseCase struct {
	repo    webhook.Repository
	emitter Emitter
	logger  logger.Logger
}

// NewUseCase cria o caso de uso de webhooks
func NewUseCase(repo webhook.Repository, emitter Emitter, log logger.Logger) *UseCase {
	return &UseCase{
		repo:    repo,
		emitter: emitter,
		logger:  log.WithComponent("webhooks-usecase"),
	}
}

// CreateInput são os campos aceitos na criação de um webhook
type CreateInput struct {
	SessionID     string            `json:"sessionId" validate:"required"`
	Type          string            `json:"type" validate:"required"`
	URL           string            `json:"url" validate:"required"`
	SuccessURL    string            `json:"successUrl"`
	FailureURL    string            `json:"failureUrl"`
	CustomPayload map[string]any    `json:"customPayload"`
	Headers       map[string]string `json:"headers"`
	RetryOnFail   *bool             `json:"retryOnFailure"`
	MaxAttempts   int               `json:"maxAttempts"`
	RetryDelaySec int               `json:"retryDelaySec"`
}

// Create registra um webhook para (usuário, sessão, tipo). A tripla é
// única; uma segunda inscrição do mesmo tipo é recusada.
func (uc *UseCase) Create(ctx context.Context, userID string, input CreateInput) (*webhook.Webhook, error) {
	whType := webhook.Type(input.Type)
	if !whType.IsValid() {
		return nil, webhook.ErrInvalidType
	}
	for _, raw := range []string{input.URL, input.SuccessURL, input.FailureURL} {
		if raw == "" {
			continue
		}
		if err := validateURL(raw); err != nil {
			return nil, err
		}
	}

	retryOnFail := true
	if input.RetryOnFail != nil {
		retryOnFail = *input.RetryOnFail
	}
	maxAttempts := input.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = webhook.DefaultMaxAttempts
	}
	retryDelay := input.RetryDelaySec
	if retryDelay <= 0 {
		retryDelay = int(webhook.DefaultRetryDelay / time.Second)
	}

	now := time.Now()
	wh := &webhook.Webhook{
		ID:            uuid.New(),
		UserID:        userID,
		SessionID:     input.SessionID,
		Type:          whType,
		URL:           input.URL,
		SuccessURL:    input.SuccessURL,
		FailureURL:    input.FailureURL,
		CustomPayload: input.CustomPayload,
		Headers:       input.Headers,
		RetryOnFail:   retryOnFail,
		MaxAttempts:   maxAttempts,
		RetryDelaySec: retryDelay,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.repo.Create(ctx, wh); err != nil {
		return nil, err
	}

	uc.logger.WithField("webhook_id", wh.ID.String()).
		WithField("type", string(whType)).
		Info().Msg("Webhook created")
	return wh, nil
}

// List devolve os webhooks do usuário
func (uc *UseCase) List(ctx context.Context, userID string) ([]*webhook.Webhook, error) {
	return uc.repo.ListByUser(ctx, userID)
}

// UpdateInput são os campos mutáveis de um webhook; ponteiros nulos
// preservam o valor atual
type UpdateInput struct {
	URL           *string            `json:"url"`
	SuccessURL    *string            `json:"successUrl"`
	FailureURL    *string            `json:"failureUrl"`
	CustomPayload *map[string]any    `json:"customPayload"`
	Headers       *map[string]string `json:"headers"`
	RetryOnFail   *bool              `json:"retryOnFailure"`
	MaxAttempts   *int               `json:"maxAttempts"`
	RetryDelaySec *int               `json:"retryDelaySec"`
	IsActive      *bool              `json:"isActive"`
}

// Update aplica mudanças parciais a um webhook do usuário
func (uc *UseCase) Update(ctx context.Context, userID string, id uuid.UUID, input UpdateInput) (*webhook.Webhook, error) {
	wh, err := uc.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if input.URL != nil {
		if err := validateURL(*input.URL); err != nil {
			return nil, err
		}
		wh.URL = *input.URL
	}
	if input.SuccessURL != nil {
		if *input.SuccessURL != "" {
			if err := validateURL(*input.SuccessURL); err != nil {
				return nil, err
			}
		}
		wh.SuccessURL = *input.SuccessURL
	}
	if input.FailureURL != nil {
		if *input.FailureURL != "" {
			if err := validateURL(*input.FailureURL); err != nil {
				return nil, err
			}
		}
		wh.FailureURL = *input.FailureURL
	}
	if input.CustomPayload != nil {
		wh.CustomPayload = *input.CustomPayload
	}
	if input.Headers != nil {
		wh.Headers = *input.Headers
	}
	if input.RetryOnFail != nil {
		wh.RetryOnFail = *input.RetryOnFail
	}
	if input.MaxAttempts != nil && *input.MaxAttempts > 0 {
		wh.MaxAttempts = *input.MaxAttempts
	}
	if input.RetryDelaySec != nil && *input.RetryDelaySec > 0 {
		wh.RetryDelaySec = *input.RetryDelaySec
	}
	if input.IsActive != nil {
		wh.IsActive = *input.IsActive
	}
	wh.UpdatedAt = time.Now()

	if err := uc.repo.Update(ctx, wh); err != nil {
		return nil, err
	}
	return wh, nil
}

// Delete remove um webhook do usuário junto com seus logs
func (uc *UseCase) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if _, err := uc.owned(ctx, userID, id); err != nil {
		return err
	}
	return uc.repo.Delete(ctx, id)
}

// Logs lista as tentativas de entrega mais recentes de um webhook
func (uc *UseCase) Logs(ctx context.Context, userID string, id uuid.UUID, limit, offset int) ([]*webhook.WebhookLog, error) {
	if _, err := uc.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return uc.repo.ListLogs(ctx, id, limit, offset)
}

// Test dispara um evento sintético para o webhook. A entrega percorre
// o mesmo caminho dos eventos reais, incluindo retries e logs.
func (uc *UseCase) Test(ctx context.Context, userID string, id uuid.UUID) error {
	wh, err := uc.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	uc.emitter.Emit(webhook.Event{
		UserID:    wh.UserID,
		SessionID: wh.SessionID,
		Name:      "test",
		Types:     []webhook.Type{wh.Type},
		Fields: map[string]any{
			"test":    true,
			"message": "This is a test event",
		},
		Timestamp: time.Now(),
	})
	return nil
}

func (uc *UseCase) owned(ctx context.Context, userID string, id uuid.UUID) (*webhook.Webhook, error) {
	wh, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wh.UserID != userID {
		return nil, webhook.ErrWebhookNotFound
	}
	return wh, nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return webhook.ErrInvalidURL
	}
	return nil
}
