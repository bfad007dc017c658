package fanout

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"wasgate/internal/domain/webhook"
	"wasgate/pkg/logger"
)

// Limite de corpo de resposta retido no log de entrega
const maxResponseBody = 2048

// Engine é o motor de fan-out de webhooks. Produtores publicam eventos
// com Emit sem bloquear; um pool fixo de workers consome a fila de
// entregas. Com a fila cheia a entrega roda em goroutine própria em vez
// de ser descartada.
type Engine struct {
	repo    webhook.Repository
	client  *http.Client
	jobs    chan job
	logger  logger.Logger
	baseCtx context.Context

	mu       sync.Mutex
	closed   bool
	inFlight sync.WaitGroup
	workers  sync.WaitGroup
}

type job struct {
	hook *webhook.Webhook
	evt  webhook.Event
}

// NewEngine cria o motor e inicia os workers
func NewEngine(repo webhook.Repository, workers, queueSize int, log logger.Logger) *Engine {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	e := &Engine{
		repo:    repo,
		client:  &http.Client{Timeout: webhook.RequestTimeout},
		jobs:    make(chan job, queueSize),
		logger:  log.WithComponent("webhook-fanout"),
		baseCtx: context.Background(),
	}

	for i := 0; i < workers; i++ {
		e.workers.Add(1)
		go e.worker()
	}

	return e
}

// Emit publica um evento para fan-out. A resolução de assinantes e as
// entregas acontecem fora do caminho do produtor.
func (e *Engine) Emit(evt webhook.Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	go e.dispatch(evt)
}

// dispatch resolve os assinantes do evento e enfileira uma entrega por
// webhook. Assinantes de "all" são cobertos pela própria consulta, então
// cada webhook recebe o evento no máximo uma vez.
func (e *Engine) dispatch(evt webhook.Event) {
	ctx, cancel := context.WithTimeout(e.baseCtx, 10*time.Second)
	defer cancel()

	hooks, err := e.repo.ListForEvent(ctx, evt.UserID, evt.SessionID, evt.Types)
	if err != nil {
		e.logger.WithError(err).
			WithField("event", evt.Name).
			WithField("user_id", evt.UserID).
			Error().Msg("Failed to resolve webhook subscribers")
		return
	}
	if len(hooks) == 0 {
		return
	}

	for _, hook := range hooks {
		e.enqueue(job{hook: hook, evt: evt})
	}
}

// enqueue tenta a fila; cheia, a entrega roda inline em goroutine
// própria para que nenhum evento seja perdido
func (e *Engine) enqueue(j job) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.logger.WithField("event", j.evt.Name).Warn().Msg("Webhook engine closed, dropping delivery")
		return
	}
	e.inFlight.Add(1)
	e.mu.Unlock()

	select {
	case e.jobs <- j:
	default:
		e.logger.WithField("event", j.evt.Name).
			WithField("webhook_id", j.hook.ID.String()).
			Warn().Msg("Webhook queue full, delivering inline")
		go func() {
			defer e.inFlight.Done()
			e.deliver(j)
		}()
	}
}

func (e *Engine) worker() {
	defer e.workers.Done()
	for j := range e.jobs {
		e.deliver(j)
		e.inFlight.Done()
	}
}

// deliver executa as tentativas de um webhook para um evento. As
// tentativas de um mesmo par (webhook, evento) são serializadas aqui;
// cada tentativa gera uma linha de log e o resultado final atualiza as
// estatísticas do webhook.
func (e *Engine) deliver(j job) {
	payload := BuildPayload(j.evt, j.hook)
	body, err := json.Marshal(payload)
	if err != nil {
		e.logger.WithError(err).
			WithField("webhook_id", j.hook.ID.String()).
			Error().Msg("Failed to encode webhook payload")
		return
	}

	url := j.hook.TargetURL(j.evt.Success)
	headers := BuildHeaders(j.hook)
	attempts := j.hook.Attempts()

	var delivered bool
	for attempt := 1; attempt <= attempts; attempt++ {
		statusCode, responseBody, postErr := e.post(url, headers, body)
		delivered = statusCode >= 200 && statusCode < 300
		willRetry := !delivered && attempt < attempts

		e.recordAttempt(j, payload, attempt, statusCode, responseBody, postErr, willRetry)

		if delivered {
			break
		}
		if willRetry {
			time.Sleep(j.hook.RetryDelay())
		}
	}

	if err := e.repo.UpdateStats(e.baseCtx, j.hook.ID, delivered); err != nil {
		e.logger.WithError(err).
			WithField("webhook_id", j.hook.ID.String()).
			Error().Msg("Failed to update webhook stats")
	}

	if !delivered {
		e.logger.WithField("webhook_id", j.hook.ID.String()).
			WithField("event", j.evt.Name).
			WithField("url", url).
			Warn().Msg("Webhook delivery exhausted all attempts")
	}
}

// post envia o payload e devolve o status e um prefixo do corpo da
// resposta. statusCode 0 indica falha de transporte.
func (e *Engine) post(url string, headers map[string]string, body []byte) (int, string, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	preview, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	return resp.StatusCode, string(preview), nil
}

func (e *Engine) recordAttempt(j job, payload map[string]any, attempt, statusCode int, responseBody string, postErr error, willRetry bool) {
	entry := &webhook.WebhookLog{
		ID:           uuid.New(),
		WebhookID:    j.hook.ID,
		EventType:    j.evt.Name,
		Payload:      payload,
		Attempt:      attempt,
		StatusCode:   statusCode,
		ResponseBody: responseBody,
		Success:      statusCode >= 200 && statusCode < 300,
		WillRetry:    willRetry,
		CreatedAt:    time.Now(),
	}
	if postErr != nil {
		entry.ErrorMessage = postErr.Error()
	}

	if err := e.repo.InsertLog(e.baseCtx, entry); err != nil {
		e.logger.WithError(err).
			WithField("webhook_id", j.hook.ID.String()).
			Error().Msg("Failed to insert webhook log")
	}
}

// Close para de aceitar eventos e aguarda as entregas em andamento
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.inFlight.Wait()
	close(e.jobs)
	e.workers.Wait()
}
