package logger

import (
	"context"
	"strings"
	"time"

	"github.com/uptrace/bun"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// waLogAdapter adapta nosso Logger para a interface de log do whatsmeow
type waLogAdapter struct {
	logger Logger
}

// NewWALogger cria um adaptador waLog.Logger para o cliente whatsmeow
func NewWALogger(logger Logger) waLog.Logger {
	return &waLogAdapter{logger: logger}
}

func (w *waLogAdapter) Errorf(msg string, args ...interface{}) {
	w.logger.Error().Msgf(msg, args...)
}

func (w *waLogAdapter) Warnf(msg string, args ...interface{}) {
	w.logger.Warn().Msgf(msg, args...)
}

func (w *waLogAdapter) Infof(msg string, args ...interface{}) {
	w.logger.Info().Msgf(msg, args...)
}

func (w *waLogAdapter) Debugf(msg string, args ...interface{}) {
	w.logger.Debug().Msgf(msg, args...)
}

func (w *waLogAdapter) Sub(module string) waLog.Logger {
	if module == "" {
		return w
	}
	return &waLogAdapter{logger: w.logger.WithComponent(module)}
}

// BunQueryHook implementa hook para logging de queries do Bun ORM
type BunQueryHook struct {
	logger Logger
}

// NewBunQueryHook cria um novo hook para logging de queries do Bun
func NewBunQueryHook(logger Logger) bun.QueryHook {
	return &BunQueryHook{
		logger: logger.WithComponent("database"),
	}
}

// BeforeQuery é chamado antes da execução da query
func (h *BunQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery é chamado após a execução da query
func (h *BunQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime)

	if event.Err != nil {
		h.logger.Error().
			Err(event.Err).
			Str("query", sanitizeQuery(event.Query)).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("Database query failed")
		return
	}

	if duration > 100*time.Millisecond {
		h.logger.Warn().
			Str("query", sanitizeQuery(event.Query)).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("Slow database query")
		return
	}

	h.logger.Debug().
		Int64("duration_ms", duration.Milliseconds()).
		Msg("DB operation completed")
}

// sanitizeQuery encurta e normaliza a query para logging
func sanitizeQuery(query string) string {
	const maxLength = 200
	if len(query) > maxLength {
		query = query[:maxLength] + "..."
	}
	return strings.Join(strings.Fields(query), " ")
}
