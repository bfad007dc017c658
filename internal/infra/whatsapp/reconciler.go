package whatsapp

import (
	"context"

	"wasgate/internal/domain/session"
	"wasgate/pkg/logger"
)

// Reconciler restaura no boot as sessões que estavam conectadas.
// As restaurações correm em segundo plano; o boot não espera por elas.
type Reconciler struct {
	sessions session.Repository
	registry *Registry
	logger   logger.Logger
}

// NewReconciler cria o reconciliador de sessões
func NewReconciler(sessions session.Repository, registry *Registry, log logger.Logger) *Reconciler {
	return &Reconciler{
		sessions: sessions,
		registry: registry,
		logger:   log.WithComponent("reconciler"),
	}
}

// Run agenda a restauração de todas as sessões com status connected e
// retorna assim que todas estiverem agendadas
func (r *Reconciler) Run(ctx context.Context) error {
	connected, err := r.sessions.ListByStatus(ctx, session.StatusConnected)
	if err != nil {
		return err
	}

	if len(connected) == 0 {
		r.logger.Info().Msg("No connected sessions to restore")
		return nil
	}

	r.logger.WithField("count", len(connected)).Info().Msg("Scheduling session restorations")

	for _, s := range connected {
		s := s
		go func() {
			restoreCtx := context.Background()
			if _, err := r.registry.CreateIfAbsent(restoreCtx, s.ID, s.UserID); err != nil {
				r.logger.WithError(err).WithField("session_id", s.ID).
					Warn().Msg("Session restoration failed")
				if err := r.sessions.UpdateStatus(restoreCtx, s.ID, session.StatusDisconnected); err != nil {
					r.logger.WithError(err).WithField("session_id", s.ID).
						Error().Msg("Failed to mark session disconnected after restore failure")
				}
			}
		}()
	}

	return nil
}
