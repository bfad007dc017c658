package whatsapp

import (
	"context"
	"sync"

	"wasgate/pkg/logger"
)

// Registry é o diretório de supervisores do processo, um por sessão.
// Leituras não bloqueiam escritas de outras chaves; a criação é
// single-flight por id de sessão.
type Registry struct {
	mu          sync.RWMutex
	supervisors map[string]*Supervisor
	creating    map[string]chan struct{}

	deps   SupervisorDeps
	logger logger.Logger
}

// NewRegistry cria o registro de supervisores
func NewRegistry(deps SupervisorDeps, log logger.Logger) *Registry {
	r := &Registry{
		supervisors: make(map[string]*Supervisor),
		creating:    make(map[string]chan struct{}),
		deps:        deps,
		logger:      log.WithComponent("registry"),
	}
	// A remoção em estado terminal acontece dentro do supervisor
	r.deps.OnTerminal = r.remove
	return r
}

// Get devolve o supervisor da sessão, se registrado
func (r *Registry) Get(sessionID string) (*Supervisor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sup, ok := r.supervisors[sessionID]
	return sup, ok
}

// CreateIfAbsent devolve o supervisor existente ou cria e inicia um novo.
// Chamadas concorrentes para a mesma sessão convergem para uma única
// criação; as demais aguardam o resultado.
func (r *Registry) CreateIfAbsent(ctx context.Context, sessionID, userID string) (*Supervisor, error) {
	for {
		r.mu.Lock()
		if sup, ok := r.supervisors[sessionID]; ok {
			r.mu.Unlock()
			return sup, nil
		}
		if wait, inFlight := r.creating[sessionID]; inFlight {
			r.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		wait := make(chan struct{})
		r.creating[sessionID] = wait
		r.mu.Unlock()

		sup := NewSupervisor(sessionID, userID, r.deps)
		err := sup.Start(ctx)

		r.mu.Lock()
		delete(r.creating, sessionID)
		if err == nil {
			r.supervisors[sessionID] = sup
		}
		r.mu.Unlock()
		close(wait)

		if err != nil {
			return nil, err
		}

		r.logger.WithField("session_id", sessionID).Info().Msg("Supervisor registered")
		return sup, nil
	}
}

// remove apaga a entrada da sessão. Chamado apenas pelo próprio
// supervisor ao encerrar.
func (r *Registry) remove(sessionID string) {
	r.mu.Lock()
	delete(r.supervisors, sessionID)
	r.mu.Unlock()
	r.logger.WithField("session_id", sessionID).Debug().Msg("Supervisor removed from registry")
}

// Len conta os supervisores registrados
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.supervisors)
}

// CloseAll encerra todos os supervisores, usado no shutdown do processo
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.RLock()
	sups := make([]*Supervisor, 0, len(r.supervisors))
	for _, sup := range r.supervisors {
		sups = append(sups, sup)
	}
	r.mu.RUnlock()

	for _, sup := range sups {
		if err := sup.Close(ctx, false); err != nil {
			r.logger.WithError(err).Warn().Msg("Failed to close supervisor during shutdown")
		}
	}
}
