package whatsapp

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wa "wasgate/internal/domain/whatsapp"
	"wasgate/pkg/logger"
)

func newRegistryFixture(t *testing.T, created *atomic.Int32) (*Registry, *sync.Map) {
	t.Helper()

	workers := &sync.Map{}
	deps := SupervisorDeps{
		Sessions:   &memSessions{},
		APIKeys:    &memAPIKeys{},
		Subs:       &memSubs{},
		ConnEvents: &memConnEvents{},
		Delivery:   &memDelivery{},
		Storage:    &memAuthStorage{root: t.TempDir()},
		Emitter:    &memEmitter{},
		NewWorker: func(ctx context.Context, opts WorkerOptions) (wa.Worker, error) {
			created.Add(1)
			// Janela artificial para expor criação dupla sob corrida
			time.Sleep(20 * time.Millisecond)
			w := newFakeWorker()
			workers.Store(opts.SessionID, w)
			return w, nil
		},
		Logger: logger.SetupForTesting(),
	}

	return NewRegistry(deps, logger.SetupForTesting()), workers
}

func TestRegistrySingleFlightCreation(t *testing.T) {
	var created atomic.Int32
	registry, _ := newRegistryFixture(t, &created)
	defer registry.CloseAll(context.Background())

	const callers = 16
	results := make(chan *Supervisor, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sup, err := registry.CreateIfAbsent(context.Background(), "session-1", "user-1")
			assert.NoError(t, err)
			results <- sup
		}()
	}
	wg.Wait()
	close(results)

	// Todos os chamadores convergem para o mesmo supervisor
	first := <-results
	require.NotNil(t, first)
	for sup := range results {
		assert.Same(t, first, sup)
	}

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, 1, registry.Len())

	got, ok := registry.Get("session-1")
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestRegistryIndependentSessions(t *testing.T) {
	var created atomic.Int32
	registry, _ := newRegistryFixture(t, &created)
	defer registry.CloseAll(context.Background())

	a, err := registry.CreateIfAbsent(context.Background(), "session-a", "user-1")
	require.NoError(t, err)
	b, err := registry.CreateIfAbsent(context.Background(), "session-b", "user-2")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, int32(2), created.Load())
	assert.Equal(t, 2, registry.Len())
}

func TestRegistryRemovesTerminatedSupervisor(t *testing.T) {
	var created atomic.Int32
	registry, workers := newRegistryFixture(t, &created)

	_, err := registry.CreateIfAbsent(context.Background(), "session-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, registry.Len())

	raw, ok := workers.Load("session-1")
	require.True(t, ok)
	worker := raw.(*fakeWorker)

	worker.emit(wa.ReadyEvent{Phone: "9647700000000"})
	worker.emit(wa.DisconnectedEvent{Reason: "logged out", LoggedOut: true})

	require.Eventually(t, func() bool {
		return registry.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)

	_, ok = registry.Get("session-1")
	assert.False(t, ok)

	// Uma nova conexão para o mesmo id cria um supervisor novo
	_, err = registry.CreateIfAbsent(context.Background(), "session-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), created.Load())
	registry.CloseAll(context.Background())
}

func TestRegistryCloseAll(t *testing.T) {
	var created atomic.Int32
	registry, _ := newRegistryFixture(t, &created)

	supA, err := registry.CreateIfAbsent(context.Background(), "session-a", "user-1")
	require.NoError(t, err)
	supB, err := registry.CreateIfAbsent(context.Background(), "session-b", "user-2")
	require.NoError(t, err)

	registry.CloseAll(context.Background())

	for _, sup := range []*Supervisor{supA, supB} {
		select {
		case <-sup.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("supervisor did not stop on CloseAll")
		}
	}

	require.Eventually(t, func() bool {
		return registry.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)
}
