package whatsapp

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasgate/internal/domain/apikey"
	"wasgate/internal/domain/billing"
	"wasgate/internal/domain/msglog"
	"wasgate/internal/domain/session"
	"wasgate/internal/domain/webhook"
	wa "wasgate/internal/domain/whatsapp"
	"wasgate/pkg/logger"
)

// fakeWorker emite eventos roteirizados pelo teste
type fakeWorker struct {
	mu     sync.Mutex
	events chan wa.Event
	ready  bool
	closed bool

	loggedOut    bool
	resolveErr   error
	sendErr      error
	sent         []string
	messagesRead int
	contacts     int
}

func newFakeWorker() *fakeWorker {
	return &fakeWorker{events: make(chan wa.Event, 16), messagesRead: 3, contacts: 12}
}

func (f *fakeWorker) emit(evt wa.Event) {
	if _, ok := evt.(wa.ReadyEvent); ok {
		f.mu.Lock()
		f.ready = true
		f.mu.Unlock()
	}
	f.events <- evt
}

func (f *fakeWorker) Init(ctx context.Context) error { return nil }
func (f *fakeWorker) Events() <-chan wa.Event        { return f.events }

func (f *fakeWorker) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeWorker) Identity() string { return "9647700000000" }

func (f *fakeWorker) ResolveRecipient(ctx context.Context, phone string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return phone + "@s.whatsapp.net", nil
}

func (f *fakeWorker) SendText(ctx context.Context, chatID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, chatID)
	return "WAMID-1", nil
}

func (f *fakeWorker) FetchOwnProfile(ctx context.Context) error { return nil }
func (f *fakeWorker) SendPresence(ctx context.Context) error    { return nil }
func (f *fakeWorker) MarkRecentRead(ctx context.Context, limit int) (int, error) {
	return f.messagesRead, nil
}
func (f *fakeWorker) SyncContacts(ctx context.Context) (int, error) { return f.contacts, nil }

func (f *fakeWorker) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = true
	return nil
}

func (f *fakeWorker) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeWorker) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// memAuthStorage registra as chamadas sem tocar o object store
type memAuthStorage struct {
	mu       sync.Mutex
	root     string
	restored bool
	backups  int
	deletes  int
}

func (m *memAuthStorage) AuthDir(sessionID string) string {
	return filepath.Join(m.root, sessionID)
}

func (m *memAuthStorage) Restore(ctx context.Context, sessionID string) (bool, error) {
	return m.restored, nil
}

func (m *memAuthStorage) Backup(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backups++
	return nil
}

func (m *memAuthStorage) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	return nil
}

func (m *memAuthStorage) deleted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes
}

func (m *memAuthStorage) backedUp() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backups
}

type memSessions struct {
	session.Repository
	mu            sync.Mutex
	statuses      []session.Status
	qrCodes       []string
	readyPhone    string
	othersDropped int
	touches       int
}

func (m *memSessions) UpdateStatus(ctx context.Context, id string, status session.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *memSessions) SetQRCode(ctx context.Context, id, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.qrCodes = append(m.qrCodes, code)
	return nil
}

func (m *memSessions) MarkReady(ctx context.Context, id, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readyPhone = phone
	m.statuses = append(m.statuses, session.StatusConnected)
	return nil
}

func (m *memSessions) TouchActivity(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touches++
	return nil
}

func (m *memSessions) DisconnectOthers(ctx context.Context, userID, keepSessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.othersDropped++
	return 1, nil
}

func (m *memSessions) lastStatus() session.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.statuses) == 0 {
		return ""
	}
	return m.statuses[len(m.statuses)-1]
}

type memAPIKeys struct {
	apikey.Repository
	mu   sync.Mutex
	keys []*apikey.APIKey
}

func (m *memAPIKeys) GetActiveBySession(ctx context.Context, sessionID string) (*apikey.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.keys {
		if key.SessionID == sessionID && key.IsActive {
			return key, nil
		}
	}
	return nil, apikey.ErrKeyNotFound
}

func (m *memAPIKeys) Create(ctx context.Context, key *apikey.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return nil
}

func (m *memAPIKeys) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

type memSubs struct {
	billing.SubscriptionRepository
	mu         sync.Mutex
	registered int
}

func (m *memSubs) RegisterNumber(ctx context.Context, userID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered++
	return nil
}

type memConnEvents struct {
	msglog.ConnectionEventRepository
	mu     sync.Mutex
	events []*msglog.ConnectionEvent
}

func (m *memConnEvents) Insert(ctx context.Context, e *msglog.ConnectionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memConnEvents) byType(t msglog.ConnectionEventType) []*msglog.ConnectionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*msglog.ConnectionEvent
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type memDelivery struct {
	mu      sync.Mutex
	tracked []*msglog.DeliveryTracking
}

func (m *memDelivery) Create(ctx context.Context, t *msglog.DeliveryTracking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracked = append(m.tracked, t)
	return nil
}

func (m *memDelivery) MarkDelivered(ctx context.Context, messageID string, at time.Time) (*msglog.DeliveryTracking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tracked {
		if t.MessageID == messageID {
			t.Status = msglog.DeliveryDelivered
			return t, nil
		}
	}
	return nil, nil
}

func (m *memDelivery) MarkRead(ctx context.Context, messageID string, at time.Time) (*msglog.DeliveryTracking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tracked {
		if t.MessageID == messageID {
			t.Status = msglog.DeliveryRead
			return t, nil
		}
	}
	return nil, nil
}

func (m *memDelivery) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tracked)
}

type memEmitter struct {
	mu     sync.Mutex
	events []webhook.Event
}

func (m *memEmitter) Emit(evt webhook.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *memEmitter) byName(name string) []webhook.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []webhook.Event
	for _, evt := range m.events {
		if evt.Name == name {
			out = append(out, evt)
		}
	}
	return out
}

type supervisorFixture struct {
	sup      *Supervisor
	worker   *fakeWorker
	sessions *memSessions
	keys     *memAPIKeys
	subs     *memSubs
	conn     *memConnEvents
	delivery *memDelivery
	emitter  *memEmitter
	storage  *memAuthStorage
	terminal chan string
}

func newSupervisorFixture(t *testing.T) *supervisorFixture {
	t.Helper()

	f := &supervisorFixture{
		worker:   newFakeWorker(),
		sessions: &memSessions{},
		keys:     &memAPIKeys{},
		subs:     &memSubs{},
		conn:     &memConnEvents{},
		delivery: &memDelivery{},
		emitter:  &memEmitter{},
		storage:  &memAuthStorage{root: t.TempDir()},
		terminal: make(chan string, 1),
	}

	deps := SupervisorDeps{
		Sessions:   f.sessions,
		APIKeys:    f.keys,
		Subs:       f.subs,
		ConnEvents: f.conn,
		Delivery:   f.delivery,
		Storage:    f.storage,
		Emitter:    f.emitter,
		NewWorker: func(ctx context.Context, opts WorkerOptions) (wa.Worker, error) {
			return f.worker, nil
		},
		Logger:     logger.SetupForTesting(),
		OnTerminal: func(sessionID string) { f.terminal <- sessionID },
	}

	f.sup = NewSupervisor("session-1", "user-1", deps)
	require.NoError(t, f.sup.Start(context.Background()))
	t.Cleanup(func() {
		_ = f.sup.Close(context.Background(), false)
	})
	return f
}

func (f *supervisorFixture) waitStatus(t *testing.T, want session.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		snap, err := f.sup.State(context.Background())
		return err == nil && snap.Status == want
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSupervisorQRToReadyFlow(t *testing.T) {
	f := newSupervisorFixture(t)
	ctx := context.Background()

	f.worker.emit(wa.QREvent{Code: "qr-payload-1"})
	f.waitStatus(t, session.StatusQRPending)

	snap, err := f.sup.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "qr-payload-1", snap.QRCode)
	assert.False(t, f.sup.IsReady(ctx))

	f.worker.emit(wa.AuthenticatedEvent{})
	f.waitStatus(t, session.StatusConnecting)

	f.worker.emit(wa.ReadyEvent{Phone: "9647700000000"})
	f.waitStatus(t, session.StatusConnected)

	snap, err = f.sup.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "9647700000000", snap.Phone)
	assert.Empty(t, snap.QRCode)
	assert.True(t, f.sup.IsReady(ctx))

	f.sessions.mu.Lock()
	assert.Equal(t, []string{"qr-payload-1"}, f.sessions.qrCodes)
	assert.Equal(t, "9647700000000", f.sessions.readyPhone)
	assert.Equal(t, 1, f.sessions.othersDropped)
	f.sessions.mu.Unlock()

	// Chave de API criada e número registrado na primeira prontidão
	assert.Equal(t, 1, f.keys.count())
	f.subs.mu.Lock()
	assert.Equal(t, 1, f.subs.registered)
	f.subs.mu.Unlock()

	require.Len(t, f.conn.byType(msglog.ConnEventConnected), 1)

	// Backup assíncrono disparado no pareamento
	require.Eventually(t, func() bool {
		return f.storage.backedUp() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSupervisorSendSerializedThroughLoop(t *testing.T) {
	f := newSupervisorFixture(t)
	ctx := context.Background()

	_, err := f.sup.Send(ctx, "9647701234567", "early")
	assert.ErrorIs(t, err, wa.ErrNotReady)

	f.worker.emit(wa.ReadyEvent{Phone: "9647700000000"})
	f.waitStatus(t, session.StatusConnected)

	messageID, err := f.sup.Send(ctx, "9647701234567", "hello")
	require.NoError(t, err)
	assert.Equal(t, "WAMID-1", messageID)

	require.Eventually(t, func() bool {
		return f.delivery.count() == 1
	}, 5*time.Second, 10*time.Millisecond)

	f.delivery.mu.Lock()
	tracked := f.delivery.tracked[0]
	f.delivery.mu.Unlock()
	assert.Equal(t, "WAMID-1", tracked.MessageID)
	assert.Equal(t, "9647701234567", tracked.Recipient)
	assert.Equal(t, msglog.DeliverySent, tracked.Status)
}

func TestSupervisorSendOnClosedSessionTerminates(t *testing.T) {
	f := newSupervisorFixture(t)
	ctx := context.Background()

	f.worker.emit(wa.ReadyEvent{Phone: "9647700000000"})
	f.waitStatus(t, session.StatusConnected)

	f.worker.mu.Lock()
	f.worker.sendErr = wa.ErrSessionClosed
	f.worker.mu.Unlock()

	_, err := f.sup.Send(ctx, "9647701234567", "hello")
	assert.ErrorIs(t, err, wa.ErrSessionClosed)

	select {
	case id := <-f.terminal:
		assert.Equal(t, "session-1", id)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not terminate")
	}

	assert.Equal(t, session.StatusDisconnected, f.sessions.lastStatus())
	assert.True(t, f.worker.wasClosed())

	// Depois do encerramento os comandos falham com erro tipado
	_, err = f.sup.Send(ctx, "9647701234567", "late")
	assert.ErrorIs(t, err, wa.ErrSessionClosed)
}

func TestSupervisorTransientDisconnectReconnects(t *testing.T) {
	f := newSupervisorFixture(t)

	f.worker.emit(wa.ReadyEvent{Phone: "9647700000000"})
	f.waitStatus(t, session.StatusConnected)

	f.worker.emit(wa.DisconnectedEvent{Reason: "stream error"})
	f.waitStatus(t, session.StatusConnecting)

	require.Len(t, f.conn.byType(msglog.ConnEventReconnecting), 1)

	f.worker.emit(wa.ReadyEvent{Phone: "9647700000000"})
	f.waitStatus(t, session.StatusConnected)

	// O supervisor segue vivo, nada chegou ao canal terminal
	select {
	case <-f.terminal:
		t.Fatal("supervisor terminated on transient disconnect")
	default:
	}
}

func TestSupervisorRemoteLogoutTerminates(t *testing.T) {
	f := newSupervisorFixture(t)

	f.worker.emit(wa.ReadyEvent{Phone: "9647700000000"})
	f.waitStatus(t, session.StatusConnected)

	f.worker.emit(wa.DisconnectedEvent{Reason: "logged out", LoggedOut: true})

	select {
	case <-f.terminal:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not terminate")
	}

	assert.Equal(t, session.StatusDisconnected, f.sessions.lastStatus())
	require.Len(t, f.conn.byType(msglog.ConnEventDisconnected), 1)
}

func TestSupervisorAuthFailureMarksFailed(t *testing.T) {
	f := newSupervisorFixture(t)

	f.worker.emit(wa.AuthFailureEvent{Reason: "pairing refused"})

	select {
	case <-f.terminal:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not terminate")
	}

	assert.Equal(t, session.StatusFailed, f.sessions.lastStatus())
	require.Len(t, f.conn.byType(msglog.ConnEventError), 1)
}

func TestSupervisorCloseWithLogout(t *testing.T) {
	f := newSupervisorFixture(t)

	f.worker.emit(wa.ReadyEvent{Phone: "9647700000000"})
	f.waitStatus(t, session.StatusConnected)

	require.NoError(t, f.sup.Close(context.Background(), true))

	select {
	case <-f.sup.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}

	f.worker.mu.Lock()
	loggedOut := f.worker.loggedOut
	f.worker.mu.Unlock()
	assert.True(t, loggedOut)

	// Remoção remota do diretório de autenticação é assíncrona
	require.Eventually(t, func() bool {
		return f.storage.deleted() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSupervisorIncomingMessageFansOut(t *testing.T) {
	f := newSupervisorFixture(t)

	f.worker.emit(wa.ReadyEvent{Phone: "9647700000000"})
	f.waitStatus(t, session.StatusConnected)

	f.worker.emit(wa.MessageEvent{
		MessageID: "IN-1",
		From:      "9647709999999",
		Kind:      wa.KindText,
		Text:      "hi there",
		Timestamp: time.Now(),
	})
	// Mensagens de broadcast são descartadas
	f.worker.emit(wa.MessageEvent{
		MessageID: "IN-2",
		From:      "status",
		Kind:      wa.KindText,
		Broadcast: true,
		Timestamp: time.Now(),
	})

	require.Eventually(t, func() bool {
		return len(f.emitter.byName(webhook.EventMessageReceived)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	evt := f.emitter.byName(webhook.EventMessageReceived)[0]
	assert.Equal(t, "user-1", evt.UserID)
	assert.Equal(t, "hi there", evt.Fields["text"])
	assert.Equal(t, "9647709999999", evt.Fields["from"])
	assert.Equal(t, webhook.IncomingTypes("text"), evt.Types)
}

func TestSupervisorReceiptUpdatesDelivery(t *testing.T) {
	f := newSupervisorFixture(t)
	ctx := context.Background()

	f.worker.emit(wa.ReadyEvent{Phone: "9647700000000"})
	f.waitStatus(t, session.StatusConnected)

	_, err := f.sup.Send(ctx, "9647701234567", "hello")
	require.NoError(t, err)

	f.worker.emit(wa.ReceiptEvent{
		MessageIDs: []string{"WAMID-1", "WAMID-unknown"},
		Kind:       wa.ReceiptDelivered,
		Timestamp:  time.Now(),
	})

	require.Eventually(t, func() bool {
		return len(f.emitter.byName(webhook.EventDelivered)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	evt := f.emitter.byName(webhook.EventDelivered)[0]
	assert.Equal(t, "WAMID-1", evt.Fields["messageId"])
	assert.Equal(t, "9647701234567", evt.Fields["recipient"])

	f.delivery.mu.Lock()
	status := f.delivery.tracked[0].Status
	f.delivery.mu.Unlock()
	assert.Equal(t, msglog.DeliveryDelivered, status)
}

func TestSupervisorStrengthen(t *testing.T) {
	f := newSupervisorFixture(t)
	ctx := context.Background()

	_, err := f.sup.Strengthen(ctx)
	assert.ErrorIs(t, err, wa.ErrNotReady)

	f.worker.emit(wa.ReadyEvent{Phone: "9647700000000"})
	f.waitStatus(t, session.StatusConnected)

	report, err := f.sup.Strengthen(ctx)
	require.NoError(t, err)
	assert.True(t, report.ProfileFetched)
	assert.True(t, report.PresenceSent)
	assert.Equal(t, 3, report.MessagesRead)
	assert.Equal(t, 12, report.ContactsSynced)
}
