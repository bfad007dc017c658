package admission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasgate/internal/domain/billing"
	"wasgate/internal/domain/msglog"
	"wasgate/internal/domain/session"
	"wasgate/internal/domain/webhook"
	wa "wasgate/internal/domain/whatsapp"
	"wasgate/internal/usecases/send"
	"wasgate/pkg/logger"
)

// fakeHandle responde aos envios com um roteiro programável
type fakeHandle struct {
	mu      sync.Mutex
	ready   bool
	sends   int
	failAt  map[int]error
	lastMsg string
}

func (f *fakeHandle) Send(ctx context.Context, recipient, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	f.lastMsg = text
	if err, ok := f.failAt[f.sends]; ok {
		if errors.Is(err, wa.ErrSessionClosed) {
			f.ready = false
		}
		return "", err
	}
	return "3EB0" + recipient, nil
}

func (f *fakeHandle) IsReady(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

type fakeControl struct {
	handles map[string]*fakeHandle
}

func (f *fakeControl) Get(sessionID string) (SessionHandle, bool) {
	h, ok := f.handles[sessionID]
	if !ok {
		return nil, false
	}
	return h, true
}

func (f *fakeControl) CreateIfAbsent(ctx context.Context, sessionID, userID string) (SessionHandle, error) {
	return nil, errors.New("restoration unavailable in tests")
}

type fakeSessionRepo struct {
	session.Repository
	rows map[string]*session.Session
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id string) (*session.Session, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return row, nil
}

func (f *fakeSessionRepo) UpdateStatus(ctx context.Context, id string, status session.Status) error {
	if row, ok := f.rows[id]; ok {
		row.Status = status
	}
	return nil
}

// fakeWallet aplica débito e crédito em memória com as mesmas garantias
// observáveis da função do banco
type fakeWallet struct {
	mu      sync.Mutex
	balance int64
	txns    []*billing.WalletTransaction
}

func (f *fakeWallet) GetOrCreate(ctx context.Context, userID string) (*billing.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &billing.Wallet{UserID: userID, Balance: f.balance}, nil
}

func (f *fakeWallet) Deduct(ctx context.Context, userID, sessionID string, amount int64, description, referenceID string) (*billing.WalletTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balance < amount {
		return nil, billing.ErrInsufficientBalance
	}
	before := f.balance
	f.balance -= amount
	txn := &billing.WalletTransaction{
		UserID: userID, SessionID: sessionID, Type: billing.TransactionDebit,
		Amount: amount, BalanceBefore: before, BalanceAfter: f.balance,
		Description: description, ReferenceID: referenceID,
	}
	f.txns = append(f.txns, txn)
	return txn, nil
}

func (f *fakeWallet) Credit(ctx context.Context, userID, sessionID string, amount int64, description, referenceID string) (*billing.WalletTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	before := f.balance
	f.balance += amount
	txn := &billing.WalletTransaction{
		UserID: userID, SessionID: sessionID, Type: billing.TransactionCredit,
		Amount: amount, BalanceBefore: before, BalanceAfter: f.balance,
		Description: description, ReferenceID: referenceID,
	}
	f.txns = append(f.txns, txn)
	return txn, nil
}

func (f *fakeWallet) TopUp(ctx context.Context, userID string, amount int64) (*billing.WalletTransaction, int64, error) {
	txn, err := f.Credit(ctx, userID, "", amount, "topup", "topup_test")
	return txn, 0, err
}

func (f *fakeWallet) Transactions(ctx context.Context, userID string, limit, offset int) ([]*billing.WalletTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*billing.WalletTransaction(nil), f.txns...), nil
}

type fakeSubs struct {
	mu        sync.Mutex
	check     *billing.LimitCheck
	increment int
}

func (f *fakeSubs) GetActive(ctx context.Context, userID string) (*billing.Subscription, error) {
	return nil, billing.ErrSubscriptionNotFound
}
func (f *fakeSubs) Create(ctx context.Context, sub *billing.Subscription) error { return nil }
func (f *fakeSubs) CheckLimits(ctx context.Context, userID string, messagesNeeded, numbersNeeded int) (*billing.LimitCheck, error) {
	return f.check, nil
}
func (f *fakeSubs) IncrementUsage(ctx context.Context, userID string, messages int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increment += messages
	return nil
}
func (f *fakeSubs) RegisterNumber(ctx context.Context, userID, sessionID string) error { return nil }

type fakeRates struct {
	settings *billing.RateLimitSettings
}

func (f *fakeRates) GetOrDefault(ctx context.Context, userID string) (*billing.RateLimitSettings, error) {
	return f.settings, nil
}
func (f *fakeRates) Upsert(ctx context.Context, settings *billing.RateLimitSettings) error {
	return nil
}

type fakeAutoLogs struct {
	mu       sync.Mutex
	existing int
	rows     []*msglog.AutomationLog
}

func (f *fakeAutoLogs) Insert(ctx context.Context, log *msglog.AutomationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, log)
	return nil
}

func (f *fakeAutoLogs) CountForUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing, nil
}

func (f *fakeAutoLogs) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*msglog.AutomationLog, error) {
	return nil, nil
}
func (f *fakeAutoLogs) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*msglog.AutomationLog, error) {
	return nil, nil
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []webhook.Event
}

func (f *fakeEmitter) Emit(evt webhook.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
}

func (f *fakeEmitter) byName(name string) []webhook.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []webhook.Event
	for _, evt := range f.events {
		if evt.Name == name {
			out = append(out, evt)
		}
	}
	return out
}

type fixture struct {
	pipeline *Pipeline
	handle   *fakeHandle
	wallet   *fakeWallet
	subs     *fakeSubs
	logs     *fakeAutoLogs
	emitter  *fakeEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	handle := &fakeHandle{ready: true, failAt: map[int]error{}}
	wallet := &fakeWallet{balance: 1000}
	subs := &fakeSubs{check: &billing.LimitCheck{Allowed: true}}
	rates := &fakeRates{settings: billing.DefaultRateLimitSettings("user-1")}
	logs := &fakeAutoLogs{}
	emitter := &fakeEmitter{}
	log := logger.SetupForTesting()

	rows := map[string]*session.Session{
		"session-1": {ID: "session-1", UserID: "user-1", Status: session.StatusConnected},
	}

	pipeline := NewPipeline(
		&fakeControl{handles: map[string]*fakeHandle{"session-1": handle}},
		&fakeSessionRepo{rows: rows},
		wallet,
		subs,
		rates,
		logs,
		send.NewExecutor(logs, log),
		emitter,
		10,
		log,
	)

	return &fixture{pipeline: pipeline, handle: handle, wallet: wallet, subs: subs, logs: logs, emitter: emitter}
}

func TestSendSingleHappyPath(t *testing.T) {
	f := newFixture(t)

	result, err := f.pipeline.SendSingle(context.Background(), SingleRequest{
		UserID:    "user-1",
		SessionID: "session-1",
		Recipient: "+964 770 123 4567",
		Message:   "hello",
		Type:      msglog.SendAPIMessage,
	})
	require.NoError(t, err)

	assert.Equal(t, "9647701234567", result.Recipient)
	assert.NotEmpty(t, result.MessageID)
	assert.Equal(t, int64(10), result.Cost)
	assert.Equal(t, int64(990), result.BalanceAfter)
	assert.Equal(t, int64(990), f.wallet.balance)
	assert.Equal(t, 1, f.subs.increment)

	require.Len(t, f.logs.rows, 1)
	assert.Equal(t, msglog.StatusSent, f.logs.rows[0].Status)
	assert.Equal(t, "9647701234567", f.logs.rows[0].Recipient)
}

func TestSendSingleInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.wallet.balance = 5

	_, err := f.pipeline.SendSingle(context.Background(), SingleRequest{
		UserID:    "user-1",
		SessionID: "session-1",
		Recipient: "9647701234567",
		Message:   "hello",
		Type:      msglog.SendAPIMessage,
	})

	var gate *GateError
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, 402, gate.Status)
	assert.Equal(t, CodeInsufficientBalance, gate.Code)
	assert.Equal(t, "Insufficient balance", gate.Message)

	// Nenhuma mutação observável: saldo intacto, nenhum envio, nenhum log
	assert.Equal(t, int64(5), f.wallet.balance)
	assert.Zero(t, f.handle.sends)
	assert.Empty(t, f.logs.rows)
}

func TestSendSingleRefundsOnDispatchFailure(t *testing.T) {
	f := newFixture(t)
	f.handle.failAt[1] = errors.New("page crashed")

	_, err := f.pipeline.SendSingle(context.Background(), SingleRequest{
		UserID:    "user-1",
		SessionID: "session-1",
		Recipient: "9647701234567",
		Message:   "hello",
		Type:      msglog.SendAPIMessage,
	})

	var gate *GateError
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, 500, gate.Status)

	// Débito seguido do crédito compensatório devolve o saldo original
	assert.Equal(t, int64(1000), f.wallet.balance)
	require.Len(t, f.wallet.txns, 2)
	assert.Equal(t, billing.TransactionDebit, f.wallet.txns[0].Type)
	assert.Equal(t, billing.TransactionCredit, f.wallet.txns[1].Type)
	assert.Equal(t, billing.RefundReferenceID(f.wallet.txns[0].ReferenceID), f.wallet.txns[1].ReferenceID)
	assert.Zero(t, f.subs.increment)
}

func TestSendSingleRateLimited(t *testing.T) {
	f := newFixture(t)
	settings := billing.DefaultRateLimitSettings("user-1")
	settings.PerMinute = 2
	f.pipeline.rates = &fakeRates{settings: settings}
	f.logs.existing = 2

	_, err := f.pipeline.SendSingle(context.Background(), SingleRequest{
		UserID:    "user-1",
		SessionID: "session-1",
		Recipient: "9647701234567",
		Message:   "hello",
		Type:      msglog.SendAPIMessage,
	})

	var gate *GateError
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, 429, gate.Status)
	assert.Equal(t, "rate_limit_minute", gate.Details["reason"])
	assert.Equal(t, 2, gate.Details["limit"])
	assert.Equal(t, 2, gate.Details["current"])
	assert.Equal(t, int64(1000), f.wallet.balance)
}

func TestSendSingleSubscriptionExceeded(t *testing.T) {
	f := newFixture(t)
	f.subs.check = &billing.LimitCheck{
		Allowed: false,
		Reason:  "messages_limit_exceeded",
		Limit:   1200,
		Used:    1200,
	}

	_, err := f.pipeline.SendSingle(context.Background(), SingleRequest{
		UserID:    "user-1",
		SessionID: "session-1",
		Recipient: "9647701234567",
		Message:   "hello",
		Type:      msglog.SendAPIMessage,
	})

	var gate *GateError
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, 403, gate.Status)
	assert.Equal(t, "messages_limit_exceeded", gate.Message)
	assert.Equal(t, int64(1000), f.wallet.balance)
}

func TestSendSingleInvalidRecipient(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.SendSingle(context.Background(), SingleRequest{
		UserID:    "user-1",
		SessionID: "session-1",
		Recipient: "abc",
		Message:   "hello",
		Type:      msglog.SendAPIMessage,
	})

	var gate *GateError
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, 400, gate.Status)
	assert.Equal(t, CodeBadRecipient, gate.Code)
	assert.Equal(t, int64(1000), f.wallet.balance)
}

func TestSendSingleRejectsForeignSession(t *testing.T) {
	f := newFixture(t)

	// O supervisor está registrado; a posse ainda vem da linha da sessão
	_, err := f.pipeline.SendSingle(context.Background(), SingleRequest{
		UserID:    "user-intruder",
		SessionID: "session-1",
		Recipient: "9647701234567",
		Message:   "hello",
		Type:      msglog.SendAPIMessage,
	})

	var gate *GateError
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, 404, gate.Status)
	assert.Equal(t, CodeSessionNotFound, gate.Code)
	assert.Zero(t, f.handle.sends)
	assert.Equal(t, int64(1000), f.wallet.balance)
	assert.Empty(t, f.logs.rows)
}

func TestSendBulkRejectsForeignSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.SendBulk(context.Background(), BulkRequest{
		UserID:     "user-intruder",
		SessionID:  "session-1",
		Recipients: []string{"9647700000001", "9647700000002"},
		Message:    "announcement",
	})

	var gate *GateError
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, 404, gate.Status)
	assert.Equal(t, CodeSessionNotFound, gate.Code)
	assert.Zero(t, f.handle.sends)
	assert.Equal(t, int64(1000), f.wallet.balance)
}

func TestSendSingleSessionNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.SendSingle(context.Background(), SingleRequest{
		UserID:    "user-1",
		SessionID: "ghost",
		Recipient: "9647701234567",
		Message:   "hello",
		Type:      msglog.SendAPIMessage,
	})

	var gate *GateError
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, 404, gate.Status)
	assert.Equal(t, CodeSessionNotFound, gate.Code)
}

func TestSendOTPEmitsEvent(t *testing.T) {
	f := newFixture(t)

	result, err := f.pipeline.SendOTP(context.Background(), OTPRequest{
		UserID:    "user-1",
		SessionID: "session-1",
		Recipient: "9647701234567",
		Code:      "123456",
		Language:  "en",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.MessageID)

	assert.Contains(t, f.handle.lastMsg, "123456")
	assert.Contains(t, f.handle.lastMsg, "Your verification code is")

	events := f.emitter.byName(webhook.EventOTPSent)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Success)
	assert.True(t, *events[0].Success)
	assert.Equal(t, "123456", events[0].Fields["code"])
}

func TestSendOTPFailureEmitsFailureEvent(t *testing.T) {
	f := newFixture(t)
	f.wallet.balance = 0

	_, err := f.pipeline.SendOTP(context.Background(), OTPRequest{
		UserID:    "user-1",
		SessionID: "session-1",
		Recipient: "9647701234567",
		Code:      "123456",
	})
	require.Error(t, err)

	events := f.emitter.byName(webhook.EventOTPFailed)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Success)
	assert.False(t, *events[0].Success)
	assert.NotEmpty(t, events[0].Fields["error"])
}

func TestSendBulkRefundsFailures(t *testing.T) {
	f := newFixture(t)
	// A terceira mensagem derruba a sessão; a quarta e a quinta nem tentam
	f.handle.failAt[3] = wa.ErrSessionClosed

	recipients := []string{
		"9647700000001", "9647700000002", "9647700000003",
		"9647700000004", "9647700000005",
	}

	result, err := f.pipeline.SendBulk(context.Background(), BulkRequest{
		UserID:     "user-1",
		SessionID:  "session-1",
		Recipients: recipients,
		Message:    "announcement",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 3, result.Failed)
	assert.Equal(t, int64(50), result.TotalCost)
	assert.Equal(t, int64(30), result.Refunded)
	// 1000 - 50 + 30
	assert.Equal(t, int64(980), result.BalanceAfter)
	assert.Equal(t, int64(980), f.wallet.balance)
	assert.Equal(t, 2, f.subs.increment)

	events := f.emitter.byName(webhook.EventAnnouncementSent)
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].Fields["sent"])
	assert.Equal(t, 3, events[0].Fields["failed"])
}

func TestSendBulkSkipsInvalidRecipientsWithoutCharging(t *testing.T) {
	f := newFixture(t)

	result, err := f.pipeline.SendBulk(context.Background(), BulkRequest{
		UserID:     "user-1",
		SessionID:  "session-1",
		Recipients: []string{"9647700000001", "bogus", "9647700000002"},
		Message:    "announcement",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Failed)
	// Só os destinatários válidos foram debitados
	assert.Equal(t, int64(20), result.TotalCost)
	assert.Zero(t, result.Refunded)
	assert.Equal(t, int64(980), f.wallet.balance)
}

func TestSendBulkAllInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.SendBulk(context.Background(), BulkRequest{
		UserID:     "user-1",
		SessionID:  "session-1",
		Recipients: []string{"abc", "xy"},
		Message:    "announcement",
	})

	var gate *GateError
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, 400, gate.Status)
	assert.Equal(t, int64(1000), f.wallet.balance)
}
