package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	wa "wasgate/internal/domain/whatsapp"
	"wasgate/pkg/logger"
)

// eventBuffer dimensiona o canal de eventos de um worker
const eventBuffer = 64

// recentInboundLimit limita o histórico de mensagens recebidas mantido
// para o mark-read do fortalecimento de conta
const recentInboundLimit = 32

// WorkerOptions configura a criação de um worker
type WorkerOptions struct {
	SessionID string
	AuthDir   string
	PrintQR   bool
}

// meowWorker implementa wa.Worker sobre um cliente whatsmeow com
// device store sqlite dedicado dentro do diretório de autenticação
type meowWorker struct {
	sessionID string
	authDir   string
	printQR   bool
	client    *whatsmeow.Client
	container *sqlstore.Container
	logger    logger.Logger

	mu     sync.Mutex
	events chan wa.Event
	closed bool

	// recentInbound guarda os últimos recibos pendentes de leitura
	recentInbound []inboundRef
}

type inboundRef struct {
	messageID string
	chat      types.JID
	sender    types.JID
}

// NewWorker cria o worker da sessão, abrindo o device store em
// <authDir>/store.db. O diretório é criado se necessário.
func NewWorker(ctx context.Context, opts WorkerOptions, log logger.Logger) (wa.Worker, error) {
	if err := os.MkdirAll(opts.AuthDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create auth directory: %w", err)
	}

	workerLog := log.WithComponent("worker").WithField("session_id", opts.SessionID)
	waLogger := logger.NewWALogger(workerLog)

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(opts.AuthDir, "store.db"))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, waLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	w := &meowWorker{
		sessionID: opts.SessionID,
		authDir:   opts.AuthDir,
		printQR:   opts.PrintQR,
		container: container,
		logger:    workerLog,
		events:    make(chan wa.Event, eventBuffer),
	}

	w.client = whatsmeow.NewClient(device, waLogger)
	w.client.AddEventHandler(w.handleEvent)

	return w, nil
}

// Init inicia a conexão. Para devices ainda não pareados o canal de QR
// é consumido em segundo plano e cada código vira um QREvent.
func (w *meowWorker) Init(ctx context.Context) error {
	if w.client.Store.ID == nil {
		qrChan, err := w.client.GetQRChannel(ctx)
		if err != nil && !errors.Is(err, whatsmeow.ErrQRStoreContainsID) {
			return fmt.Errorf("failed to get QR channel: %w", err)
		}
		if qrChan != nil {
			go w.consumeQR(qrChan)
		}
	}

	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	return nil
}

func (w *meowWorker) consumeQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case "code":
			if w.printQR {
				PrintQRToTerminal(item.Code)
			}
			w.emit(wa.QREvent{Code: item.Code})
		case "timeout":
			w.emit(wa.AuthFailureEvent{Reason: "qr timeout"})
		}
	}
}

func (w *meowWorker) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.PairSuccess:
		w.emit(wa.AuthenticatedEvent{})

	case *events.Connected:
		w.emit(wa.ReadyEvent{Phone: w.Identity()})

	case *events.LoggedOut:
		w.emit(wa.DisconnectedEvent{Reason: v.Reason.String(), LoggedOut: true})

	case *events.Disconnected:
		w.emit(wa.DisconnectedEvent{Reason: "connection lost"})

	case *events.Message:
		w.handleMessage(v)

	case *events.Receipt:
		w.handleReceipt(v)
	}
}

func (w *meowWorker) handleMessage(v *events.Message) {
	kind, text := classifyMessage(v)

	w.rememberInbound(inboundRef{
		messageID: v.Info.ID,
		chat:      v.Info.Chat,
		sender:    v.Info.Sender,
	})

	w.emit(wa.MessageEvent{
		MessageID: v.Info.ID,
		ChatJID:   v.Info.Chat.String(),
		From:      v.Info.Sender.User,
		Kind:      kind,
		Text:      text,
		Timestamp: v.Info.Timestamp,
		Broadcast: v.Info.Chat == types.StatusBroadcastJID,
	})
}

func classifyMessage(v *events.Message) (wa.MessageKind, string) {
	msg := v.Message
	switch {
	case msg.GetLocationMessage() != nil:
		return wa.KindLocation, ""
	case msg.GetImageMessage() != nil, msg.GetVideoMessage() != nil,
		msg.GetAudioMessage() != nil, msg.GetDocumentMessage() != nil,
		msg.GetStickerMessage() != nil:
		return wa.KindMedia, ""
	case msg.GetExtendedTextMessage() != nil:
		return wa.KindText, msg.GetExtendedTextMessage().GetText()
	default:
		return wa.KindText, msg.GetConversation()
	}
}

func (w *meowWorker) handleReceipt(v *events.Receipt) {
	var kind wa.ReceiptKind
	switch v.Type {
	case types.ReceiptTypeDelivered:
		kind = wa.ReceiptDelivered
	case types.ReceiptTypeRead:
		kind = wa.ReceiptRead
	default:
		return
	}

	ids := make([]string, len(v.MessageIDs))
	for i, id := range v.MessageIDs {
		ids[i] = string(id)
	}

	w.emit(wa.ReceiptEvent{
		MessageIDs: ids,
		Kind:       kind,
		Timestamp:  v.Timestamp,
	})
}

func (w *meowWorker) rememberInbound(ref inboundRef) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recentInbound = append(w.recentInbound, ref)
	if len(w.recentInbound) > recentInboundLimit {
		w.recentInbound = w.recentInbound[len(w.recentInbound)-recentInboundLimit:]
	}
}

func (w *meowWorker) emit(evt wa.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.events <- evt:
	default:
		w.logger.Warn().Msg("Worker event buffer full, dropping event")
	}
}

// Events é o canal de eventos do worker
func (w *meowWorker) Events() <-chan wa.Event {
	return w.events
}

// IsReady informa se o worker está autenticado e com a conexão viva
func (w *meowWorker) IsReady() bool {
	return w.client != nil && w.client.IsLoggedIn() && w.client.IsConnected()
}

// Identity devolve o telefone autenticado, vazio antes de ready
func (w *meowWorker) Identity() string {
	if w.client == nil || w.client.Store.ID == nil {
		return ""
	}
	return w.client.Store.ID.User
}

// ResolveRecipient resolve um telefone normalizado para o JID do chat
func (w *meowWorker) ResolveRecipient(ctx context.Context, phone string) (string, error) {
	if !w.IsReady() {
		return "", wa.ErrNotReady
	}

	resp, err := w.client.IsOnWhatsApp([]string{"+" + phone})
	if err != nil {
		return "", w.mapError(err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return "", wa.ErrRecipientNotFound
	}
	return resp[0].JID.String(), nil
}

// SendText envia texto para um chat resolvido e devolve o id da mensagem
func (w *meowWorker) SendText(ctx context.Context, chatID, text string) (string, error) {
	if !w.IsReady() {
		return "", wa.ErrNotReady
	}

	jid, err := types.ParseJID(chatID)
	if err != nil {
		return "", fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	resp, err := w.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return "", w.mapError(err)
	}
	return string(resp.ID), nil
}

// FetchOwnProfile consulta o perfil da própria conta
func (w *meowWorker) FetchOwnProfile(ctx context.Context) error {
	if !w.IsReady() {
		return wa.ErrNotReady
	}
	_, err := w.client.GetUserInfo([]types.JID{w.client.Store.ID.ToNonAD()})
	if err != nil {
		return w.mapError(err)
	}
	return nil
}

// SendPresence publica presença online
func (w *meowWorker) SendPresence(ctx context.Context) error {
	if !w.IsReady() {
		return wa.ErrNotReady
	}
	if err := w.client.SendPresence(types.PresenceAvailable); err != nil {
		return w.mapError(err)
	}
	return nil
}

// MarkRecentRead marca como lidas as mensagens recebidas mais recentes
func (w *meowWorker) MarkRecentRead(ctx context.Context, limit int) (int, error) {
	if !w.IsReady() {
		return 0, wa.ErrNotReady
	}

	w.mu.Lock()
	pending := w.recentInbound
	if limit > 0 && len(pending) > limit {
		pending = pending[len(pending)-limit:]
	}
	w.recentInbound = nil
	w.mu.Unlock()

	read := 0
	for _, ref := range pending {
		err := w.client.MarkRead(
			[]types.MessageID{types.MessageID(ref.messageID)},
			time.Now(), ref.chat, ref.sender,
		)
		if err != nil {
			w.logger.WithError(err).Debug().Msg("Failed to mark message as read")
			continue
		}
		read++
	}
	return read, nil
}

// SyncContacts carrega o catálogo de contatos do device store
func (w *meowWorker) SyncContacts(ctx context.Context) (int, error) {
	if !w.IsReady() {
		return 0, wa.ErrNotReady
	}
	contacts, err := w.client.Store.Contacts.GetAllContacts(ctx)
	if err != nil {
		return 0, w.mapError(err)
	}
	return len(contacts), nil
}

// Logout encerra a sessão no servidor, invalidando a autenticação
func (w *meowWorker) Logout(ctx context.Context) error {
	if w.client == nil {
		return wa.ErrSessionClosed
	}
	if err := w.client.Logout(ctx); err != nil {
		return w.mapError(err)
	}
	return nil
}

// Close derruba a conexão e fecha o canal de eventos. Idempotente.
func (w *meowWorker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.events)
	w.mu.Unlock()

	if w.client != nil {
		w.client.Disconnect()
	}
	if w.container != nil {
		if err := w.container.Close(); err != nil {
			w.logger.WithError(err).Debug().Msg("Failed to close device store")
		}
	}
	return nil
}

// mapError converte erros do cliente em erros tipados do domínio
func (w *meowWorker) mapError(err error) error {
	switch {
	case errors.Is(err, whatsmeow.ErrClientIsNil),
		errors.Is(err, whatsmeow.ErrNotConnected),
		errors.Is(err, whatsmeow.ErrNotLoggedIn):
		return fmt.Errorf("%w: %v", wa.ErrSessionClosed, err)
	case strings.Contains(err.Error(), "websocket disconnected"):
		return fmt.Errorf("%w: %v", wa.ErrSessionClosed, err)
	default:
		return err
	}
}
