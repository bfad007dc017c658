package whatsapp

import (
	"context"
	"errors"
	"time"

	"wasgate/internal/domain/apikey"
	"wasgate/internal/domain/billing"
	"wasgate/internal/domain/msglog"
	"wasgate/internal/domain/session"
	"wasgate/internal/domain/webhook"
	wa "wasgate/internal/domain/whatsapp"
	"wasgate/pkg/logger"

	"github.com/google/uuid"
)

// Prazos da máquina de estados
const (
	// RestoreDeadline é o prazo para uma sessão restaurada ficar pronta
	RestoreDeadline = 120 * time.Second
	// NewAuthDeadline é o prazo para a primeira autenticação via QR
	NewAuthDeadline = 5 * time.Minute
)

// EventEmitter publica eventos para o motor de fan-out de webhooks
type EventEmitter interface {
	Emit(evt webhook.Event)
}

// AuthStorage espelha o diretório de autenticação de uma sessão entre o
// filesystem local e o armazenamento durável
type AuthStorage interface {
	AuthDir(sessionID string) string
	Restore(ctx context.Context, sessionID string) (bool, error)
	Backup(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
}

// WorkerFactory constrói o worker de uma sessão
type WorkerFactory func(ctx context.Context, opts WorkerOptions) (wa.Worker, error)

// SupervisorDeps agrupa os colaboradores de um supervisor
type SupervisorDeps struct {
	Sessions   session.Repository
	APIKeys    apikey.Repository
	Subs       billing.SubscriptionRepository
	ConnEvents msglog.ConnectionEventRepository
	Delivery   msglog.DeliveryRepository
	Storage    AuthStorage
	Emitter    EventEmitter
	NewWorker  WorkerFactory
	PrintQR    bool
	Logger     logger.Logger

	// OnTerminal remove a entrada do registro quando o supervisor encerra
	OnTerminal func(sessionID string)
}

// Snapshot é a visão pública do estado de um supervisor
type Snapshot struct {
	SessionID string
	Status    session.Status
	Phone     string
	QRCode    string
}

// SendResult é o desfecho de um envio serializado pelo supervisor
type SendResult struct {
	MessageID string
	Err       error
}

// StrengthenReport resume as atividades executadas no fortalecimento
type StrengthenReport struct {
	ProfileFetched bool `json:"profileFetched"`
	PresenceSent   bool `json:"presenceSent"`
	MessagesRead   int  `json:"messagesRead"`
	ContactsSynced int  `json:"contactsSynced"`
}

type command interface{ isCommand() }

type cmdSend struct {
	recipient string
	text      string
	reply     chan SendResult
}

type cmdState struct {
	reply chan Snapshot
}

type cmdStrengthen struct {
	reply chan strengthenReply
}

type strengthenReply struct {
	report StrengthenReport
	err    error
}

type cmdClose struct {
	logout bool
	reply  chan error
}

func (cmdSend) isCommand()       {}
func (cmdState) isCommand()      {}
func (cmdStrengthen) isCommand() {}
func (cmdClose) isCommand()      {}

// Supervisor é o ator por sessão: dono exclusivo do worker, consome os
// eventos dele em ordem e atende comandos tipados por canal. Nenhum
// estado interno é tocado fora do loop.
type Supervisor struct {
	sessionID string
	userID    string
	deps      SupervisorDeps
	logger    logger.Logger

	cmds chan command
	done chan struct{}

	// Estado de posse exclusiva do loop
	worker   wa.Worker
	status   session.Status
	phone    string
	qrCode   string
	restored bool
}

// NewSupervisor cria o supervisor de uma sessão. Start deve ser chamado
// em seguida para restaurar a autenticação e iniciar o worker.
func NewSupervisor(sessionID, userID string, deps SupervisorDeps) *Supervisor {
	return &Supervisor{
		sessionID: sessionID,
		userID:    userID,
		deps:      deps,
		logger: deps.Logger.WithComponent("supervisor").WithFields(map[string]interface{}{
			"session_id": sessionID,
			"user_id":    userID,
		}),
		cmds:   make(chan command),
		done:   make(chan struct{}),
		status: session.StatusInitializing,
	}
}

// Start restaura o diretório de autenticação, constrói o worker e inicia
// o loop de estados. A inicialização do worker corre em segundo plano.
func (s *Supervisor) Start(ctx context.Context) error {
	restored, err := s.deps.Storage.Restore(ctx, s.sessionID)
	if err != nil {
		// Ausência de backup não é erro; falha de IO é
		s.logger.WithError(err).Error().Msg("Failed to restore auth directory")
		return err
	}
	s.restored = restored

	worker, err := s.deps.NewWorker(ctx, WorkerOptions{
		SessionID: s.sessionID,
		AuthDir:   s.deps.Storage.AuthDir(s.sessionID),
		PrintQR:   s.deps.PrintQR,
	})
	if err != nil {
		return err
	}
	s.worker = worker

	go s.run()

	go func() {
		if err := s.worker.Init(context.Background()); err != nil {
			s.logger.WithError(err).Error().Msg("Worker initialization failed")
		}
	}()

	s.logger.WithField("restored", restored).Info().Msg("Supervisor started")
	return nil
}

// run é o loop de estados. Eventos do worker e comandos públicos são
// atendidos um de cada vez, na ordem de chegada.
func (s *Supervisor) run() {
	deadline := NewAuthDeadline
	if s.restored {
		deadline = RestoreDeadline
	}
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	for {
		select {
		case evt, ok := <-s.worker.Events():
			if !ok {
				if !s.status.IsTerminal() {
					s.terminate(session.StatusDisconnected, "worker closed")
				}
				return
			}
			s.handleEvent(evt, timer)
			if s.status.IsTerminal() {
				s.teardown()
				return
			}

		case cmd := <-s.cmds:
			s.handleCommand(cmd)
			if s.status.IsTerminal() {
				s.teardown()
				return
			}

		case <-timer.C:
			s.onDeadline()
			s.teardown()
			return
		}
	}
}

func (s *Supervisor) handleEvent(evt wa.Event, timer *time.Timer) {
	ctx := context.Background()

	switch e := evt.(type) {
	case wa.QREvent:
		s.status = session.StatusQRPending
		s.qrCode = e.Code
		if err := s.deps.Sessions.SetQRCode(ctx, s.sessionID, e.Code); err != nil {
			s.logger.WithError(err).Error().Msg("Failed to persist QR code")
		}
		s.logger.Debug().Msg("QR code emitted")

	case wa.AuthenticatedEvent:
		s.status = session.StatusConnecting
		if err := s.deps.Sessions.UpdateStatus(ctx, s.sessionID, session.StatusConnecting); err != nil {
			s.logger.WithError(err).Error().Msg("Failed to persist connecting status")
		}
		// Backup assíncrono; falha não afeta o status da sessão
		go func() {
			if err := s.deps.Storage.Backup(context.Background(), s.sessionID); err != nil {
				s.logger.WithError(err).Warn().Msg("Auth directory backup failed")
			}
		}()

	case wa.ReadyEvent:
		s.onReady(ctx, e.Phone)
		timer.Stop()

	case wa.AuthFailureEvent:
		s.logger.WithField("reason", e.Reason).Warn().Msg("Authentication failed")
		s.terminate(session.StatusFailed, e.Reason)

	case wa.DisconnectedEvent:
		if e.LoggedOut {
			s.logger.WithField("reason", e.Reason).Info().Msg("Session logged out remotely")
			s.terminate(session.StatusDisconnected, e.Reason)
			return
		}
		// Queda transitória: o worker reconecta sozinho; rearmar o prazo
		s.status = session.StatusConnecting
		s.recordConnEvent(ctx, msglog.ConnEventReconnecting, map[string]any{"reason": e.Reason})
		if err := s.deps.Sessions.UpdateStatus(ctx, s.sessionID, session.StatusConnecting); err != nil {
			s.logger.WithError(err).Error().Msg("Failed to persist reconnecting status")
		}
		resetTimer(timer, NewAuthDeadline)

	case wa.MessageEvent:
		s.onIncomingMessage(ctx, e)

	case wa.ReceiptEvent:
		s.onReceipt(ctx, e)
	}
}

// onReady executa as obrigações da transição para connected
func (s *Supervisor) onReady(ctx context.Context, phone string) {
	alreadyConnected := s.status == session.StatusConnected
	s.status = session.StatusConnected
	s.phone = phone
	s.qrCode = ""

	if err := s.deps.Sessions.MarkReady(ctx, s.sessionID, phone); err != nil {
		s.logger.WithError(err).Error().Msg("Failed to mark session ready")
	}

	if forced, err := s.deps.Sessions.DisconnectOthers(ctx, s.userID, s.sessionID); err != nil {
		s.logger.WithError(err).Error().Msg("Failed to disconnect other sessions")
	} else if forced > 0 {
		s.logger.WithField("count", forced).Info().Msg("Forced other connected sessions to disconnected")
	}

	if err := s.ensureAPIKey(ctx); err != nil {
		s.logger.WithError(err).Error().Msg("Failed to ensure API key")
	}

	// Incremento transacional no banco; ready duplicado não conta duas vezes
	if err := s.deps.Subs.RegisterNumber(ctx, s.userID, s.sessionID); err != nil {
		s.logger.WithError(err).Error().Msg("Failed to register session number")
	}

	if !alreadyConnected {
		s.recordConnEvent(ctx, msglog.ConnEventConnected, map[string]any{"phone": phone})
	}

	s.logger.WithField("phone", phone).Info().Msg("Session ready")
}

func (s *Supervisor) ensureAPIKey(ctx context.Context) error {
	_, err := s.deps.APIKeys.GetActiveBySession(ctx, s.sessionID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apikey.ErrKeyNotFound) {
		return err
	}

	key, err := apikey.New(s.userID, s.sessionID)
	if err != nil {
		return err
	}
	if err := s.deps.APIKeys.Create(ctx, key); err != nil {
		return err
	}
	s.logger.Info().Msg("API key generated for session")
	return nil
}

func (s *Supervisor) onIncomingMessage(ctx context.Context, e wa.MessageEvent) {
	if e.Broadcast {
		return
	}

	if err := s.deps.Sessions.TouchActivity(ctx, s.sessionID); err != nil {
		s.logger.WithError(err).Debug().Msg("Failed to touch last activity")
	}

	fields := map[string]any{
		"messageType": string(e.Kind),
		"from":        e.From,
		"messageId":   e.MessageID,
	}
	if e.Kind == wa.KindText {
		fields["text"] = e.Text
	}

	s.deps.Emitter.Emit(webhook.Event{
		UserID:    s.userID,
		SessionID: s.sessionID,
		Name:      webhook.EventMessageReceived,
		Types:     webhook.IncomingTypes(string(e.Kind)),
		Fields:    fields,
		Timestamp: e.Timestamp,
	})
}

func (s *Supervisor) onReceipt(ctx context.Context, e wa.ReceiptEvent) {
	for _, messageID := range e.MessageIDs {
		var (
			tracking *msglog.DeliveryTracking
			err      error
			name     string
			whType   webhook.Type
		)
		switch e.Kind {
		case wa.ReceiptDelivered:
			tracking, err = s.deps.Delivery.MarkDelivered(ctx, messageID, e.Timestamp)
			name, whType = webhook.EventDelivered, webhook.TypeDelivered
		case wa.ReceiptRead:
			tracking, err = s.deps.Delivery.MarkRead(ctx, messageID, e.Timestamp)
			name, whType = webhook.EventRead, webhook.TypeRead
		default:
			continue
		}
		if err != nil {
			s.logger.WithError(err).Debug().Msg("Failed to update delivery tracking")
			continue
		}
		if tracking == nil {
			// Recibo de mensagem que não rastreamos
			continue
		}

		s.deps.Emitter.Emit(webhook.Event{
			UserID:    s.userID,
			SessionID: s.sessionID,
			Name:      name,
			Types:     []webhook.Type{whType},
			Fields: map[string]any{
				"messageId": messageID,
				"recipient": tracking.Recipient,
			},
			Timestamp: e.Timestamp,
		})
	}
}

func (s *Supervisor) handleCommand(cmd command) {
	switch c := cmd.(type) {
	case cmdSend:
		c.reply <- s.doSend(c.recipient, c.text)

	case cmdState:
		c.reply <- Snapshot{
			SessionID: s.sessionID,
			Status:    s.status,
			Phone:     s.phone,
			QRCode:    s.qrCode,
		}

	case cmdStrengthen:
		report, err := s.doStrengthen()
		c.reply <- strengthenReply{report: report, err: err}

	case cmdClose:
		c.reply <- s.doClose(c.logout)
	}
}

// doSend resolve o destinatário, despacha e classifica o desfecho.
// Roda dentro do loop, então envios pela mesma sessão são serializados.
func (s *Supervisor) doSend(recipient, text string) SendResult {
	if s.status != session.StatusConnected || !s.worker.IsReady() {
		return SendResult{Err: wa.ErrNotReady}
	}

	ctx := context.Background()

	chatID, err := s.worker.ResolveRecipient(ctx, recipient)
	if err != nil {
		return SendResult{Err: s.classifySendError(err)}
	}

	messageID, err := s.worker.SendText(ctx, chatID, text)
	if err != nil {
		return SendResult{Err: s.classifySendError(err)}
	}

	tracking := &msglog.DeliveryTracking{
		ID:        uuid.New(),
		MessageID: messageID,
		UserID:    s.userID,
		SessionID: s.sessionID,
		Recipient: recipient,
		Status:    msglog.DeliverySent,
	}
	if err := s.deps.Delivery.Create(ctx, tracking); err != nil {
		s.logger.WithError(err).Debug().Msg("Failed to create delivery tracking")
	}

	if err := s.deps.Sessions.TouchActivity(ctx, s.sessionID); err != nil {
		s.logger.WithError(err).Debug().Msg("Failed to touch last activity")
	}

	return SendResult{MessageID: messageID}
}

// classifySendError derruba o supervisor quando a conexão morreu
func (s *Supervisor) classifySendError(err error) error {
	if errors.Is(err, wa.ErrSessionClosed) {
		s.logger.WithError(err).Warn().Msg("Send failed with closed session")
		s.terminate(session.StatusDisconnected, "session closed during send")
	}
	return err
}

// doStrengthen executa a cadeia de atividades inofensivas da conta
func (s *Supervisor) doStrengthen() (StrengthenReport, error) {
	var report StrengthenReport
	if s.status != session.StatusConnected || !s.worker.IsReady() {
		return report, wa.ErrNotReady
	}

	ctx := context.Background()

	if err := s.worker.FetchOwnProfile(ctx); err != nil {
		s.logger.WithError(err).Debug().Msg("Profile fetch failed during strengthening")
	} else {
		report.ProfileFetched = true
	}

	if err := s.worker.SendPresence(ctx); err != nil {
		s.logger.WithError(err).Debug().Msg("Presence failed during strengthening")
	} else {
		report.PresenceSent = true
	}

	if read, err := s.worker.MarkRecentRead(ctx, recentInboundLimit); err == nil {
		report.MessagesRead = read
	}

	if synced, err := s.worker.SyncContacts(ctx); err == nil {
		report.ContactsSynced = synced
	}

	// Pausa curta imitando atividade humana antes de liberar
	time.Sleep(500 * time.Millisecond)

	if err := s.deps.Sessions.TouchActivity(ctx, s.sessionID); err != nil {
		s.logger.WithError(err).Debug().Msg("Failed to touch last activity")
	}

	return report, nil
}

// doClose encerra o supervisor. Com logout, a autenticação é invalidada
// e o diretório remoto agendado para remoção.
func (s *Supervisor) doClose(logout bool) error {
	if logout {
		if err := s.worker.Logout(context.Background()); err != nil {
			s.logger.WithError(err).Warn().Msg("Logout failed")
		}
		go func() {
			if err := s.deps.Storage.Delete(context.Background(), s.sessionID); err != nil {
				s.logger.WithError(err).Warn().Msg("Failed to delete auth directory")
			}
		}()
	}
	s.terminate(session.StatusDisconnected, "closed by request")
	return nil
}

// onDeadline força o desfecho de uma inicialização travada
func (s *Supervisor) onDeadline() {
	if s.restored {
		s.logger.Warn().Msg("Restore deadline expired, marking disconnected")
		s.terminate(session.StatusDisconnected, "restore deadline expired")
		return
	}
	s.logger.Warn().Msg("Authentication deadline expired, marking failed")
	s.terminate(session.StatusFailed, "authentication deadline expired")
}

// terminate grava o estado terminal e registra o evento de conexão
func (s *Supervisor) terminate(status session.Status, reason string) {
	ctx := context.Background()
	s.status = status

	if err := s.deps.Sessions.UpdateStatus(ctx, s.sessionID, status); err != nil {
		s.logger.WithError(err).Error().Msg("Failed to persist terminal status")
	}

	eventType := msglog.ConnEventDisconnected
	if status == session.StatusFailed {
		eventType = msglog.ConnEventError
	}
	s.recordConnEvent(ctx, eventType, map[string]any{"reason": reason})
}

// teardown fecha o worker e remove a entrada do registro
func (s *Supervisor) teardown() {
	if err := s.worker.Close(); err != nil {
		s.logger.WithError(err).Debug().Msg("Worker close failed")
	}
	if s.deps.OnTerminal != nil {
		s.deps.OnTerminal(s.sessionID)
	}
	close(s.done)
	s.logger.WithField("status", s.status).Info().Msg("Supervisor terminated")
}

func (s *Supervisor) recordConnEvent(ctx context.Context, t msglog.ConnectionEventType, details map[string]any) {
	event := &msglog.ConnectionEvent{
		ID:        uuid.New(),
		SessionID: s.sessionID,
		UserID:    s.userID,
		Type:      t,
		Details:   details,
	}
	if err := s.deps.ConnEvents.Insert(ctx, event); err != nil {
		s.logger.WithError(err).Debug().Msg("Failed to record connection event")
	}
}

// Send envia texto para um destinatário já normalizado. Bloqueia até o
// desfecho ou o cancelamento do contexto.
func (s *Supervisor) Send(ctx context.Context, recipient, text string) (string, error) {
	reply := make(chan SendResult, 1)
	select {
	case s.cmds <- cmdSend{recipient: recipient, text: text, reply: reply}:
	case <-s.done:
		return "", wa.ErrSessionClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case res := <-reply:
		return res.MessageID, res.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// State devolve uma fotografia do estado atual
func (s *Supervisor) State(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case s.cmds <- cmdState{reply: reply}:
	case <-s.done:
		return Snapshot{SessionID: s.sessionID, Status: session.StatusDisconnected}, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Strengthen executa a cadeia de fortalecimento de conta
func (s *Supervisor) Strengthen(ctx context.Context) (StrengthenReport, error) {
	reply := make(chan strengthenReply, 1)
	select {
	case s.cmds <- cmdStrengthen{reply: reply}:
	case <-s.done:
		return StrengthenReport{}, wa.ErrSessionClosed
	case <-ctx.Done():
		return StrengthenReport{}, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.report, res.err
	case <-ctx.Done():
		return StrengthenReport{}, ctx.Err()
	}
}

// Close encerra o supervisor. Com logout, invalida a autenticação e
// remove o diretório remoto.
func (s *Supervisor) Close(ctx context.Context, logout bool) error {
	reply := make(chan error, 1)
	select {
	case s.cmds <- cmdClose{logout: logout, reply: reply}:
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done sinaliza o encerramento do supervisor
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// IsReady informa se a sessão está pronta para envios
func (s *Supervisor) IsReady(ctx context.Context) bool {
	snap, err := s.State(ctx)
	return err == nil && snap.Status == session.StatusConnected
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
