package sessions

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"time"

	"wasgate/internal/domain/apikey"
	"wasgate/internal/domain/msglog"
	"wasgate/internal/domain/session"
	"wasgate/internal/infra/storage"
	infrawa "wasgate/internal/infra/whatsapp"
	"wasgate/pkg/logger"
)

// Janela de espera pelo primeiro QR ou pela reconexão após o connect
const (
	qrPollInterval = 250 * time.Millisecond
	qrPollTimeout  = 20 * time.Second
)

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)

// UseCase orquestra o ciclo de vida das sessões: criação, consulta,
// desconexão e fortalecimento. O registro de supervisores é a fonte do
// estado vivo; a linha no banco é a fonte do estado durável.
type UseCase struct {
	sessions session.Repository
	apiKeys  apikey.Repository
	strength msglog.StrengthRepository
	events   msglog.ConnectionEventRepository
	storage  *storage.SessionStorage
	registry *infrawa.Registry
	logger   logger.Logger
}

// NewUseCase cria o caso de uso de sessões
func NewUseCase(
	sessions session.Repository,
	apiKeys apikey.Repository,
	strength msglog.StrengthRepository,
	events msglog.ConnectionEventRepository,
	sessionStorage *storage.SessionStorage,
	registry *infrawa.Registry,
	log logger.Logger,
) *UseCase {
	return &UseCase{
		sessions: sessions,
		apiKeys:  apiKeys,
		strength: strength,
		events:   events,
		storage:  sessionStorage,
		registry: registry,
		logger:   log.WithComponent("sessions-usecase"),
	}
}

// Info é a visão de uma sessão devolvida pela API, combinando a linha
// durável com o estado vivo do supervisor quando houver
type Info struct {
	SessionID    string     `json:"sessionId"`
	Status       string     `json:"status"`
	Phone        string     `json:"phone,omitempty"`
	QRCode       string     `json:"qrCode,omitempty"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Connect inicia (ou retoma) a sessão e aguarda o primeiro QR ou a
// reconexão automática. Um usuário só mantém uma sessão conectada; a
// tentativa de conectar uma segunda é recusada.
func (uc *UseCase) Connect(ctx context.Context, userID, sessionID string) (*Info, error) {
	if !sessionIDPattern.MatchString(sessionID) {
		return nil, session.ErrInvalidSessionID
	}

	existing, err := uc.sessions.GetByID(ctx, sessionID)
	if err != nil && !errors.Is(err, session.ErrSessionNotFound) && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if existing != nil && existing.UserID != userID {
		// Ids de sessão são globais; um id de outro usuário é invisível
		return nil, session.ErrSessionAlreadyExists
	}

	other, err := uc.sessions.HasOtherConnected(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if other {
		return nil, session.ErrDuplicateConnected
	}

	if sup, ok := uc.registry.Get(sessionID); ok {
		snapshot, err := sup.State(ctx)
		if err == nil {
			return uc.infoFromSnapshot(snapshot, existing), nil
		}
		// Supervisor encerrando; segue para recriação
	}

	if existing == nil {
		record := session.New(sessionID, userID)
		if err := uc.sessions.Create(ctx, record); err != nil {
			return nil, err
		}
		existing = record
	} else if existing.Status != session.StatusInitializing {
		if err := uc.sessions.UpdateStatus(ctx, sessionID, session.StatusInitializing); err != nil {
			return nil, err
		}
	}

	sup, err := uc.registry.CreateIfAbsent(ctx, sessionID, userID)
	if err != nil {
		uc.logger.WithError(err).WithField("session_id", sessionID).Error().Msg("Failed to start session supervisor")
		if updErr := uc.sessions.UpdateStatus(ctx, sessionID, session.StatusFailed); updErr != nil {
			uc.logger.WithError(updErr).Error().Msg("Failed to mark session failed")
		}
		return nil, err
	}

	snapshot, err := uc.waitForProgress(ctx, sup)
	if err != nil {
		return nil, err
	}
	return uc.infoFromSnapshot(snapshot, existing), nil
}

// waitForProgress espera a sessão sair de initializing: um QR para
// escanear, a reconexão de uma sessão restaurada ou um estado terminal
func (uc *UseCase) waitForProgress(ctx context.Context, sup *infrawa.Supervisor) (infrawa.Snapshot, error) {
	deadline := time.NewTimer(qrPollTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(qrPollInterval)
	defer ticker.Stop()

	for {
		snapshot, err := sup.State(ctx)
		if err != nil {
			return infrawa.Snapshot{}, err
		}
		if snapshot.QRCode != "" || snapshot.Status != session.StatusInitializing {
			return snapshot, nil
		}

		select {
		case <-ticker.C:
		case <-deadline.C:
			return snapshot, nil
		case <-ctx.Done():
			return infrawa.Snapshot{}, ctx.Err()
		}
	}
}

func (uc *UseCase) infoFromSnapshot(snapshot infrawa.Snapshot, record *session.Session) *Info {
	info := &Info{
		SessionID: snapshot.SessionID,
		Status:    string(snapshot.Status),
		Phone:     snapshot.Phone,
	}
	if record != nil {
		info.LastActivity = record.LastActivity
		info.CreatedAt = record.CreatedAt
	}
	if snapshot.QRCode != "" {
		dataURL, err := infrawa.EncodeQRToDataURL(snapshot.QRCode)
		if err != nil {
			uc.logger.WithError(err).Warn().Msg("Failed to encode QR code image")
			dataURL = snapshot.QRCode
		}
		info.QRCode = dataURL
	}
	return info
}

// Get devolve a visão atual de uma sessão do usuário
func (uc *UseCase) Get(ctx context.Context, userID, sessionID string) (*Info, error) {
	record, err := uc.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if sup, ok := uc.registry.Get(sessionID); ok {
		if snapshot, err := sup.State(ctx); err == nil {
			return uc.infoFromSnapshot(snapshot, record), nil
		}
	}

	info := &Info{
		SessionID:    record.ID,
		Status:       string(record.Status),
		Phone:        record.Phone,
		LastActivity: record.LastActivity,
		CreatedAt:    record.CreatedAt,
	}
	if record.QRCode != "" && record.Status == session.StatusQRPending {
		if dataURL, err := infrawa.EncodeQRToDataURL(record.QRCode); err == nil {
			info.QRCode = dataURL
		}
	}
	return info, nil
}

// List devolve todas as sessões do usuário com o estado vivo sobreposto
func (uc *UseCase) List(ctx context.Context, userID string) ([]*Info, error) {
	records, err := uc.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	infos := make([]*Info, 0, len(records))
	for _, record := range records {
		if sup, ok := uc.registry.Get(record.ID); ok {
			if snapshot, err := sup.State(ctx); err == nil {
				infos = append(infos, uc.infoFromSnapshot(snapshot, record))
				continue
			}
		}
		infos = append(infos, &Info{
			SessionID:    record.ID,
			Status:       string(record.Status),
			Phone:        record.Phone,
			LastActivity: record.LastActivity,
			CreatedAt:    record.CreatedAt,
		})
	}
	return infos, nil
}

// Disconnect desloga a sessão, apaga as credenciais locais e remotas,
// desativa as chaves de API e remove a linha da sessão
func (uc *UseCase) Disconnect(ctx context.Context, userID, sessionID string) error {
	if _, err := uc.ownedSession(ctx, userID, sessionID); err != nil {
		return err
	}

	if sup, ok := uc.registry.Get(sessionID); ok {
		if err := sup.Close(ctx, true); err != nil {
			uc.logger.WithError(err).WithField("session_id", sessionID).Warn().Msg("Failed to close supervisor")
		}
	} else {
		// Sem supervisor vivo ainda há credenciais em disco e no bucket
		if err := uc.storage.Delete(ctx, sessionID); err != nil {
			uc.logger.WithError(err).WithField("session_id", sessionID).Warn().Msg("Failed to delete session credentials")
		}
	}

	if err := uc.apiKeys.DeactivateBySession(ctx, sessionID); err != nil {
		uc.logger.WithError(err).Warn().Msg("Failed to deactivate session API keys")
	}

	return uc.sessions.Delete(ctx, sessionID)
}

// StrengthenReport estende o relatório do supervisor com a pontuação
type StrengthenReport struct {
	infrawa.StrengthenReport
	Score int `json:"score"`
}

// Strengthen executa as atividades de fortalecimento da conta e
// registra as métricas acumuladas
func (uc *UseCase) Strengthen(ctx context.Context, userID, sessionID string) (*StrengthenReport, error) {
	if _, err := uc.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	sup, ok := uc.registry.Get(sessionID)
	if !ok {
		return nil, session.ErrSessionNotFound
	}

	report, err := sup.Strengthen(ctx)
	if err != nil {
		return nil, err
	}

	fetches := 0
	if report.ProfileFetched {
		fetches = 1
	}
	if err := uc.strength.RecordActivity(ctx, userID, sessionID, fetches, report.MessagesRead, report.ContactsSynced); err != nil {
		uc.logger.WithError(err).Warn().Msg("Failed to record strength metrics")
	}

	record, err := uc.strength.GetOrCreate(ctx, userID, sessionID)
	result := &StrengthenReport{StrengthenReport: report}
	if err == nil {
		result.Score = record.StrengthScore
	}
	return result, nil
}

// Strength devolve as métricas acumuladas de fortalecimento da sessão
func (uc *UseCase) Strength(ctx context.Context, userID, sessionID string) (*msglog.AccountStrength, error) {
	if _, err := uc.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return uc.strength.GetOrCreate(ctx, userID, sessionID)
}

// ConnectionEvents lista o histórico de conexão da sessão
func (uc *UseCase) ConnectionEvents(ctx context.Context, userID, sessionID string, limit int) ([]*msglog.ConnectionEvent, error) {
	if _, err := uc.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return uc.events.ListBySession(ctx, sessionID, limit)
}

// ownedSession carrega a sessão garantindo a posse pelo usuário.
// Sessões de outros usuários são indistinguíveis de inexistentes.
func (uc *UseCase) ownedSession(ctx context.Context, userID, sessionID string) (*session.Session, error) {
	record, err := uc.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrSessionNotFound
		}
		return nil, err
	}
	if record.UserID != userID {
		return nil, session.ErrSessionNotFound
	}
	return record, nil
}
