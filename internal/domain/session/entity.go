package session

import (
	"time"

	"github.com/uptrace/bun"
)

// Status representa o status de uma sessão WhatsApp
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusQRPending    Status = "qr_pending"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusFailed       Status = "failed"
)

// IsTerminal verifica se o status encerra o supervisor da sessão
func (s Status) IsTerminal() bool {
	return s == StatusDisconnected || s == StatusFailed
}

// Session representa uma sessão do WhatsApp vinculada a um usuário
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID           string     `bun:"id,pk,type:varchar(100)" json:"id"`
	UserID       string     `bun:"user_id,type:varchar(100),notnull" json:"userId"`
	Phone        string     `bun:"phone,type:varchar(32)" json:"phone,omitempty"`
	Status       Status     `bun:"status,type:varchar(20),notnull" json:"status"`
	QRCode       string     `bun:"qr_code,type:text" json:"qrCode,omitempty"`
	LastActivity *time.Time `bun:"last_activity,type:timestamptz" json:"lastActivity,omitempty"`
	CreatedAt    time.Time  `bun:"created_at,type:timestamptz,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt    time.Time  `bun:"updated_at,type:timestamptz,notnull,default:current_timestamp" json:"updatedAt"`
}

// New cria uma sessão no estado inicial
func New(id, userID string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		UserID:    userID,
		Status:    StatusInitializing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsConnected verifica se a sessão está conectada
func (s *Session) IsConnected() bool {
	return s.Status == StatusConnected
}

// SetStatus aplica uma transição de status
func (s *Session) SetStatus(status Status) {
	s.Status = status
	s.UpdatedAt = time.Now()
}

// SetQRCode registra o último payload de QR emitido
func (s *Session) SetQRCode(code string) {
	s.QRCode = code
	s.Status = StatusQRPending
	s.UpdatedAt = time.Now()
}

// SetReady marca a sessão como conectada com a identidade autenticada
func (s *Session) SetReady(phone string) {
	now := time.Now()
	s.Status = StatusConnected
	s.Phone = phone
	s.QRCode = ""
	s.LastActivity = &now
	s.UpdatedAt = now
}

// TouchActivity atualiza o carimbo de última atividade
func (s *Session) TouchActivity() {
	now := time.Now()
	s.LastActivity = &now
	s.UpdatedAt = now
}
