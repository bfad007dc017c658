package msglog

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SendType classifica a origem de um envio
type SendType string

const (
	SendOTP           SendType = "otp"
	SendAnnouncement  SendType = "announcement"
	SendAPIMessage    SendType = "api_message"
	SendStrengthening SendType = "strengthening"
)

// SendStatus é o desfecho registrado de um envio
type SendStatus string

const (
	StatusSent    SendStatus = "sent"
	StatusFailed  SendStatus = "failed"
	StatusPartial SendStatus = "partial"
)

// AutomationLog é o registro append-only de uma tentativa de envio.
// Serve de auditoria e de fonte para contagem de rate limit.
type AutomationLog struct {
	bun.BaseModel `bun:"table:automation_logs,alias:al"`

	ID         uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	UserID     string     `bun:"user_id,type:varchar(100),notnull" json:"userId"`
	SessionID  string     `bun:"session_id,type:varchar(100),notnull" json:"sessionId"`
	Type       SendType   `bun:"type,type:varchar(20),notnull" json:"type"`
	Recipient  string     `bun:"recipient,type:varchar(32)" json:"recipient,omitempty"`
	Recipients []string   `bun:"recipients,type:jsonb" json:"recipients,omitempty"`
	Message    string     `bun:"message,type:text" json:"message,omitempty"`
	Status     SendStatus `bun:"status,type:varchar(10),notnull" json:"status"`
	// ErrorMessage guarda o erro do envio; para bulk, uma lista JSON por destinatário
	ErrorMessage string    `bun:"error_message,type:text" json:"errorMessage,omitempty"`
	SentCount    int       `bun:"sent_count,type:int,notnull,default:0" json:"sentCount"`
	FailedCount  int       `bun:"failed_count,type:int,notnull,default:0" json:"failedCount"`
	CreatedAt    time.Time `bun:"created_at,type:timestamptz,notnull,default:current_timestamp" json:"createdAt"`
}

// DeliveryStatus é o estágio de entrega de uma mensagem enviada
type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
)

// DeliveryTracking acompanha os recibos de uma mensagem enviada
type DeliveryTracking struct {
	bun.BaseModel `bun:"table:message_delivery_tracking,alias:mdt"`

	ID          uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	MessageID   string         `bun:"message_id,type:varchar(100),notnull,unique" json:"messageId"`
	UserID      string         `bun:"user_id,type:varchar(100),notnull" json:"userId"`
	SessionID   string         `bun:"session_id,type:varchar(100),notnull" json:"sessionId"`
	Recipient   string         `bun:"recipient,type:varchar(32),notnull" json:"recipient"`
	Status      DeliveryStatus `bun:"status,type:varchar(10),notnull" json:"status"`
	DeliveredAt *time.Time     `bun:"delivered_at,type:timestamptz" json:"deliveredAt,omitempty"`
	ReadAt      *time.Time     `bun:"read_at,type:timestamptz" json:"readAt,omitempty"`
	CreatedAt   time.Time      `bun:"created_at,type:timestamptz,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time      `bun:"updated_at,type:timestamptz,notnull,default:current_timestamp" json:"updatedAt"`
}

// ConnectionEventType classifica um evento de conexão da sessão
type ConnectionEventType string

const (
	ConnEventConnected    ConnectionEventType = "connected"
	ConnEventDisconnected ConnectionEventType = "disconnected"
	ConnEventReconnecting ConnectionEventType = "reconnecting"
	ConnEventError        ConnectionEventType = "error"
)

// ConnectionEvent registra uma transição relevante da sessão
type ConnectionEvent struct {
	bun.BaseModel `bun:"table:connection_events,alias:ce"`

	ID        uuid.UUID           `bun:"id,pk,type:uuid" json:"id"`
	SessionID string              `bun:"session_id,type:varchar(100),notnull" json:"sessionId"`
	UserID    string              `bun:"user_id,type:varchar(100),notnull" json:"userId"`
	Type      ConnectionEventType `bun:"type,type:varchar(20),notnull" json:"type"`
	Details   map[string]any      `bun:"details,type:jsonb" json:"details,omitempty"`
	CreatedAt time.Time           `bun:"created_at,type:timestamptz,notnull,default:current_timestamp" json:"createdAt"`
}

// AccountStrength acumula métricas de atividade saudável da conta
type AccountStrength struct {
	bun.BaseModel `bun:"table:account_strength,alias:as"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	UserID         string     `bun:"user_id,type:varchar(100),notnull" json:"userId"`
	SessionID      string     `bun:"session_id,type:varchar(100),notnull" json:"sessionId"`
	StrengthScore  int        `bun:"strength_score,type:int,notnull,default:0" json:"strengthScore"`
	ProfileFetches int64      `bun:"profile_fetches,type:bigint,notnull,default:0" json:"profileFetches"`
	MessagesRead   int64      `bun:"messages_read,type:bigint,notnull,default:0" json:"messagesRead"`
	ContactsSynced int64      `bun:"contacts_synced,type:bigint,notnull,default:0" json:"contactsSynced"`
	LastActivityAt *time.Time `bun:"last_activity_at,type:timestamptz" json:"lastActivityAt,omitempty"`
	CreatedAt      time.Time  `bun:"created_at,type:timestamptz,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time  `bun:"updated_at,type:timestamptz,notnull,default:current_timestamp" json:"updatedAt"`
}
