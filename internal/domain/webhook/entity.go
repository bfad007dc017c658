package webhook

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Type representa o tipo de inscrição de um webhook
type Type string

const (
	TypeOTP              Type = "otp"
	TypeAnnouncement     Type = "announcement"
	TypeIncomingText     Type = "incoming_text"
	TypeIncomingMedia    Type = "incoming_media"
	TypeIncomingLocation Type = "incoming_location"
	TypeIncomingMessage  Type = "incoming_message"
	TypeDelivered        Type = "message_delivered"
	TypeRead             Type = "message_read"
	TypeAll              Type = "all"
)

// ValidTypes lista os tipos aceitos na criação de webhooks
func ValidTypes() []Type {
	return []Type{
		TypeOTP, TypeAnnouncement,
		TypeIncomingText, TypeIncomingMedia, TypeIncomingLocation, TypeIncomingMessage,
		TypeDelivered, TypeRead, TypeAll,
	}
}

// IsValid verifica se o tipo é aceito
func (t Type) IsValid() bool {
	for _, v := range ValidTypes() {
		if t == v {
			return true
		}
	}
	return false
}

// Valores padrão da política de retry
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 5 * time.Second
	RequestTimeout     = 10 * time.Second
)

// Webhook é a inscrição de um (usuário, sessão, tipo) em eventos.
// A tripla (user_id, session_id, type) é única.
type Webhook struct {
	bun.BaseModel `bun:"table:webhooks,alias:wh"`

	ID            uuid.UUID         `bun:"id,pk,type:uuid" json:"id"`
	UserID        string            `bun:"user_id,type:varchar(100),notnull" json:"userId"`
	SessionID     string            `bun:"session_id,type:varchar(100),notnull" json:"sessionId"`
	Type          Type              `bun:"type,type:varchar(30),notnull" json:"type"`
	URL           string            `bun:"url,type:text,notnull" json:"url"`
	SuccessURL    string            `bun:"success_url,type:text" json:"successUrl,omitempty"`
	FailureURL    string            `bun:"failure_url,type:text" json:"failureUrl,omitempty"`
	CustomPayload map[string]any    `bun:"custom_payload,type:jsonb" json:"customPayload,omitempty"`
	Headers       map[string]string `bun:"headers,type:jsonb" json:"headers,omitempty"`
	RetryOnFail   bool              `bun:"retry_on_failure,type:boolean,notnull,default:true" json:"retryOnFailure"`
	MaxAttempts   int               `bun:"max_attempts,type:int,notnull,default:3" json:"maxAttempts"`
	RetryDelaySec int               `bun:"retry_delay_sec,type:int,notnull,default:5" json:"retryDelaySec"`
	IsActive      bool              `bun:"is_active,type:boolean,notnull,default:true" json:"isActive"`
	TotalCalls    int64             `bun:"total_calls,type:bigint,notnull,default:0" json:"totalCalls"`
	SuccessCalls  int64             `bun:"success_calls,type:bigint,notnull,default:0" json:"successCalls"`
	FailedCalls   int64             `bun:"failed_calls,type:bigint,notnull,default:0" json:"failedCalls"`
	LastCalledAt  *time.Time        `bun:"last_called_at,type:timestamptz" json:"lastCalledAt,omitempty"`
	LastSuccessAt *time.Time        `bun:"last_success_at,type:timestamptz" json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time        `bun:"last_failure_at,type:timestamptz" json:"lastFailureAt,omitempty"`
	CreatedAt     time.Time         `bun:"created_at,type:timestamptz,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time         `bun:"updated_at,type:timestamptz,notnull,default:current_timestamp" json:"updatedAt"`
}

// Attempts devolve o número efetivo de tentativas de entrega
func (w *Webhook) Attempts() int {
	if !w.RetryOnFail {
		return 1
	}
	if w.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return w.MaxAttempts
}

// RetryDelay devolve o intervalo efetivo entre tentativas
func (w *Webhook) RetryDelay() time.Duration {
	if w.RetryDelaySec <= 0 {
		return DefaultRetryDelay
	}
	return time.Duration(w.RetryDelaySec) * time.Second
}

// TargetURL escolhe a URL de entrega a partir do resultado do evento.
// Override de sucesso/falha quando configurado, senão a URL primária.
func (w *Webhook) TargetURL(success *bool) string {
	if success != nil {
		if *success && w.SuccessURL != "" {
			return w.SuccessURL
		}
		if !*success && w.FailureURL != "" {
			return w.FailureURL
		}
	}
	return w.URL
}

// WebhookLog registra uma tentativa de entrega
type WebhookLog struct {
	bun.BaseModel `bun:"table:webhook_logs,alias:whl"`

	ID           uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	WebhookID    uuid.UUID      `bun:"webhook_id,type:uuid,notnull" json:"webhookId"`
	EventType    string         `bun:"event_type,type:varchar(30),notnull" json:"eventType"`
	Payload      map[string]any `bun:"payload,type:jsonb" json:"payload,omitempty"`
	StatusCode   int            `bun:"status_code,type:int" json:"statusCode,omitempty"`
	ResponseBody string         `bun:"response_body,type:text" json:"responseBody,omitempty"`
	Success      bool           `bun:"success,type:boolean,notnull" json:"success"`
	ErrorMessage string         `bun:"error_message,type:text" json:"errorMessage,omitempty"`
	Attempt      int            `bun:"attempt,type:int,notnull" json:"attempt"`
	WillRetry    bool           `bun:"will_retry,type:boolean,notnull" json:"willRetry"`
	CreatedAt    time.Time      `bun:"created_at,type:timestamptz,notnull,default:current_timestamp" json:"createdAt"`
}
