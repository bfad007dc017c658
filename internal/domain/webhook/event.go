package webhook

import "time"

// Nomes de eventos produzidos pelo gateway
const (
	EventOTPSent          = "otp_sent"
	EventOTPFailed        = "otp_failed"
	EventAnnouncementSent = "announcement_sent"
	EventMessageReceived  = "message_received"
	EventDelivered        = "message_delivered"
	EventRead             = "message_read"
)

// Event é um evento do gateway pronto para fan-out
type Event struct {
	UserID    string
	SessionID string
	// Name é o nome do evento gravado no payload (campo event)
	Name string
	// Types são os tipos de inscrição que recebem o evento. Mensagens
	// recebidas carregam o tipo específico e o genérico incoming_message;
	// a seleção sempre inclui "all".
	Types []Type
	// Success direciona a escolha entre success_url e failure_url quando presente
	Success *bool
	// Fields são os campos específicos do evento, mesclados no payload base
	Fields    map[string]any
	Timestamp time.Time
}

// IncomingTypes devolve os tipos de inscrição de uma mensagem recebida:
// o específico do conteúdo mais o genérico incoming_message
func IncomingTypes(messageType string) []Type {
	var specific Type
	switch messageType {
	case "media":
		specific = TypeIncomingMedia
	case "location":
		specific = TypeIncomingLocation
	default:
		specific = TypeIncomingText
	}
	return []Type{specific, TypeIncomingMessage}
}
