package whatsapp

import "time"

// Event é um evento emitido pelo worker de uma sessão
type Event interface {
	isEvent()
}

// QREvent carrega um novo payload de QR para pareamento
type QREvent struct {
	Code string
}

// AuthenticatedEvent indica pareamento concluído, antes da conexão ficar pronta
type AuthenticatedEvent struct{}

// ReadyEvent indica worker autenticado e conectado
type ReadyEvent struct {
	Phone string
}

// AuthFailureEvent indica falha definitiva de autenticação
type AuthFailureEvent struct {
	Reason string
}

// DisconnectedEvent indica queda ou logout da conexão
type DisconnectedEvent struct {
	Reason string
	// LoggedOut distingue logout remoto de uma queda de rede
	LoggedOut bool
}

// MessageKind classifica uma mensagem recebida
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindMedia    MessageKind = "media"
	KindLocation MessageKind = "location"
)

// MessageEvent é uma mensagem recebida pelo worker
type MessageEvent struct {
	MessageID string
	ChatJID   string
	// From é o telefone do remetente em dígitos
	From      string
	Kind      MessageKind
	Text      string
	Timestamp time.Time
	// Broadcast marca mensagens de status@broadcast, descartadas no fan-out
	Broadcast bool
}

// ReceiptKind classifica um recibo de entrega
type ReceiptKind string

const (
	ReceiptDelivered ReceiptKind = "delivered"
	ReceiptRead      ReceiptKind = "read"
)

// ReceiptEvent é um recibo de entrega ou leitura de mensagens enviadas
type ReceiptEvent struct {
	MessageIDs []string
	Kind       ReceiptKind
	Timestamp  time.Time
}

func (QREvent) isEvent()            {}
func (AuthenticatedEvent) isEvent() {}
func (ReadyEvent) isEvent()         {}
func (AuthFailureEvent) isEvent()   {}
func (DisconnectedEvent) isEvent()  {}
func (MessageEvent) isEvent()       {}
func (ReceiptEvent) isEvent()       {}
