package session

import "context"

// Repository define as operações de persistência para sessões
type Repository interface {
	// Create insere uma nova sessão
	Create(ctx context.Context, s *Session) error

	// GetByID busca uma sessão pelo identificador
	GetByID(ctx context.Context, id string) (*Session, error)

	// ListByUser lista as sessões de um usuário
	ListByUser(ctx context.Context, userID string) ([]*Session, error)

	// ListByStatus lista sessões em um determinado status
	ListByStatus(ctx context.Context, status Status) ([]*Session, error)

	// Update persiste o estado atual da sessão
	Update(ctx context.Context, s *Session) error

	// UpdateStatus aplica apenas uma transição de status
	UpdateStatus(ctx context.Context, id string, status Status) error

	// SetQRCode grava o último QR emitido e marca qr_pending
	SetQRCode(ctx context.Context, id, code string) error

	// MarkReady grava telefone, limpa QR e carimba last_activity
	MarkReady(ctx context.Context, id, phone string) error

	// TouchActivity atualiza last_activity da sessão
	TouchActivity(ctx context.Context, id string) error

	// DisconnectOthers força para disconnected as demais sessões
	// conectadas do usuário, preservando a sessão informada
	DisconnectOthers(ctx context.Context, userID, keepSessionID string) (int, error)

	// CountConnectedByUser conta as sessões conectadas do usuário
	CountConnectedByUser(ctx context.Context, userID string) (int, error)

	// HasOtherConnected verifica se o usuário possui outra sessão conectada
	HasOtherConnected(ctx context.Context, userID, exceptSessionID string) (bool, error)

	// Delete remove a sessão
	Delete(ctx context.Context, id string) error
}
