package whatsapp

import "context"

// Worker é o adaptador opaco sobre o cliente WhatsApp de uma sessão.
// Uma instância atende exatamente uma sessão e é de uso exclusivo do supervisor.
type Worker interface {
	// Init inicia a conexão em segundo plano. Eventos de ciclo de vida
	// chegam pelo canal Events a partir desta chamada.
	Init(ctx context.Context) error

	// Events é o canal de eventos do worker, fechado no encerramento.
	// Os eventos são entregues na ordem em que ocorrem.
	Events() <-chan Event

	// IsReady informa se o worker está autenticado e com a conexão viva
	IsReady() bool

	// Identity devolve o telefone autenticado, vazio antes de ready
	Identity() string

	// ResolveRecipient resolve um telefone normalizado para o chat id interno.
	// Retorna ErrRecipientNotFound quando o número não existe no WhatsApp.
	ResolveRecipient(ctx context.Context, phone string) (string, error)

	// SendText envia texto para um chat id resolvido e devolve o id da mensagem
	SendText(ctx context.Context, chatID, text string) (string, error)

	// Atividades inofensivas usadas pelo fortalecimento de conta
	FetchOwnProfile(ctx context.Context) error
	SendPresence(ctx context.Context) error
	MarkRecentRead(ctx context.Context, limit int) (int, error)
	SyncContacts(ctx context.Context) (int, error)

	// Logout encerra a sessão no servidor, invalidando a autenticação
	Logout(ctx context.Context) error

	// Close derruba a conexão e libera o worker. Idempotente.
	Close() error
}
