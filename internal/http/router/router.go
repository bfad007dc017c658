package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"wasgate/internal/app/config"
	"wasgate/internal/domain/apikey"
	"wasgate/internal/http/handlers"
	appMiddleware "wasgate/internal/http/middleware"
	"wasgate/pkg/logger"
)

// Router representa o roteador principal da aplicação
type Router struct {
	*chi.Mux
	config *config.Config
	logger logger.Logger

	healthHandler       *handlers.HealthHandler
	sessionHandler      *handlers.SessionHandler
	messageHandler      *handlers.MessageHandler
	walletHandler       *handlers.WalletHandler
	webhookHandler      *handlers.WebhookHandler
	subscriptionHandler *handlers.SubscriptionHandler
	settingsHandler     *handlers.SettingsHandler
	strengthHandler     *handlers.StrengthHandler
	v1Handler           *handlers.V1Handler
	apiKeys             apikey.Repository
}

// New cria uma nova instância do router
func New(
	cfg *config.Config,
	log logger.Logger,
	healthHandler *handlers.HealthHandler,
	sessionHandler *handlers.SessionHandler,
	messageHandler *handlers.MessageHandler,
	walletHandler *handlers.WalletHandler,
	webhookHandler *handlers.WebhookHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	settingsHandler *handlers.SettingsHandler,
	strengthHandler *handlers.StrengthHandler,
	v1Handler *handlers.V1Handler,
	apiKeys apikey.Repository,
) *Router {
	r := &Router{
		Mux:                 chi.NewRouter(),
		config:              cfg,
		logger:              log.WithComponent("router"),
		healthHandler:       healthHandler,
		sessionHandler:      sessionHandler,
		messageHandler:      messageHandler,
		walletHandler:       walletHandler,
		webhookHandler:      webhookHandler,
		subscriptionHandler: subscriptionHandler,
		settingsHandler:     settingsHandler,
		strengthHandler:     strengthHandler,
		v1Handler:           v1Handler,
		apiKeys:             apiKeys,
	}

	r.setupMiddlewares()
	r.setupRoutes()

	return r
}

// setupMiddlewares configura os middlewares globais
func (r *Router) setupMiddlewares() {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Use(appMiddleware.NewCORS())
	r.Use(appMiddleware.NewLoggingMiddleware(r.logger))
	r.Use(appMiddleware.NewRecoveryMiddleware(r.logger))
	r.Use(appMiddleware.NewRateLimit(r.config.RateLimit.Requests, r.config.RateLimit.Window))
}

// setupRoutes configura as rotas da aplicação
func (r *Router) setupRoutes() {
	r.Get("/health", r.healthHandler.Health)

	// Família do painel, com o usuário no corpo ou no caminho
	r.Route("/api", func(api chi.Router) {
		api.Route("/whatsapp", func(rt chi.Router) {
			rt.Post("/connect", r.sessionHandler.Connect)
			rt.Get("/sessions", r.sessionHandler.List)
			rt.Get("/session/{sessionID}", r.sessionHandler.Get)
			rt.Post("/disconnect/{sessionID}", r.sessionHandler.Disconnect)

			rt.Post("/send-otp", r.messageHandler.SendOTP)
			rt.Post("/send-announcement", r.messageHandler.SendAnnouncement)
			rt.Post("/test-message", r.messageHandler.TestMessage)
		})

		api.Route("/wallet", func(rt chi.Router) {
			rt.Get("/balance/{userID}", r.walletHandler.Balance)
			rt.Get("/transactions/{userID}", r.walletHandler.Transactions)
			rt.Post("/topup", r.walletHandler.TopUp)
		})

		api.Route("/webhooks/{userID}", func(rt chi.Router) {
			rt.Get("/", r.webhookHandler.List)
			rt.Post("/", r.webhookHandler.Create)
			rt.Put("/{webhookID}", r.webhookHandler.Update)
			rt.Delete("/{webhookID}", r.webhookHandler.Delete)
			rt.Get("/{webhookID}/logs", r.webhookHandler.Logs)
			rt.Post("/{webhookID}/test", r.webhookHandler.Test)
		})

		api.Route("/subscriptions", func(rt chi.Router) {
			rt.Get("/tiers", r.subscriptionHandler.Tiers)
			rt.Get("/{userID}", r.subscriptionHandler.Get)
			rt.Post("/", r.subscriptionHandler.Create)
		})

		api.Route("/settings", func(rt chi.Router) {
			rt.Get("/{userID}", r.settingsHandler.Get)
			rt.Put("/{userID}", r.settingsHandler.Update)
		})

		api.Route("/account-strength/{userID}/{sessionID}", func(rt chi.Router) {
			rt.Get("/", r.strengthHandler.Get)
			rt.Get("/logs", r.strengthHandler.Logs)
			rt.Post("/strengthen-comprehensive", r.strengthHandler.Strengthen)
		})

		// Família programática, autenticada por chave de API
		api.Route("/v1", func(rt chi.Router) {
			rt.Use(appMiddleware.NewAPIKeyAuth(r.apiKeys, r.logger))

			rt.Get("/auth/info", r.v1Handler.AuthInfo)
			rt.Get("/session/status", r.v1Handler.SessionStatus)
			rt.Get("/wallet/balance", r.v1Handler.WalletBalance)
			rt.Get("/wallet/transactions", r.v1Handler.WalletTransactions)
			rt.Post("/messages/send", r.v1Handler.Send)
			rt.Post("/messages/send-bulk", r.v1Handler.SendBulk)
			rt.Post("/otp/send", r.v1Handler.SendOTP)
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"Endpoint not found","error":{"code":"NOT_FOUND"}}`))
	})
}
