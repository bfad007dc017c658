package app

import (
	"context"

	"github.com/uptrace/bun"

	"wasgate/internal/app/config"
	"wasgate/internal/domain/apikey"
	"wasgate/internal/domain/billing"
	"wasgate/internal/domain/msglog"
	"wasgate/internal/domain/session"
	"wasgate/internal/domain/webhook"
	wa "wasgate/internal/domain/whatsapp"
	"wasgate/internal/http/handlers"
	"wasgate/internal/infra/database"
	"wasgate/internal/infra/storage"
	infrawa "wasgate/internal/infra/whatsapp"
	"wasgate/internal/usecases/admission"
	billingUC "wasgate/internal/usecases/billing"
	"wasgate/internal/usecases/fanout"
	"wasgate/internal/usecases/send"
	"wasgate/internal/usecases/sessions"
	"wasgate/internal/usecases/webhooks"
	"wasgate/pkg/logger"
)

// Container gerencia todas as dependências da aplicação
type Container struct {
	DB *bun.DB

	// Repositories
	SessionRepo   session.Repository
	APIKeyRepo    apikey.Repository
	WalletRepo    billing.WalletRepository
	SubRepo       billing.SubscriptionRepository
	RateLimitRepo billing.RateLimitRepository
	WebhookRepo   webhook.Repository
	AutoLogRepo   msglog.AutomationLogRepository
	DeliveryRepo  msglog.DeliveryRepository
	ConnEventRepo msglog.ConnectionEventRepository
	StrengthRepo  msglog.StrengthRepository

	// Infra
	ObjectStore    *storage.ObjectStore
	SessionStorage *storage.SessionStorage
	Registry       *infrawa.Registry
	Reconciler     *infrawa.Reconciler
	Fanout         *fanout.Engine

	// Use cases
	Pipeline   *admission.Pipeline
	SessionsUC *sessions.UseCase
	BillingUC  *billingUC.UseCase
	WebhooksUC *webhooks.UseCase

	// Handlers
	HealthHandler       *handlers.HealthHandler
	SessionHandler      *handlers.SessionHandler
	MessageHandler      *handlers.MessageHandler
	WalletHandler       *handlers.WalletHandler
	WebhookHandler      *handlers.WebhookHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	SettingsHandler     *handlers.SettingsHandler
	StrengthHandler     *handlers.StrengthHandler
	V1Handler           *handlers.V1Handler

	Logger logger.Logger
}

// registryControl adapta o registro de supervisores à visão do pipeline
type registryControl struct {
	registry *infrawa.Registry
}

func (c registryControl) Get(sessionID string) (admission.SessionHandle, bool) {
	sup, ok := c.registry.Get(sessionID)
	if !ok {
		return nil, false
	}
	return sup, true
}

func (c registryControl) CreateIfAbsent(ctx context.Context, sessionID, userID string) (admission.SessionHandle, error) {
	sup, err := c.registry.CreateIfAbsent(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return sup, nil
}

// NewContainer cria e liga todas as dependências da aplicação
func NewContainer(cfg *config.Config, db *bun.DB, log logger.Logger) (*Container, error) {
	c := &Container{
		DB:     db,
		Logger: log.WithComponent("di-container"),
	}

	c.initRepositories()

	if err := c.initInfra(cfg, log); err != nil {
		return nil, err
	}

	c.initUseCases(cfg, log)
	c.initHandlers(log)

	c.Logger.Info().Msg("Container initialized successfully")
	return c, nil
}

func (c *Container) initRepositories() {
	c.SessionRepo = database.NewSessionRepository(c.DB)
	c.APIKeyRepo = database.NewAPIKeyRepository(c.DB)
	c.WalletRepo = database.NewWalletRepository(c.DB)
	c.SubRepo = database.NewSubscriptionRepository(c.DB)
	c.RateLimitRepo = database.NewRateLimitRepository(c.DB)
	c.WebhookRepo = database.NewWebhookRepository(c.DB)
	c.AutoLogRepo = database.NewAutomationLogRepository(c.DB)
	c.DeliveryRepo = database.NewDeliveryRepository(c.DB)
	c.ConnEventRepo = database.NewConnectionEventRepository(c.DB)
	c.StrengthRepo = database.NewStrengthRepository(c.DB)
}

func (c *Container) initInfra(cfg *config.Config, log logger.Logger) error {
	store, err := storage.NewObjectStore(storage.Options{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
	}, log)
	if err != nil {
		return err
	}
	c.ObjectStore = store
	c.SessionStorage = storage.NewSessionStorage(store, cfg.WhatsApp.SessionsDir, log)

	c.Fanout = fanout.NewEngine(c.WebhookRepo, cfg.Webhook.Workers, cfg.Webhook.QueueSize, log)

	c.Registry = infrawa.NewRegistry(infrawa.SupervisorDeps{
		Sessions:   c.SessionRepo,
		APIKeys:    c.APIKeyRepo,
		Subs:       c.SubRepo,
		ConnEvents: c.ConnEventRepo,
		Delivery:   c.DeliveryRepo,
		Storage:    c.SessionStorage,
		Emitter:    c.Fanout,
		NewWorker: func(ctx context.Context, opts infrawa.WorkerOptions) (wa.Worker, error) {
			return infrawa.NewWorker(ctx, opts, log)
		},
		PrintQR: cfg.WhatsApp.PrintQRCodes,
		Logger:  log,
	}, log)

	c.Reconciler = infrawa.NewReconciler(c.SessionRepo, c.Registry, log)
	return nil
}

func (c *Container) initUseCases(cfg *config.Config, log logger.Logger) {
	executor := send.NewExecutor(c.AutoLogRepo, log)

	c.Pipeline = admission.NewPipeline(
		registryControl{registry: c.Registry},
		c.SessionRepo,
		c.WalletRepo,
		c.SubRepo,
		c.RateLimitRepo,
		c.AutoLogRepo,
		executor,
		c.Fanout,
		cfg.Billing.MessageCost,
		log,
	)

	c.SessionsUC = sessions.NewUseCase(
		c.SessionRepo,
		c.APIKeyRepo,
		c.StrengthRepo,
		c.ConnEventRepo,
		c.SessionStorage,
		c.Registry,
		log,
	)

	c.BillingUC = billingUC.NewUseCase(c.WalletRepo, c.SubRepo, c.RateLimitRepo, log)
	c.WebhooksUC = webhooks.NewUseCase(c.WebhookRepo, c.Fanout, log)
}

func (c *Container) initHandlers(log logger.Logger) {
	c.HealthHandler = handlers.NewHealthHandler(c.DB)
	c.SessionHandler = handlers.NewSessionHandler(c.SessionsUC, log)
	c.MessageHandler = handlers.NewMessageHandler(c.Pipeline, log)
	c.WalletHandler = handlers.NewWalletHandler(c.BillingUC, log)
	c.WebhookHandler = handlers.NewWebhookHandler(c.WebhooksUC, log)
	c.SubscriptionHandler = handlers.NewSubscriptionHandler(c.BillingUC, log)
	c.SettingsHandler = handlers.NewSettingsHandler(c.BillingUC, log)
	c.StrengthHandler = handlers.NewStrengthHandler(c.SessionsUC, log)
	c.V1Handler = handlers.NewV1Handler(c.Pipeline, c.SessionsUC, c.BillingUC, log)
}

// Close encerra o container e todos os seus recursos
func (c *Container) Close(ctx context.Context) error {
	c.Logger.Info().Msg("Closing container")

	if c.Registry != nil {
		c.Registry.CloseAll(ctx)
	}
	if c.Fanout != nil {
		c.Fanout.Close()
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.WithError(err).Error().Msg("Failed to close database")
			return err
		}
	}

	c.Logger.Info().Msg("Container closed successfully")
	return nil
}
