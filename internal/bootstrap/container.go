package bootstrap

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"doc-assistant-be/internal/config"
	"doc-assistant-be/internal/constant"
	"doc-assistant-be/internal/controller"
	"doc-assistant-be/internal/handler"
	"doc-assistant-be/internal/model"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/internal/pkg/mailer"
	"doc-assistant-be/internal/repository/contract"
	"doc-assistant-be/internal/repository/filesystem"
	"doc-assistant-be/internal/repository/implementation"
	"doc-assistant-be/internal/repository/memory"
	"doc-assistant-be/internal/repository/redisrepo"
	"doc-assistant-be/internal/service"
	internalWS "doc-assistant-be/internal/websocket"
	"doc-assistant-be/pkg/database"
	"doc-assistant-be/pkg/delivery"
	"doc-assistant-be/pkg/events"
	"doc-assistant-be/pkg/nlp/disambiguation"
	nlpEntity "doc-assistant-be/pkg/nlp/entity"
	"doc-assistant-be/pkg/nlp/intent"
	"doc-assistant-be/pkg/render"

	pktNats "doc-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	HealthController    controller.IHealthController
	AssistantController controller.IAssistantController
	AdminController     controller.IAdminController
	DeliveryHandler     *handler.DeliveryHandler

	// Services, exposed for the CLI tools
	AssistantService service.IAssistantService
	ContextService   service.IContextService
	DocumentService  service.IDocumentService
	// InboxPath is where the transport must drop attachments before ingestion.
	InboxPath string

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	ReaperService   service.IReaperService
	AuditService    *service.AuditService
	// Hub is nil unless the websocket delivery channel is enabled.
	WebSocketHub *internalWS.Hub

	Logger *logger.ZapLogger

	rdb     *redis.Client
	closers []func()
}

// Options lets callers replace infrastructure that the config would build.
type Options struct {
	// Sender receives exported artifacts. Defaults to the configured channels.
	Sender delivery.Sender
	// DisableNats skips the lifecycle event bus entirely.
	DisableNats bool
	Logger      *logger.ZapLogger
}

func NewContainer(cfg *config.Config, opts Options) (_ *Container, err error) {
	// 1. Core Facades
	sysLogger := opts.Logger
	if sysLogger == nil {
		sysLogger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	}
	c := &Container{Logger: sysLogger}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	// 2. Storage
	sessionRepo, err := c.newSessionRepository(cfg)
	if err != nil {
		return nil, err
	}
	documentRepo, err := c.newDocumentRepository(cfg)
	if err != nil {
		return nil, err
	}

	files, err := filesystem.NewFileStore(cfg.Storage.Path, cfg.Storage.MaxAttachmentBytes, sysLogger)
	if err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	renderer, err := render.NewTextRenderer(filepath.Join(cfg.Storage.Path, "exports"), nlpEntity.SupportedFormats...)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}

	// 3. Event Buses
	// NATS carries lifecycle events; an unreachable server only disables them.
	var eventPublisher events.Publisher
	var eventSubscriber service.EventSubscriber
	if !opts.DisableNats {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			eventSubscriber = natsSub
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// In-process hand-off of exported artifacts to delivery.
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	sender := opts.Sender
	if sender == nil {
		if sender, err = c.newSender(cfg); err != nil {
			return nil, err
		}
	}

	// 4. NLP
	table, err := c.loadPatternTable(cfg)
	if err != nil {
		return nil, err
	}
	classifier := intent.NewClassifier(table)
	extractor := nlpEntity.NewExtractor(nlpEntity.Options{
		DefaultDocumentType: cfg.Nlp.DefaultDocumentType,
		DefaultSection:      cfg.Nlp.DefaultSection,
	})
	policy := disambiguation.NewPolicy(extractor.DefaultSection())

	c.InboxPath = files.InboxPath()

	// 5. Services
	contextService := service.NewContextService(sessionRepo, sysLogger)
	documentService := service.NewDocumentService(
		documentRepo,
		files,
		renderer,
		eventPublisher,
		sysLogger,
		cfg.Lifecycle.ExportTimeout,
	)
	publisherService := service.NewPublisherService(constant.TopicDocumentExported, pubSub)
	consumerService := service.NewConsumerService(pubSub, constant.TopicDocumentExported, sender, sysLogger)

	assistantService := service.NewAssistantService(
		classifier,
		extractor,
		policy,
		contextService,
		documentService,
		publisherService,
		sysLogger,
	)
	reaperService := service.NewReaperService(
		contextService,
		documentService,
		eventPublisher,
		sysLogger,
		cfg.Lifecycle.CleanupInterval,
		cfg.Lifecycle.SessionTTL,
		cfg.Lifecycle.DocumentTTL,
	)

	var auditService *service.AuditService
	if eventSubscriber != nil {
		auditService = service.NewAuditService(eventSubscriber, logger.NewIsolatedLogger("logs/audit.log"))
	}

	// 6. Controllers
	c.HealthController = controller.NewHealthController()
	c.AssistantController = controller.NewAssistantController(assistantService)
	if c.WebSocketHub != nil {
		c.DeliveryHandler = handler.NewDeliveryHandler(c.WebSocketHub, cfg.Keys.JwtSecret, sysLogger)
	}
	c.AdminController = controller.NewAdminController(
		contextService,
		documentService,
		reaperService,
		auditService,
		cfg.Lifecycle.SessionTTL,
		cfg.Lifecycle.DocumentTTL,
	)

	c.AssistantService = assistantService
	c.ContextService = contextService
	c.DocumentService = documentService
	c.ConsumerService = consumerService
	c.ReaperService = reaperService
	c.AuditService = auditService
	return c, nil
}

// newSender builds the delivery fan-out from DELIVERY_CHANNELS.
func (c *Container) newSender(cfg *config.Config) (delivery.Sender, error) {
	var channels []delivery.Channel
	for _, name := range cfg.Delivery.Channels {
		switch name {
		case "log":
			channels = append(channels, delivery.Channel{Name: name, Sender: delivery.NewLogSender(c.Logger)})
		case "websocket":
			// Redis only adds cross-instance fan-out; the hub works without it.
			rdb, err := c.redisClient(cfg)
			if err != nil {
				log.Printf("[WARN] WebSocket delivery without Redis fan-out: %v", err)
			}
			c.WebSocketHub = internalWS.NewHub(rdb, logger.NewIsolatedLogger("logs/delivery.log"))
			channels = append(channels, delivery.Channel{Name: name, Sender: c.WebSocketHub})
		case "email":
			if cfg.Delivery.ArchiveEmail == "" {
				return nil, fmt.Errorf("email delivery needs DELIVERY_ARCHIVE_EMAIL")
			}
			m := mailer.NewArchiveMailer(
				cfg.SMTP.Host,
				cfg.SMTP.Port,
				cfg.SMTP.Email,
				cfg.SMTP.Password,
				cfg.SMTP.Email,
				cfg.SMTP.SenderName,
				cfg.Delivery.ArchiveEmail,
			)
			channels = append(channels, delivery.Channel{Name: name, Sender: m})
		default:
			return nil, fmt.Errorf("unknown delivery channel %q", name)
		}
	}
	if len(channels) == 0 {
		channels = append(channels, delivery.Channel{Name: "log", Sender: delivery.NewLogSender(c.Logger)})
	}
	return delivery.NewFanoutSender(c.Logger, channels...), nil
}

// redisClient connects once and is shared by the session store and the hub.
func (c *Container) redisClient(cfg *config.Config) (*redis.Client, error) {
	if c.rdb != nil {
		return c.rdb, nil
	}
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	c.rdb = rdb
	c.closers = append(c.closers, func() { _ = rdb.Close() })
	return rdb, nil
}

func (c *Container) newSessionRepository(cfg *config.Config) (contract.SessionRepository, error) {
	switch cfg.Storage.SessionStore {
	case "", "memory":
		return memory.NewSessionRepository(), nil
	case "redis":
		rdb, err := c.redisClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("redis session store: %w", err)
		}
		log.Printf("[INFO] Using Session Store: REDIS")
		return redisrepo.NewSessionRepository(rdb, redisrepo.DefaultKeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.Storage.SessionStore)
	}
}

func (c *Container) newDocumentRepository(cfg *config.Config) (contract.DocumentRepository, error) {
	switch cfg.Storage.DocumentStore {
	case "", "memory":
		return memory.NewDocumentRepository(), nil
	case "postgres":
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, !cfg.IsProduction())
		if err != nil {
			return nil, fmt.Errorf("document store: %w", err)
		}
		if err := database.Migrate(db, &model.Document{}, &model.DocumentSection{}); err != nil {
			return nil, fmt.Errorf("document store migration: %w", err)
		}
		c.closers = append(c.closers, closeGorm(db))
		log.Printf("[INFO] Using Document Store: POSTGRES")
		return implementation.NewDocumentRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown DOCUMENT_STORE %q", cfg.Storage.DocumentStore)
	}
}

func (c *Container) loadPatternTable(cfg *config.Config) (*intent.Table, error) {
	if cfg.Nlp.PatternsFile == "" {
		return intent.DefaultTable()
	}
	table, err := intent.LoadTable(cfg.Nlp.PatternsFile)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Loaded intent patterns from %s", cfg.Nlp.PatternsFile)
	return table, nil
}

func closeGorm(db *gorm.DB) func() {
	return func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// Close releases connections in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
