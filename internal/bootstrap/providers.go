package bootstrap

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"teamy/internal/adapters/config"
	errnoop "teamy/internal/adapters/errors/noop"
	"teamy/internal/adapters/errors/sentry"
	"teamy/internal/adapters/kafka"
	pgclient "teamy/internal/adapters/postgres"
	redisclient "teamy/internal/adapters/redis"
	sqliteclient "teamy/internal/adapters/sqlite"
	telegram "teamy/internal/adapters/telegram"
	"teamy/internal/api"
	"teamy/internal/api/health"
	"teamy/internal/metrics"
	"teamy/internal/repository/memory"
	redisrepo "teamy/internal/repository/redis"
	"teamy/internal/repository/sqlstore"
	"teamy/internal/services/admin"
	usagesvc "teamy/internal/services/usage"
	"teamy/pkg/errors"
	"teamy/pkg/logger"
	"teamy/pkg/reconnect"
	tg "teamy/pkg/telegram"
	"teamy/pkg/telegram/adapters/tgbotapi"
)

const kafkaWriteTimeout = 5 * time.Second

// ========================================
// Phase 1: Observability
// ========================================

// InitObservability wires logging, error tracking and metrics
func (c *Container) InitObservability() {
	c.Log = logger.Get()
	c.Log.Infof("Starting %s in %s mode", c.Config.App.Name, c.Config.App.Env)

	c.ErrorTracker = provideErrorTracker(c.Config, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)

	metrics.Init()
}

// ========================================
// Phase 2: Storage
// ========================================

// InitStorage connects the configured store and builds the usage repository
func (c *Container) InitStorage() error {
	ctx, cancel := context.WithTimeout(c.Context, 2*time.Minute)
	defer cancel()

	c.Log.Infow("Connecting usage store...", "driver", c.Config.Storage.Driver)
	retry := reconnect.NewManager(reconnect.Config{}, c.Log)

	switch c.Config.Storage.Driver {
	case config.DriverSQLite:
		client, err := sqliteclient.NewClient(ctx, c.Config.SQLite)
		if err != nil {
			return errors.Wrap(err, "failed to open sqlite")
		}
		c.SQLite = client
		if err := sqlstore.Migrate(ctx, client.DB()); err != nil {
			return err
		}
		c.UsageRepo = sqlstore.NewUsageRepository(client.DB())

	case config.DriverPostgres:
		err := retry.Connect(ctx, "postgres", func(ctx context.Context) error {
			client, err := pgclient.NewClient(ctx, c.Config.Postgres)
			c.PG = client
			return err
		})
		if err != nil {
			return errors.Wrap(err, "failed to connect postgres")
		}
		if err := sqlstore.Migrate(ctx, c.PG.DB()); err != nil {
			return err
		}
		c.UsageRepo = sqlstore.NewUsageRepository(c.PG.DB())

	case config.DriverRedis:
		err := retry.Connect(ctx, "redis", func(ctx context.Context) error {
			client, err := redisclient.NewClient(ctx, c.Config.Redis)
			c.Redis = client
			return err
		})
		if err != nil {
			return errors.Wrap(err, "failed to connect redis")
		}
		c.UsageRepo = redisrepo.NewUsageRepository(c.Redis.Client(), c.Config.Redis.KeyPrefix)

	case config.DriverMemory:
		c.Log.Warn("Using in-memory usage store, data is lost on restart")
		c.UsageRepo = memory.NewUsageRepository()

	default:
		return errors.Wrapf(errors.ErrUnsupportedDriver, "%q", c.Config.Storage.Driver)
	}

	c.Log.Infow("✓ Usage store ready", "driver", c.Config.Storage.Driver)
	return nil
}

// ========================================
// Phase 3: Services
// ========================================

// InitServices builds the usage ledger service and the admin gate
func (c *Container) InitServices() {
	var publisher usagesvc.EventPublisher
	if c.Config.Kafka.Enabled() {
		c.KafkaProducer = provideKafkaProducer(c.Config, c.Log)
		publisher = c.KafkaProducer
	} else {
		c.Log.Info("Kafka brokers not configured, usage events disabled")
	}

	c.Usage = usagesvc.NewService(c.UsageRepo, publisher, c.Config.Kafka.UsageTopic, c.Log)
	c.Gate = admin.NewGate(c.Config.Admin)

	prometheus.MustRegister(metrics.NewLedgerCollector(c.Log, c.Usage))

	c.Log.Info("✓ Services initialized")
}

// ========================================
// Phase 4: Application
// ========================================

// InitApplication builds the bot, its handlers and the HTTP server
func (c *Container) InitApplication() error {
	templates, err := telegram.NewTemplates()
	if err != nil {
		return errors.Wrap(err, "failed to load templates")
	}
	c.Application.Templates = templates

	bot, err := provideTelegramBot(c.Config, c.Log)
	if err != nil {
		return err
	}
	c.Application.TelegramBot = bot

	registry := tg.NewCommandRegistry(bot, c.Log)
	telegram.NewCommandHandler(templates, c.Log).Register(registry, c.Usage)

	adminHandler := telegram.NewAdminHandler(bot, c.Usage, templates, c.ErrorTracker, c.Log)
	c.Application.TelegramHandler = telegram.NewHandler(bot, registry, c.Gate, adminHandler, templates, c.ErrorTracker, c.Log)

	// Shutdown waits on c.WG, so storage outlives every in-flight update
	dispatcher := tg.NewDispatcher(c.WG, c.Application.TelegramHandler.HandleUpdate, c.Log)
	bot.SetHandler(dispatcher.Dispatch)

	for _, cmd := range registry.GetCommands(true) {
		c.Log.Debugw("Command registered", "command", cmd.Name, "aliases", cmd.Aliases)
	}

	if !c.Config.HTTP.Enabled {
		if bot.webhookMode() {
			return errors.Wrap(errors.ErrInvalidInput, "TELEGRAM_WEBHOOK_URL requires HTTP_ENABLED")
		}
		c.Log.Info("HTTP server disabled")
		return nil
	}

	c.Application.HealthHandler = provideHealthHandler(c)
	c.Application.HTTPServer = provideHTTPServer(c.Config, c.Application.HealthHandler, bot, dispatcher, c.Log)

	return nil
}

// ========================================
// Providers
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Version)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

func provideKafkaProducer(cfg *config.Config, log *logger.Logger) *kafka.Producer {
	log.Infow("Initializing Kafka producer...", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.UsageTopic)

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		WriteTimeout: kafkaWriteTimeout,
	}, log)
	log.Info("✓ Kafka producer initialized")
	return producer
}

// telegramBot is the concrete bot plus the webhook mode it was built with
type telegramBot struct {
	*tgbotapi.Bot
	webhook bool
}

func (b *telegramBot) webhookMode() bool { return b.webhook }

func provideTelegramBot(cfg *config.Config, log *logger.Logger) (*telegramBot, error) {
	webhook := cfg.Telegram.WebhookURL != ""

	bot, err := tgbotapi.NewBot(tgbotapi.Config{
		Token:          cfg.Telegram.BotToken,
		Debug:          cfg.Telegram.Debug,
		Timeout:        cfg.Telegram.PollTimeout,
		WebhookMode:    webhook,
		HTTPTimeout:    cfg.Telegram.HTTPTimeout,
		RateLimitBurst: cfg.Telegram.RateLimitBurst,
		RateLimitRate:  cfg.Telegram.RateLimitRate,
	}, log)
	if err != nil {
		return nil, err
	}

	if webhook {
		if err := bot.SetWebhook(cfg.Telegram.WebhookURL); err != nil {
			return nil, errors.Wrap(err, "failed to set telegram webhook")
		}
		log.Infow("✓ Telegram bot initialized (webhook mode)", "url", cfg.Telegram.WebhookURL)
	} else {
		// A stale webhook blocks getUpdates
		if err := bot.DeleteWebhook(false); err != nil {
			log.Warnw("Failed to delete telegram webhook", "error", err)
		}
		log.Info("✓ Telegram bot initialized (polling mode)")
	}

	return &telegramBot{Bot: bot, webhook: webhook}, nil
}

func provideHealthHandler(c *Container) *health.Handler {
	h := health.New(c.Log, c.Config.App.Name, c.Config.App.Version)

	switch {
	case c.SQLite != nil:
		h.Register("sqlite", c.SQLite.Health)
	case c.PG != nil:
		h.Register("postgres", c.PG.Health)
	case c.Redis != nil:
		h.Register("redis", c.Redis.Health)
	}

	if c.KafkaProducer != nil {
		h.Register("kafka", c.KafkaProducer.Health)
	}

	return h
}

func provideHTTPServer(
	cfg *config.Config,
	healthHandler *health.Handler,
	bot *telegramBot,
	dispatcher *tg.Dispatcher,
	log *logger.Logger,
) *api.Server {
	serverCfg := api.ServerConfig{
		Port:        cfg.HTTP.Port,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	}
	if bot.webhookMode() {
		serverCfg.TelegramWebhook = tg.NewWebhookHandler(dispatcher.Dispatch, log)
	}

	return api.NewServer(serverCfg, healthHandler, log)
}
