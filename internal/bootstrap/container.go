package bootstrap

import (
	"context"
	"sync"

	"teamy/internal/adapters/config"
	"teamy/internal/adapters/kafka"
	pgclient "teamy/internal/adapters/postgres"
	redisclient "teamy/internal/adapters/redis"
	sqliteclient "teamy/internal/adapters/sqlite"
	telegram "teamy/internal/adapters/telegram"
	"teamy/internal/api"
	"teamy/internal/api/health"
	"teamy/internal/domain/usage"
	"teamy/internal/services/admin"
	usagesvc "teamy/internal/services/usage"
	"teamy/pkg/errors"
	"teamy/pkg/logger"
	tg "teamy/pkg/telegram"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (only the configured store is connected)
	SQLite *sqliteclient.Client
	PG     *pgclient.Client
	Redis  *redisclient.Client

	// Domain Layer
	UsageRepo usage.Repository

	// External Adapters
	KafkaProducer *kafka.Producer

	// Services
	Usage *usagesvc.Service
	Gate  *admin.Gate

	// Application Layer
	Application *Application

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Application groups application layer components
type Application struct {
	HTTPServer      *api.Server
	HealthHandler   *health.Handler
	TelegramBot     tg.Bot
	TelegramHandler *telegram.Handler
	Templates       *tg.TemplateRegistry
}

// NewContainer creates a new dependency container around a loaded config
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Config:      cfg,
		Application: &Application{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// Init initializes all components in the correct order.
// Logging must already be initialized.
func (c *Container) Init() error {
	c.InitObservability()

	if err := c.InitStorage(); err != nil {
		return err
	}

	c.InitServices()

	return c.InitApplication()
}

// Start runs the HTTP server and the bot in background goroutines
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	if c.Application.HTTPServer != nil {
		c.WG.Add(1)
		go func() {
			defer c.WG.Done()
			if err := c.Application.HTTPServer.Start(); err != nil {
				c.Log.Errorf("HTTP server failed: %v", err)
				c.Cancel() // Trigger shutdown on fatal HTTP error
			}
		}()
	}

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.TelegramBot.Start(c.Context); err != nil && c.Context.Err() == nil {
			c.Log.Errorw("Telegram bot stopped unexpectedly", "error", err)
			c.Cancel()
		}
	}()

	c.Log.Infow("✓ All systems operational",
		"storage", c.Config.Storage.Driver,
		"kafka", c.Config.Kafka.Enabled(),
		"webhook", c.Config.Telegram.WebhookURL != "",
	)
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.Application.HTTPServer,
		c.Application.TelegramBot,
		c.KafkaProducer,
		c.databases(),
		c.ErrorTracker,
		c.Log,
	)
}

// databases lists the connected stores; nil clients are skipped
func (c *Container) databases() []namedCloser {
	var out []namedCloser
	if c.SQLite != nil {
		out = append(out, namedCloser{"sqlite", c.SQLite})
	}
	if c.PG != nil {
		out = append(out, namedCloser{"postgres", c.PG})
	}
	if c.Redis != nil {
		out = append(out, namedCloser{"redis", c.Redis})
	}
	return out
}
