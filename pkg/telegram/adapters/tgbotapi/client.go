package tgbotapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"teamy/pkg/errors"
	"teamy/pkg/logger"
	"teamy/pkg/telegram"
)

// Bot represents a Telegram bot that implements telegram.Bot interface
type Bot struct {
	api         *tgbotapi.BotAPI
	log         *logger.Logger
	mu          sync.RWMutex
	running     bool
	webhookMode bool
	pollTimeout int
	msgHandler  func(telegram.Update) // Handler works with abstracted Update
	rateLimiter *rate.Limiter
}

// Config contains Telegram bot configuration
type Config struct {
	Token          string
	Debug          bool
	Timeout        int  // Update timeout in seconds
	WebhookMode    bool // If true, don't start polling (use webhook instead)
	HTTPTimeout    time.Duration
	RateLimitBurst int // Rate limiter burst (default: 30)
	RateLimitRate  int // Rate limiter per second (default: 20)
}

// NewBot creates a new Telegram bot instance that implements telegram.Bot interface
func NewBot(cfg Config, log *logger.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "telegram bot token is required")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 60
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	// Long polling holds the request open for Timeout seconds
	if minTimeout := time.Duration(cfg.Timeout)*time.Second + 10*time.Second; cfg.HTTPTimeout < minTimeout && !cfg.WebhookMode {
		cfg.HTTPTimeout = minTimeout
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 30
	}
	if cfg.RateLimitRate == 0 {
		cfg.RateLimitRate = 20
	}

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}

	api.Debug = cfg.Debug

	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:         api,
		webhookMode: cfg.WebhookMode,
		pollTimeout: cfg.Timeout,
		log:         log.With("component", "telegram_bot"),
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRate), cfg.RateLimitBurst),
	}, nil
}

// Start begins polling for updates (or just blocks if webhook mode)
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.mu.Unlock()

	if b.webhookMode {
		b.log.Infow("Bot running in webhook mode, not starting polling")
		<-ctx.Done()
		b.Stop()
		return ctx.Err()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	u.AllowedUpdates = []string{"message"}

	updates := b.api.GetUpdatesChan(u)

	b.log.Infow("Starting to poll for updates", "timeout_sec", b.pollTimeout)

	for {
		select {
		case <-ctx.Done():
			b.log.Infow("Stopping bot due to context cancellation")
			b.Stop()
			return ctx.Err()

		case tgUpdate, ok := <-updates:
			if !ok {
				return nil
			}

			b.mu.RLock()
			handler := b.msgHandler
			b.mu.RUnlock()

			// handler must return quickly; telegram.Dispatcher hands off to a goroutine
			if handler != nil {
				handler(convertUpdate(tgUpdate))
			}
		}
	}
}

// Stop stops the bot
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}

	if !b.webhookMode {
		b.api.StopReceivingUpdates()
	}
	b.running = false
	b.log.Infow("Bot stopped")
}

// SetHandler sets the message handler (uses abstracted Update type)
func (b *Bot) SetHandler(handler func(telegram.Update)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgHandler = handler
}

// Self returns the bot's own account
func (b *Bot) Self() telegram.User {
	return *convertUser(&b.api.Self)
}

// SendMessage sends a plain text message (blocking). No parse mode is set:
// command names like /analyze_for_me break Markdown entity parsing.
func (b *Bot) SendMessage(chatID int64, text string) error {
	if err := b.rateLimiter.Wait(context.Background()); err != nil {
		return errors.Wrap(err, "rate limiter error")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	if _, err := b.api.Send(msg); err != nil {
		b.log.Errorw("Failed to send message", "chat_id", chatID, "error", err)
		return errors.Wrap(err, "failed to send telegram message")
	}

	return nil
}

// SendDocument uploads an in-memory file
func (b *Bot) SendDocument(chatID int64, doc telegram.Document) error {
	if err := b.rateLimiter.Wait(context.Background()); err != nil {
		return errors.Wrap(err, "rate limiter error")
	}

	msg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  doc.Name,
		Bytes: doc.Data,
	})
	msg.Caption = doc.Caption

	if _, err := b.api.Send(msg); err != nil {
		b.log.Errorw("Failed to send document",
			"chat_id", chatID,
			"file", doc.Name,
			"size", len(doc.Data),
			"error", err,
		)
		return errors.Wrap(err, "failed to send telegram document")
	}

	return nil
}

// SetWebhook configures the bot to use webhook mode
func (b *Bot) SetWebhook(webhookURL string) error {
	webhookConfig, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return errors.Wrap(err, "failed to create webhook config")
	}

	webhookConfig.MaxConnections = 40
	webhookConfig.AllowedUpdates = []string{"message"}

	if _, err := b.api.Request(webhookConfig); err != nil {
		return errors.Wrap(err, "failed to set webhook")
	}

	b.log.Infow("Webhook configured successfully", "url", webhookURL)
	return nil
}

// DeleteWebhook removes webhook so polling can be used
func (b *Bot) DeleteWebhook(dropPendingUpdates bool) error {
	deleteConfig := tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: dropPendingUpdates,
	}

	if _, err := b.api.Request(deleteConfig); err != nil {
		return errors.Wrap(err, "failed to delete webhook")
	}

	b.log.Infow("Webhook deleted successfully")
	return nil
}

// Verify Bot implements telegram.Bot interface at compile time
var _ telegram.Bot = (*Bot)(nil)

// convertUpdate converts tgbotapi.Update to telegram.Update (abstraction layer)
func convertUpdate(tgUpdate tgbotapi.Update) telegram.Update {
	update := telegram.Update{
		UpdateID: tgUpdate.UpdateID,
	}

	if tgUpdate.Message != nil {
		update.Message = convertMessage(tgUpdate.Message)
	}

	return update
}

// convertMessage converts tgbotapi.Message to telegram.Message
func convertMessage(tgMsg *tgbotapi.Message) *telegram.Message {
	msg := &telegram.Message{
		MessageID: tgMsg.MessageID,
		Text:      tgMsg.Text,
		IsCommand: tgMsg.IsCommand(),
	}

	if tgMsg.From != nil {
		msg.From = convertUser(tgMsg.From)
	}

	if tgMsg.Chat != nil {
		msg.Chat = convertChat(tgMsg.Chat)
	}

	if msg.IsCommand {
		msg.Command, msg.BotName = telegram.SplitCommandAddressee(tgMsg.CommandWithAt())
		msg.Arguments = tgMsg.CommandArguments()
	}

	for i := range tgMsg.NewChatMembers {
		msg.NewChatMembers = append(msg.NewChatMembers, *convertUser(&tgMsg.NewChatMembers[i]))
	}

	return msg
}

// convertUser converts tgbotapi.User to telegram.User
func convertUser(tgUser *tgbotapi.User) *telegram.User {
	return &telegram.User{
		ID:        tgUser.ID,
		FirstName: tgUser.FirstName,
		LastName:  tgUser.LastName,
		Username:  tgUser.UserName,
		IsBot:     tgUser.IsBot,
	}
}

// convertChat converts tgbotapi.Chat to telegram.Chat
func convertChat(tgChat *tgbotapi.Chat) *telegram.Chat {
	return &telegram.Chat{
		ID:       tgChat.ID,
		Type:     tgChat.Type,
		Title:    tgChat.Title,
		Username: tgChat.UserName,
	}
}
