package telegram

import (
	"context"
	"strings"

	"teamy/internal/metrics"
	"teamy/internal/services/admin"
	"teamy/pkg/errors"
	"teamy/pkg/logger"
	"teamy/pkg/telegram"
)

// AdminGate classifies private messages as admin requests
type AdminGate interface {
	Evaluate(chatType string, senderID int64, text string) admin.Decision
}

// Handler processes Telegram updates using pkg/telegram framework
type Handler struct {
	bot             telegram.Bot
	commandRegistry *telegram.CommandRegistry
	gate            AdminGate
	admin           *AdminHandler
	templates       telegram.TemplateRenderer
	tracker         errors.Tracker
	selfID          int64
	selfUsername    string
	log             *logger.Logger
}

// NewHandler creates a new telegram handler
func NewHandler(
	bot telegram.Bot,
	commandRegistry *telegram.CommandRegistry,
	gate AdminGate,
	adminHandler *AdminHandler,
	templates telegram.TemplateRenderer,
	tracker errors.Tracker,
	log *logger.Logger,
) *Handler {
	self := bot.Self()
	return &Handler{
		bot:             bot,
		commandRegistry: commandRegistry,
		gate:            gate,
		admin:           adminHandler,
		templates:       templates,
		tracker:         tracker,
		selfID:          self.ID,
		selfUsername:    self.Username,
		log:             log.With("component", "telegram_handler"),
	}
}

// HandleUpdate processes incoming Telegram update (uses abstracted types)
// This is the main entry point for all updates
func (h *Handler) HandleUpdate(update telegram.Update) {
	if !update.HasMessage() {
		return
	}

	ctx := context.Background()
	if update.Message.From != nil {
		ctx = context.WithValue(ctx, errors.UserIDKey, update.Message.From.ID)
	}

	if err := h.handleMessage(ctx, update.Message); err != nil {
		h.log.ErrorWithContext(ctx, errors.Wrapf(err, "update %d: failed to handle message", update.UpdateID), map[string]string{
			"component": "telegram_handler",
		})
	}
}

// handleMessage routes a message: membership change, admin token, command.
// Anything else is ignored.
func (h *Handler) handleMessage(ctx context.Context, msg *telegram.Message) error {
	if msg.Chat == nil {
		return nil
	}

	if len(msg.NewChatMembers) > 0 {
		return h.handleNewMembers(msg)
	}

	if msg.From == nil {
		return nil
	}

	decision := h.gate.Evaluate(msg.Chat.Type, msg.From.ID, msg.Text)
	if decision.Action != admin.ActionNone {
		metrics.TelegramUpdates.WithLabelValues("admin").Inc()
		return h.admin.Handle(ctx, msg.Chat.ID, msg.From.ID, decision)
	}

	// Telegram marks only latin commands with a bot_command entity, so "/тз"
	// arrives as plain text
	if !msg.IsCommand && strings.HasPrefix(msg.Text, "/") {
		msg.ParseCommand()
	}

	// "/start@OtherBot" in a group belongs to another bot
	if !msg.IsCommand || !msg.AddressedTo(h.selfUsername) {
		metrics.TelegramUpdates.WithLabelValues("ignored").Inc()
		return nil
	}

	handled, err := h.commandRegistry.Handle(ctx, msg)
	if !handled {
		metrics.TelegramUpdates.WithLabelValues("ignored").Inc()
		return err
	}

	metrics.TelegramUpdates.WithLabelValues("command").Inc()
	h.tracker.AddBreadcrumb(ctx, "/"+msg.Command, "telegram.command", errors.LevelInfo, map[string]interface{}{
		"chat_type": msg.Chat.Type,
	})
	return err
}

// handleNewMembers greets a group once when the bot itself was added
func (h *Handler) handleNewMembers(msg *telegram.Message) error {
	if !msg.HasNewMember(h.selfID) {
		return nil
	}

	metrics.TelegramUpdates.WithLabelValues("membership").Inc()
	h.log.Infow("Bot added to chat", "chat_id", msg.Chat.ID, "chat_title", msg.Chat.Title)

	text, err := h.templates.Render(tmplStartGroup, nil)
	if err != nil {
		return err
	}
	return h.bot.SendMessage(msg.Chat.ID, text)
}
