package telegram

import (
	"context"

	"teamy/internal/domain/usage"
	"teamy/internal/metrics"
	"teamy/pkg/logger"
	"teamy/pkg/telegram"
)

// UsageRecorder records that a user triggered a command
type UsageRecorder interface {
	RecordEvent(ctx context.Context, userID int64, command string) error
}

// stubCommands acknowledge and are counted, nothing more
var stubCommands = []telegram.CommandConfig{
	{Name: "analyze", Description: "Оценка эффективности работы команды"},
	{Name: "analyze_for_me", Description: "Персональный анализ сообщений"},
	{Name: "summarize", Description: "Краткое саммари переписки"},
	{Name: "tz", Aliases: []string{"тз"}, Description: "Техническое задание"},
	{Name: "premium", Description: "Купить подписку"},
	{Name: "agree", Description: "Пользовательское соглашение"},
	{Name: "settings", Description: "Настройки бота"},
}

// CommandHandler implements the bot's chat commands
type CommandHandler struct {
	templates telegram.TemplateRenderer
	log       *logger.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(templates telegram.TemplateRenderer, log *logger.Logger) *CommandHandler {
	return &CommandHandler{
		templates: templates,
		log:       log.With("component", "telegram_commands"),
	}
}

// Register wires every command and the global middleware chain into registry.
// Usage is recorded only after the reply was sent successfully; a recording
// failure is logged and the user sees no second message.
func (ch *CommandHandler) Register(registry *telegram.CommandRegistry, recorder UsageRecorder) {
	registry.Use(telegram.RecoveryMiddleware(ch.log))
	registry.Use(telegram.LoggingMiddleware(ch.log))
	registry.Use(telegram.MetricsMiddleware(metrics.RecordCommand))
	registry.Use(telegram.AfterSuccessMiddleware(ch.log, func(ctx *telegram.CommandContext) error {
		return recorder.RecordEvent(ctx.Ctx, ctx.TelegramID, ctx.Command)
	}))

	if text, err := ch.templates.Render(tmplError, nil); err == nil {
		registry.SetErrorMessage(text)
	}

	registry.MustRegister(telegram.CommandConfig{
		Name:        usage.CommandStart.Name(),
		Description: "Запуск бота",
		Handler:     ch.handleStart,
	})

	for _, cfg := range stubCommands {
		cfg.Handler = ch.handleStub
		registry.MustRegister(cfg)
	}
}

// handleStart greets privately or with the group feature list
func (ch *CommandHandler) handleStart(ctx *telegram.CommandContext) error {
	name := tmplStartGroup
	if ctx.IsPrivate() {
		name = tmplStartPrivate
	}

	text, err := ch.templates.Render(name, nil)
	if err != nil {
		return err
	}
	return ctx.Reply(text)
}

func (ch *CommandHandler) handleStub(ctx *telegram.CommandContext) error {
	text, err := ch.templates.Render(tmplStub, nil)
	if err != nil {
		return err
	}
	return ctx.Reply(text)
}
