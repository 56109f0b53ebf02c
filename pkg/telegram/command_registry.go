package telegram

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"teamy/pkg/logger"
)

// DefaultErrorMessage is sent when a command handler fails
const DefaultErrorMessage = "❌ Произошла ошибка. Попробуйте позже."

// CommandContext contains all data for command execution
type CommandContext struct {
	Ctx        context.Context
	TelegramID int64
	ChatID     int64
	ChatType   string
	Command    string // Registered primary name, aliases resolved
	Args       string
	RawMessage string
	Bot        Bot // Bot interface for sending messages
}

// IsPrivate reports whether the command came from a one-to-one chat
func (c *CommandContext) IsPrivate() bool {
	return c.ChatType == ChatTypePrivate
}

// Reply sends text to the chat the command came from
func (c *CommandContext) Reply(text string) error {
	return c.Bot.SendMessage(c.ChatID, text)
}

// CommandHandler is a function that handles a command
type CommandHandler func(ctx *CommandContext) error

// CommandMiddleware wraps command handlers with additional logic
type CommandMiddleware func(next CommandHandler) CommandHandler

// CommandConfig defines a command registration
type CommandConfig struct {
	Name        string              // Primary command name (e.g., "tz")
	Aliases     []string            // Alternative names (e.g., ["тз"])
	Description string              // Help text
	Handler     CommandHandler      // Command handler function
	Middleware  []CommandMiddleware // Command-specific middleware
	Hidden      bool                // Don't show in command lists
}

// CommandRegistry manages command registration and routing
type CommandRegistry struct {
	commands     map[string]*CommandConfig // command name -> config
	middleware   []CommandMiddleware       // Global middleware
	bot          Bot
	errorMessage string
	log          *logger.Logger
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry(bot Bot, log *logger.Logger) *CommandRegistry {
	return &CommandRegistry{
		commands:     make(map[string]*CommandConfig),
		middleware:   make([]CommandMiddleware, 0),
		bot:          bot,
		errorMessage: DefaultErrorMessage,
		log:          log.With("component", "command_registry"),
	}
}

// Register registers a command with the registry
func (cr *CommandRegistry) Register(config CommandConfig) {
	if config.Name == "" {
		cr.log.Errorw("Cannot register command without name")
		return
	}
	if config.Handler == nil {
		cr.log.Errorw("Cannot register command without handler", "command", config.Name)
		return
	}

	name := normalizeCommand(config.Name)
	cr.commands[name] = &config
	cr.log.Debugw("Registered command",
		"name", config.Name,
		"aliases", config.Aliases,
		"description", config.Description,
	)

	for _, alias := range config.Aliases {
		cr.commands[normalizeCommand(alias)] = &config
		cr.log.Debugw("Registered command alias",
			"alias", alias,
			"primary_name", config.Name,
		)
	}
}

// MustRegister registers a command and panics on error (for init-time registration)
func (cr *CommandRegistry) MustRegister(config CommandConfig) {
	if config.Name == "" || config.Handler == nil {
		panic(fmt.Sprintf("invalid command config: name=%s handler=%v", config.Name, config.Handler != nil))
	}
	cr.Register(config)
}

// Use adds global middleware (applied to all commands, first added runs outermost)
func (cr *CommandRegistry) Use(middleware CommandMiddleware) {
	cr.middleware = append(cr.middleware, middleware)
}

// SetErrorMessage overrides the reply sent when a handler fails
func (cr *CommandRegistry) SetErrorMessage(text string) {
	cr.errorMessage = text
}

// Handle routes a parsed command message to its handler. It reports false,
// without replying, when the command is not registered.
func (cr *CommandRegistry) Handle(ctx context.Context, msg *Message) (bool, error) {
	if msg == nil || !msg.IsCommand || msg.Chat == nil {
		return false, nil
	}

	command := normalizeCommand(msg.Command)

	var telegramID int64
	if msg.From != nil {
		telegramID = msg.From.ID
	}

	config, exists := cr.commands[command]
	if !exists {
		cr.log.Debugw("Ignoring unregistered command",
			"command", command,
			"telegram_id", telegramID,
		)
		return false, nil
	}

	cmdCtx := &CommandContext{
		Ctx:        ctx,
		TelegramID: telegramID,
		ChatID:     msg.Chat.ID,
		ChatType:   msg.Chat.Type,
		Command:    config.Name,
		Args:       msg.Arguments,
		RawMessage: msg.Text,
		Bot:        cr.bot,
	}

	// Build middleware chain (command-specific + global)
	handler := config.Handler

	for i := len(config.Middleware) - 1; i >= 0; i-- {
		handler = config.Middleware[i](handler)
	}

	for i := len(cr.middleware) - 1; i >= 0; i-- {
		handler = cr.middleware[i](handler)
	}

	if err := handler(cmdCtx); err != nil {
		cr.log.ErrorWithContext(ctx, fmt.Errorf("command %s failed: %w", config.Name, err), map[string]string{
			"command": config.Name,
		})
		return true, cr.handleCommandError(cmdCtx, err)
	}

	return true, nil
}

// GetCommands returns all registered commands sorted by name
func (cr *CommandRegistry) GetCommands(includeHidden bool) []*CommandConfig {
	seen := make(map[string]bool)
	commands := make([]*CommandConfig, 0)

	for _, config := range cr.commands {
		// Aliases point to the same config
		if seen[config.Name] {
			continue
		}
		seen[config.Name] = true

		if config.Hidden && !includeHidden {
			continue
		}
		commands = append(commands, config)
	}

	sort.Slice(commands, func(i, j int) bool { return commands[i].Name < commands[j].Name })
	return commands
}

// HasCommand checks if command is registered
func (cr *CommandRegistry) HasCommand(command string) bool {
	_, exists := cr.commands[normalizeCommand(command)]
	return exists
}

// handleCommandError handles errors from command execution
func (cr *CommandRegistry) handleCommandError(cmdCtx *CommandContext, err error) error {
	if valErr, ok := err.(ValidationError); ok {
		return cmdCtx.Reply(fmt.Sprintf("❌ %s", valErr.Message))
	}

	return cmdCtx.Reply(cr.errorMessage)
}

func normalizeCommand(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "/")))
}
