package telegram

import (
	"context"
)

// Bot interface abstracts telegram bot operations (for dependency injection)
type Bot interface {
	// Start starts the bot (polling or webhook mode)
	Start(ctx context.Context) error

	// Stop stops the bot
	Stop()

	// SetHandler sets update handler
	SetHandler(handler func(Update))

	// Self returns the bot's own account
	Self() User

	// SendMessage sends a plain text message (blocking)
	SendMessage(chatID int64, text string) error

	// SendDocument uploads an in-memory file with an optional caption
	SendDocument(chatID int64, doc Document) error
}

// Document is a file sent to a chat
type Document struct {
	Name    string
	Data    []byte
	Caption string
}

// TemplateRenderer defines interface for rendering message templates
type TemplateRenderer interface {
	// Render renders a template with data (accepts any type - struct or map)
	Render(templatePath string, data interface{}) (string, error)
}

// ValidationError represents a failure the user can fix; its message is
// sent back to the chat as is
type ValidationError struct {
	Field   string
	Message string
}

// Error implements error interface
func (v ValidationError) Error() string {
	return v.Message
}
