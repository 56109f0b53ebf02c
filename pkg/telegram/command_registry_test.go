package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamy/pkg/logger"
)

type sentMessage struct {
	ChatID int64
	Text   string
}

// recordingBot captures outgoing messages
type recordingBot struct {
	mu       sync.Mutex
	messages []sentMessage
}

func (b *recordingBot) Start(ctx context.Context) error { return nil }
func (b *recordingBot) Stop()                           {}
func (b *recordingBot) SetHandler(func(Update))         {}
func (b *recordingBot) Self() User                      { return User{ID: 1, IsBot: true} }
func (b *recordingBot) SendDocument(chatID int64, doc Document) error {
	return nil
}

func (b *recordingBot) SendMessage(chatID int64, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (b *recordingBot) sent() []sentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]sentMessage(nil), b.messages...)
}

func commandMessage(text string, userID int64, chatType string) *Message {
	msg := &Message{
		Text: text,
		From: &User{ID: userID},
		Chat: &Chat{ID: userID, Type: chatType},
	}
	msg.ParseCommand()
	return msg
}

func TestCommandRegistry_RoutesByNameAndAlias(t *testing.T) {
	bot := &recordingBot{}
	registry := NewCommandRegistry(bot, logger.NewNop())

	var got []string
	registry.Register(CommandConfig{
		Name:    "tz",
		Aliases: []string{"тз"},
		Handler: func(ctx *CommandContext) error {
			got = append(got, ctx.Command)
			return ctx.Reply("ok")
		},
	})

	handled, err := registry.Handle(context.Background(), commandMessage("/tz", 5, ChatTypePrivate))
	require.NoError(t, err)
	assert.True(t, handled)

	handled, err = registry.Handle(context.Background(), commandMessage("/ТЗ@TeamyBot", 5, ChatTypePrivate))
	require.NoError(t, err)
	assert.True(t, handled)

	assert.Equal(t, []string{"tz", "tz"}, got)
	assert.Len(t, bot.sent(), 2)
}

func TestCommandRegistry_UnregisteredCommandIgnored(t *testing.T) {
	bot := &recordingBot{}
	registry := NewCommandRegistry(bot, logger.NewNop())

	handled, err := registry.Handle(context.Background(), commandMessage("/help", 5, ChatTypePrivate))
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, bot.sent())
}

func TestCommandRegistry_PlainTextIgnored(t *testing.T) {
	bot := &recordingBot{}
	registry := NewCommandRegistry(bot, logger.NewNop())
	registry.Register(CommandConfig{Name: "start", Handler: func(ctx *CommandContext) error { return nil }})

	handled, err := registry.Handle(context.Background(), commandMessage("start", 5, ChatTypePrivate))
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestCommandRegistry_HandlerErrorSendsGenericReply(t *testing.T) {
	bot := &recordingBot{}
	registry := NewCommandRegistry(bot, logger.NewNop())
	registry.Register(CommandConfig{
		Name:    "start",
		Handler: func(ctx *CommandContext) error { return errors.New("boom") },
	})

	handled, err := registry.Handle(context.Background(), commandMessage("/start", 9, ChatTypePrivate))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []sentMessage{{ChatID: 9, Text: DefaultErrorMessage}}, bot.sent())
}

func TestCommandRegistry_ValidationErrorIsShown(t *testing.T) {
	bot := &recordingBot{}
	registry := NewCommandRegistry(bot, logger.NewNop())
	registry.Register(CommandConfig{
		Name: "premium",
		Handler: func(ctx *CommandContext) error {
			return ValidationError{Field: "args", Message: "bad input"}
		},
	})

	_, err := registry.Handle(context.Background(), commandMessage("/premium", 9, ChatTypePrivate))
	require.NoError(t, err)
	assert.Equal(t, "❌ bad input", bot.sent()[0].Text)
}

func TestCommandRegistry_MiddlewareOrder(t *testing.T) {
	bot := &recordingBot{}
	registry := NewCommandRegistry(bot, logger.NewNop())

	var order []string
	trace := func(name string) CommandMiddleware {
		return func(next CommandHandler) CommandHandler {
			return func(ctx *CommandContext) error {
				order = append(order, name+":before")
				err := next(ctx)
				order = append(order, name+":after")
				return err
			}
		}
	}

	registry.Use(trace("global1"))
	registry.Use(trace("global2"))
	registry.Register(CommandConfig{
		Name:       "start",
		Middleware: []CommandMiddleware{trace("local")},
		Handler: func(ctx *CommandContext) error {
			order = append(order, "handler")
			return nil
		},
	})

	_, err := registry.Handle(context.Background(), commandMessage("/start", 1, ChatTypePrivate))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"global1:before", "global2:before", "local:before",
		"handler",
		"local:after", "global2:after", "global1:after",
	}, order)
}

func TestRecoveryMiddleware_ConvertsPanic(t *testing.T) {
	bot := &recordingBot{}
	registry := NewCommandRegistry(bot, logger.NewNop())
	registry.Use(RecoveryMiddleware(logger.NewNop()))
	registry.Register(CommandConfig{
		Name:    "start",
		Handler: func(ctx *CommandContext) error { panic("nil map") },
	})

	handled, err := registry.Handle(context.Background(), commandMessage("/start", 3, ChatTypeGroup))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, DefaultErrorMessage, bot.sent()[0].Text)
}

func TestAfterSuccessMiddleware(t *testing.T) {
	var calls int
	after := AfterSuccessMiddleware(logger.NewNop(), func(ctx *CommandContext) error {
		calls++
		return nil
	})

	ok := after(func(ctx *CommandContext) error { return nil })
	failing := after(func(ctx *CommandContext) error { return errors.New("reply failed") })

	require.NoError(t, ok(&CommandContext{Ctx: context.Background()}))
	require.Error(t, failing(&CommandContext{Ctx: context.Background()}))
	assert.Equal(t, 1, calls)
}

func TestAfterSuccessMiddleware_FailureAfterReplyIsNotReported(t *testing.T) {
	bot := &recordingBot{}
	registry := NewCommandRegistry(bot, logger.NewNop())
	registry.Use(AfterSuccessMiddleware(logger.NewNop(), func(ctx *CommandContext) error {
		return errors.New("store unavailable")
	}))
	registry.Register(CommandConfig{
		Name:    "start",
		Handler: func(ctx *CommandContext) error { return ctx.Reply("hello") },
	})

	handled, err := registry.Handle(context.Background(), commandMessage("/start", 3, ChatTypePrivate))
	require.NoError(t, err)
	assert.True(t, handled)

	sent := bot.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "hello", sent[0].Text)
}

func TestMetricsMiddleware(t *testing.T) {
	var (
		gotCommand string
		gotSuccess bool
	)
	mw := MetricsMiddleware(func(command string, success bool, duration time.Duration) {
		gotCommand = command
		gotSuccess = success
	})

	err := mw(func(ctx *CommandContext) error { return errors.New("x") })(&CommandContext{Command: "summarize"})
	require.Error(t, err)
	assert.Equal(t, "summarize", gotCommand)
	assert.False(t, gotSuccess)
}

func TestCommandRegistry_GetCommands(t *testing.T) {
	registry := NewCommandRegistry(&recordingBot{}, logger.NewNop())
	noop := func(ctx *CommandContext) error { return nil }

	registry.Register(CommandConfig{Name: "tz", Aliases: []string{"тз"}, Handler: noop})
	registry.Register(CommandConfig{Name: "start", Handler: noop})
	registry.Register(CommandConfig{Name: "agree", Handler: noop, Hidden: true})

	visible := registry.GetCommands(false)
	require.Len(t, visible, 2)
	assert.Equal(t, "start", visible[0].Name)
	assert.Equal(t, "tz", visible[1].Name)

	assert.Len(t, registry.GetCommands(true), 3)
	assert.True(t, registry.HasCommand("/ТЗ"))
}
