package telegram

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamy/internal/adapters/config"
	"teamy/internal/domain/usage"
	"teamy/internal/repository/memory"
	"teamy/internal/services/admin"
	usagesvc "teamy/internal/services/usage"
	"teamy/pkg/errors"
	"teamy/pkg/logger"
	"teamy/pkg/telegram"
)

const (
	testBotID   int64 = 777
	testAdminID int64 = 1001
	exportToken       = "export-s3cret"
	clearToken        = "clear-s3cret"
)

type sentMessage struct {
	ChatID int64
	Text   string
}

type sentDocument struct {
	ChatID int64
	Doc    telegram.Document
}

// fakeBot records everything the handler sends
type fakeBot struct {
	mu        sync.Mutex
	messages  []sentMessage
	documents []sentDocument
}

func (b *fakeBot) Start(ctx context.Context) error { return nil }
func (b *fakeBot) Stop()                           {}
func (b *fakeBot) SetHandler(func(telegram.Update)) {}
func (b *fakeBot) Self() telegram.User {
	return telegram.User{ID: testBotID, Username: "TeamyBot", IsBot: true}
}

func (b *fakeBot) SendMessage(chatID int64, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (b *fakeBot) SendDocument(chatID int64, doc telegram.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.documents = append(b.documents, sentDocument{ChatID: chatID, Doc: doc})
	return nil
}

func (b *fakeBot) lastMessage(t *testing.T) sentMessage {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.messages)
	return b.messages[len(b.messages)-1]
}

func (b *fakeBot) lastDocument(t *testing.T) sentDocument {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.documents)
	return b.documents[len(b.documents)-1]
}

func (b *fakeBot) messageCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

// failingLedger fails every admin operation
type failingLedger struct {
	err error
}

func (l failingLedger) ExportCSV(ctx context.Context, w io.Writer) (int, error) { return 0, l.err }
func (l failingLedger) ClearAll(ctx context.Context) (int, error)              { return 0, l.err }

// brokenRepository fails every store call
type brokenRepository struct {
	err error
}

func (r brokenRepository) Touch(ctx context.Context, userID int64) error { return r.err }
func (r brokenRepository) Increment(ctx context.Context, userID int64, cmd usage.Command) error {
	return r.err
}
func (r brokenRepository) Get(ctx context.Context, userID int64) (*usage.Record, error) {
	return nil, r.err
}
func (r brokenRepository) List(ctx context.Context) ([]*usage.Record, error) { return nil, r.err }
func (r brokenRepository) Count(ctx context.Context) (int64, error)          { return 0, r.err }
func (r brokenRepository) DeleteAll(ctx context.Context) (int64, error)      { return 0, r.err }

type capturedMessage struct {
	Message string
	Level   errors.Level
	Tags    map[string]string
	UserID  interface{}
}

// recordingTracker keeps what the handlers report to error tracking
type recordingTracker struct {
	mu          sync.Mutex
	errs        []error
	messages    []capturedMessage
	breadcrumbs []string
}

func (r *recordingTracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	return nil
}

func (r *recordingTracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, capturedMessage{
		Message: message,
		Level:   level,
		Tags:    tags,
		UserID:  ctx.Value(errors.UserIDKey),
	})
	return nil
}

func (r *recordingTracker) AddBreadcrumb(ctx context.Context, message string, category string, level errors.Level, data map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breadcrumbs = append(r.breadcrumbs, category+": "+message)
}

func (r *recordingTracker) Flush(ctx context.Context) error { return nil }

type testEnv struct {
	bot     *fakeBot
	service *usagesvc.Service
	handler *Handler
	tmpl    *telegram.TemplateRegistry
	tracker *recordingTracker
}

func newTestEnv(t *testing.T, ledger LedgerAdmin) *testEnv {
	t.Helper()
	return newTestEnvWithRepository(t, memory.NewUsageRepository(), ledger)
}

func newTestEnvWithRepository(t *testing.T, repo usage.Repository, ledger LedgerAdmin) *testEnv {
	t.Helper()
	log := logger.NewNop()

	tmpl, err := NewTemplates()
	require.NoError(t, err)

	bot := &fakeBot{}
	tracker := &recordingTracker{}
	service := usagesvc.NewService(repo, nil, "usage.command_recorded", log)
	if ledger == nil {
		ledger = service
	}

	registry := telegram.NewCommandRegistry(bot, log)
	NewCommandHandler(tmpl, log).Register(registry, service)

	gate := admin.NewGate(config.AdminConfig{
		UserID:      testAdminID,
		ExportToken: exportToken,
		ClearToken:  clearToken,
	})

	handler := NewHandler(bot, registry, gate, NewAdminHandler(bot, ledger, tmpl, tracker, log), tmpl, tracker, log)
	return &testEnv{bot: bot, service: service, handler: handler, tmpl: tmpl, tracker: tracker}
}

func (e *testEnv) send(from int64, chatID int64, chatType, text string) {
	msg := &telegram.Message{
		From: &telegram.User{ID: from},
		Chat: &telegram.Chat{ID: chatID, Type: chatType},
		Text: text,
	}
	msg.ParseCommand()
	e.handler.HandleUpdate(telegram.Update{Message: msg})
}

func (e *testEnv) render(t *testing.T, name string, data interface{}) string {
	t.Helper()
	text, err := e.tmpl.Render(name, data)
	require.NoError(t, err)
	return text
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestHandler_UsageScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	// user 42: /start in private chat
	env.send(42, 42, "private", "/start")
	assert.Equal(t, sentMessage{ChatID: 42, Text: env.render(t, tmplStartPrivate, nil)}, env.bot.lastMessage(t))

	rec, err := env.service.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Count(usage.CommandStart))

	// user 42: /tz
	env.send(42, 42, "private", "/tz")
	assert.Equal(t, env.render(t, tmplStub, nil), env.bot.lastMessage(t).Text)

	rec, err = env.service.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Count(usage.CommandStart))
	assert.Equal(t, int64(1), rec.Count(usage.CommandTZ))

	// admin: export
	env.send(testAdminID, testAdminID, "private", exportToken)
	doc := env.bot.lastDocument(t)
	assert.Equal(t, testAdminID, doc.ChatID)
	assert.True(t, strings.HasPrefix(doc.Doc.Name, "teamy_usage_"))
	assert.True(t, strings.HasSuffix(doc.Doc.Name, ".csv"))
	assert.NotEmpty(t, doc.Doc.Caption)

	rows := parseCSV(t, doc.Doc.Data)
	require.Len(t, rows, 2)
	assert.Equal(t, usage.Columns(), rows[0])
	assert.Equal(t, []string{"42", "1", "0", "0", "0", "1", "0"}, rows[1])

	// admin: clear
	env.send(testAdminID, testAdminID, "private", clearToken)
	assert.Equal(t, env.render(t, tmplCleared, map[string]interface{}{"Removed": 1}), env.bot.lastMessage(t).Text)

	// admin: export again, header only
	env.send(testAdminID, testAdminID, "private", exportToken)
	rows = parseCSV(t, env.bot.lastDocument(t).Doc.Data)
	require.Len(t, rows, 1)
	assert.Equal(t, usage.Columns(), rows[0])
}

func TestHandler_StartInGroupSendsGroupText(t *testing.T) {
	env := newTestEnv(t, nil)

	env.send(42, -100, "supergroup", "/start@TeamyBot")

	assert.Equal(t, sentMessage{ChatID: -100, Text: env.render(t, tmplStartGroup, nil)}, env.bot.lastMessage(t))

	rec, err := env.service.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Count(usage.CommandStart))
}

func TestHandler_IgnoresCommandsForOtherBots(t *testing.T) {
	env := newTestEnv(t, nil)

	env.send(42, -100, "supergroup", "/start@SomeOtherBot")
	env.send(42, -100, "supergroup", "/tz@SomeOtherBot draft")

	assert.Zero(t, env.bot.messageCount())

	count, err := env.service.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	// the bot's own name matches case-insensitively
	env.send(42, -100, "supergroup", "/start@teamybot")
	assert.Equal(t, 1, env.bot.messageCount())
}

func TestHandler_StoreFailureAfterReplySendsNoErrorText(t *testing.T) {
	env := newTestEnvWithRepository(t, brokenRepository{err: errors.ErrUnavailable}, nil)

	env.send(42, 42, "private", "/start")

	require.Equal(t, 1, env.bot.messageCount())
	assert.Equal(t, env.render(t, tmplStartPrivate, nil), env.bot.lastMessage(t).Text)
}

func TestHandler_ReportsToTracker(t *testing.T) {
	env := newTestEnv(t, nil)

	env.send(42, 42, "private", "/start")
	env.send(42, 42, "private", exportToken)

	env.tracker.mu.Lock()
	defer env.tracker.mu.Unlock()

	assert.Contains(t, env.tracker.breadcrumbs, "telegram.command: /start")
	assert.Contains(t, env.tracker.breadcrumbs, "telegram.admin: admin export")

	require.Len(t, env.tracker.messages, 1)
	denied := env.tracker.messages[0]
	assert.Equal(t, errors.LevelWarning, denied.Level)
	assert.Equal(t, "export", denied.Tags["action"])
	assert.Equal(t, "42", denied.Tags["telegram_id"])
	assert.Equal(t, int64(42), denied.UserID)
}

func TestHandler_CyrillicAlias(t *testing.T) {
	env := newTestEnv(t, nil)

	// no bot_command entity: IsCommand stays false until the handler reparses
	env.handler.HandleUpdate(telegram.Update{Message: &telegram.Message{
		From: &telegram.User{ID: 5},
		Chat: &telegram.Chat{ID: 5, Type: "private"},
		Text: "/тз",
	}})

	rec, err := env.service.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Count(usage.CommandTZ))
}

func TestHandler_UntrackedCommandCreatesEmptyRecord(t *testing.T) {
	env := newTestEnv(t, nil)

	env.send(8, 8, "private", "/agree")
	env.send(8, 8, "private", "/settings")

	assert.Equal(t, env.render(t, tmplStub, nil), env.bot.lastMessage(t).Text)

	rec, err := env.service.Get(context.Background(), 8)
	require.NoError(t, err)
	assert.Zero(t, rec.Total())
}

func TestHandler_IgnoresUnregisteredCommandsAndText(t *testing.T) {
	env := newTestEnv(t, nil)

	env.send(9, 9, "private", "/help")
	env.send(9, 9, "private", "hello there")
	env.send(9, -5, "group", "just chatting")

	assert.Zero(t, env.bot.messageCount())

	count, err := env.service.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHandler_NonAdminDenied(t *testing.T) {
	env := newTestEnv(t, nil)

	env.send(42, 42, "private", "/start")
	env.send(42, 42, "private", clearToken)

	assert.Equal(t, env.render(t, tmplAccessDenied, nil), env.bot.lastMessage(t).Text)

	count, err := env.service.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	env.send(42, 42, "private", exportToken)
	assert.Equal(t, env.render(t, tmplAccessDenied, nil), env.bot.lastMessage(t).Text)
	assert.Empty(t, env.bot.documents)
}

func TestHandler_AdminTokenInGroupIgnored(t *testing.T) {
	env := newTestEnv(t, nil)

	env.send(42, 42, "private", "/start")
	env.send(testAdminID, -100, "group", clearToken)

	count, err := env.service.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1, env.bot.messageCount())
}

func TestHandler_BotAddedToGroup(t *testing.T) {
	env := newTestEnv(t, nil)

	env.handler.HandleUpdate(telegram.Update{Message: &telegram.Message{
		From:           &telegram.User{ID: 42},
		Chat:           &telegram.Chat{ID: -100, Type: "group", Title: "Team"},
		NewChatMembers: []telegram.User{{ID: 1}, {ID: testBotID, IsBot: true}},
	}})

	assert.Equal(t, sentMessage{ChatID: -100, Text: env.render(t, tmplStartGroup, nil)}, env.bot.lastMessage(t))
	assert.Equal(t, 1, env.bot.messageCount())

	// someone else joining is not greeted
	env.handler.HandleUpdate(telegram.Update{Message: &telegram.Message{
		Chat:           &telegram.Chat{ID: -100, Type: "group"},
		NewChatMembers: []telegram.User{{ID: 2}},
	}})
	assert.Equal(t, 1, env.bot.messageCount())
}

func TestHandler_AdminFailureRepliesWithError(t *testing.T) {
	env := newTestEnv(t, failingLedger{err: errors.ErrUnavailable})

	env.send(testAdminID, testAdminID, "private", exportToken)
	text := env.bot.lastMessage(t).Text
	assert.Contains(t, text, "export")
	assert.Contains(t, text, errors.ErrUnavailable.Error())

	env.send(testAdminID, testAdminID, "private", clearToken)
	text = env.bot.lastMessage(t).Text
	assert.Contains(t, text, "clear")
	assert.Contains(t, text, errors.ErrUnavailable.Error())
}

func TestAdminHandler_ExportFileName(t *testing.T) {
	env := newTestEnv(t, nil)
	ah := NewAdminHandler(env.bot, env.service, env.tmpl, env.tracker, logger.NewNop())
	ah.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }

	require.NoError(t, ah.Handle(context.Background(), 1, testAdminID, admin.Decision{Action: admin.ActionExport, Allowed: true}))

	assert.Equal(t, "teamy_usage_20240309_140507.csv", env.bot.lastDocument(t).Doc.Name)
}
