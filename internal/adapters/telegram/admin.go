package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"teamy/internal/metrics"
	"teamy/internal/services/admin"
	"teamy/pkg/errors"
	"teamy/pkg/logger"
	"teamy/pkg/telegram"
)

// LedgerAdmin is the privileged side of the usage ledger
type LedgerAdmin interface {
	ExportCSV(ctx context.Context, w io.Writer) (int, error)
	ClearAll(ctx context.Context) (int, error)
}

// AdminHandler executes export and clear requests approved by the gate
type AdminHandler struct {
	bot       telegram.Bot
	ledger    LedgerAdmin
	templates telegram.TemplateRenderer
	tracker   errors.Tracker
	log       *logger.Logger
	now       func() time.Time
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	bot telegram.Bot,
	ledger LedgerAdmin,
	templates telegram.TemplateRenderer,
	tracker errors.Tracker,
	log *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		bot:       bot,
		ledger:    ledger,
		templates: templates,
		tracker:   tracker,
		log:       log.With("component", "telegram_admin"),
		now:       time.Now,
	}
}

// Handle answers one admin request in chatID. Denied requests never touch the store.
func (ah *AdminHandler) Handle(ctx context.Context, chatID, senderID int64, decision admin.Decision) error {
	action := decision.Action.String()
	ah.tracker.AddBreadcrumb(ctx, "admin "+action, "telegram.admin", errors.LevelInfo, map[string]interface{}{
		"allowed": decision.Allowed,
	})

	if !decision.Allowed {
		metrics.AdminRequests.WithLabelValues(action, "denied").Inc()
		ah.log.Warnw("Admin request denied", "action", action, "telegram_id", senderID)
		_ = ah.tracker.CaptureMessage(ctx, "admin token used by non-admin user", errors.LevelWarning, map[string]string{
			"action":      action,
			"telegram_id": strconv.FormatInt(senderID, 10),
		})
		return ah.reply(chatID, tmplAccessDenied, nil)
	}

	ah.log.Infow("Admin request accepted", "action", action, "telegram_id", senderID)

	var err error
	switch decision.Action {
	case admin.ActionExport:
		err = ah.export(ctx, chatID)
	case admin.ActionClear:
		err = ah.clear(ctx, chatID)
	default:
		return nil
	}

	if err != nil {
		metrics.AdminRequests.WithLabelValues(action, "error").Inc()
		ah.log.Errorw("Admin request failed", "action", action, "error", err)
		return ah.reply(chatID, tmplAdminFailed, map[string]interface{}{
			"Action": action,
			"Error":  err.Error(),
		})
	}

	metrics.AdminRequests.WithLabelValues(action, "allowed").Inc()
	return nil
}

func (ah *AdminHandler) export(ctx context.Context, chatID int64) error {
	var buf bytes.Buffer
	rows, err := ah.ledger.ExportCSV(ctx, &buf)
	if err != nil {
		return err
	}

	at := ah.now()
	caption, err := ah.templates.Render(tmplExportCaption, map[string]interface{}{
		"Rows": rows,
		"Size": buf.Len(),
		"At":   at,
	})
	if err != nil {
		return errors.Wrap(err, "failed to render export caption")
	}

	return ah.bot.SendDocument(chatID, telegram.Document{
		Name:    fmt.Sprintf("teamy_usage_%s.csv", at.UTC().Format("20060102_150405")),
		Data:    buf.Bytes(),
		Caption: caption,
	})
}

func (ah *AdminHandler) clear(ctx context.Context, chatID int64) error {
	removed, err := ah.ledger.ClearAll(ctx)
	if err != nil {
		return err
	}

	return ah.reply(chatID, tmplCleared, map[string]interface{}{"Removed": removed})
}

func (ah *AdminHandler) reply(chatID int64, name string, data interface{}) error {
	text, err := ah.templates.Render(name, data)
	if err != nil {
		return errors.Wrapf(err, "failed to render %s", name)
	}
	return ah.bot.SendMessage(chatID, text)
}
