package telegram

import (
	"fmt"
	"time"

	"teamy/pkg/logger"
)

// LoggingMiddleware logs command execution with timing
func LoggingMiddleware(log *logger.Logger) CommandMiddleware {
	return func(next CommandHandler) CommandHandler {
		return func(ctx *CommandContext) error {
			start := time.Now()

			log.Infow("Executing command",
				"command", ctx.Command,
				"telegram_id", ctx.TelegramID,
				"chat_type", ctx.ChatType,
				"has_args", ctx.Args != "",
			)

			err := next(ctx)
			duration := time.Since(start)

			if err != nil {
				log.Warnw("Command failed",
					"command", ctx.Command,
					"telegram_id", ctx.TelegramID,
					"duration_ms", duration.Milliseconds(),
					"error", err,
				)
			} else {
				log.Debugw("Command completed",
					"command", ctx.Command,
					"telegram_id", ctx.TelegramID,
					"duration_ms", duration.Milliseconds(),
				)
			}

			return err
		}
	}
}

// RecoveryMiddleware recovers from panics in command handlers and turns
// them into errors, so the registry answers with its generic failure text
func RecoveryMiddleware(log *logger.Logger) CommandMiddleware {
	return func(next CommandHandler) CommandHandler {
		return func(ctx *CommandContext) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Errorw("Command handler panicked",
						"command", ctx.Command,
						"telegram_id", ctx.TelegramID,
						"panic", r,
					)
					err = fmt.Errorf("command %s panicked: %v", ctx.Command, r)
				}
			}()

			return next(ctx)
		}
	}
}

// MetricsMiddleware tracks command usage metrics
func MetricsMiddleware(recordMetric func(command string, success bool, duration time.Duration)) CommandMiddleware {
	return func(next CommandHandler) CommandHandler {
		return func(ctx *CommandContext) error {
			start := time.Now()
			err := next(ctx)
			duration := time.Since(start)

			recordMetric(ctx.Command, err == nil, duration)

			return err
		}
	}
}

// AfterSuccessMiddleware runs fn once the wrapped handler returned without
// error. The user already got the reply, so a failing fn is only logged.
func AfterSuccessMiddleware(log *logger.Logger, fn func(ctx *CommandContext) error) CommandMiddleware {
	return func(next CommandHandler) CommandHandler {
		return func(ctx *CommandContext) error {
			if err := next(ctx); err != nil {
				return err
			}

			if err := fn(ctx); err != nil {
				log.ErrorWithContext(ctx.Ctx, fmt.Errorf("command %s: after reply: %w", ctx.Command, err), map[string]string{
					"command": ctx.Command,
				})
			}
			return nil
		}
	}
}
