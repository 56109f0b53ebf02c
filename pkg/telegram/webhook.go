package telegram

import (
	"encoding/json"
	"net/http"

	"teamy/pkg/logger"
)

// WebhookHandler handles incoming Telegram webhook requests (framework-level)
type WebhookHandler struct {
	updateHandler func(Update)
	log           *logger.Logger
}

// NewWebhookHandler creates a new webhook handler
// The updateHandler will be called for each incoming update
func NewWebhookHandler(updateHandler func(Update), log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		updateHandler: updateHandler,
		log:           log.With("component", "telegram_webhook"),
	}
}

// ServeHTTP implements http.Handler interface
func (wh *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		wh.log.Warnw("Invalid webhook request method", "method", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		wh.log.Warnw("Failed to decode webhook update", "error", err)
		wh.sendResponse(w, http.StatusBadRequest, map[string]interface{}{
			"ok":          false,
			"description": "Invalid JSON",
		})
		return
	}

	// Post-process: parse commands from message text
	if update.Message != nil {
		update.Message.ParseCommand()
	}

	wh.log.Debugw("Received webhook update",
		"update_id", update.UpdateID,
		"has_message", update.HasMessage(),
	)

	// updateHandler must not block; bootstrap passes Dispatcher.Dispatch
	wh.updateHandler(update)

	// Always acknowledge, otherwise Telegram retries the update
	wh.sendResponse(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (wh *WebhookHandler) sendResponse(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
