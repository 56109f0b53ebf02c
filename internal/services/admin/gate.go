package admin

import (
	"crypto/subtle"

	"teamy/internal/adapters/config"
)

// Action is the admin operation a message asks for
type Action int

const (
	ActionNone Action = iota
	ActionExport
	ActionClear
)

func (a Action) String() string {
	switch a {
	case ActionExport:
		return "export"
	case ActionClear:
		return "clear"
	default:
		return "none"
	}
}

// ChatTypePrivate is the Telegram chat type for one-to-one chats
const ChatTypePrivate = "private"

// Decision is the outcome of evaluating one message.
// Allowed is meaningful only when Action != ActionNone.
type Decision struct {
	Action  Action
	Allowed bool
}

// Gate decides whether a private message is an admin request and whether
// its sender may perform it. It holds no state between calls.
type Gate struct {
	adminID     int64
	exportToken []byte
	clearToken  []byte
}

// NewGate creates a gate from admin configuration
func NewGate(cfg config.AdminConfig) *Gate {
	return &Gate{
		adminID:     cfg.UserID,
		exportToken: []byte(cfg.ExportToken),
		clearToken:  []byte(cfg.ClearToken),
	}
}

// Evaluate classifies text sent by senderID in a chat of chatType.
// Messages outside private chats, or matching neither token, yield
// ActionNone and must be handled as ordinary messages.
func (g *Gate) Evaluate(chatType string, senderID int64, text string) Decision {
	if chatType != ChatTypePrivate {
		return Decision{}
	}

	var action Action
	switch {
	case tokenEqual([]byte(text), g.exportToken):
		action = ActionExport
	case tokenEqual([]byte(text), g.clearToken):
		action = ActionClear
	default:
		return Decision{}
	}

	return Decision{
		Action:  action,
		Allowed: senderID == g.adminID,
	}
}

// empty tokens never match
func tokenEqual(text, token []byte) bool {
	if len(token) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(text, token) == 1
}
