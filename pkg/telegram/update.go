package telegram

import "strings"

// Chat types
const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"
	ChatTypeChannel    = "channel"
)

// Update represents an incoming Telegram update (abstraction from tgbotapi)
type Update struct {
	UpdateID int `json:"update_id"`

	// Message is present if this is a regular message
	Message *Message `json:"message,omitempty"`
}

// Message represents a Telegram message
type Message struct {
	MessageID      int      `json:"message_id"`
	From           *User    `json:"from,omitempty"`
	Chat           *Chat    `json:"chat"`
	Text           string   `json:"text,omitempty"`
	NewChatMembers []User   `json:"new_chat_members,omitempty"`
	IsCommand      bool     `json:"-"` // Computed field, not from JSON
	Command        string   `json:"-"` // Parsed command (without /)
	BotName        string   `json:"-"` // Addressee from /command@botname, empty if none
	Arguments      string   `json:"-"` // Command arguments
}

// User represents a Telegram user
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	IsBot     bool   `json:"is_bot,omitempty"`
}

// Chat represents a Telegram chat
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"` // "private", "group", "supergroup", "channel"
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

// HasMessage checks if update contains a message
func (u *Update) HasMessage() bool {
	return u.Message != nil
}

// IsPrivate reports whether the message was sent in a one-to-one chat
func (m *Message) IsPrivate() bool {
	return m.Chat != nil && m.Chat.Type == ChatTypePrivate
}

// HasNewMember reports whether userID is among the members added by this message
func (m *Message) HasNewMember(userID int64) bool {
	for _, u := range m.NewChatMembers {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// AddressedTo reports whether the command is meant for the bot named username.
// A command without @botname is addressed to every bot in the chat.
func (m *Message) AddressedTo(username string) bool {
	return m.BotName == "" || strings.EqualFold(m.BotName, username)
}

// SplitCommandAddressee splits "command@botname" into its parts
func SplitCommandAddressee(command string) (name, botName string) {
	if at := strings.IndexByte(command, '@'); at != -1 {
		return command[:at], command[at+1:]
	}
	return command, ""
}

// ParseCommand parses command from message text
// Call this after JSON unmarshaling to populate IsCommand, Command, Arguments
func (m *Message) ParseCommand() {
	if m == nil || m.Text == "" {
		return
	}

	if !strings.HasPrefix(m.Text, "/") {
		m.IsCommand = false
		return
	}

	m.IsCommand = true

	// Format: /command args or /command@botname args
	parts := strings.Fields(m.Text[1:])
	if len(parts) == 0 {
		return
	}

	m.Command, m.BotName = SplitCommandAddressee(parts[0])

	if len(parts) > 1 {
		m.Arguments = strings.Join(parts[1:], " ")
	}
}
