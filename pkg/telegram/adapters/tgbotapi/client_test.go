package tgbotapi

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamy/pkg/logger"
)

func TestNewBot_RequiresToken(t *testing.T) {
	_, err := NewBot(Config{}, logger.NewNop())
	require.Error(t, err)
}

func TestConvertUpdate_Command(t *testing.T) {
	tgUpdate := tgbotapi.Update{
		UpdateID: 7,
		Message: &tgbotapi.Message{
			MessageID: 3,
			From:      &tgbotapi.User{ID: 42, FirstName: "Ann", UserName: "ann"},
			Chat:      &tgbotapi.Chat{ID: 42, Type: "private"},
			Text:      "/analyze_for_me@TeamyBot now",
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: len("/analyze_for_me@TeamyBot")},
			},
		},
	}

	update := convertUpdate(tgUpdate)

	require.NotNil(t, update.Message)
	assert.Equal(t, 7, update.UpdateID)
	assert.True(t, update.Message.IsCommand)
	assert.Equal(t, "analyze_for_me", update.Message.Command)
	assert.Equal(t, "TeamyBot", update.Message.BotName)
	assert.Equal(t, "now", update.Message.Arguments)
	assert.Equal(t, int64(42), update.Message.From.ID)
	assert.Equal(t, "ann", update.Message.From.Username)
	assert.True(t, update.Message.IsPrivate())
}

func TestConvertUpdate_NewChatMembers(t *testing.T) {
	tgUpdate := tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: -100, Type: "supergroup", Title: "Team"},
			NewChatMembers: []tgbotapi.User{
				{ID: 1, FirstName: "Bob"},
				{ID: 999, FirstName: "Teamy", IsBot: true},
			},
		},
	}

	update := convertUpdate(tgUpdate)

	require.Len(t, update.Message.NewChatMembers, 2)
	assert.True(t, update.Message.HasNewMember(999))
	assert.True(t, update.Message.NewChatMembers[1].IsBot)
	assert.False(t, update.Message.IsCommand)
	assert.Equal(t, "Team", update.Message.Chat.Title)
}

func TestConvertUpdate_Empty(t *testing.T) {
	update := convertUpdate(tgbotapi.Update{UpdateID: 1})
	assert.Nil(t, update.Message)
}
