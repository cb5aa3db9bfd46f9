package notify

import (
	"context"
	"fmt"
	"html"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// messageAPI is the part of *bot.Bot the sender needs.
type messageAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramSender delivers notifications to a linked chat; the address is the chat id.
type TelegramSender struct {
	api messageAPI
}

// NewTelegramSender sends through the bot api.
func NewTelegramSender(api messageAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

// Send posts an HTML message; to is the numeric chat id.
func (s *TelegramSender) Send(ctx context.Context, to, subject, body string) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("parse chat id %q: %w", to, err)
	}

	_, err = s.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      fmt.Sprintf("<b>%s</b>\n\n%s", html.EscapeString(subject), html.EscapeString(body)),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send telegram message to %d: %w", chatID, err)
	}
	return nil
}
