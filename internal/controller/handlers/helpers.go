package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/office_hours/internal/apperr"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/service"
)

const internalErrorText = "❌ Something went wrong. Please try again later."

// command is a bot command body: it gets the chat id and the words after the command.
type command func(ctx context.Context, chatID int64, args []string) string

// serve adapts a command to the bot handler signature.
func (h *Handlers) serve(cmd command) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		chatID := update.Message.Chat.ID
		h.sendMessage(ctx, b, chatID, cmd(ctx, chatID, parseArgs(update.Message.Text)))
	}
}

// parseArgs drops the command word (and any @botname suffix) and returns the rest.
func parseArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	return fields[1:]
}

// reasonOf joins everything after the id.
func reasonOf(args []string) string {
	return restOf(args, 1)
}

// restOf joins the words from index i on.
func restOf(args []string, i int) string {
	if len(args) <= i {
		return ""
	}
	return strings.Join(args[i:], " ")
}

// parseCategory accepts any case, e.g. "academic" for Academic. Validity is checked by the service.
func parseCategory(s string) model.PurposeCategory {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	return model.PurposeCategory(strings.ToUpper(lower[:1]) + lower[1:])
}

func parseID(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// requireRole resolves the caller and checks the role; a non-empty reply means the command must stop.
func (h *Handlers) requireRole(ctx context.Context, chatID int64, role model.Role) (service.Actor, string) {
	actor, reply := h.actor(ctx, chatID)
	if reply != "" {
		return actor, reply
	}
	if actor.Role != role {
		audience := "faculty"
		if role == model.RoleStudent {
			audience = "students"
		}
		return actor, fmt.Sprintf("⛔ This command is only available to %s.", audience)
	}
	return actor, ""
}

// actor resolves the caller; a non-empty reply means the command must stop.
func (h *Handlers) actor(ctx context.Context, chatID int64) (service.Actor, string) {
	a, err := h.directory.ResolveTelegramActor(ctx, chatID)
	if err == nil {
		return a, ""
	}
	if errors.Is(err, apperr.ErrForbidden) {
		return service.Actor{}, fmt.Sprintf(
			"🔒 This chat is not linked to an office hours account.\n\nYour chat id is %d. Ask an administrator to link it.", chatID)
	}
	return service.Actor{}, h.errorText(err, chatID)
}

// errorText turns a service error into a reply. Typed errors are shown with the
// detail they were wrapped with, anything else is logged and hidden.
func (h *Handlers) errorText(err error, chatID int64) string {
	switch apperr.KindOf(err) {
	case nil:
		h.logger.Error("Command failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return internalErrorText
	case apperr.ErrAuthorization:
		return "⛔ " + err.Error()
	case apperr.ErrNotFound:
		return "🔍 " + err.Error()
	default:
		return "⚠️ " + err.Error()
	}
}

// sendMessage sends text and logs a failed send.
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
