package controller

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/office_hours/internal/controller/handlers"
)

// BotController wires the command handlers into the Telegram bot.
type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	logger   *zap.Logger
}

// NewBotController creates the controller.
func NewBotController(botInstance *bot.Bot, cmdHandlers *handlers.Handlers, logger *zap.Logger) *BotController {
	return &BotController{
		bot:      botInstance,
		handlers: cmdHandlers,
		logger:   logger,
	}
}

// RegisterHandlers registers the commands and publishes the command menu.
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart())
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp())
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/appointments", bot.MatchTypePrefix, c.handlers.HandleAppointments())
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/slots", bot.MatchTypePrefix, c.handlers.HandleSlots())
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypePrefix, c.handlers.HandleCancel())

	// Students
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/book", bot.MatchTypePrefix, c.handlers.HandleBook())
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/request", bot.MatchTypePrefix, c.handlers.HandleRequest())

	// Faculty
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/addslot", bot.MatchTypePrefix, c.handlers.HandleAddSlot())
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/editslot", bot.MatchTypePrefix, c.handlers.HandleEditSlot())
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/delslot", bot.MatchTypePrefix, c.handlers.HandleDeleteSlot())
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/accept", bot.MatchTypePrefix, c.handlers.HandleAccept())
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/reject", bot.MatchTypePrefix, c.handlers.HandleReject())
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/complete", bot.MatchTypePrefix, c.handlers.HandleComplete())

	return c.setCommands(ctx)
}

// setCommands publishes the command menu.
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Link status"},
		{Command: "help", Description: "❓ Command help"},
		{Command: "appointments", Description: "📅 My appointments"},
		{Command: "slots", Description: "🗓 Availability slots"},
		{Command: "cancel", Description: "🚫 Cancel an appointment"},
		{Command: "book", Description: "📌 Book an open slot (student)"},
		{Command: "request", Description: "🕑 Request a custom time (student)"},
		{Command: "addslot", Description: "➕ Declare a slot (faculty)"},
		{Command: "editslot", Description: "✏️ Change a slot (faculty)"},
		{Command: "delslot", Description: "🗑 Delete a slot (faculty)"},
		{Command: "accept", Description: "✅ Accept a request (faculty)"},
		{Command: "reject", Description: "❌ Reject a request (faculty)"},
		{Command: "complete", Description: "🏁 Mark as completed (faculty)"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start blocks until ctx is cancelled.
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
