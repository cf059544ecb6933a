package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hannsv/PillGood/internal/adherence"
	"github.com/hannsv/PillGood/internal/bot/handlers"
	"github.com/hannsv/PillGood/internal/dispatcher"
	"github.com/hannsv/PillGood/internal/service"
	"go.uber.org/zap"
)

// Bot serves a single chat: reminders go to it and only its updates are handled
type Bot struct {
	api      *tgbotapi.BotAPI
	chatID   int64
	handlers *handlers.Handlers
	logger   *zap.Logger
}

func New(token string, chatID int64, engine *adherence.Engine, svc *service.Service, loc *time.Location, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:      api,
		chatID:   chatID,
		handlers: handlers.New(api, engine, svc, loc, logger),
		logger:   logger,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Authorized on account", zap.String("username", b.api.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		if update.CallbackQuery.Message == nil || update.CallbackQuery.Message.Chat.ID != b.chatID {
			return
		}
		b.handlers.HandleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}
	if update.Message.Chat.ID != b.chatID {
		b.logger.Warn("Ignoring message from unknown chat", zap.Int64("chat_id", update.Message.Chat.ID))
		return
	}

	if update.Message.IsCommand() {
		b.handlers.HandleCommand(ctx, update.Message)
		return
	}
	b.handlers.HandleMessage(ctx, update.Message)
}

// SendReminder delivers a reminder to the configured chat
func (b *Bot) SendReminder(ctx context.Context, r dispatcher.Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.api.Send(handlers.ReminderMessage(b.chatID, r)); err != nil {
		return fmt.Errorf("failed to send reminder %s: %w", r.Identifier, err)
	}
	return nil
}
