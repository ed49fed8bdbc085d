// Package bot is the Telegram surface of the engine: it maps inbound
// messages and callback buttons onto the task, ledger and withdrawal
// usecases and renders their results back into chat messages.
package bot

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/taskgold/engine/internal/session"
	"github.com/taskgold/engine/internal/usecase"
)

type Deps struct {
	Users       *usecase.UserService
	Tasks       *usecase.TaskService
	Ledger      *usecase.Ledger
	Withdrawals *usecase.WithdrawalService
	Payouts     *usecase.PayoutSweeper
	Reclaimer   *usecase.Reclaimer
	Sessions    *session.Manager
}

type Bot struct {
	api        *tgbotapi.BotAPI
	operatorID int64
	deps       Deps
}

func New(api *tgbotapi.BotAPI, operatorID int64, deps Deps) *Bot {
	return &Bot{
		api:        api,
		operatorID: operatorID,
		deps:       deps,
	}
}

// Run long-polls for updates until the context is cancelled. Each update
// is handled synchronously: per-actor ordering matters more here than
// throughput, and the per-key locks already serialize the hot rows.
func (b *Bot) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)
	log.Printf("Bot @%s is running", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Println("Bot stopped")
			return
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) sendWithMarkup(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Failed to edit message %d in chat %d: %v", messageID, chatID, err)
	}
}
