package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/taskgold/engine/internal/constants"
	"github.com/taskgold/engine/internal/models"
	"github.com/taskgold/engine/internal/session"
	"github.com/taskgold/engine/internal/storage"
	"github.com/taskgold/engine/internal/usecase"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	switch msg.Text {
	case btnDoTask:
		b.sendWithMarkup(msg.Chat.ID, "Choose a platform:", platformKeyboard())
	case btnGoogle, btnYandex:
		b.listAvailable(ctx, msg)
	case btnBalance:
		b.showBalance(ctx, msg)
	case btnReferral:
		b.showReferral(msg)
	case btnWithdraw:
		b.startWithdrawal(ctx, msg)
	case btnBack:
		b.backToMenu(msg.From.ID, msg.Chat.ID)
	default:
		b.handleText(ctx, msg)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "cancel":
		b.backToMenu(msg.From.ID, msg.Chat.ID)
	case "process_payouts":
		b.runPayouts(ctx, msg)
	case "return_abandoned_tasks":
		b.runReclaim(ctx, msg)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	referrerID := parseReferralPayload(msg.CommandArguments(), userID)

	username := msg.From.UserName
	if username == "" {
		username = fmt.Sprintf("user_%d", userID)
	}
	if _, err := b.deps.Users.GetOrCreate(ctx, userID, username, referrerID); err != nil {
		log.Printf("Failed to register user %d: %v", userID, err)
	}

	b.sendWithMarkup(msg.Chat.ID,
		"Hi! 👋\nThis is the gold-earning bot.\n\nPick a way to earn:", mainKeyboard())
}

// parseReferralPayload extracts the referrer id from a /start deep-link
// payload like "ref123". Malformed and self-referential payloads are
// silently ignored.
func parseReferralPayload(args string, userID int64) int64 {
	if !strings.HasPrefix(args, "ref") {
		return 0
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args, "ref"), 10, 64)
	if err != nil || id <= 0 || id == userID {
		return 0
	}
	return id
}

func (b *Bot) listAvailable(ctx context.Context, msg *tgbotapi.Message) {
	platform := "Yandex"
	if msg.Text == btnGoogle {
		platform = "Google"
	}

	tasks, err := b.deps.Tasks.Available(ctx, platform)
	if err != nil {
		log.Printf("Failed to list tasks for %s: %v", platform, err)
		b.sendWithMarkup(msg.Chat.ID, "Something went wrong, try again.", mainKeyboard())
		return
	}
	if len(tasks) == 0 {
		b.sendWithMarkup(msg.Chat.ID, "Sorry, no tasks are available right now.", mainKeyboard())
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔥 *Available tasks (%s):*\n\n", platform)
	for _, t := range tasks {
		fmt.Fprintf(&sb, "🔹 *ID: %d* - %s (💰 *%d gold*)\n", t.ID, t.LocationName, t.Reward)
	}
	sb.WriteString("\n*Send an ID* to take a task.")
	b.send(msg.Chat.ID, sb.String())
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	if b.deps.Sessions.Get(userID).State == session.AwaitingAmount {
		b.handleWithdrawalAmount(ctx, msg)
		return
	}

	taskID, err := strconv.ParseInt(strings.TrimSpace(msg.Text), 10, 64)
	if err != nil {
		return // not an id, not a menu button: ignore
	}
	b.claimTask(ctx, msg, taskID)
}

func (b *Bot) claimTask(ctx context.Context, msg *tgbotapi.Message, taskID int64) {
	userID := msg.From.ID
	task, err := b.deps.Tasks.Claim(ctx, taskID, userID)
	switch {
	case errors.Is(err, usecase.ErrTaskNotAvailable), errors.Is(err, storage.ErrTaskNotFound):
		b.sendWithMarkup(msg.Chat.ID, "😔 This task is already taken.", mainKeyboard())
		return
	case err != nil:
		log.Printf("Failed to claim task %d for user %d: %v", taskID, userID, err)
		b.sendWithMarkup(msg.Chat.ID, "Something went wrong, try again.", mainKeyboard())
		return
	}

	b.deps.Sessions.Update(userID, func(s *session.Session) {
		s.TaskID = task.ID
	})

	text := fmt.Sprintf(
		"✅ You took task *ID: %d*\n\n📍 *Location:* %s\n⭐ *Rating:* %d\n\n📝 *Text:*\n`%s`\n\n👇 *Link:*\n%s\n\nSend a screenshot when you are done. Use the button below if you change your mind.",
		task.ID, task.LocationName, task.Stars, task.ReviewText, task.LocationURL,
	)
	b.sendWithMarkup(msg.Chat.ID, text, cancelTaskKeyboard(task.ID))
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	sess := b.deps.Sessions.Get(userID)

	if sess.State == session.AwaitingProof {
		b.completeWithdrawal(ctx, msg)
		return
	}
	if sess.TaskID != 0 {
		b.submitProof(ctx, msg, sess.TaskID)
		return
	}
	b.sendWithMarkup(msg.Chat.ID, "Take a task first.", mainKeyboard())
}

func (b *Bot) submitProof(ctx context.Context, msg *tgbotapi.Message, taskID int64) {
	userID := msg.From.ID
	if err := b.deps.Tasks.Submit(ctx, taskID, userID); err != nil {
		if errors.Is(err, usecase.ErrNotHolder) {
			// Reclaimed or released while the user was working.
			b.deps.Sessions.Update(userID, func(s *session.Session) { s.TaskID = 0 })
			b.sendWithMarkup(msg.Chat.ID, "This task is no longer yours. Pick another one.", mainKeyboard())
			return
		}
		log.Printf("Failed to submit task %d for user %d: %v", taskID, userID, err)
		b.sendWithMarkup(msg.Chat.ID, "Something went wrong, try again.", mainKeyboard())
		return
	}

	b.deps.Sessions.Update(userID, func(s *session.Session) { s.TaskID = 0 })
	b.sendWithMarkup(msg.Chat.ID, "✅ Thanks! Your screenshot was sent for review.", mainKeyboard())

	photo := tgbotapi.NewPhoto(b.operatorID, tgbotapi.FileID(largestPhoto(msg)))
	photo.Caption = fmt.Sprintf("🔔 Review!\nUser: @%s (ID: %d)\nTask ID: %d", msg.From.UserName, userID, taskID)
	photo.ReplyMarkup = reviewKeyboard(taskID, userID)
	if _, err := b.api.Send(photo); err != nil {
		log.Printf("Failed to forward proof for task %d to operator: %v", taskID, err)
	}
}

func (b *Bot) showBalance(ctx context.Context, msg *tgbotapi.Message) {
	balance, err := b.deps.Ledger.GetBalance(ctx, msg.From.ID)
	if err != nil {
		log.Printf("Failed to get balance for user %d: %v", msg.From.ID, err)
		b.sendWithMarkup(msg.Chat.ID, "Something went wrong, try again.", mainKeyboard())
		return
	}
	b.sendWithMarkup(msg.Chat.ID, fmt.Sprintf("💰 Your balance: *%d* gold.", balance), mainKeyboard())
}

func (b *Bot) showReferral(msg *tgbotapi.Message) {
	link := fmt.Sprintf("https://t.me/%s?start=ref%d", b.api.Self.UserName, msg.From.ID)
	text := fmt.Sprintf(
		"🤝 *Referral program*\n\nInvite a friend; when they complete their first task you get *%d gold*.\n\n🔗 *Your link:*\n`%s`",
		constants.ReferralBonus, link,
	)
	b.send(msg.Chat.ID, text)
}

func (b *Bot) startWithdrawal(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	balance, err := b.deps.Withdrawals.Start(ctx, userID)
	if errors.Is(err, usecase.ErrBelowThreshold) {
		text := fmt.Sprintf("❌ You need at least *%d* gold to withdraw.\nYour balance: *%d*.",
			constants.WithdrawalMinAmount, balance)
		b.sendWithMarkup(msg.Chat.ID, text, mainKeyboard())
		return
	}
	if err != nil {
		log.Printf("Failed to start withdrawal for user %d: %v", userID, err)
		b.sendWithMarkup(msg.Chat.ID, "Something went wrong, try again.", mainKeyboard())
		return
	}

	text := fmt.Sprintf("💰 Your balance: *%d* gold.\n\nEnter the amount to withdraw.", balance)
	b.sendWithMarkup(msg.Chat.ID, text, tgbotapi.NewRemoveKeyboard(false))
}

func (b *Bot) handleWithdrawalAmount(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	quote, err := b.deps.Withdrawals.SubmitAmount(ctx, userID, msg.Text)
	switch {
	case errors.Is(err, usecase.ErrInvalidAmount):
		b.send(msg.Chat.ID, "❌ Enter a number.")
		return
	case errors.Is(err, usecase.ErrAmountBelowMinimum):
		b.send(msg.Chat.ID, fmt.Sprintf("❌ The withdrawal minimum is %d gold.", constants.WithdrawalMinAmount))
		return
	case errors.Is(err, usecase.ErrInsufficientFunds):
		balance, _ := b.deps.Ledger.GetBalance(ctx, userID)
		b.send(msg.Chat.ID, fmt.Sprintf("❌ Not enough funds. Balance: %d.", balance))
		return
	case err != nil:
		log.Printf("Failed to process withdrawal amount for user %d: %v", userID, err)
		b.send(msg.Chat.ID, "Something went wrong, try again.")
		return
	}

	text := fmt.Sprintf(
		"✅ *Step 1 of 2: Instructions*\n\n1. List this skin: *%s*\n2. Set the price: *%d gold*\n\n*Step 2: Send a screenshot of your game profile (avatar)*.",
		quote.Skin, quote.ListingPrice,
	)
	b.send(msg.Chat.ID, text)
}

func (b *Bot) completeWithdrawal(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	username := msg.From.UserName
	if username == "" {
		username = fmt.Sprintf("user_%d", userID)
	}

	w, err := b.deps.Withdrawals.Complete(ctx, userID, username)
	if errors.Is(err, usecase.ErrNoActiveWithdrawal) {
		b.sendWithMarkup(msg.Chat.ID, "Something is off. Start the withdrawal again.", mainKeyboard())
		return
	}
	if err != nil {
		log.Printf("Failed to complete withdrawal for user %d: %v", userID, err)
		b.sendWithMarkup(msg.Chat.ID, "Something went wrong, contact the operator.", mainKeyboard())
		return
	}

	b.sendWithMarkup(msg.Chat.ID, "✅ Request created. Wait for the buyout.", mainKeyboard())
	b.notifyOperatorWithdrawal(msg, w)
}

func (b *Bot) notifyOperatorWithdrawal(msg *tgbotapi.Message, w models.Withdrawal) {
	photo := tgbotapi.NewPhoto(b.operatorID, tgbotapi.FileID(largestPhoto(msg)))
	photo.Caption = fmt.Sprintf(
		"🔔 New withdrawal request!\nFrom: @%s (ID: %d)\nAmount: *%d*\nSkin: *%s*\nPrice: *%d*\n\nThe player sent their avatar.",
		w.Username, w.UserID, w.Amount, w.Skin, w.ListingPrice,
	)
	photo.ParseMode = tgbotapi.ModeMarkdown
	photo.ReplyMarkup = withdrawalDoneKeyboard(w.CreatedAt)
	if _, err := b.api.Send(photo); err != nil {
		log.Printf("Failed to forward withdrawal request to operator: %v", err)
	}
}

func (b *Bot) backToMenu(userID, chatID int64) {
	b.deps.Withdrawals.Cancel(userID)
	b.sendWithMarkup(chatID, "Action cancelled.", mainKeyboard())
}

func (b *Bot) runPayouts(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.operatorID {
		return
	}
	b.send(msg.Chat.ID, "⚙️ Processing payouts...")
	n, err := b.deps.Payouts.Run(ctx)
	if err != nil {
		log.Printf("Payout sweep failed: %v", err)
		b.send(msg.Chat.ID, "❌ The sweep failed, see the logs.")
		return
	}
	b.send(msg.Chat.ID, fmt.Sprintf("✅ Done! Payouts credited: %d.", n))
}

func (b *Bot) runReclaim(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.operatorID {
		return
	}
	b.send(msg.Chat.ID, "🔎 Checking for abandoned tasks...")
	n, err := b.deps.Reclaimer.Run(ctx)
	if err != nil {
		log.Printf("Abandonment sweep failed: %v", err)
		b.send(msg.Chat.ID, "❌ The sweep failed, see the logs.")
		return
	}
	b.send(msg.Chat.ID, fmt.Sprintf("✅ Check finished. Tasks returned: %d.", n))
}

func largestPhoto(msg *tgbotapi.Message) string {
	if len(msg.Photo) == 0 {
		return ""
	}
	return msg.Photo[len(msg.Photo)-1].FileID
}
