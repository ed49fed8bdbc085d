package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/taskgold/engine/internal/session"
	"github.com/taskgold/engine/internal/storage"
	"github.com/taskgold/engine/internal/usecase"
)

type ActionKind int

const (
	ActionCancelTask ActionKind = iota
	ActionConfirm
	ActionReject
	ActionWithdrawalDone
	ActionBackToMenu
)

// Action is a parsed callback token. The tokens are engine-defined and
// round-trip through Telegram untouched, so parsing is strict: anything
// unrecognized is an error, not a default.
type Action struct {
	Kind      ActionKind
	TaskID    int64
	UserID    int64
	CreatedAt string
}

var errUnknownCallback = errors.New("unknown callback token")

func ParseAction(data string) (Action, error) {
	switch {
	case data == backToMenuData:
		return Action{Kind: ActionBackToMenu}, nil

	case strings.HasPrefix(data, "cancel_task_"):
		taskID, err := strconv.ParseInt(strings.TrimPrefix(data, "cancel_task_"), 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("bad cancel token %q: %w", data, err)
		}
		return Action{Kind: ActionCancelTask, TaskID: taskID}, nil

	case strings.HasPrefix(data, "confirm_"), strings.HasPrefix(data, "reject_"):
		parts := strings.Split(data, "_")
		if len(parts) != 3 {
			return Action{}, fmt.Errorf("bad review token %q", data)
		}
		taskID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("bad review token %q: %w", data, err)
		}
		userID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("bad review token %q: %w", data, err)
		}
		kind := ActionConfirm
		if parts[0] == "reject" {
			kind = ActionReject
		}
		return Action{Kind: kind, TaskID: taskID, UserID: userID}, nil

	case strings.HasPrefix(data, "wd_complete_"):
		createdAt := strings.TrimPrefix(data, "wd_complete_")
		if createdAt == "" {
			return Action{}, fmt.Errorf("bad withdrawal token %q", data)
		}
		return Action{Kind: ActionWithdrawalDone, CreatedAt: createdAt}, nil
	}
	return Action{}, errUnknownCallback
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}
	if query.Message == nil {
		return
	}

	action, err := ParseAction(query.Data)
	if err != nil {
		log.Printf("Ignoring callback %q: %v", query.Data, err)
		return
	}

	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	switch action.Kind {
	case ActionBackToMenu:
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
			log.Printf("Failed to delete message: %v", err)
		}
		b.sendWithMarkup(query.From.ID, "You are back in the main menu.", mainKeyboard())

	case ActionCancelTask:
		b.cancelTask(ctx, query, action, chatID, messageID)

	case ActionConfirm:
		b.confirmTask(ctx, query, action, chatID, messageID)

	case ActionReject:
		b.rejectTask(ctx, query, action, chatID, messageID)

	case ActionWithdrawalDone:
		b.completeWithdrawalRequest(ctx, query, action, chatID, messageID)
	}
}

func (b *Bot) cancelTask(ctx context.Context, query *tgbotapi.CallbackQuery, action Action, chatID int64, messageID int) {
	userID := query.From.ID
	err := b.deps.Tasks.Release(ctx, action.TaskID, userID)
	switch {
	case errors.Is(err, storage.ErrTaskNotFound):
		b.edit(chatID, messageID, "Could not find this task.")
	case errors.Is(err, usecase.ErrNotHolder):
		b.edit(chatID, messageID, "You cannot cancel this task.")
	case err != nil:
		log.Printf("Failed to release task %d for user %d: %v", action.TaskID, userID, err)
		b.edit(chatID, messageID, "Something went wrong, try again.")
	default:
		b.deps.Sessions.Update(userID, func(s *session.Session) { s.TaskID = 0 })
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID,
			"✅ Task cancelled and returned to the available pool.", backToMenuKeyboard())
		if _, err := b.api.Send(edit); err != nil {
			log.Printf("Failed to edit message: %v", err)
		}
	}
}

func (b *Bot) confirmTask(ctx context.Context, query *tgbotapi.CallbackQuery, action Action, chatID int64, messageID int) {
	if query.From.ID != b.operatorID {
		return
	}
	task, err := b.deps.Tasks.Approve(ctx, action.TaskID, action.UserID)
	switch {
	case errors.Is(err, usecase.ErrAlreadyReviewed):
		b.edit(chatID, messageID, fmt.Sprintf("Task ID %d is already reviewed.", action.TaskID))
	case errors.Is(err, storage.ErrTaskNotFound):
		b.edit(chatID, messageID, fmt.Sprintf("Error: task ID %d not found.", action.TaskID))
	case err != nil:
		log.Printf("Failed to approve task %d: %v", action.TaskID, err)
		b.edit(chatID, messageID, "Approval failed, see the logs.")
	default:
		b.edit(chatID, messageID, fmt.Sprintf("✅ Task ID %d for %d confirmed!", action.TaskID, action.UserID))
		b.send(action.UserID, fmt.Sprintf(
			"🎉 Your review for ID %d was approved! *%d gold* will be credited within 24 hours.",
			action.TaskID, task.Reward))
	}
}

func (b *Bot) rejectTask(ctx context.Context, query *tgbotapi.CallbackQuery, action Action, chatID int64, messageID int) {
	if query.From.ID != b.operatorID {
		return
	}
	_, err := b.deps.Tasks.Reject(ctx, action.TaskID)
	switch {
	case errors.Is(err, usecase.ErrAlreadyReviewed):
		b.edit(chatID, messageID, fmt.Sprintf("Task ID %d is already reviewed.", action.TaskID))
	case errors.Is(err, storage.ErrTaskNotFound):
		b.edit(chatID, messageID, fmt.Sprintf("Error: task ID %d not found.", action.TaskID))
	case err != nil:
		log.Printf("Failed to reject task %d: %v", action.TaskID, err)
		b.edit(chatID, messageID, "Rejection failed, see the logs.")
	default:
		b.edit(chatID, messageID, fmt.Sprintf("❌ Task ID %d for %d rejected.", action.TaskID, action.UserID))
		b.send(action.UserID, fmt.Sprintf("😥 Your review for ID %d was rejected.", action.TaskID))
	}
}

func (b *Bot) completeWithdrawalRequest(ctx context.Context, query *tgbotapi.CallbackQuery, action Action, chatID int64, messageID int) {
	if query.From.ID != b.operatorID {
		return
	}
	w, err := b.deps.Withdrawals.MarkCompleted(ctx, action.CreatedAt)
	switch {
	case errors.Is(err, storage.ErrWithdrawalNotFound):
		b.edit(chatID, messageID, "❌ Request not found.")
	case errors.Is(err, usecase.ErrAlreadyCompleted):
		b.edit(chatID, messageID, "This request is already marked as done.")
	case err != nil:
		log.Printf("Failed to complete withdrawal %q: %v", action.CreatedAt, err)
		b.edit(chatID, messageID, "Something went wrong, see the logs.")
	default:
		b.edit(chatID, messageID, "✅ Withdrawal marked as done!")
		b.send(w.UserID, "🎉 Your withdrawal request has been processed!")
	}
}
