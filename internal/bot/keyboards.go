package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	btnDoTask   = "📝 Do a task"
	btnReferral = "🤝 Referral program"
	btnBalance  = "📊 My balance"
	btnWithdraw = "📤 Withdraw gold"
	btnBack     = "⬅️ Back to menu"
	btnGoogle   = "Google reviews"
	btnYandex   = "Yandex reviews"
)

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnDoTask)),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnReferral),
			tgbotapi.NewKeyboardButton(btnBalance),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnWithdraw)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func platformKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnGoogle),
			tgbotapi.NewKeyboardButton(btnYandex),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func cancelTaskKeyboard(taskID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Give up this task", cancelTaskData(taskID)),
		),
	)
}

func reviewKeyboard(taskID, userID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", confirmData(taskID, userID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", rejectData(taskID, userID)),
		),
	)
}

func withdrawalDoneKeyboard(createdAt string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Mark as done", withdrawalDoneData(createdAt)),
		),
	)
}

func backToMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ To the menu", backToMenuData),
		),
	)
}

func cancelTaskData(taskID int64) string {
	return fmt.Sprintf("cancel_task_%d", taskID)
}

func confirmData(taskID, userID int64) string {
	return fmt.Sprintf("confirm_%d_%d", taskID, userID)
}

func rejectData(taskID, userID int64) string {
	return fmt.Sprintf("reject_%d_%d", taskID, userID)
}

func withdrawalDoneData(createdAt string) string {
	return "wd_complete_" + createdAt
}

const backToMenuData = "back_to_main_menu"
