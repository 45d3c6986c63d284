package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iliyamo/theater-ticket-bot/internal/bot"
)

// buttonsPerRow is how many choices share one keyboard row.
const buttonsPerRow = 2

// Keyboard turns abstract choices into a reply keyboard.  Choices are
// laid out two per row, except the back button which always gets a row
// of its own.  A nil slice removes the keyboard.
func Keyboard(choices []string) interface{} {
	if choices == nil {
		return tgbotapi.NewRemoveKeyboard(true)
	}
	var (
		rows [][]tgbotapi.KeyboardButton
		row  []tgbotapi.KeyboardButton
	)
	flush := func() {
		if len(row) > 0 {
			rows = append(rows, row)
			row = nil
		}
	}
	for _, label := range choices {
		if label == bot.ButtonBack {
			flush()
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(label)))
			continue
		}
		row = append(row, tgbotapi.NewKeyboardButton(label))
		if len(row) == buttonsPerRow {
			flush()
		}
	}
	flush()
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// Render converts one reply into a Telegram request for chatID.
func Render(chatID int64, m bot.Message) tgbotapi.Chattable {
	if m.Kind == bot.KindTextWithImage && m.Image != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(m.Image))
		photo.Caption = m.Body
		photo.ReplyMarkup = Keyboard(m.Choices)
		return photo
	}
	msg := tgbotapi.NewMessage(chatID, m.Body)
	msg.ReplyMarkup = Keyboard(m.Choices)
	return msg
}
