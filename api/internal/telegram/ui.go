package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxMessageRunes = 3900

	cbHistory      = "history"
	cbDeletePrefix = "del:"
)

func resultKeyboard(entryID string) tgbotapi.InlineKeyboardMarkup {
	del := tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", cbDeletePrefix+entryID)
	hist := tgbotapi.NewInlineKeyboardButtonData("🕘 History", cbHistory)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(del, hist))
}

// esc escapes legacy Markdown control characters.
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n]) + "…"
}
