package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	switch {
	case cb.Data == cbHistory:
		r.sendHistory(cid)
	case strings.HasPrefix(cb.Data, cbDeletePrefix):
		edit := tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
		})
		if _, err := r.Bot.Send(edit); err != nil {
			r.logger().Warn("telegram.send_failed", "chat_id", cid, "error", err)
		}
		r.deleteEntry(cid, strings.TrimPrefix(cb.Data, cbDeletePrefix))
	}
}
