package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"airmath/api/internal/solver"
	"airmath/api/internal/store"
)

func formatHistory(entries []store.Entry) string {
	if len(entries) == 0 {
		return "History is empty."
	}
	var b strings.Builder
	b.WriteString("🕘 Recent solutions:\n")
	for i, e := range entries {
		ts := time.UnixMilli(e.Timestamp).UTC().Format("2006-01-02 15:04")
		fmt.Fprintf(&b, "\n%d. %s → %s\n   %s · `%s`\n",
			i+1, esc(solver.FormatEquationText(e.Equation)), esc(solver.FormatResultText(e.Result)), ts, e.ID)
	}
	return b.String()
}

func (r *Router) sendHistory(chatID int64) {
	if r.History == nil {
		r.send(chatID, "History is disabled.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := r.History.List(ctx, ownerFor(chatID))
	if err != nil {
		r.logger().Error("telegram.history_failed", "chat_id", chatID, "error", err)
		r.send(chatID, "Could not load history.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, truncate(formatHistory(entries), maxMessageRunes))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().Warn("telegram.send_failed", "chat_id", chatID, "error", err)
	}
}

func (r *Router) deleteEntry(chatID int64, id string) {
	if r.History == nil {
		r.send(chatID, "History is disabled.")
		return
	}
	if id == "" {
		r.send(chatID, "Usage: /delete <id>")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := r.History.Delete(ctx, ownerFor(chatID), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		r.send(chatID, "No such entry.")
	case err != nil:
		r.logger().Error("telegram.delete_failed", "chat_id", chatID, "error", err)
		r.send(chatID, "Could not delete the entry.")
	default:
		r.send(chatID, "🗑 Deleted.")
	}
}

func (r *Router) clearHistory(chatID int64) {
	if r.History == nil {
		r.send(chatID, "History is disabled.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := r.History.Clear(ctx, ownerFor(chatID))
	if err != nil {
		r.logger().Error("telegram.clear_failed", "chat_id", chatID, "error", err)
		r.send(chatID, "Could not clear history.")
		return
	}
	r.send(chatID, fmt.Sprintf("🗑 Removed %d entries.", n))
}
