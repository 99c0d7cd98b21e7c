package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"airmath/api/internal/pipeline"
	"airmath/api/internal/recognizer"
	"airmath/api/internal/solver"
	"airmath/api/internal/store"
)

// Bot is the subset of *tgbotapi.BotAPI the router talks to.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type HistoryStore interface {
	List(ctx context.Context, owner string) ([]store.Entry, error)
	Delete(ctx context.Context, owner, id string) error
	Clear(ctx context.Context, owner string) (int64, error)
}

type Router struct {
	Bot        Bot
	EngManager *recognizer.Manager
	Engines    *recognizer.Engines
	Pipeline   *pipeline.Pipeline
	History    HistoryStore // optional
	Timeout    time.Duration
	Log        *slog.Logger
}

const helpText = "Send a photo of an equation and I will recognize and solve it step by step.\n" +
	"You can also type an equation as text.\n\n" +
	"Commands:\n" +
	"/engine gemini [model] | /engine vision\n" +
	"/history  recent solutions\n" +
	"/delete <id>  remove one entry\n" +
	"/clear  remove all entries"

func ownerFor(chatID int64) string { return "tg:" + strconv.FormatInt(chatID, 10) }

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	msg := upd.Message

	switch {
	case msg.IsCommand():
		r.HandleCommand(msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(*msg)
	case strings.TrimSpace(msg.Text) != "":
		r.solveText(msg.Chat.ID, msg.Text)
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	case "history":
		r.sendHistory(cid)
	case "delete":
		r.deleteEntry(cid, strings.TrimSpace(msg.CommandArguments()))
	case "clear":
		r.clearHistory(cid)
	default:
		r.send(cid, "Unknown command. Try /help")
	}
}

func (r *Router) solveText(chatID int64, text string) {
	ctx, cancel := r.context()
	defer cancel()

	_, useLLM := r.Engines.Solver()
	out, err := r.Pipeline.SolveText(ctx, ownerFor(chatID), text, useLLM)
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	r.SendResult(chatID, out)
}

func (r *Router) context() (context.Context, context.CancelFunc) {
	if r.Timeout <= 0 {
		return context.WithTimeout(context.Background(), 180*time.Second)
	}
	return context.WithTimeout(context.Background(), r.Timeout)
}

func (r *Router) logger() *slog.Logger {
	if r.Log == nil {
		return slog.Default()
	}
	return r.Log
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.logger().Warn("telegram.send_failed", "chat_id", chatID, "error", err)
	}
}

// SendResult posts a rendered solution. Saved solutions get a delete button.
func (r *Router) SendResult(chatID int64, out pipeline.Outcome) {
	msg := tgbotapi.NewMessage(chatID, truncate(solver.Render(out.Solution), maxMessageRunes))
	if out.EntryID != "" {
		msg.ReplyMarkup = resultKeyboard(out.EntryID)
	}
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().Warn("telegram.send_failed", "chat_id", chatID, "error", err)
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.logger().Error("telegram.solve_failed", "chat_id", chatID, "error", err)
	switch {
	case errors.Is(err, recognizer.ErrNotConfigured):
		r.send(chatID, "❌ The selected engine is not configured. Use /engine to pick another one.")
	case errors.Is(err, context.DeadlineExceeded):
		r.send(chatID, "⌛ The recognizer took too long. Please try again.")
	default:
		r.send(chatID, fmt.Sprintf("Error: %v", err))
	}
}

// parseEngineArgs splits "/engine" arguments into an engine name and an
// optional model.
func parseEngineArgs(args string) (name, model string) {
	f := strings.Fields(args)
	if len(f) == 0 {
		return "", ""
	}
	name = strings.ToLower(f[0])
	if len(f) > 1 {
		model = f[1]
	}
	return name, model
}

func (r *Router) handleEngineCommand(chatID int64, args string) {
	name, model := parseEngineArgs(args)
	if name == "" {
		cur := "none"
		if e := r.EngManager.Get(chatID); e != nil {
			cur = e.Name() + " (" + e.GetModel() + ")"
		}
		r.send(chatID, "Current engine: "+cur+
			"\nUsage: /engine gemini [model] | /engine vision\nAvailable: "+strings.Join(r.Engines.Names(), ", "))
		return
	}

	eng, err := r.Engines.GetEngine(name)
	switch {
	case errors.Is(err, recognizer.ErrUnknownEngine):
		r.send(chatID, "Unknown engine. Available: gemini | vision")
		return
	case err != nil:
		r.send(chatID, "❌ "+err.Error())
		return
	}

	if model != "" {
		if ms, ok := eng.(recognizer.ModelSelector); ok {
			eng = ms.WithModel(model)
		}
	}
	r.EngManager.Set(chatID, eng)
	r.send(chatID, "✅ Engine: "+eng.Name()+" ("+eng.GetModel()+").")
}
