package main

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"airmath/api/internal/app"
	"airmath/api/internal/config"
	"airmath/api/internal/handle"
	"airmath/api/internal/httpserver"
	"airmath/api/internal/recognizer"
	"airmath/api/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		slog.Error("bot.failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("AIRMATH_CONFIG"))
	if err != nil {
		return err
	}
	log := app.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)

	if strings.TrimSpace(cfg.Telegram.BotToken) == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is empty")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return err
	}
	bot.Debug = false

	r := &telegram.Router{
		Bot:        bot,
		EngManager: recognizer.NewManager(a.DefaultEngine()),
		Engines:    a.Engines,
		Pipeline:   a.Pipeline,
		History:    a.History,
		Timeout:    cfg.RequestTimeout,
		Log:        log,
	}

	mux := http.NewServeMux()
	handle.New(a.Pipeline, a.Engines, a.History, a.DB, cfg.RequestTimeout, log).Routes(mux)
	srv := httpserver.New("0.0.0.0:"+cfg.Port, mux)

	if webhookURL := strings.TrimSpace(cfg.Telegram.WebhookURL); webhookURL != "" {
		if err := registerWebhook(bot, mux, r, webhookURL, log); err != nil {
			return err
		}
		return httpserver.Run(ctx, srv, log)
	}

	go func() {
		if err := httpserver.Run(ctx, srv, log); err != nil {
			log.Error("http.failed", "error", err)
			stop()
		}
	}()
	runPolling(ctx, bot, r.HandleUpdate, log)
	return nil
}

func registerWebhook(bot *tgbotapi.BotAPI, mux *http.ServeMux, r *telegram.Router, baseURL string, log *slog.Logger) error {
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return err
	}

	mux.HandleFunc("POST "+path, func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			log.Warn("webhook.bad_update", "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		go r.HandleUpdate(*upd)
	})
	log.Info("webhook.registered", "path", path)
	return nil
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

type updateSource interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// runPolling long-polls until ctx is cancelled, backing off on errors.
func runPolling(ctx context.Context, bot updateSource, handle func(tgbotapi.Update), log *slog.Logger) {
	const (
		baseDelay = 1 * time.Second
		maxDelay  = 15 * time.Second
	)
	offset := 0

	for {
		if ctx.Err() != nil {
			log.Info("polling.stopped")
			return
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			log.Warn("polling.failed", "error", err, "retry_in", d)
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// shortHash is FNV-1a over the token, used as the secret webhook path.
func shortHash(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
