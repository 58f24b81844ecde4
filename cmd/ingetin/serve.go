package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ingetin/internal/auth"
	"ingetin/internal/config"
	"ingetin/internal/db"
	httpx "ingetin/internal/http"
	"ingetin/internal/jobs"
	"ingetin/internal/notify"
	"ingetin/internal/todo"
)

var serveFlagSkipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API, the Telegram bot and the reminder jobs",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveFlagSkipMigrate, "skip-migrate", false, "do not apply schema migrations on start")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(true)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	if !serveFlagSkipMigrate {
		if err := db.Migrate(cfg.DatabaseURL, true, log); err != nil {
			return err
		}
	}

	gdb, err := db.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(gdb) }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users := &auth.Service{DB: gdb}
	todos := &todo.Service{DB: gdb, MaxPerUser: cfg.MaxTodosPerUser}
	jwtSvc := auth.NewJWT(cfg.JWTSecret, cfg.JWTTTL)

	sender, bot, err := newSender(cfg, users, log)
	if err != nil {
		return err
	}

	var webhook http.Handler
	if bot != nil && bot.UsesWebhook() {
		webhook = bot.WebhookHandler()
	}

	now := func() time.Time { return time.Now().In(loc) }
	store := &jobs.Repo{DB: gdb}
	dispatcher := &jobs.Dispatcher{Store: store, Sender: sender, Now: now, Log: log}
	reconciler := &jobs.Reconciler{
		Store:     store,
		Now:       now,
		Lookback:  cfg.DeadlineLookback,
		Threshold: cfg.FailureThreshold,
		Log:       log,
	}

	sched := jobs.NewScheduler(log)
	if _, err := sched.Add("reminder", cfg.ReminderSchedule, dispatcher.RunReminderCheck); err != nil {
		return err
	}
	if _, err := sched.Add("deadline", cfg.DeadlineSchedule, reconciler.RunDeadlineCheck); err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpx.NewRouter(httpx.Deps{
			Config:  cfg,
			Users:   users,
			Todos:   todos,
			JWT:     jwtSvc,
			Log:     log,
			Webhook: webhook,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var wg sync.WaitGroup
	sched.Start(ctx)
	if bot != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bot.Run(ctx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
		log.Error("http server failed", "err", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("jobs still running at shutdown")
	}
	wg.Wait()

	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// newSender returns the Telegram bot when a token is configured and a sender
// that only logs otherwise.
func newSender(cfg config.Config, users *auth.Service, log *slog.Logger) (notify.Sender, *notify.Telegram, error) {
	if cfg.TelegramBotToken == "" {
		log.Warn("TELEGRAM_BOT_TOKEN not set, reminders are only logged")
		return notify.LogSender{Log: log}, nil, nil
	}
	bot, err := notify.NewTelegram(notify.TelegramOptions{
		Token:       cfg.TelegramBotToken,
		WebhookURL:  cfg.TelegramWebhookURL,
		SendTimeout: cfg.TelegramSendTimeout,
		Linker:      users,
		Log:         log,
	})
	if err != nil {
		return nil, nil, err
	}
	return bot, bot, nil
}
