package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/taskgold/engine/internal/bot"
	"github.com/taskgold/engine/internal/config"
	"github.com/taskgold/engine/internal/locker"
	"github.com/taskgold/engine/internal/notify"
	"github.com/taskgold/engine/internal/ops"
	"github.com/taskgold/engine/internal/session"
	"github.com/taskgold/engine/internal/storage"
	"github.com/taskgold/engine/internal/store"
	"github.com/taskgold/engine/internal/usecase"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env")
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// A second instance long-polling the same bot token and
	// read-modify-writing the same spreadsheet would defeat the per-key
	// serialization, so refuse to start.
	lock := flock.New(cfg.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("Failed to acquire instance lock: %v", err)
	}
	if !locked {
		log.Fatalf("Another instance holds %s, exiting", cfg.LockFile)
	}
	defer lock.Unlock()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var records store.RecordStore
	switch cfg.StoreBackend {
	case "memory":
		records = store.NewMemory()
	default:
		records, err = store.NewSheets(ctx, []byte(cfg.GoogleCredsJSON), cfg.SpreadsheetID)
		if err != nil {
			log.Fatalf("Failed to open the spreadsheet: %v", err)
		}
	}

	st, err := storage.NewStorage(records)
	if err != nil {
		log.Fatalf("Failed to create storage: %v", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}
	notifier := notify.NewTelegram(api)

	taskLocks := locker.New()
	ledger := usecase.NewLedger(st)
	referral := usecase.NewReferralService(st, ledger, notifier)
	tasks := usecase.NewTaskService(st, taskLocks, referral)
	sessions := session.NewManager()
	withdrawals := usecase.NewWithdrawalService(st, ledger, sessions)
	payouts := usecase.NewPayoutSweeper(st, ledger, notifier)
	reclaimer := usecase.NewReclaimer(st, taskLocks, notifier)
	users := usecase.NewUserService(st)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.PayoutCronSpec, func() {
		if _, err := payouts.Run(ctx); err != nil {
			log.Printf("Scheduled payout sweep failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Bad payout cron spec %q: %v", cfg.PayoutCronSpec, err)
	}
	if _, err := scheduler.AddFunc(cfg.ReclaimCronSpec, func() {
		if _, err := reclaimer.Run(ctx); err != nil {
			log.Printf("Scheduled abandonment sweep failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Bad reclaim cron spec %q: %v", cfg.ReclaimCronSpec, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:    cfg.RunAddr,
		Handler: ops.NewRouter(cfg.OpsToken, payouts, reclaimer),
	}
	go func() {
		log.Printf("Ops server listening on %s", cfg.RunAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Ops server failed: %v", err)
		}
	}()

	b := bot.New(api, cfg.OperatorChatID, bot.Deps{
		Users:       users,
		Tasks:       tasks,
		Ledger:      ledger,
		Withdrawals: withdrawals,
		Payouts:     payouts,
		Reclaimer:   reclaimer,
		Sessions:    sessions,
	})
	b.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Ops server shutdown: %v", err)
	}
}
