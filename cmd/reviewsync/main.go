package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reviewsync/internal/auth"
	"reviewsync/internal/client"
	"reviewsync/internal/config"
	"reviewsync/internal/db"
	httpx "reviewsync/internal/http"
	"reviewsync/internal/logging"
	"reviewsync/internal/notify"
	"reviewsync/internal/review"
	"reviewsync/internal/sheet"
	syncx "reviewsync/internal/sync"
)

func main() {
	log := logging.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Fatal(err)
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret, cfg.JWTTTL)
	r := httpx.NewRouter(cfg, gdb, jwtSvc, log)

	clients := &client.Service{DB: gdb}
	reviews := &review.Store{DB: gdb}
	docs := sheet.NewAdapter(cfg.SheetFiles, log.WithField("component", "sheet"))

	var notifier syncx.Notifier
	if cfg.BotWebhookURL != "" {
		notifier = notify.NewWebhook(cfg.BotWebhookURL)
	} else {
		notifier = &notify.Log{Entry: log.WithField("component", "notify")}
	}
	sched := syncx.NewScheduler(cfg.NotifyDebounce, notifier, log.WithField("component", "scheduler"))

	engine := &syncx.Engine{
		Docs:    docs,
		Clients: clients,
		Reviews: reviews,
		Sched:   sched,
		Log:     log.WithField("component", "sync"),
	}

	ctx, cancel := context.WithCancel(context.Background())

	// First run: seed the database from the workbooks.
	empty, err := clients.Empty(ctx)
	if err != nil {
		log.Fatal(err)
	}
	if empty {
		if err := engine.ImportInitial(ctx); err != nil {
			log.Fatal(err)
		}
	}

	worker := &syncx.Worker{
		Engine:   engine,
		Interval: cfg.SyncInterval,
		Log:      log.WithField("component", "worker"),
	}
	go worker.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s\n", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
