package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fumio65/tick/internal/config"
	"github.com/fumio65/tick/internal/notify"
	"github.com/fumio65/tick/internal/repository"
	"github.com/fumio65/tick/internal/schedule"
	"github.com/fumio65/tick/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("[warn] db handle: %v", err)
	} else {
		defer sqlDB.Close()
	}

	hubs := store.NewHubs()
	tasks := store.NewTaskStore(db, hubs)
	subtasks := store.NewSubtaskStore(db, hubs)
	engine := schedule.NewEngine(tasks)

	var sink notify.Sink = notify.LogSink{}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatalf("telegram sink: %v", err)
		}
		sink = tg
	}

	dispatcher := notify.NewCronDispatcher(cfg.Location, sink)
	dispatcher.Start()
	defer dispatcher.Stop()

	repo := repository.New(tasks, subtasks, engine, dispatcher, hubs)
	if err := repo.RearmReminders(ctx); err != nil {
		log.Fatalf("rearm reminders: %v", err)
	}
	log.Printf("[info] planner started, %d reminders armed", dispatcher.Pending())

	<-ctx.Done()
	log.Println("Shutdown complete.")
}
