package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gorm.io/gorm"

	"taskflow/internal/api"
	"taskflow/internal/bot"
	"taskflow/internal/config"
	"taskflow/internal/feed"
	"taskflow/internal/model"
	"taskflow/internal/pubsub"
	"taskflow/internal/repository"
	"taskflow/internal/service"
)

// app holds the wired components shared by all commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB

	tasks         *repository.TaskRepository
	publisher     pubsub.Publisher
	reminders     *service.ReminderService
	completion    *service.CompletionService
	notifications *service.NotificationService
	taskSvc       *service.TaskService
	bot           *bot.Bot
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, db: db, tasks: repository.NewTaskRepository(db)}

	var bus *pubsub.Bus
	switch cfg.Dispatcher {
	case config.DispatcherDapr:
		client := &http.Client{Timeout: cfg.PublishTimeout + time.Second}
		a.publisher = pubsub.NewDaprPublisher(cfg.DaprHost, cfg.DaprHTTPPort, cfg.PubsubName, client, logger)
	default:
		bus = pubsub.NewBus(logger)
		a.publisher = bus
	}

	a.reminders = service.NewReminderService(a.tasks, a.publisher, service.ReminderConfig{
		Topic:          cfg.NotificationsTopic,
		PublishTimeout: cfg.PublishTimeout,
		Concurrency:    cfg.ScanConcurrency,
		Location:       cfg.Location,
	}, logger)
	recurrence := service.NewRecurrenceService(a.tasks, cfg.Location, time.Now, logger)
	a.completion = service.NewCompletionService(recurrence, logger)
	a.taskSvc = service.NewTaskService(a.tasks, a.publisher, cfg.TaskEventsTopic, cfg.PublishTimeout)

	var senders []service.Sender
	if cfg.TelegramToken != "" {
		a.bot, err = bot.New(cfg.TelegramToken, a.taskSvc, cfg.TelegramChatID, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("telegram: %w", err)
		}
		senders = append(senders, a.bot)
	}
	a.notifications = service.NewNotificationService(feed.NewRing[model.Notification](cfg.FeedCapacity), senders, logger)

	if bus != nil {
		bus.Subscribe(cfg.NotificationsTopic, a.notifications.HandleMessage)
		bus.Subscribe(cfg.TaskEventsTopic, a.completion.HandleMessage)
	}

	return a, nil
}

func (a *app) close() {
	sqlDB, err := a.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		a.logger.Warn("closing database", "error", err)
	}
}

func (a *app) router() http.Handler {
	h := api.NewHandler(a.reminders, a.completion, a.notifications, api.Subscriptions{
		PubsubName:         a.cfg.PubsubName,
		NotificationsTopic: a.cfg.NotificationsTopic,
		TaskEventsTopic:    a.cfg.TaskEventsTopic,
	}, a.logger)
	return api.NewRouter(h, a.logger)
}

// scan runs one bounded reminder scan.
func (a *app) scan(ctx context.Context) (service.ScanResult, error) {
	scanCtx, cancel := context.WithTimeout(ctx, a.cfg.ScanTimeout)
	defer cancel()
	return a.reminders.ScanAndNotify(scanCtx, time.Now())
}

func (a *app) scheduledScan(ctx context.Context) {
	result, err := a.scan(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			a.logger.Error("scheduled reminder scan failed", "error", err)
		}
		return
	}
	a.logger.Info("scheduled reminder scan finished",
		"scanned", result.Scanned,
		"notified", result.Notified,
		"failed", result.Failed,
		"malformed", result.Malformed)
}
