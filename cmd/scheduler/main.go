package main

import (
	"context"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/lesson_scheduler/internal/app"
	"github.com/Freeeeeet/lesson_scheduler/internal/calendar"
	"github.com/Freeeeeet/lesson_scheduler/internal/config"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller"
	"github.com/Freeeeeet/lesson_scheduler/internal/events"
	"github.com/Freeeeeet/lesson_scheduler/internal/lock"
	"github.com/Freeeeeet/lesson_scheduler/internal/notify"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/postgres"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
	"github.com/Freeeeeet/lesson_scheduler/migrations"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting lesson scheduler",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.StorageDriver),
		zap.String("timezone", cfg.Timezone),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, closeDB, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer closeDB()

	publisher, closePublisher := openPublisher(cfg, logger)
	defer closePublisher()

	locker, closeLocker := openLocker(ctx, cfg, logger)
	defer closeLocker()

	calendarClient := calendar.NewGoogleClient(calendar.GoogleConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.CallbackURL,
		CalendarID:   cfg.CalendarID,
		TimeZone:     cfg.Timezone,
	}, logger)

	botInstance, err := bot.New(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	bookingService := service.NewBookingService(db, calendarClient, publisher, logger, service.Options{
		CalendarTimeout: cfg.CalendarTimeout,
	})

	reminderService := service.NewReminderService(
		db.Stores(),
		notify.NewTelegramSender(botInstance, logger),
		publisher,
		locker,
		service.ReminderConfig{
			LookBehind:  cfg.LookBehind,
			LookAhead:   cfg.LookAhead,
			LockTTL:     cfg.LockTTL,
			SendTimeout: cfg.SendTimeout,
			Location:    cfg.Location(),
		},
		logger,
	)

	scheduler := app.NewScheduler(reminderService, cfg.Interval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	botController := controller.NewBotController(botInstance, bookingService, db.Stores().Students, cfg.Location(), logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		logger.Warn("Bot commands menu not set", zap.Error(err))
	}

	// Блокируется до SIGINT/SIGTERM
	if err := botController.Start(ctx); err != nil {
		logger.Error("Bot stopped with error", zap.Error(err))
	}

	logger.Info("Shutting down")
}

// openStorage выбирает хранилище по STORAGE_DRIVER и применяет миграции для Postgres
func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Transactor, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return memory.NewDB(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	var migrationsFS fs.FS = migrations.FS
	if cfg.MigrationsPath != "" {
		migrationsFS = os.DirFS(cfg.MigrationsPath)
	}

	migrator, err := app.NewMigrator(pool, migrationsFS, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return postgres.NewDB(pool), pool.Close, nil
}

// openPublisher подключается к RabbitMQ, без RABBIT_URL события не публикуются
func openPublisher(cfg *config.Config, logger *zap.Logger) (events.Publisher, func()) {
	if cfg.RabbitURL == "" {
		return events.NopPublisher{}, func() {}
	}

	publisher, err := events.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitExchange)
	if err != nil {
		logger.Warn("RabbitMQ unavailable, lesson events disabled", zap.Error(err))
		return events.NopPublisher{}, func() {}
	}

	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("Failed to close RabbitMQ publisher", zap.Error(err))
		}
	}
}

// openLocker подключается к Redis для блокировки цикла напоминаний между экземплярами
func openLocker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Locker, func()) {
	if cfg.RedisAddr == "" {
		return nil, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unavailable, reminder cycles are guarded in-process only", zap.Error(err))
	}

	return lock.NewRedisLocker(client), func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
}
