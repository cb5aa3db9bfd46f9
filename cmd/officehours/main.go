package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Freeeeeet/office_hours/internal/app"
	"github.com/Freeeeeet/office_hours/internal/config"
	"github.com/Freeeeeet/office_hours/internal/controller"
	"github.com/Freeeeeet/office_hours/internal/controller/handlers"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/notify"
	"github.com/Freeeeeet/office_hours/internal/repository"
	"github.com/Freeeeeet/office_hours/internal/repository/base"
	"github.com/Freeeeeet/office_hours/internal/service"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "officehours",
		Short:        "Office hours appointment booking",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(linkTelegramCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env is what every command needs: config, logger and a database pool.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	pool, err := app.NewPool(ctx, cfg.DBDSN, cfg.DBMaxConns)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, logger: logger, pool: pool}, nil
}

func (e *env) close() {
	e.pool.Close()
	_ = e.logger.Sync()
}

func bindRepositories(db base.DBTX) service.Repositories {
	return service.Repositories{
		Directory:    repository.NewDirectoryRepository(db),
		Availability: repository.NewAvailabilityRepository(db),
		Appointments: repository.NewAppointmentRepository(db),
	}
}

func migrate(ctx context.Context, e *env) error {
	migrator, err := app.NewMigrator(e.pool, e.logger)
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Run(ctx)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations, the background workers and the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			if err := migrate(ctx, e); err != nil {
				return err
			}
			return serve(ctx, e)
		},
	}
}

func serve(ctx context.Context, e *env) error {
	cfg, logger := e.cfg, e.logger

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clock := service.SystemClock(loc)

	var tg *bot.Bot
	if cfg.TelegramEnabled() {
		tg, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
	}

	// Delivery channels
	dispatcher := notify.NewDispatcher()
	if cfg.EmailEnabled() {
		dispatcher.Register(model.ChannelEmail, notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.FromEmail,
			FromName: cfg.FromName,
		}))
	}
	if tg != nil {
		dispatcher.Register(model.ChannelTelegram, notify.NewTelegramSender(tg))
	}

	var channels []model.NotificationChannel
	for _, ch := range []model.NotificationChannel{model.ChannelEmail, model.ChannelTelegram} {
		if dispatcher.Handles(ch) {
			channels = append(channels, ch)
		}
	}

	notifications := repository.NewNotificationRepository(e.pool)
	sinks := notify.MultiSink{notify.NewOutboxSink(notifications, logger, channels...)}
	var publisher *app.EventPublisher
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		sinks = append(sinks, notify.NewEventLogSink(repository.NewEventOutboxRepository(e.pool)))

		kafkaPublisher := notify.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		outboxTx := base.NewTxRunner(e.pool, func(db base.DBTX) app.EventOutbox {
			return repository.NewEventOutboxRepository(db)
		})
		publisher = app.NewEventPublisher(outboxTx, kafkaPublisher, app.PublisherConfig{
			PollInterval: cfg.EventsPollInterval,
		}, logger)
		logger.Info("Publishing appointment events to kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	}

	// Services
	repos := bindRepositories(e.pool)
	tx := base.NewTxRunner(e.pool, bindRepositories)

	directory := service.NewDirectoryService(repos.Directory, logger)
	availability := service.NewAvailabilityService(repos, tx, clock, logger)
	appointments := service.NewAppointmentService(repos, tx, sinks, clock, logger)
	lifecycle := service.NewLifecycleService(tx, sinks, clock, logger)

	worker := app.NewNotificationWorker(notifications, dispatcher, app.WorkerConfig{
		PollInterval: cfg.NotifyPollInterval,
		BatchSize:    cfg.NotifyBatchSize,
		MaxAttempts:  cfg.NotifyMaxAttempts,
		RetryDelay:   cfg.NotifyRetryDelay,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	if publisher != nil {
		g.Go(func() error {
			publisher.Run(gctx)
			return nil
		})
	}

	if tg != nil {
		botController := controller.NewBotController(
			tg,
			handlers.NewHandlers(directory, appointments, availability, lifecycle, logger),
			logger,
		)
		if err := botController.RegisterHandlers(gctx); err != nil {
			logger.Warn("Bot command menu not set", zap.Error(err))
		}
		g.Go(func() error {
			return botController.Start(gctx)
		})
	} else {
		logger.Info("TELEGRAM_TOKEN not set, bot disabled")
	}

	logger.Info("Office hours service started",
		zap.String("environment", cfg.Environment),
		zap.String("timezone", loc.String()),
		zap.Int("notification_channels", len(channels)),
	)

	err = g.Wait()
	logger.Info("Office hours service stopped")
	return err
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			return migrate(cmd.Context(), e)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			migrator, err := app.NewMigrator(e.pool, e.logger)
			if err != nil {
				return err
			}
			defer migrator.Close()

			version, err := migrator.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
			return nil
		},
	})

	return cmd
}

func linkTelegramCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link-telegram <user-id> <chat-id>",
		Short: "Link a user account to a Telegram chat for notifications",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parse user id: %w", err)
			}
			chatID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("parse chat id: %w", err)
			}

			e, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			directory := service.NewDirectoryService(repository.NewDirectoryRepository(e.pool), e.logger)
			if err := directory.LinkTelegram(cmd.Context(), userID, chatID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d linked to chat %d\n", userID, chatID)
			return nil
		},
	}
}
