package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/core-coin/rota/internal/config"
	"github.com/core-coin/rota/internal/http_api"
	"github.com/core-coin/rota/internal/models"
	"github.com/core-coin/rota/internal/notificator"
	"github.com/core-coin/rota/internal/repository"
	"github.com/core-coin/rota/internal/rota"
	"github.com/core-coin/rota/internal/telegram"
	"github.com/core-coin/rota/pkg/logger"
)

// stopTimeout bounds how long in-flight jobs may run after a shutdown signal.
const stopTimeout = 30 * time.Second

func main() {
	app := &cli.App{
		Name:  "rota",
		Usage: "Rota runs the prize wheel and the channel automation jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "storage", Aliases: []string{"s"}, Usage: "Storage backend (postgres or memory)"},
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"a"}, Usage: "HTTP API port"},
			&cli.StringFlag{Name: "admin-ids", Usage: "Comma separated Telegram IDs of operators"},
			&cli.StringFlag{Name: "timezone", Aliases: []string{"z"}, Usage: "Timezone of daily jobs"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("storage") {
		cfg.Storage = c.String("storage")
	}
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("admin-ids") {
		ids, err := config.ParseInt64List(c.String("admin-ids"))
		if err != nil {
			return fmt.Errorf("invalid --admin-ids: %v", err)
		}
		cfg.AdminIDs = ids
	}
	if c.IsSet("timezone") {
		cfg.Timezone = c.String("timezone")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	// Initialize storage
	db, err := openStorage(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Errorw("Failed to close storage", "error", err)
		}
	}()

	// Initialize Telegram bot
	bot, err := telegram.NewClient(cfg.TelegramBotToken, log)
	if err != nil {
		return err
	}
	operators := telegram.NewOperators(cfg.AdminIDs)
	if len(cfg.AdminIDs) == 0 {
		log.Warn("ADMIN_IDS is empty, operator alerts go nowhere")
	}

	// Initialize notificator
	var emailNotif *notificator.EmailNotificator
	if cfg.SMTPEnabled() {
		emailNotif = notificator.NewEmailNotificator(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPSender, cfg.AdminEmails)
	}
	notif, err := notificator.NewNotificator(log, bot, operators, cfg.NotifyWorkers, emailNotif)
	if err != nil {
		return err
	}
	defer notif.Close()

	// Create Rota instance
	rotaApp := rota.NewRota(db, notif, bot, log, cfg)
	bot.RegisterCommands(telegram.NewCommands(operators, rotaApp, rotaApp, cfg.PrizeAlertInterval))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the application
	if err := rotaApp.Start(ctx); err != nil {
		return fmt.Errorf("failed to start rota: %v", err)
	}
	go bot.Start(ctx)

	var apiServer models.APIServer = http_api.NewHTTPServer(rotaApp, cfg.APIPort, cfg.AdminAPIToken, log)
	go apiServer.Start()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	if err := apiServer.Shutdown(); err != nil {
		log.Errorw("Failed to shut down HTTP server", "error", err)
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := rotaApp.Stop(stopCtx); err != nil {
		log.Errorw("Jobs did not finish before timeout", "error", err)
	}
	log.Info("Rota stopped")
	return nil
}

func openStorage(cfg *config.Config, log *logger.Logger) (models.Repository, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("Using in-memory storage, data is lost on restart")
		return repository.NewMemoryDB(), nil
	default:
		db, err := repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %v", err)
		}
		return db, nil
	}
}
