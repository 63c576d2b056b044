package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/mailservice"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

type application struct {
	config      *Config
	logger      *slog.Logger
	userService *userservice.UserService
	blogService *blogservice.BlogService
	mailService *mailservice.MailService
	limiter     *ipRateLimiter
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	configPath := flag.String("config", ".env", "path to the dotenv configuration file")
	flag.Parse()

	if err := run(*configPath, logger); err != nil {
		logger.Error("application stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Secret == "" {
		return errors.New("SECRET must be set")
	}

	dsn := common.DSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	if _, err := common.MigrateDB(cfg.MigrationsPath, dsn); err != nil {
		return err
	}

	db, err := common.NewDB(dsn, 10, 5, 15*time.Minute)
	if err != nil {
		return err
	}
	defer common.CloseDB(db)

	broker, err := common.NewMessageBroker(common.AMQPURI(cfg.MQHost, cfg.MQPort, cfg.MQUser, cfg.MQPassword))
	if err != nil {
		return err
	}
	defer broker.Close()

	if err := common.SetupBlogExchange(broker); err != nil {
		return err
	}

	tokens, err := userservice.NewTokenService(cfg.Secret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	cache := common.NewCache(cfg.CacheTTL, 2*cfg.CacheTTL)
	blogService := blogservice.NewBlogService(db, cache, broker, logger)

	app := &application{
		config:      cfg,
		logger:      logger,
		userService: userservice.NewUserService(db, tokens, cfg.BcryptCost),
		blogService: blogService,
		limiter:     newIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}

	if cfg.MailRecipient != "" {
		app.mailService = mailservice.NewMailService(broker, mailservice.Config{
			Host:      cfg.MailHost,
			Port:      cfg.MailPort,
			Username:  cfg.MailUser,
			Password:  cfg.MailPassword,
			Sender:    cfg.MailSender,
			Recipient: cfg.MailRecipient,
		}, blogService, logger)

		if err := app.mailService.NotifyBlogCreated(); err != nil {
			return err
		}
		// runs before the broker is closed, so an in-flight mail can finish and ack
		defer func() {
			app.mailService.Close()
			<-app.mailService.Done()
		}()
	}

	return app.serve()
}
