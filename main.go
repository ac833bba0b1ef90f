package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"yamdb/internal/codegen"
	"yamdb/internal/config"
	"yamdb/internal/handlers"
	"yamdb/internal/models"
	"yamdb/internal/notifier"
	"yamdb/internal/permissions"
	"yamdb/internal/repositories"
	"yamdb/internal/services"
	"yamdb/internal/validation"
	"yamdb/pkg/logger"
	"yamdb/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(viper.New())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)

	// --- Database ---
	db, err := repositories.OpenDatabase(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.ErrorErr("failed to open database", err)
		os.Exit(1)
	}
	if err := repositories.AutoMigrate(db); err != nil {
		log.ErrorErr("failed to migrate database", err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Email delivery ---
	// With a broker configured signup only enqueues the email and the
	// consumer below delivers it.
	deliverer := buildNotifier(cfg.Mail, log)
	var sender notifier.Notifier = deliverer
	if cfg.RabbitMQ.URL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL, Queue: cfg.RabbitMQ.Queue}, log)
		if err != nil {
			log.ErrorErr("failed to initialize RabbitMQ client", err)
			os.Exit(1)
		}
		defer mqClient.Close()

		if err := mqClient.ConsumeEmails(ctx, notifier.Deliver(ctx, deliverer)); err != nil {
			log.ErrorErr("failed to start email consumer", err)
			os.Exit(1)
		}
		sender = notifier.NewQueueNotifier(mqClient)
		log.Info("queued email delivery enabled", "queue", cfg.RabbitMQ.Queue)
	}

	app, err := newApp(cfg, db, sender, log)
	if err != nil {
		log.ErrorErr("failed to create app", err)
		os.Exit(1)
	}

	if err := seedSuperuser(ctx, repositories.NewGORMUserRepository(db), cfg.Admin, log); err != nil {
		log.ErrorErr("failed to bootstrap superuser", err)
		os.Exit(1)
	}

	// --- Start HTTP Server ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := app.Listen(cfg.Port); err != nil {
			log.ErrorErr("server failed", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	log.Info("shutting down server")
	stop()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.ErrorErr("error during Fiber shutdown", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("server gracefully stopped")
}

// newApp wires repositories, services and handlers into a Fiber app.
func newApp(cfg *config.Config, db *gorm.DB, sender notifier.Notifier, log logger.Log) (*fiber.App, error) {
	codes, err := codegen.New(cfg.Auth.CodeLength, cfg.Auth.CodeAlphabet)
	if err != nil {
		return nil, err
	}
	tmpl, err := notifier.NewTemplate(cfg.Mail.Subject, cfg.Mail.BodyTemplate)
	if err != nil {
		return nil, err
	}

	userRepo := repositories.NewGORMUserRepository(db)
	titleRepo := repositories.NewGORMTitleRepository(db)
	reviewRepo := repositories.NewGORMReviewRepository(db)

	validator := validation.New(cfg.Auth)
	evaluator := permissions.NewEvaluator(permissions.DefaultConfig())

	svc := handlers.Services{
		Auth: services.NewAuthService(userRepo, codes, notifier.NewConfirmationMailer(sender, tmpl),
			validator, cfg.Auth, cfg.JWT, log),
		Users:   services.NewUserService(userRepo, validator, log),
		Titles:  services.NewTitleService(titleRepo, validator),
		Reviews: services.NewReviewService(reviewRepo, titleRepo, evaluator, validator),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(log),
	})
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		database := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			database = "error"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": database,
		})
	})

	handlers.RegisterAPI(app, svc, evaluator, log)
	return app, nil
}

// buildNotifier returns the backend that actually delivers email.
func buildNotifier(cfg config.MailConfig, log logger.Log) notifier.Notifier {
	if cfg.Backend == "smtp" {
		return notifier.NewSMTPNotifier(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.From)
	}
	return notifier.NewLogNotifier(log)
}

// seedSuperuser creates or promotes the configured superuser. It does nothing
// unless both the username and the email are set.
func seedSuperuser(ctx context.Context, repo repositories.UserRepository, admin config.AdminConfig, log logger.Log) error {
	if admin.Username == "" || admin.Email == "" {
		if admin.Username != "" || admin.Email != "" {
			log.Warn("ADMIN_USERNAME and ADMIN_EMAIL must both be set, skipping superuser bootstrap")
		}
		return nil
	}

	user, created, err := repo.GetOrCreate(ctx, admin.Username, admin.Email)
	if err != nil {
		return fmt.Errorf("superuser %s: %w", admin.Username, err)
	}
	if user.IsSuperuser && user.Role == models.RoleAdmin {
		return nil
	}

	user.IsSuperuser = true
	user.Role = models.RoleAdmin
	if err := repo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to promote superuser %s: %w", admin.Username, err)
	}
	log.Info("superuser ready", "username", user.Username, "created", created)
	return nil
}
