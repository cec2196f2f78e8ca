package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/admitgate/admitgate-api/internal/config"
	"github.com/admitgate/admitgate-api/internal/database"
	"github.com/admitgate/admitgate-api/internal/handler"
	"github.com/admitgate/admitgate-api/internal/middleware"
	"github.com/admitgate/admitgate-api/internal/models"
	"github.com/admitgate/admitgate-api/internal/repository"
	"github.com/admitgate/admitgate-api/internal/router"
	"github.com/admitgate/admitgate-api/internal/service"
	"github.com/admitgate/admitgate-api/pkg/mailer"
	"github.com/admitgate/admitgate-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.SessionSecretInsecure {
		logger.Warn().Msg("no session secret configured, using insecure development default")
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.University{},
		&models.Program{},
		&models.Application{},
		&models.ApplicationStatusHistory{},
		&models.Document{},
		&models.AuditLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, catalog caching disabled")
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, event publishing disabled")
		} else {
			defer natsConn.Close()
		}
	}

	var uploader service.FileUploader
	if cfg.CloudinaryCloudName != "" {
		store, err := storage.NewCloudinaryStore(storage.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = store
	} else {
		logger.Warn().Msg("cloudinary not configured, document uploads will be refused")
	}

	var sender service.EmailSender = service.NewLogSender(logger)
	if cfg.MailEndpoint != "" && cfg.MailAPIKey != "" {
		client, err := mailer.New(mailer.Config{
			Endpoint: cfg.MailEndpoint,
			APIKey:   cfg.MailAPIKey,
			From:     cfg.MailFrom,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create mail client: %v", err)
		}
		sender = client
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	catalogService := service.NewCatalogService(catalogRepo, redisClient, cfg.CatalogCacheTTL, logger)
	dispatcher := service.NewNotificationDispatcher(userRepo, catalogService, sender, natsConn, logger)
	auditService := service.NewAuditService(auditRepo, logger)
	authService := service.NewAuthService(userRepo, validate, cfg.SessionSecret, cfg.SessionTTL, logger)
	applicationService := service.NewApplicationService(applicationRepo, validate, dispatcher, logger)
	documentService := service.NewDocumentService(documentRepo, applicationRepo, uploader, logger)
	userService := service.NewUserService(userRepo, auditService, dispatcher, validate, logger)

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()
	dispatcher.Start(dispatcherCtx)

	if err := bootstrapAdmin(db, cfg, logger); err != nil {
		log.Fatalf("failed to bootstrap admin account: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		HealthHandler:           handler.NewHealthHandler(),
		AuthHandler:             handler.NewAuthHandler(authService, logger),
		CatalogHandler:          handler.NewCatalogHandler(catalogService, logger),
		ApplicationHandler:      handler.NewApplicationHandler(applicationService, logger),
		DocumentHandler:         handler.NewDocumentHandler(documentService, logger),
		AdminApplicationHandler: handler.NewAdminApplicationHandler(applicationService, logger),
		AdminUserHandler:        handler.NewAdminUserHandler(userService, logger),
		AdminAuditHandler:       handler.NewAdminAuditHandler(auditService, logger),
		JWTMiddleware:           middleware.JWTProtected(cfg.SessionSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

// bootstrapAdmin provisions the initial admin account when configured and no
// account with that email exists yet.
func bootstrapAdmin(db *gorm.DB, cfg config.Config, logger zerolog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var existing models.User
	err := db.Where("email = ?", cfg.AdminEmail).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), 12)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:        cfg.AdminEmail,
		FullName:     "Portal Administrator",
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
		Active:       true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	logger.Info().Str("email", cfg.AdminEmail).Msg("admin account provisioned")
	return nil
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
