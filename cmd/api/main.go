package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "voicepool/internal/common/api"
	"voicepool/internal/config"
	"voicepool/internal/connectors"
	"voicepool/internal/database"
	"voicepool/internal/features/allocator"
	"voicepool/internal/features/audit"
	"voicepool/internal/features/credential"
	"voicepool/internal/features/events"
	"voicepool/internal/features/health"
	"voicepool/internal/features/ledger"
	"voicepool/internal/features/migration"
	"voicepool/internal/features/resource"
	"voicepool/internal/features/retryqueue"
	"voicepool/internal/features/scheduler"
	"voicepool/internal/features/settings"
	"voicepool/internal/features/sync"
	"voicepool/internal/features/system"
	"voicepool/internal/logger"
	"voicepool/internal/metrics"
	"voicepool/internal/middleware"
	"voicepool/internal/voiceplatform"
	"voicepool/pkg/utils"

	_ "voicepool/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d routes\n", len(routes))
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	utils.SetSecret(cfg.JWTSecret)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(lc fx.Lifecycle, credRepo credential.CredentialRepository, resourceRepo resource.ResourceRepository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := credRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure credential indexes: %v", err)
				}
				if err := resourceRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure resource indexes: %v", err)
				}
			}()
			return nil
		},
	})
}

// NewPanelConnector picks the SQL driver the panel store runs on.
func NewPanelConnector(cfg *config.Config) connectors.Connector {
	driver := "postgres"
	if cfg.PanelDBDriver == "mysql" {
		driver = "mysql"
	}
	return connectors.NewPanelDBConnector(driver)
}

// allocatorSelector adapts the allocator to the narrow interface the
// resource service depends on.
type allocatorSelector struct {
	svc allocator.AllocatorService
}

func (a *allocatorSelector) SelectForOwner(ctx context.Context, ownerID string) (*credential.Credential, error) {
	return a.svc.SelectCredential(ctx, allocator.SelectionRequest{OwnerID: ownerID})
}

// @title           VoicePool Admin API
// @version         1.0
// @description     Credential pool and resource migration service for tenant voice resources.

// @host            localhost:8000
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Shared infrastructure
			metrics.NewMetrics,
			events.NewHub,
			voiceplatform.NewHTTPClient,
			NewPanelConnector,

			// Initialize Repository
			audit.NewAuditRepository,
			credential.NewCredentialRepository,
			resource.NewResourceRepository,
			resource.NewConnectionRepository,
			settings.NewSettingsRepository,
			migration.NewAttemptRepository,
			sync.NewSyncRepository,

			audit.NewAuditService,
			settings.NewSettingsService,
			credential.NewCredentialService,
			allocator.NewAllocatorService,
			ledger.NewLedgerService,
			resource.NewResourceService,
			migration.NewMigrationService,
			retryqueue.NewRetryQueueService,
			health.NewHealthService,
			sync.NewSyncService,
			scheduler.NewSchedulerService,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(r resource.ResourceRepository) credential.AssignmentCounter { return r },
			func(s allocator.AllocatorService) resource.CredentialSelector {
				return &allocatorSelector{svc: s}
			},
			func(s ledger.LedgerService) resource.AssignmentRecorder { return s },

			// Initialize Controller
			audit.NewAuditController,
			credential.NewCredentialController,
			resource.NewResourceController,
			allocator.NewAllocatorController,
			ledger.NewLedgerController,
			migration.NewMigrationController,
			retryqueue.NewRetryQueueController,
			health.NewHealthController,
			settings.NewSettingsController,
			sync.NewSyncController,
			events.NewEventsController,

			// Initialize API Routes
			AsRoute(audit.NewAuditApi),
			AsRoute(credential.NewCredentialApi),
			AsRoute(resource.NewResourceApi),
			AsRoute(allocator.NewAllocatorApi),
			AsRoute(ledger.NewLedgerApi),
			AsRoute(migration.NewMigrationApi),
			AsRoute(retryqueue.NewRetryQueueApi),
			AsRoute(health.NewHealthApi),
			AsRoute(settings.NewSettingsApi),
			AsRoute(sync.NewSyncApi),
			AsRoute(events.NewEventsApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewMetricsApi),
			AsRoute(system.NewStatusApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, schedulerService scheduler.SchedulerService) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return schedulerService.InitializeScheduler(ctx)
					},
					OnStop: func(ctx context.Context) error {
						return schedulerService.StopScheduler()
					},
				})
			},
			InitializeIndexes,
		),
	)

	app.Run()
}
