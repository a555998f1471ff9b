package router

import (
	"time"

	actsvc "clearledger-backend/internal/application/activity"
	adjsvc "clearledger-backend/internal/application/adjustments"
	credsvc "clearledger-backend/internal/application/credits"
	projsvc "clearledger-backend/internal/application/projects"
	statsvc "clearledger-backend/internal/application/statistics"
	verifsvc "clearledger-backend/internal/application/verifications"
	"clearledger-backend/internal/config"
	"clearledger-backend/internal/infrastructure/cache"
	"clearledger-backend/internal/infrastructure/database"
	acthandler "clearledger-backend/internal/interfaces/handlers/activity"
	adjhandler "clearledger-backend/internal/interfaces/handlers/adjustments"
	credhandler "clearledger-backend/internal/interfaces/handlers/credits"
	healthhandler "clearledger-backend/internal/interfaces/handlers/health"
	projhandler "clearledger-backend/internal/interfaces/handlers/projects"
	stathandler "clearledger-backend/internal/interfaces/handlers/statistics"
	verifhandler "clearledger-backend/internal/interfaces/handlers/verifications"
	"clearledger-backend/internal/middleware"
	"clearledger-backend/internal/notary"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app with all global middleware and routes.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, err
	}
	if err := database.SeedVerificationStages(db); err != nil {
		return nil, nil, err
	}

	statsCache := cache.New(cfg.RedisURL, time.Duration(cfg.StatsCacheTTLSec)*time.Second)
	chain := notary.NewMockChain(cfg.NotaryNetwork)
	audit := &actsvc.Service{DB: db}

	projects := &projhandler.Handlers{Service: &projsvc.Service{DB: db, Activity: audit, Notary: chain, Cache: statsCache}}
	verifications := &verifhandler.Handlers{Service: &verifsvc.Service{DB: db, Activity: audit, Notary: chain, Cache: statsCache}}
	credits := &credhandler.Handlers{Service: &credsvc.Service{DB: db, Activity: audit, Notary: chain, Cache: statsCache}}
	adjustments := &adjhandler.Handlers{Service: &adjsvc.Service{DB: db, Activity: audit, Notary: chain}}
	activity := &acthandler.Handlers{Service: audit}
	stats := &stathandler.Handlers{Service: &statsvc.Service{DB: db}, Cache: statsCache}
	health := &healthhandler.Handlers{DB: &gormDBPinger{db: db}, Rdb: statsCache.Rdb}

	app.Get("/health", health.Get)

	api := app.Group("/api")

	api.Get("/projects", projects.List)
	api.Post("/projects", projects.Create)
	api.Get("/projects/:id", projects.Get)
	api.Put("/projects/:id", projects.Update)

	api.Get("/verification-stages", verifications.ListStages)
	api.Get("/verifications", verifications.List)
	api.Post("/verifications", verifications.Create)
	api.Get("/verifications/:id", verifications.Get)
	api.Put("/verifications/:id", verifications.Update)
	api.Post("/verifications/:id/complete-stage/:stageId", verifications.CompleteStage)
	api.Get("/verifications/:id/documents", verifications.ListDocuments)
	api.Post("/verifications/:id/documents", verifications.AddDocument)
	api.Get("/verifications/:id/comments", verifications.ListComments)
	api.Post("/verifications/:id/comments", verifications.AddComment)
	api.Patch("/verification-documents/:id", verifications.SetDocumentStatus)

	api.Get("/credits", credits.List)
	api.Post("/credits", credits.Issue)
	api.Get("/credits/:id", credits.Get)
	api.Post("/credits/:id/retire", credits.Retire)
	api.Post("/credits/:id/transfer", credits.Transfer)
	api.Patch("/credits/:id/paris-compliance", credits.UpdateParisCompliance)

	api.Get("/participants", credits.ListParticipants)
	api.Post("/participants", credits.CreateParticipant)

	api.Get("/adjustments", adjustments.List)
	api.Post("/adjustments", adjustments.Create)
	api.Get("/adjustments/:id", adjustments.Get)
	api.Patch("/adjustments/:id", adjustments.Update)

	api.Get("/activity", activity.List)
	api.Get("/statistics", stats.Get)

	return app, db, nil
}
