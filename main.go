package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Aksuiekbro/debetter-sub000/handlers"
	"github.com/Aksuiekbro/debetter-sub000/middleware"
	"github.com/Aksuiekbro/debetter-sub000/models"
	"github.com/Aksuiekbro/debetter-sub000/services"
	"github.com/Aksuiekbro/debetter-sub000/utils"
	"github.com/Aksuiekbro/debetter-sub000/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 25 * 1024 * 1024, // ballot photos and venue maps
	})

	// 🔐 GLOBAL: only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitAssetStore(); err != nil {
		log.Fatal("failed to initialize asset store:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Tournament{},
		&models.Evaluation{},
		&models.Notification{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	store := services.NewTournamentStore(db)
	notifier := services.NewDBNotifier(db)

	tournamentService := services.NewTournamentService(db, store)
	registrationService := services.NewRegistrationService(store)
	teamService := services.NewTeamService(store)
	bracketService := services.NewBracketService(store)
	postingService := services.NewPostingService(store, notifier)
	evaluationService := services.NewEvaluationService(db, store)

	webhookURL := os.Getenv("NOTIFY_WEBHOOK_URL")
	serviceToken := os.Getenv("DEBATE_SERVICE_TOKEN")
	if webhookURL == "" {
		log.Println("⚠️  NOTIFY_WEBHOOK_URL not set, notification dispatch disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if webhookURL != "" {
		dispatchWorker := workers.NewNotificationDispatchWorker(db, webhookURL, serviceToken)
		dispatchWorker.Start(ctx)
	}

	postingService.StartReminderScheduler()

	handlers.SetupTournamentRoutes(app,
		tournamentService, registrationService, teamService,
		bracketService, postingService, evaluationService,
	)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Posting reminder scheduler running")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
