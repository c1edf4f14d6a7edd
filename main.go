package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Lyzus243/Studyrpg2/handlers"
	"github.com/Lyzus243/Studyrpg2/middleware"
	"github.com/Lyzus243/Studyrpg2/models"
	"github.com/Lyzus243/Studyrpg2/services"
	"github.com/Lyzus243/Studyrpg2/workers"

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

	app := fiber.New(fiber.Config{})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
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

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
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

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.StudyGroup{},
		&models.GroupMember{},
		&models.GroupBossBattle{},
		&models.BattleParticipant{},
		&models.UserProgress{},
		&models.ItemGrant{},
		&models.BadgeType{},
		&models.UserBadge{},
		&models.StudyUser{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("STUDY_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("STUDY_SERVICE_TOKEN environment variable not set")
	}

	authClient := services.NewAuthServiceClient(authServiceURL, serviceToken)

	// Battle engine wiring: per-battle serialized store, registry fan-out,
	// reward distribution on the completing attack.
	registry := services.NewChannelRegistry()
	store := services.NewGormBattleStore(db)
	guard := services.NewGormMembershipGuard(db)
	participants := services.NewGormParticipantRepo(db)
	progressionService := services.NewProgressionService(db)
	grantService := services.NewItemGrantService(db)
	distributor := services.NewRewardDistributor(participants, progressionService, grantService)
	battleService := services.NewBattleService(store, guard, participants, registry, distributor)

	groupService := services.NewGroupService(db)
	userService := services.NewUserService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := workers.NewStudyUserSyncWorker(db, authServiceURL, "/api/v1/public/profiles", serviceToken)
	syncWorker.Start(ctx)

	battleService.StartStaleBattleSweeper(db)

	battleHandler := handlers.NewBattleHandler(battleService, progressionService)
	streamHandler := handlers.NewBattleStreamHandler(battleService, registry, guard, userService)
	progressionHandler := handlers.NewProgressionHandler(db, progressionService, grantService)

	handlers.SetupBattleRoutes(app, battleHandler, streamHandler, authClient)
	handlers.SetupGroupRoutes(app, groupService, userService)
	handlers.SetupProgressionRoutes(app, progressionHandler, authClient)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8300"
	}

	go func() {
		<-ctx.Done()
		log.Println("⏹️ Shutting down...")
		_ = app.Shutdown()
	}()

	log.Printf("✅ Study battle service listening on :%s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}
