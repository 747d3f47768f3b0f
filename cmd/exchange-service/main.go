package main

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/KLLNR/trading-exchange-api/internal/cache"
	"github.com/KLLNR/trading-exchange-api/internal/clients"
	"github.com/KLLNR/trading-exchange-api/internal/config"
	"github.com/KLLNR/trading-exchange-api/internal/db"
	"github.com/KLLNR/trading-exchange-api/internal/exchange"
	"github.com/KLLNR/trading-exchange-api/internal/middleware"
	"github.com/KLLNR/trading-exchange-api/internal/utils"
)

func main() {
	cfg := config.LoadConfig()

	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("init database: %v", err)
	}
	defer db.CloseDB()

	app := fiber.New(fiber.Config{
		AppName:      "Trading Exchange API",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	store := exchange.NewPostgresStore(db.Pool)
	catalog := clients.NewCatalogClient(cfg.CatalogConfig)
	users := clients.NewUserClient(cfg.UsersConfig)

	var addressCache exchange.AddressCache
	if cfg.RedisAddr != "" {
		addressCache = cache.NewAddressCache(cache.New(cfg.RedisAddr))
	}

	gate := exchange.NewAddressGate(users, store, addressCache)
	svc := exchange.NewService(store, catalog, users, gate)
	handler := exchange.NewHandler(svc)

	jwtService := utils.NewJWTService(cfg.JWTSecret)
	authMiddleware := middleware.AuthMiddleware(jwtService)

	handler.SetupRoutes(app, authMiddleware)

	log.Printf("exchange API listening on %s", cfg.ListenAddr)
	log.Fatal(app.Listen(cfg.ListenAddr))
}

// errorHandler renders unhandled Fiber errors as JSON.
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
