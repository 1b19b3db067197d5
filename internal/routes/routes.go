package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/pvolkov/filecrate/internal/config"
	"github.com/pvolkov/filecrate/internal/handlers"
	"github.com/pvolkov/filecrate/internal/middleware"
	"github.com/pvolkov/filecrate/internal/models"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	fileHandler *handlers.FileHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — public; stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/super", authHandler.SuperLogin)
	auth.Post("/yandex", authHandler.YandexLogin)
	auth.Get("/yandex/callback", authHandler.YandexCallback)

	admin := middleware.RequireRoles(models.RoleAdmin)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleClient)

	// Users. The me-routes are registered before :id so they match first.
	user := api.Group("/user", middleware.Protected(cfg), middleware.LoadAccount(db))
	user.Get("/me", anyRole, userHandler.Me)
	user.Patch("/me", anyRole, userHandler.UpdateMe)
	user.Delete("/me", anyRole, userHandler.DeleteMe)
	user.Get("/", admin, userHandler.List)
	user.Get("/:id", admin, userHandler.GetByID)
	user.Patch("/:id", admin, userHandler.UpdateByID)
	user.Delete("/:id", admin, userHandler.DeleteByID)
	user.Post("/:id/restore", admin, userHandler.RestoreByID)

	// Files
	file := api.Group("/file", middleware.Protected(cfg), middleware.LoadAccount(db))
	file.Get("/", anyRole, fileHandler.List)
	file.Post("/", anyRole, fileHandler.Upload)
	file.Get("/:id", anyRole, fileHandler.GetByID)
	file.Get("/:id/download", anyRole, fileHandler.Download)
	file.Patch("/:id", anyRole, fileHandler.UpdateByID)
	file.Delete("/:id", anyRole, fileHandler.DeleteByID)
	file.Post("/:id/restore", anyRole, fileHandler.RestoreByID)
}
