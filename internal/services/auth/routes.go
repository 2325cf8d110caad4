package auth

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/toyswap-api/internal/middleware"
)

// SetupRoutes регистрирует маршруты в Fiber
func (s *AuthService) SetupRoutes(app *fiber.App) {
	app.Post("/api/auth/telegram", s.TelegramAuthHandler)

	// Защищенные маршруты
	protected := app.Group("/api/profile")
	protected.Use(middleware.AuthMiddleware(s.jwtService))

	protected.Get("/", s.GetProfile)
	protected.Delete("/", s.DeleteProfile)
}
