package toy

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/toyswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API игрушек
func (s *ToyService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/toys")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Post("/", s.CreateToy)
	api.Get("/:id", s.GetToy)
}
