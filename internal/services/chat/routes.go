package chat

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/toyswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API чатов
func (s *ChatService) SetupRoutes(app *fiber.App) {
	// Группа для API чатов
	api := app.Group("/api/chats")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для получения комнаты с пользователем
	api.Get("/with/:userId", s.GetRoomWith)

	// Маршрут для получения сообщений чата
	api.Get("/:room/messages", s.GetChatMessages)

	// Маршрут для отправки сообщения
	api.Post("/:room/messages", s.SendMessage)
}
