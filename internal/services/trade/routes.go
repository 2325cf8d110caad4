package trade

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/toyswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API обменов и оплат
func (s *TradeService) SetupRoutes(app *fiber.App) {
	auth := middleware.AuthMiddleware(s.jwtService)

	exchanges := app.Group("/api/exchanges")
	exchanges.Use(auth)

	exchanges.Post("/", s.CreateExchange)
	exchanges.Get("/", s.GetMyExchanges)
	exchanges.Get("/:id", s.GetExchange)
	exchanges.Put("/:id/respond", s.RespondExchange)
	exchanges.Put("/:id/complete", s.CompleteExchange)

	payments := app.Group("/api/payments")
	payments.Use(auth)

	payments.Post("/", s.CreatePayment)
	payments.Get("/", s.GetMyPayments)
	payments.Get("/:id", s.GetPayment)
	payments.Put("/:id/settle", s.SettlePayment)
	payments.Put("/:id/refund", s.RefundPayment)
}
