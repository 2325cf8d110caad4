package trade

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rajivgeraev/toyswap-api/internal/config"
	"github.com/rajivgeraev/toyswap-api/internal/db"
	"github.com/rajivgeraev/toyswap-api/internal/middleware"
	"github.com/rajivgeraev/toyswap-api/internal/models"
	"github.com/rajivgeraev/toyswap-api/internal/response"
	"github.com/rajivgeraev/toyswap-api/internal/utils"
	"github.com/rajivgeraev/toyswap-api/internal/validation"
)

// Machine - операции машины состояний обменов и оплат
type Machine interface {
	Propose(ctx context.Context, actorID, buyerToyID, sellerToyID int64) (*models.Exchange, error)
	Respond(ctx context.Context, actorID, id int64, accept bool) (*models.Exchange, error)
	Complete(ctx context.Context, actorID, id int64) (*models.Exchange, error)
	GetExchange(ctx context.Context, actorID, id int64) (*models.Exchange, error)
	ListExchanges(ctx context.Context, userID int64, status models.ExchangeStatus) ([]models.Exchange, error)

	Initiate(ctx context.Context, buyerID, toyID int64, amount decimal.Decimal) (*models.Payment, error)
	Settle(ctx context.Context, actorID, id int64, success bool) (*models.Payment, error)
	Refund(ctx context.Context, actorID, id int64) (*models.Payment, error)
	GetPayment(ctx context.Context, actorID, id int64) (*models.Payment, error)
	ListPayments(ctx context.Context, userID int64) ([]models.Payment, error)
}

// TradeService представляет сервис для работы с обменами и оплатами
type TradeService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	machine    Machine
	log        *logrus.Logger
}

// NewTradeService создает новый экземпляр TradeService
func NewTradeService(cfg *config.Config, machine Machine, log *logrus.Logger) *TradeService {
	return &TradeService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret, cfg.JWTTTL),
		machine:    machine,
		log:        log,
	}
}

type proposeRequest struct {
	BuyerToyID  int64 `json:"buyer_toy_id" validate:"required,gt=0"`
	SellerToyID int64 `json:"seller_toy_id" validate:"required,gt=0"`
}

// CreateExchange создает предложение обмена
func (s *TradeService) CreateExchange(c fiber.Ctx) error {
	var req proposeRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}
	if err := validation.Struct(req); err != nil {
		return response.Error(c, s.log, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	ex, err := s.machine.Propose(ctx, middleware.UserID(c), req.BuyerToyID, req.SellerToyID)
	if err != nil {
		return response.Error(c, s.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ex)
}

// GetMyExchanges возвращает обмены пользователя; ?status= фильтрует по статусу
func (s *TradeService) GetMyExchanges(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	exchanges, err := s.machine.ListExchanges(ctx, middleware.UserID(c), models.ExchangeStatus(c.Query("status")))
	if err != nil {
		return response.Error(c, s.log, err)
	}
	return c.JSON(fiber.Map{"exchanges": exchanges})
}

// GetExchange возвращает обмен по ID
func (s *TradeService) GetExchange(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	ex, err := s.machine.GetExchange(ctx, middleware.UserID(c), id)
	if err != nil {
		return response.Error(c, s.log, err)
	}
	return c.JSON(ex)
}

type respondRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

// RespondExchange принимает или отклоняет предложение обмена
func (s *TradeService) RespondExchange(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID"})
	}

	var req respondRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}
	if err := validation.Struct(req); err != nil {
		return response.Error(c, s.log, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	ex, err := s.machine.Respond(ctx, middleware.UserID(c), id, *req.Accept)
	if err != nil {
		return response.Error(c, s.log, err)
	}
	return c.JSON(ex)
}

// CompleteExchange завершает принятый обмен
func (s *TradeService) CompleteExchange(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	ex, err := s.machine.Complete(ctx, middleware.UserID(c), id)
	if err != nil {
		return response.Error(c, s.log, err)
	}
	return c.JSON(ex)
}

type initiateRequest struct {
	ToyID  int64           `json:"toy_id" validate:"required,gt=0"`
	Amount decimal.Decimal `json:"amount"`
}

// CreatePayment создает оплату игрушки текущим пользователем
func (s *TradeService) CreatePayment(c fiber.Ctx) error {
	var req initiateRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}
	if err := validation.Struct(req); err != nil {
		return response.Error(c, s.log, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	p, err := s.machine.Initiate(ctx, middleware.UserID(c), req.ToyID, req.Amount)
	if err != nil {
		return response.Error(c, s.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// GetMyPayments возвращает оплаты, где пользователь покупатель или продавец
func (s *TradeService) GetMyPayments(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	payments, err := s.machine.ListPayments(ctx, middleware.UserID(c))
	if err != nil {
		return response.Error(c, s.log, err)
	}
	return c.JSON(fiber.Map{"payments": payments})
}

// GetPayment возвращает оплату по ID
func (s *TradeService) GetPayment(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	p, err := s.machine.GetPayment(ctx, middleware.UserID(c), id)
	if err != nil {
		return response.Error(c, s.log, err)
	}
	return c.JSON(p)
}

type settleRequest struct {
	Success *bool `json:"success" validate:"required"`
}

// SettlePayment фиксирует результат оплаты
func (s *TradeService) SettlePayment(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID"})
	}

	var req settleRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}
	if err := validation.Struct(req); err != nil {
		return response.Error(c, s.log, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	p, err := s.machine.Settle(ctx, middleware.UserID(c), id, *req.Success)
	if err != nil {
		return response.Error(c, s.log, err)
	}
	return c.JSON(p)
}

// RefundPayment возвращает завершенную оплату
func (s *TradeService) RefundPayment(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	p, err := s.machine.Refund(ctx, middleware.UserID(c), id)
	if err != nil {
		return response.Error(c, s.log, err)
	}
	return c.JSON(p)
}

func parseID(c fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}
