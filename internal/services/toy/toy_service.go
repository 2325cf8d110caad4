package toy

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rajivgeraev/toyswap-api/internal/config"
	"github.com/rajivgeraev/toyswap-api/internal/db"
	"github.com/rajivgeraev/toyswap-api/internal/errs"
	"github.com/rajivgeraev/toyswap-api/internal/middleware"
	"github.com/rajivgeraev/toyswap-api/internal/models"
	"github.com/rajivgeraev/toyswap-api/internal/response"
	"github.com/rajivgeraev/toyswap-api/internal/utils"
	"github.com/rajivgeraev/toyswap-api/internal/validation"
)

// ToyStore - хранилище игрушек
type ToyStore interface {
	CreateToy(ctx context.Context, toy *models.Toy) error
	GetToy(ctx context.Context, id int64) (*models.Toy, error)
}

// ToyService представляет сервис для работы с игрушками
type ToyService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	toys       ToyStore
	log        *logrus.Logger
}

// NewToyService создает новый экземпляр ToyService
func NewToyService(cfg *config.Config, toys ToyStore, log *logrus.Logger) *ToyService {
	return &ToyService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret, cfg.JWTTTL),
		toys:       toys,
		log:        log,
	}
}

type createToyRequest struct {
	Name        string          `json:"name" validate:"required,max=120"`
	AgeGroup    string          `json:"age_group" validate:"required,max=40"`
	Description string          `json:"description"`
	Condition   string          `json:"condition" validate:"required,toycondition"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
}

// CreateToy обрабатывает создание новой игрушки текущего пользователя
func (s *ToyService) CreateToy(c fiber.Ctx) error {
	var req createToyRequest
	if err := c.Bind().Body(&req); err != nil {
		s.log.WithError(err).Debug("Ошибка декодирования тела запроса")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}
	if err := validation.Struct(req); err != nil {
		return response.Error(c, s.log, err)
	}
	if req.Price.IsNegative() {
		return response.Error(c, s.log, errs.Validation("price must not be negative"))
	}

	toy := &models.Toy{
		OwnerID:     middleware.UserID(c),
		Name:        req.Name,
		AgeGroup:    req.AgeGroup,
		Description: req.Description,
		Condition:   req.Condition,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.toys.CreateToy(ctx, toy); err != nil {
		return response.Error(c, s.log, err)
	}

	s.log.WithFields(logrus.Fields{"toy_id": toy.ID, "owner_id": toy.OwnerID}).Info("Игрушка создана")
	return c.Status(fiber.StatusCreated).JSON(toy)
}

// GetToy возвращает игрушку по ID
func (s *ToyService) GetToy(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID игрушки"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	toy, err := s.toys.GetToy(ctx, id)
	if err != nil {
		return response.Error(c, s.log, err)
	}
	return c.JSON(toy)
}
