package auth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/rajivgeraev/toyswap-api/internal/catalog"
	"github.com/rajivgeraev/toyswap-api/internal/config"
	"github.com/rajivgeraev/toyswap-api/internal/db"
	"github.com/rajivgeraev/toyswap-api/internal/middleware"
	"github.com/rajivgeraev/toyswap-api/internal/models"
	"github.com/rajivgeraev/toyswap-api/internal/response"
	"github.com/rajivgeraev/toyswap-api/internal/utils"
)

// UserStore - хранилище пользователей, нужное авторизации и профилю
type UserStore interface {
	UpsertTelegramUser(ctx context.Context, tg catalog.TelegramUser) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// AuthService – структура для обработки авторизации
type AuthService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	users      UserStore
	log        *logrus.Logger
}

// NewAuthService – конструктор AuthService
func NewAuthService(cfg *config.Config, users UserStore, log *logrus.Logger) *AuthService {
	return &AuthService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret, cfg.JWTTTL),
		users:      users,
		log:        log,
	}
}

// GetJWTService возвращает сервис токенов, общий для всех защищенных маршрутов
func (s *AuthService) GetJWTService() *utils.JWTService {
	return s.jwtService
}

// TelegramAuthHandler проверяет initData, создает или обновляет пользователя и возвращает JWT
func (s *AuthService) TelegramAuthHandler(c fiber.Ctx) error {
	var payload struct {
		InitData string `json:"init_data"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	// Проверяем initData
	expiration := 24 * time.Hour
	if err := initdata.Validate(payload.InitData, s.cfg.TelegramBotToken, expiration); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Telegram data"})
	}

	// Парсим данные
	data, err := initdata.Parse(payload.InitData)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to parse initData"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.users.UpsertTelegramUser(ctx, catalog.TelegramUser{
		TelegramID: data.User.ID,
		Username:   data.User.Username,
		FirstName:  data.User.FirstName,
		LastName:   data.User.LastName,
		PhotoURL:   data.User.PhotoURL,
	})
	if err != nil {
		return response.Error(c, s.log, err)
	}

	// Генерируем JWT
	jwtToken, err := s.jwtService.GenerateToken(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate JWT"})
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "telegram_id": data.User.ID}).Info("Вход через Telegram")
	return c.JSON(fiber.Map{
		"token": jwtToken,
		"user":  user,
	})
}

// GetProfile возвращает профиль текущего пользователя
func (s *AuthService) GetProfile(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.users.GetUser(ctx, middleware.UserID(c))
	if err != nil {
		return response.Error(c, s.log, err)
	}
	return c.JSON(user)
}

// DeleteProfile удаляет пользователя вместе с его игрушками, перепиской, обменами и оплатами
func (s *AuthService) DeleteProfile(c fiber.Ctx) error {
	userID := middleware.UserID(c)

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return response.Error(c, s.log, err)
	}

	s.log.WithField("user_id", userID).Info("Пользователь удален")
	return c.JSON(fiber.Map{"message": "Профиль удален"})
}
