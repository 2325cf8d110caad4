package chat

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	chatroom "github.com/rajivgeraev/toyswap-api/internal/chat"
	"github.com/rajivgeraev/toyswap-api/internal/config"
	"github.com/rajivgeraev/toyswap-api/internal/db"
	"github.com/rajivgeraev/toyswap-api/internal/errs"
	"github.com/rajivgeraev/toyswap-api/internal/middleware"
	"github.com/rajivgeraev/toyswap-api/internal/models"
	"github.com/rajivgeraev/toyswap-api/internal/response"
	"github.com/rajivgeraev/toyswap-api/internal/utils"
	"github.com/rajivgeraev/toyswap-api/internal/validation"
)

// Rooms - операции маршрутизатора комнат, доступные через HTTP
type Rooms interface {
	Send(ctx context.Context, roomID string, senderID, receiverID int64, text string, toyID *int64) (*models.Message, error)
	History(ctx context.Context, roomID string) ([]models.Message, error)
}

// ChatService представляет сервис для работы с чатами
type ChatService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	rooms      Rooms
	log        *logrus.Logger
}

// NewChatService создает новый экземпляр ChatService
func NewChatService(cfg *config.Config, rooms Rooms, log *logrus.Logger) *ChatService {
	return &ChatService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret, cfg.JWTTTL),
		rooms:      rooms,
		log:        log,
	}
}

// GetRoomWith возвращает ID комнаты текущего пользователя с другим пользователем
func (s *ChatService) GetRoomWith(c fiber.Ctx) error {
	userID := middleware.UserID(c)
	otherID, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil || otherID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}
	if otherID == userID {
		return response.Error(c, s.log, errs.Validation("cannot chat with yourself"))
	}
	return c.JSON(fiber.Map{"room_id": chatroom.RoomID(userID, otherID)})
}

// GetChatMessages возвращает историю комнаты от старых сообщений к новым
func (s *ChatService) GetChatMessages(c fiber.Ctx) error {
	roomID := c.Params("room")
	if _, err := s.peer(roomID, middleware.UserID(c)); err != nil {
		return response.Error(c, s.log, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	messages, err := s.rooms.History(ctx, roomID)
	if err != nil {
		return response.Error(c, s.log, err)
	}
	return c.JSON(fiber.Map{"room_id": roomID, "messages": messages})
}

type sendMessageRequest struct {
	Text  string `json:"text" validate:"required"`
	ToyID *int64 `json:"toy_id" validate:"omitempty,gt=0"`
}

// SendMessage отправляет сообщение второму участнику комнаты
func (s *ChatService) SendMessage(c fiber.Ctx) error {
	userID := middleware.UserID(c)
	roomID := c.Params("room")

	receiverID, err := s.peer(roomID, userID)
	if err != nil {
		return response.Error(c, s.log, err)
	}

	var req sendMessageRequest
	if err := c.Bind().Body(&req); err != nil {
		s.log.WithError(err).Debug("Ошибка декодирования тела запроса")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}
	if err := validation.Struct(req); err != nil {
		return response.Error(c, s.log, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	msg, err := s.rooms.Send(ctx, roomID, userID, receiverID, req.Text, req.ToyID)
	if err != nil {
		return response.Error(c, s.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// peer проверяет, что пользователь участник комнаты, и возвращает собеседника
func (s *ChatService) peer(roomID string, userID int64) (int64, error) {
	a, b, err := chatroom.ParseRoomID(roomID)
	if err != nil {
		return 0, err
	}
	switch userID {
	case a:
		return b, nil
	case b:
		return a, nil
	default:
		return 0, &errs.Error{Kind: errs.KindForbidden, Entity: "room", Msg: "not a participant of " + roomID}
	}
}
