package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rajivgeraev/toyswap-api/internal/errs"
	"github.com/rajivgeraev/toyswap-api/internal/models"
)

// Store хранит сообщения. Append присваивает ID и время сервера так,
// чтобы время в пределах комнаты не убывало, и возвращается только после записи.
type Store interface {
	Append(ctx context.Context, msg *models.Message) error
	Fetch(ctx context.Context, roomID string) ([]models.Message, error)
	PurgeUser(ctx context.Context, userID int64, toyIDs []int64) error
}

// Directory проверяет существование участников и игрушки
type Directory interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetToy(ctx context.Context, id int64) (*models.Toy, error)
}

// Ledger - журнал переписки: только добавление и чтение по комнате
type Ledger struct {
	store Store
	dir   Directory
	log   *logrus.Logger
}

// New создает новый экземпляр Ledger
func New(store Store, dir Directory, log *logrus.Logger) *Ledger {
	return &Ledger{store: store, dir: dir, log: log}
}

// Append проверяет и сохраняет сообщение, возвращая его с ID и временем
func (l *Ledger) Append(ctx context.Context, msg models.Message) (*models.Message, error) {
	if msg.RoomID == "" {
		return nil, errs.Validation("room id is required")
	}
	if msg.SenderID == msg.ReceiverID {
		return nil, errs.Validation("sender and receiver must differ")
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil, errs.Validation("message text is empty")
	}

	if err := l.resolveUser(ctx, "sender", msg.SenderID); err != nil {
		return nil, err
	}
	if err := l.resolveUser(ctx, "receiver", msg.ReceiverID); err != nil {
		return nil, err
	}
	if msg.ToyID != nil {
		if _, err := l.dir.GetToy(ctx, *msg.ToyID); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return nil, errs.Validation("toy %d does not exist", *msg.ToyID)
			}
			return nil, fmt.Errorf("ошибка проверки игрушки: %w", err)
		}
	}

	if err := l.store.Append(ctx, &msg); err != nil {
		return nil, fmt.Errorf("ошибка сохранения сообщения: %w", err)
	}

	l.log.WithFields(logrus.Fields{"room_id": msg.RoomID, "message_id": msg.ID}).Debug("Сообщение записано")
	return &msg, nil
}

// Fetch возвращает историю комнаты от старых к новым; пустая комната - пустой срез
func (l *Ledger) Fetch(ctx context.Context, roomID string) ([]models.Message, error) {
	messages, err := l.store.Fetch(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения истории %s: %w", roomID, err)
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

// PurgeUser удаляет переписку пользователя, используется каскадным удалением каталога
func (l *Ledger) PurgeUser(ctx context.Context, userID int64, toyIDs []int64) error {
	return l.store.PurgeUser(ctx, userID, toyIDs)
}

func (l *Ledger) resolveUser(ctx context.Context, role string, id int64) error {
	if _, err := l.dir.GetUser(ctx, id); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.Validation("%s %d does not exist", role, id)
		}
		return fmt.Errorf("ошибка проверки пользователя: %w", err)
	}
	return nil
}
