package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rajivgeraev/toyswap-api/internal/db"
	"github.com/rajivgeraev/toyswap-api/internal/errs"
	"github.com/rajivgeraev/toyswap-api/internal/models"
)

// Store реализует Catalog поверх PostgreSQL
type Store struct {
	pool   *pgxpool.Pool
	purger MessagePurger
	log    *logrus.Logger
}

// NewStore создает новый экземпляр Store
func NewStore(pool *pgxpool.Pool, purger MessagePurger, log *logrus.Logger) *Store {
	return &Store{pool: pool, purger: purger, log: log}
}

// TelegramUser представляет данные пользователя из Telegram
type TelegramUser struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	PhotoURL   string
}

// GetUser получает пользователя по ID
func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	var username, email, phone, firstName, lastName, avatarURL pgtype.Text

	err := db.Conn(ctx, s.pool).QueryRow(ctx, `
		SELECT id, username, email, phone, first_name, last_name, avatar_url, telegram_id, created_at
		FROM users WHERE id = $1
	`, id).Scan(
		&user.ID, &username, &email, &phone,
		&firstName, &lastName, &avatarURL, &user.TelegramID, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("user", id)
		}
		return nil, fmt.Errorf("ошибка при получении пользователя %d: %w", id, err)
	}

	// Преобразуем nullable поля
	user.Username = username.String
	user.Email = email.String
	user.Phone = phone.String
	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.AvatarURL = avatarURL.String

	return &user, nil
}

// GetToy получает игрушку по ID
func (s *Store) GetToy(ctx context.Context, id int64) (*models.Toy, error) {
	var toy models.Toy
	var price string

	err := db.Conn(ctx, s.pool).QueryRow(ctx, `
		SELECT id, owner_id, name, age_group, description, condition, price::text, image_url, created_at
		FROM toys WHERE id = $1
	`, id).Scan(
		&toy.ID, &toy.OwnerID, &toy.Name, &toy.AgeGroup, &toy.Description,
		&toy.Condition, &price, &toy.ImageURL, &toy.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("toy", id)
		}
		return nil, fmt.Errorf("ошибка при получении игрушки %d: %w", id, err)
	}

	if toy.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("ошибка разбора цены игрушки %d: %w", id, err)
	}
	return &toy, nil
}

// CreateToy сохраняет новую игрушку
func (s *Store) CreateToy(ctx context.Context, toy *models.Toy) error {
	err := db.Conn(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO toys (owner_id, name, age_group, description, condition, price, image_url)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)
		RETURNING id, created_at
	`, toy.OwnerID, toy.Name, toy.AgeGroup, toy.Description, toy.Condition,
		toy.Price.String(), toy.ImageURL).Scan(&toy.ID, &toy.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка при создании игрушки: %w", err)
	}
	return nil
}

// TransferToy передает игрушку новому владельцу
func (s *Store) TransferToy(ctx context.Context, toyID, from, to int64) error {
	tag, err := db.Conn(ctx, s.pool).Exec(ctx, `
		UPDATE toys SET owner_id = $3 WHERE id = $1 AND owner_id = $2
	`, toyID, from, to)
	if err != nil {
		return fmt.Errorf("ошибка при передаче игрушки %d: %w", toyID, err)
	}
	if tag.RowsAffected() == 0 {
		return errs.Conflict("toy", toyID, "toy is no longer owned by user %d", from)
	}
	return nil
}

// UpsertTelegramUser создает пользователя по данным Telegram или обновляет существующего
func (s *Store) UpsertTelegramUser(ctx context.Context, tg TelegramUser) (*models.User, error) {
	var id int64
	err := db.Conn(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO users (telegram_id, username, first_name, last_name, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    avatar_url = EXCLUDED.avatar_url
		RETURNING id
	`, tg.TelegramID, tg.Username, tg.FirstName, tg.LastName, tg.PhotoURL).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("ошибка при сохранении пользователя Telegram: %w", err)
	}
	return s.GetUser(ctx, id)
}

// DeleteUser удаляет пользователя вместе со всеми записями, которые на него ссылаются:
// сообщениями, обменами, оплатами и игрушками. Порядок удаления соответствует внешним ключам.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	return db.InTx(ctx, s.pool, func(ctx context.Context) error {
		q := db.Conn(ctx, s.pool)

		toyIDs, err := s.toyIDs(ctx, q, userID)
		if err != nil {
			return err
		}

		// Переписка может жить в другом хранилище, поэтому чистится через purger
		if err := s.purger.PurgeUser(ctx, userID, toyIDs); err != nil {
			return fmt.Errorf("ошибка при удалении сообщений пользователя %d: %w", userID, err)
		}

		steps := []struct {
			name  string
			query string
		}{
			{"payments", `DELETE FROM payments WHERE buyer_id = $1 OR seller_id = $1 OR toy_id = ANY($2)`},
			{"exchanges", `DELETE FROM exchanges WHERE buyer_id = $1 OR seller_id = $1
				OR buyer_toy_id = ANY($2) OR seller_toy_id = ANY($2)`},
			{"toys", `DELETE FROM toys WHERE owner_id = $1 AND id = ANY($2)`},
		}
		for _, step := range steps {
			tag, err := q.Exec(ctx, step.query, userID, toyIDs)
			if err != nil {
				return fmt.Errorf("ошибка при удалении %s пользователя %d: %w", step.name, userID, err)
			}
			s.log.WithFields(logrus.Fields{"user_id": userID, "table": step.name, "rows": tag.RowsAffected()}).
				Debug("Каскадное удаление")
		}

		tag, err := q.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
		if err != nil {
			return fmt.Errorf("ошибка при удалении пользователя %d: %w", userID, err)
		}
		if tag.RowsAffected() == 0 {
			return errs.NotFound("user", userID)
		}
		return nil
	})
}

func (s *Store) toyIDs(ctx context.Context, q db.Querier, userID int64) ([]int64, error) {
	rows, err := q.Query(ctx, `SELECT id FROM toys WHERE owner_id = $1 FOR UPDATE`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении игрушек пользователя %d: %w", userID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении игрушек пользователя %d: %w", userID, err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}
