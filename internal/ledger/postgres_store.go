package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajivgeraev/toyswap-api/internal/db"
	"github.com/rajivgeraev/toyswap-api/internal/models"
)

// PostgresStore хранит сообщения в таблице messages
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Append записывает сообщение. Advisory-блокировка по комнате сериализует запись
// между инстансами, время берется не меньше последнего в комнате.
func (s *PostgresStore) Append(ctx context.Context, msg *models.Message) error {
	return db.InTx(ctx, s.pool, func(ctx context.Context) error {
		q := db.Conn(ctx, s.pool)

		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, msg.RoomID); err != nil {
			return fmt.Errorf("ошибка блокировки комнаты %s: %w", msg.RoomID, err)
		}

		return q.QueryRow(ctx, `
			INSERT INTO messages (room_id, sender_id, receiver_id, toy_id, text, created_at)
			SELECT $1, $2, $3, $4, $5,
			       GREATEST(clock_timestamp(), COALESCE(MAX(created_at), '-infinity'::timestamptz))
			FROM messages WHERE room_id = $1
			RETURNING id, created_at
		`, msg.RoomID, msg.SenderID, msg.ReceiverID, msg.ToyID, msg.Text).Scan(&msg.ID, &msg.CreatedAt)
	})
}

// Fetch читает историю комнаты в порядке записи
func (s *PostgresStore) Fetch(ctx context.Context, roomID string) ([]models.Message, error) {
	rows, err := db.Conn(ctx, s.pool).Query(ctx, `
		SELECT id, room_id, sender_id, receiver_id, toy_id, text, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at ASC, id ASC
	`, roomID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Message, error) {
		var msg models.Message
		err := row.Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.ReceiverID, &msg.ToyID, &msg.Text, &msg.CreatedAt)
		return msg, err
	})
}

// PurgeUser удаляет все сообщения пользователя и сообщения о его игрушках
func (s *PostgresStore) PurgeUser(ctx context.Context, userID int64, toyIDs []int64) error {
	_, err := db.Conn(ctx, s.pool).Exec(ctx, `
		DELETE FROM messages
		WHERE sender_id = $1 OR receiver_id = $1 OR toy_id = ANY($2)
	`, userID, toyIDs)
	return err
}
