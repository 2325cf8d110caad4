package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rajivgeraev/toyswap-api/internal/db"
	"github.com/rajivgeraev/toyswap-api/internal/errs"
	"github.com/rajivgeraev/toyswap-api/internal/models"
)

const (
	exchangeColumns = `id, status, buyer_id, seller_id, buyer_toy_id, seller_toy_id, created_at, updated_at`
	paymentColumns  = `id, status, amount::text, buyer_id, seller_id, toy_id, created_at, updated_at`
)

// PostgresRepository реализует Repository поверх PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создает новый экземпляр PostgresRepository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateExchange(ctx context.Context, ex *models.Exchange) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO exchanges (status, buyer_id, seller_id, buyer_toy_id, seller_toy_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, ex.Status, ex.BuyerID, ex.SellerID, ex.BuyerToyID, ex.SellerToyID).Scan(&ex.ID, &ex.CreatedAt, &ex.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания обмена: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetExchange(ctx context.Context, id int64) (*models.Exchange, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+exchangeColumns+` FROM exchanges WHERE id = $1`, id)
	return scanExchangeRow(row, id)
}

// ListExchanges возвращает обмены, где пользователь покупатель или продавец. Пустой status - все статусы.
func (r *PostgresRepository) ListExchanges(ctx context.Context, userID int64, status models.ExchangeStatus) ([]models.Exchange, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+exchangeColumns+` FROM exchanges
		WHERE (buyer_id = $1 OR seller_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY updated_at DESC, id DESC
	`, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("ошибка получения обменов: %w", err)
	}
	exchanges, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Exchange, error) {
		var ex models.Exchange
		err := row.Scan(&ex.ID, &ex.Status, &ex.BuyerID, &ex.SellerID, &ex.BuyerToyID, &ex.SellerToyID, &ex.CreatedAt, &ex.UpdatedAt)
		return ex, err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения обменов: %w", err)
	}
	if exchanges == nil {
		exchanges = []models.Exchange{}
	}
	return exchanges, nil
}

func (r *PostgresRepository) HasPendingExchange(ctx context.Context, buyerToyID, sellerToyID int64) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM exchanges
			WHERE buyer_toy_id = $1 AND seller_toy_id = $2 AND status = 'pending'
		)
	`, buyerToyID, sellerToyID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки существующих обменов: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) UpdateExchange(ctx context.Context, id int64, fn func(ctx context.Context, ex *models.Exchange) error) (*models.Exchange, error) {
	var ex *models.Exchange
	err := db.InTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.Conn(ctx, r.pool)

		var err error
		ex, err = scanExchangeRow(q.QueryRow(ctx, `SELECT `+exchangeColumns+` FROM exchanges WHERE id = $1 FOR UPDATE`, id), id)
		if err != nil {
			return err
		}
		if err := fn(ctx, ex); err != nil {
			return err
		}

		err = q.QueryRow(ctx, `
			UPDATE exchanges SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at
		`, id, ex.Status).Scan(&ex.UpdatedAt)
		if err != nil {
			return fmt.Errorf("ошибка обновления обмена %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ex, nil
}

// CreatePayment сохраняет оплату; сумма возвращается в том виде, в каком ее хранит БД
func (r *PostgresRepository) CreatePayment(ctx context.Context, p *models.Payment) error {
	var amount string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO payments (status, amount, buyer_id, seller_id, toy_id)
		VALUES ($1, $2::numeric, $3, $4, $5)
		RETURNING id, amount::text, created_at, updated_at
	`, p.Status, p.Amount.String(), p.BuyerID, p.SellerID, p.ToyID).Scan(&p.ID, &amount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания оплаты: %w", err)
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return fmt.Errorf("ошибка разбора суммы оплаты %d: %w", p.ID, err)
	}
	return nil
}

func (r *PostgresRepository) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPaymentRow(row, id)
}

// ListPayments возвращает оплаты, где пользователь покупатель или продавец
func (r *PostgresRepository) ListPayments(ctx context.Context, userID int64) ([]models.Payment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY updated_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения оплат: %w", err)
	}
	payments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Payment, error) {
		p, err := scanPayment(row)
		if err != nil {
			return models.Payment{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения оплат: %w", err)
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

func (r *PostgresRepository) UpdatePayment(ctx context.Context, id int64, fn func(ctx context.Context, p *models.Payment) error) (*models.Payment, error) {
	var p *models.Payment
	err := db.InTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.Conn(ctx, r.pool)

		var err error
		p, err = scanPaymentRow(q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id), id)
		if err != nil {
			return err
		}
		if err := fn(ctx, p); err != nil {
			return err
		}

		err = q.QueryRow(ctx, `
			UPDATE payments SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at
		`, id, p.Status).Scan(&p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("ошибка обновления оплаты %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanExchangeRow(row pgx.Row, id int64) (*models.Exchange, error) {
	var ex models.Exchange
	err := row.Scan(&ex.ID, &ex.Status, &ex.BuyerID, &ex.SellerID, &ex.BuyerToyID, &ex.SellerToyID, &ex.CreatedAt, &ex.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("exchange", id)
		}
		return nil, fmt.Errorf("ошибка получения обмена %d: %w", id, err)
	}
	return &ex, nil
}

func scanPaymentRow(row pgx.Row, id int64) (*models.Payment, error) {
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("payment", id)
		}
		return nil, fmt.Errorf("ошибка получения оплаты %d: %w", id, err)
	}
	return p, nil
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	var amount string
	if err := row.Scan(&p.ID, &p.Status, &amount, &p.BuyerID, &p.SellerID, &p.ToyID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("ошибка разбора суммы оплаты %d: %w", p.ID, err)
	}
	return &p, nil
}
