package transaction

import (
	"context"

	"github.com/rajivgeraev/toyswap-api/internal/models"
)

// Repository хранит обмены и оплаты.
// Update* загружают запись с блокировкой строки, вызывают fn и сохраняют статус
// вместе с updated_at. Если fn вернула ошибку, ничего не сохраняется.
// Контекст внутри fn несёт транзакцию, побочные эффекты fn участвуют в ней.
type Repository interface {
	CreateExchange(ctx context.Context, ex *models.Exchange) error
	GetExchange(ctx context.Context, id int64) (*models.Exchange, error)
	ListExchanges(ctx context.Context, userID int64, status models.ExchangeStatus) ([]models.Exchange, error)
	HasPendingExchange(ctx context.Context, buyerToyID, sellerToyID int64) (bool, error)
	UpdateExchange(ctx context.Context, id int64, fn func(ctx context.Context, ex *models.Exchange) error) (*models.Exchange, error)

	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	ListPayments(ctx context.Context, userID int64) ([]models.Payment, error)
	UpdatePayment(ctx context.Context, id int64, fn func(ctx context.Context, p *models.Payment) error) (*models.Payment, error)
}
