package transaction

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rajivgeraev/toyswap-api/internal/errs"
	"github.com/rajivgeraev/toyswap-api/internal/models"
)

// memRepository - Repository в памяти для тестов машины состояний.
// Update* не держат mu во время fn: сериализацию переходов одной записи обеспечивает Machine.
type memRepository struct {
	mu        sync.Mutex
	nextID    int64
	exchanges map[int64]models.Exchange
	payments  map[int64]models.Payment
}

func newMemRepository() *memRepository {
	return &memRepository{
		exchanges: make(map[int64]models.Exchange),
		payments:  make(map[int64]models.Payment),
	}
}

func (r *memRepository) CreateExchange(_ context.Context, ex *models.Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ex.ID = r.nextID
	ex.CreatedAt = time.Now()
	ex.UpdatedAt = ex.CreatedAt
	r.exchanges[ex.ID] = *ex
	return nil
}

func (r *memRepository) GetExchange(_ context.Context, id int64) (*models.Exchange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.exchanges[id]
	if !ok {
		return nil, errs.NotFound("exchange", id)
	}
	return &ex, nil
}

func (r *memRepository) ListExchanges(_ context.Context, userID int64, status models.ExchangeStatus) ([]models.Exchange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Exchange{}
	for _, ex := range r.exchanges {
		if (ex.BuyerID == userID || ex.SellerID == userID) && (status == "" || ex.Status == status) {
			out = append(out, ex)
		}
	}
	return out, nil
}

func (r *memRepository) HasPendingExchange(_ context.Context, buyerToyID, sellerToyID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.exchanges {
		if ex.BuyerToyID == buyerToyID && ex.SellerToyID == sellerToyID && ex.Status == models.ExchangePending {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepository) UpdateExchange(ctx context.Context, id int64, fn func(ctx context.Context, ex *models.Exchange) error) (*models.Exchange, error) {
	r.mu.Lock()
	ex, ok := r.exchanges[id]
	r.mu.Unlock()
	if !ok {
		return nil, errs.NotFound("exchange", id)
	}

	runtime.Gosched()
	if err := fn(ctx, &ex); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ex.UpdatedAt = time.Now()
	r.exchanges[id] = ex
	return &ex, nil
}

func (r *memRepository) CreatePayment(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.payments[p.ID] = *p
	return nil
}

func (r *memRepository) GetPayment(_ context.Context, id int64) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, errs.NotFound("payment", id)
	}
	return &p, nil
}

func (r *memRepository) ListPayments(_ context.Context, userID int64) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Payment{}
	for _, p := range r.payments {
		if p.BuyerID == userID || p.SellerID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memRepository) UpdatePayment(ctx context.Context, id int64, fn func(ctx context.Context, p *models.Payment) error) (*models.Payment, error) {
	r.mu.Lock()
	p, ok := r.payments[id]
	r.mu.Unlock()
	if !ok {
		return nil, errs.NotFound("payment", id)
	}

	runtime.Gosched()
	if err := fn(ctx, &p); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	p.UpdatedAt = time.Now()
	r.payments[id] = p
	return &p, nil
}
