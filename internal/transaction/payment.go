package transaction

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rajivgeraev/toyswap-api/internal/errs"
	"github.com/rajivgeraev/toyswap-api/internal/events"
	"github.com/rajivgeraev/toyswap-api/internal/models"
)

// Ограничения столбца payments.amount NUMERIC(12, 2)
const amountScale = 2

var maxAmount = decimal.RequireFromString("9999999999.99")

// Initiate создает ожидающую оплату игрушки. Продавец - текущий владелец игрушки.
// Владение игрушкой оплата не меняет.
func (m *Machine) Initiate(ctx context.Context, buyerID, toyID int64, amount decimal.Decimal) (*models.Payment, error) {
	if !amount.IsPositive() {
		return nil, errs.Validation("amount must be positive, got %s", amount.String())
	}
	if !amount.Equal(amount.Truncate(amountScale)) {
		return nil, errs.Validation("amount must have at most %d decimal places, got %s", amountScale, amount.String())
	}
	if amount.GreaterThan(maxAmount) {
		return nil, errs.Validation("amount must not exceed %s, got %s", maxAmount.String(), amount.String())
	}

	if _, err := m.catalog.GetUser(ctx, buyerID); err != nil {
		return nil, err
	}
	toy, err := m.catalog.GetToy(ctx, toyID)
	if err != nil {
		return nil, err
	}
	if toy.OwnerID == buyerID {
		return nil, errs.Conflict("toy", toyID, "cannot buy your own toy")
	}

	p := &models.Payment{
		Status:   models.PaymentPending,
		Amount:   amount,
		BuyerID:  buyerID,
		SellerID: toy.OwnerID,
		ToyID:    toyID,
	}
	if err := m.repo.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{"payment_id": p.ID, "toy_id": toyID, "amount": amount.String()}).Info("Создана оплата")
	m.publish(ctx, paymentEvent(events.PaymentInitiated, p, buyerID))
	return p, nil
}

// Settle фиксирует результат оплаты: completed при успехе, иначе failed
func (m *Machine) Settle(ctx context.Context, actorID, id int64, success bool) (*models.Payment, error) {
	to, eventType := models.PaymentFailed, events.PaymentFailed
	if success {
		to, eventType = models.PaymentCompleted, events.PaymentCompleted
	}
	return m.transitionPayment(ctx, actorID, id, "settle", models.PaymentPending, to, eventType)
}

// Refund возвращает завершенную оплату
func (m *Machine) Refund(ctx context.Context, actorID, id int64) (*models.Payment, error) {
	return m.transitionPayment(ctx, actorID, id, "refund", models.PaymentCompleted, models.PaymentRefunded, events.PaymentRefunded)
}

func (m *Machine) transitionPayment(ctx context.Context, actorID, id int64, op string, from, to models.PaymentStatus, eventType string) (*models.Payment, error) {
	unlock := m.paymentLocks.Lock(id)
	defer unlock()

	p, err := m.repo.UpdatePayment(ctx, id, func(ctx context.Context, p *models.Payment) error {
		if p.Status.Terminal() {
			return errs.InvalidState("payment", id, op, string(p.Status), string(to))
		}
		if p.SellerID != actorID {
			return errs.Forbidden("payment", id, "only the seller can %s this payment", op)
		}
		if p.Status != from {
			return errs.InvalidState("payment", id, op, string(p.Status), string(to))
		}
		p.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{"payment_id": id, "status": p.Status}).Info("Статус оплаты изменен")
	m.publish(ctx, paymentEvent(eventType, p, actorID))
	return p, nil
}

// GetPayment возвращает оплату, видимую только покупателю и продавцу
func (m *Machine) GetPayment(ctx context.Context, actorID, id int64) (*models.Payment, error) {
	p, err := m.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID != p.BuyerID && actorID != p.SellerID {
		return nil, errs.Forbidden("payment", id, "access denied")
	}
	return p, nil
}

func (m *Machine) ListPayments(ctx context.Context, userID int64) ([]models.Payment, error) {
	return m.repo.ListPayments(ctx, userID)
}

func paymentEvent(eventType string, p *models.Payment, actorID int64) events.Event {
	return events.Event{
		Type:     eventType,
		Entity:   "payment",
		EntityID: p.ID,
		Status:   string(p.Status),
		ActorID:  actorID,
		Payload:  p,
	}
}
