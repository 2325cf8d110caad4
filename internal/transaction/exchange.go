package transaction

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rajivgeraev/toyswap-api/internal/errs"
	"github.com/rajivgeraev/toyswap-api/internal/events"
	"github.com/rajivgeraev/toyswap-api/internal/models"
)

// Propose создает предложение обмена игрушки buyerToyID на sellerToyID.
// Предлагающий должен владеть buyerToyID.
func (m *Machine) Propose(ctx context.Context, actorID, buyerToyID, sellerToyID int64) (*models.Exchange, error) {
	if buyerToyID == sellerToyID {
		return nil, errs.Conflict("toy", buyerToyID, "cannot exchange a toy for itself")
	}

	buyerToy, err := m.catalog.GetToy(ctx, buyerToyID)
	if err != nil {
		return nil, err
	}
	sellerToy, err := m.catalog.GetToy(ctx, sellerToyID)
	if err != nil {
		return nil, err
	}

	if buyerToy.OwnerID != actorID {
		return nil, errs.Forbidden("toy", buyerToyID, "only the owner can offer this toy")
	}
	if sellerToy.OwnerID == actorID {
		return nil, errs.Conflict("toy", sellerToyID, "cannot exchange with yourself")
	}

	exists, err := m.repo.HasPendingExchange(ctx, buyerToyID, sellerToyID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.Conflict("exchange", 0, "a pending exchange of toy %d for toy %d already exists", buyerToyID, sellerToyID)
	}

	ex := &models.Exchange{
		Status:      models.ExchangePending,
		BuyerID:     actorID,
		SellerID:    sellerToy.OwnerID,
		BuyerToyID:  buyerToyID,
		SellerToyID: sellerToyID,
	}
	if err := m.repo.CreateExchange(ctx, ex); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{"exchange_id": ex.ID, "buyer_id": ex.BuyerID, "seller_id": ex.SellerID}).Info("Создано предложение обмена")
	m.publish(ctx, exchangeEvent(events.ExchangeProposed, ex, actorID))
	return ex, nil
}

// Respond принимает или отклоняет обмен. Отвечает только владелец запрошенной игрушки.
func (m *Machine) Respond(ctx context.Context, actorID, id int64, accept bool) (*models.Exchange, error) {
	to, eventType := models.ExchangeRejected, events.ExchangeRejected
	if accept {
		to, eventType = models.ExchangeAccepted, events.ExchangeAccepted
	}

	unlock := m.exchangeLocks.Lock(id)
	defer unlock()

	ex, err := m.repo.UpdateExchange(ctx, id, func(ctx context.Context, ex *models.Exchange) error {
		// из конечного состояния переходов нет ни для кого
		if ex.Status.Terminal() {
			return errs.InvalidState("exchange", id, "respond", string(ex.Status), string(to))
		}
		if ex.SellerID != actorID {
			return errs.Forbidden("exchange", id, "only the owner of the requested toy can respond")
		}
		if ex.Status != models.ExchangePending {
			return errs.InvalidState("exchange", id, "respond", string(ex.Status), string(to))
		}
		ex.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{"exchange_id": id, "status": ex.Status}).Info("Ответ на предложение обмена")
	m.publish(ctx, exchangeEvent(eventType, ex, actorID))
	return ex, nil
}

// Complete завершает принятый обмен и меняет владельцев обеих игрушек
// в той же транзакции, что и смену статуса.
func (m *Machine) Complete(ctx context.Context, actorID, id int64) (*models.Exchange, error) {
	unlock := m.exchangeLocks.Lock(id)
	defer unlock()

	ex, err := m.repo.UpdateExchange(ctx, id, func(ctx context.Context, ex *models.Exchange) error {
		if ex.Status.Terminal() {
			return errs.InvalidState("exchange", id, "complete", string(ex.Status), string(models.ExchangeCompleted))
		}
		if actorID != ex.BuyerID && actorID != ex.SellerID {
			return errs.Forbidden("exchange", id, "only exchange parties can complete it")
		}
		if ex.Status != models.ExchangeAccepted {
			return errs.InvalidState("exchange", id, "complete", string(ex.Status), string(models.ExchangeCompleted))
		}
		if err := m.catalog.TransferToy(ctx, ex.BuyerToyID, ex.BuyerID, ex.SellerID); err != nil {
			return err
		}
		if err := m.catalog.TransferToy(ctx, ex.SellerToyID, ex.SellerID, ex.BuyerID); err != nil {
			return err
		}
		ex.Status = models.ExchangeCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.WithField("exchange_id", id).Info("Обмен завершен")
	m.publish(ctx, exchangeEvent(events.ExchangeCompleted, ex, actorID))
	return ex, nil
}

// GetExchange возвращает обмен, видимый только его участникам
func (m *Machine) GetExchange(ctx context.Context, actorID, id int64) (*models.Exchange, error) {
	ex, err := m.repo.GetExchange(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID != ex.BuyerID && actorID != ex.SellerID {
		return nil, errs.Forbidden("exchange", id, "access denied")
	}
	return ex, nil
}

// ListExchanges возвращает обмены пользователя, опционально по статусу
func (m *Machine) ListExchanges(ctx context.Context, userID int64, status models.ExchangeStatus) ([]models.Exchange, error) {
	switch status {
	case "", models.ExchangePending, models.ExchangeAccepted, models.ExchangeRejected, models.ExchangeCompleted:
	default:
		return nil, errs.Validation("unknown exchange status %q", status)
	}
	return m.repo.ListExchanges(ctx, userID, status)
}

func exchangeEvent(eventType string, ex *models.Exchange, actorID int64) events.Event {
	return events.Event{
		Type:     eventType,
		Entity:   "exchange",
		EntityID: ex.ID,
		Status:   string(ex.Status),
		ActorID:  actorID,
		Payload:  ex,
	}
}
