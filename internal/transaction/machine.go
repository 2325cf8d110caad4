package transaction

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rajivgeraev/toyswap-api/internal/catalog"
	"github.com/rajivgeraev/toyswap-api/internal/events"
	"github.com/rajivgeraev/toyswap-api/internal/utils"
)

// Machine ведёт жизненные циклы обменов и оплат.
// Переходы одной записи сериализуются блокировкой по ID в процессе
// и блокировкой строки в БД, поэтому из двух конкурентных переходов выигрывает один.
type Machine struct {
	repo      Repository
	catalog   catalog.Catalog
	publisher events.Publisher
	log       *logrus.Logger

	exchangeLocks utils.KeyedMutex[int64]
	paymentLocks  utils.KeyedMutex[int64]
}

// NewMachine создает новый экземпляр Machine
func NewMachine(repo Repository, cat catalog.Catalog, publisher events.Publisher, log *logrus.Logger) *Machine {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Machine{repo: repo, catalog: cat, publisher: publisher, log: log}
}

// publish отправляет событие после фиксации перехода; ошибка только логируется
func (m *Machine) publish(ctx context.Context, ev events.Event) {
	ev.OccurredAt = time.Now().UTC()
	if err := m.publisher.Publish(ctx, ev); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{
			"event":     ev.Type,
			"entity":    ev.Entity,
			"entity_id": ev.EntityID,
		}).Warn("Не удалось опубликовать событие")
	}
}
