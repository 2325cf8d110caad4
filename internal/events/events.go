//go:generate go run go.uber.org/mock/mockgen -source=events.go -destination=../mocks/mock_publisher.go -package=mocks
package events

import (
	"context"
	"time"
)

// Типы доменных событий
const (
	ExchangeProposed  = "exchange.proposed"
	ExchangeAccepted  = "exchange.accepted"
	ExchangeRejected  = "exchange.rejected"
	ExchangeCompleted = "exchange.completed"
	PaymentInitiated  = "payment.initiated"
	PaymentCompleted  = "payment.completed"
	PaymentFailed     = "payment.failed"
	PaymentRefunded   = "payment.refunded"
)

// Event - доменное событие о зафиксированном переходе
type Event struct {
	Type       string    `json:"type"`
	Entity     string    `json:"entity"`
	EntityID   int64     `json:"entity_id"`
	Status     string    `json:"status"`
	ActorID    int64     `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// Publisher публикует доменные события
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop ничего не публикует; используется, когда RabbitMQ не настроен
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
