package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeStatus определяет состояние обмена
type ExchangeStatus string

const (
	ExchangePending   ExchangeStatus = "pending"
	ExchangeAccepted  ExchangeStatus = "accepted"
	ExchangeRejected  ExchangeStatus = "rejected"
	ExchangeCompleted ExchangeStatus = "completed"
)

// Terminal сообщает, что из состояния нет переходов
func (s ExchangeStatus) Terminal() bool {
	return s == ExchangeRejected || s == ExchangeCompleted
}

// Exchange представляет предложение обмена игрушки на игрушку
type Exchange struct {
	ID          int64          `json:"id"`
	Status      ExchangeStatus `json:"status"`
	BuyerID     int64          `json:"buyer_id"`
	SellerID    int64          `json:"seller_id"`
	BuyerToyID  int64          `json:"buyer_toy_id"`  // предлагаемая игрушка
	SellerToyID int64          `json:"seller_toy_id"` // запрашиваемая игрушка
	CreatedAt   time.Time      `json:"timestamp"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PaymentStatus определяет состояние оплаты
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Terminal() bool {
	return s == PaymentFailed || s == PaymentRefunded
}

// Payment представляет покупку игрушки за деньги
type Payment struct {
	ID        int64           `json:"id"`
	Status    PaymentStatus   `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	BuyerID   int64           `json:"buyer_id"`
	SellerID  int64           `json:"seller_id"`
	ToyID     int64           `json:"toy_id"`
	CreatedAt time.Time       `json:"timestamp"`
	UpdatedAt time.Time       `json:"updated_at"`
}
