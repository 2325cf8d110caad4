package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет пользователя каталога
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	TelegramID   *int64    `json:"telegram_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Toy представляет игрушку, выставленную пользователем
type Toy struct {
	ID          int64           `json:"id"`
	OwnerID     int64           `json:"owner_id"`
	Name        string          `json:"name"`
	AgeGroup    string          `json:"age_group"`
	Description string          `json:"description"`
	Condition   string          `json:"condition"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ValidConditions перечисляет допустимые состояния игрушки
var ValidConditions = map[string]bool{
	"new": true, "excellent": true, "good": true,
	"used": true, "needs_repair": true, "damaged": true,
}
