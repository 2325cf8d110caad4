package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/toyswap-api/internal/models"
)

// EventType определяет тип события комнаты
type EventType string

const (
	EventJoined     EventType = "joined"
	EventLeft       EventType = "left"
	EventNewMessage EventType = "message"
	EventHistory    EventType = "history"
	EventError      EventType = "error"
)

// Event представляет событие, доставляемое участникам комнаты
type Event struct {
	Type      EventType        `json:"type"`
	RoomID    string           `json:"room_id,omitempty"`
	UserID    int64            `json:"user_id,omitempty"`
	Message   *models.Message  `json:"message,omitempty"`
	Messages  []models.Message `json:"messages,omitempty"`
	Error     string           `json:"error,omitempty"`
	Kind      string           `json:"kind,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Conn - живое соединение участника. Deliver не блокирует и возвращает false,
// если событие не удалось поставить в очередь.
type Conn interface {
	ID() uuid.UUID
	Deliver(ev Event) bool
}
