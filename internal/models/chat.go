package models

import (
	"time"
)

// Message представляет сообщение в переписке двух пользователей
type Message struct {
	ID         int64     `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	ToyID      *int64    `json:"toy_id,omitempty"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"timestamp"`
}
