package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rajivgeraev/toyswap-api/internal/errs"
)

const roomPrefix = "chat_"

// RoomID возвращает идентификатор комнаты двух пользователей.
// Формат "chat_{min}_{max}" не зависит от порядка аргументов и хранится в истории, менять его нельзя.
func RoomID(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%s%d_%d", roomPrefix, a, b)
}

// ParseRoomID разбирает идентификатор комнаты на двух участников
func ParseRoomID(roomID string) (int64, int64, error) {
	rest, ok := strings.CutPrefix(roomID, roomPrefix)
	if !ok {
		return 0, 0, errs.Validation("malformed room id %q", roomID)
	}
	parts := strings.Split(rest, "_")
	if len(parts) != 2 {
		return 0, 0, errs.Validation("malformed room id %q", roomID)
	}
	a, errA := strconv.ParseInt(parts[0], 10, 64)
	b, errB := strconv.ParseInt(parts[1], 10, 64)
	if errA != nil || errB != nil || a == b || RoomID(a, b) != roomID {
		return 0, 0, errs.Validation("malformed room id %q", roomID)
	}
	return a, b, nil
}

// Peer возвращает второго участника комнаты для userID
func Peer(roomID string, userID int64) (int64, error) {
	a, b, err := ParseRoomID(roomID)
	if err != nil {
		return 0, err
	}
	switch userID {
	case a:
		return b, nil
	case b:
		return a, nil
	default:
		return 0, errs.Validation("user %d is not a participant of %s", userID, roomID)
	}
}
