package relay

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/toyswap-api/internal/chat"
	"github.com/rajivgeraev/toyswap-api/internal/logger"
	"github.com/rajivgeraev/toyswap-api/internal/models"
)

type recordingDispatcher struct {
	events []chat.Event
}

func (d *recordingDispatcher) Dispatch(ev chat.Event) {
	d.events = append(d.events, ev)
}

func encode(t *testing.T, origin uuid.UUID, ev chat.Event) []byte {
	t.Helper()
	payload, err := json.Marshal(envelope{Origin: origin, Event: ev})
	require.NoError(t, err)
	return payload
}

func TestHandleDispatchesForeignEvents(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	relay := NewRedisRelay(nil, "toyswap:rooms", dispatcher, logger.Discard())

	ev := chat.Event{
		Type:    chat.EventNewMessage,
		RoomID:  "chat_1_2",
		Message: &models.Message{ID: 5, RoomID: "chat_1_2", SenderID: 1, ReceiverID: 2, Text: "hi"},
	}
	relay.handle(encode(t, uuid.New(), ev))

	require.Len(t, dispatcher.events, 1)
	require.Equal(t, "chat_1_2", dispatcher.events[0].RoomID)
	require.Equal(t, "hi", dispatcher.events[0].Message.Text)
}

func TestHandleSkipsOwnEvents(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	relay := NewRedisRelay(nil, "toyswap:rooms", dispatcher, logger.Discard())

	relay.handle(encode(t, relay.origin, chat.Event{Type: chat.EventJoined, RoomID: "chat_1_2", UserID: 1}))
	relay.handle([]byte("not json"))

	require.Empty(t, dispatcher.events)
}
