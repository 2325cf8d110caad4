package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rajivgeraev/toyswap-api/internal/errs"
	"github.com/rajivgeraev/toyswap-api/internal/ledger"
	"github.com/rajivgeraev/toyswap-api/internal/logger"
	"github.com/rajivgeraev/toyswap-api/internal/mocks"
	"github.com/rajivgeraev/toyswap-api/internal/models"
)

type fakeConn struct {
	id uuid.UUID

	mu     sync.Mutex
	events []Event
	broken bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.New()}
}

func (c *fakeConn) ID() uuid.UUID { return c.id }

func (c *fakeConn) Deliver(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return false
	}
	c.events = append(c.events, ev)
	return true
}

func (c *fakeConn) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func (c *fakeConn) ofType(t EventType) []Event {
	var out []Event
	for _, ev := range c.received() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type recordingRelay struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingRelay) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func newTestRouter(t *testing.T) (*Router, *mocks.MockCatalog) {
	t.Helper()
	store, err := ledger.OpenBadgerStore(t.TempDir(), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	catalog := mocks.NewMockCatalog(gomock.NewController(t))
	for _, id := range []int64{1, 2, 3} {
		catalog.EXPECT().GetUser(gomock.Any(), id).Return(&models.User{ID: id}, nil).AnyTimes()
	}

	return NewRouter(ledger.New(store, catalog, logger.Discard()), logger.Discard()), catalog
}

func TestRoomIDIsSymmetric(t *testing.T) {
	require.Equal(t, "chat_1_2", RoomID(1, 2))
	require.Equal(t, RoomID(1, 2), RoomID(2, 1))
	require.Equal(t, "chat_3_20", RoomID(20, 3))
}

func TestParseRoomID(t *testing.T) {
	a, b, err := ParseRoomID("chat_4_17")
	require.NoError(t, err)
	require.Equal(t, int64(4), a)
	require.Equal(t, int64(17), b)

	for _, bad := range []string{"", "chat_", "chat_1", "chat_2_1", "chat_1_1", "room_1_2", "chat_a_b", "chat_01_2", "chat_1_2_3"} {
		_, _, err := ParseRoomID(bad)
		require.ErrorIs(t, err, errs.ErrValidation, bad)
	}
}

func TestPeer(t *testing.T) {
	peer, err := Peer("chat_1_2", 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), peer)

	_, err = Peer("chat_1_2", 3)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestJoinAndSendDeliversToBothMembers(t *testing.T) {
	router, _ := newTestRouter(t)
	alice, bob := newFakeConn(), newFakeConn()

	require.NoError(t, router.Join(alice, "chat_1_2", 1))
	require.NoError(t, router.Join(bob, "chat_1_2", 2))

	msg, err := router.Send(context.Background(), "chat_1_2", 1, 2, "hi", nil)
	require.NoError(t, err)

	for _, conn := range []*fakeConn{alice, bob} {
		got := conn.ofType(EventNewMessage)
		require.Len(t, got, 1)
		require.Equal(t, msg.ID, got[0].Message.ID)
		require.Equal(t, "hi", got[0].Message.Text)
		require.Equal(t, int64(1), got[0].Message.SenderID)
		require.Equal(t, int64(2), got[0].Message.ReceiverID)
		require.False(t, got[0].Message.CreatedAt.IsZero())
		require.Equal(t, "chat_1_2", got[0].RoomID)
	}

	// первый участник видит оба входа, второй только свой
	require.Len(t, alice.ofType(EventJoined), 2)
	require.Len(t, bob.ofType(EventJoined), 1)

	history, err := router.History(context.Background(), "chat_1_2")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, msg.ID, history[0].ID)
}

func TestJoinTwiceKeepsSingleMembership(t *testing.T) {
	router, _ := newTestRouter(t)
	conn := newFakeConn()

	require.NoError(t, router.Join(conn, "chat_1_2", 1))
	require.NoError(t, router.Join(conn, "chat_1_2", 1))
	require.Len(t, router.Members("chat_1_2"), 1)
	require.Len(t, conn.ofType(EventJoined), 2)

	_, err := router.Send(context.Background(), "chat_1_2", 2, 1, "once", nil)
	require.NoError(t, err)
	require.Len(t, conn.ofType(EventNewMessage), 1)
}

func TestJoinRejectsOutsider(t *testing.T) {
	router, _ := newTestRouter(t)

	err := router.Join(newFakeConn(), "chat_1_2", 3)
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Empty(t, router.Members("chat_1_2"))
}

func TestLeaveNotifiesRemainingMembers(t *testing.T) {
	router, _ := newTestRouter(t)
	alice, bob := newFakeConn(), newFakeConn()
	require.NoError(t, router.Join(alice, "chat_1_2", 1))
	require.NoError(t, router.Join(bob, "chat_1_2", 2))

	router.Leave(bob, "chat_1_2", 2)

	left := alice.ofType(EventLeft)
	require.Len(t, left, 1)
	require.Equal(t, int64(2), left[0].UserID)
	require.Equal(t, []uuid.UUID{alice.ID()}, router.Members("chat_1_2"))
}

func TestLeaveByNonMemberIsNoop(t *testing.T) {
	router, _ := newTestRouter(t)
	alice, stranger := newFakeConn(), newFakeConn()
	require.NoError(t, router.Join(alice, "chat_1_2", 1))

	router.Leave(stranger, "chat_1_2", 2)
	router.Leave(stranger, "chat_5_6", 5)

	require.Empty(t, alice.ofType(EventLeft))
	require.Len(t, router.Members("chat_1_2"), 1)
}

func TestDisconnectRemovesFromAllRoomsSilently(t *testing.T) {
	router, _ := newTestRouter(t)
	alice, bob := newFakeConn(), newFakeConn()
	require.NoError(t, router.Join(alice, "chat_1_2", 1))
	require.NoError(t, router.Join(alice, "chat_1_3", 1))
	require.NoError(t, router.Join(bob, "chat_1_2", 2))

	router.Disconnect(alice)

	require.Empty(t, bob.ofType(EventLeft))
	require.Equal(t, []uuid.UUID{bob.ID()}, router.Members("chat_1_2"))
	require.Empty(t, router.Members("chat_1_3"))

	_, err := router.Send(context.Background(), "chat_1_2", 2, 1, "anyone?", nil)
	require.NoError(t, err)
	require.Empty(t, alice.ofType(EventNewMessage))
}

func TestFailedSendDoesNotBroadcast(t *testing.T) {
	router, _ := newTestRouter(t)
	alice, bob := newFakeConn(), newFakeConn()
	require.NoError(t, router.Join(alice, "chat_1_2", 1))
	require.NoError(t, router.Join(bob, "chat_1_2", 2))

	_, err := router.Send(context.Background(), "chat_1_2", 1, 2, "   ", nil)
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = router.Send(context.Background(), "chat_1_3", 1, 2, "wrong room", nil)
	require.ErrorIs(t, err, errs.ErrValidation)

	require.Empty(t, alice.ofType(EventNewMessage))
	require.Empty(t, bob.ofType(EventNewMessage))

	history, err := router.History(context.Background(), "chat_1_2")
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestBrokenConnectionDoesNotBlockRoom(t *testing.T) {
	router, _ := newTestRouter(t)
	alice, bob := newFakeConn(), newFakeConn()
	require.NoError(t, router.Join(alice, "chat_1_2", 1))
	require.NoError(t, router.Join(bob, "chat_1_2", 2))

	bob.mu.Lock()
	bob.broken = true
	bob.mu.Unlock()

	_, err := router.Send(context.Background(), "chat_1_2", 1, 2, "still there?", nil)
	require.NoError(t, err)
	require.Len(t, alice.ofType(EventNewMessage), 1)
}

func TestSendPublishesToRelayAndDispatchStaysLocal(t *testing.T) {
	router, _ := newTestRouter(t)
	relay := &recordingRelay{}
	router.SetRelay(relay)

	alice := newFakeConn()
	require.NoError(t, router.Join(alice, "chat_1_2", 1))
	_, err := router.Send(context.Background(), "chat_1_2", 1, 2, "hi", nil)
	require.NoError(t, err)

	relay.mu.Lock()
	published := len(relay.events)
	relay.mu.Unlock()
	require.Equal(t, 2, published)

	router.Dispatch(Event{Type: EventNewMessage, RoomID: "chat_1_2", Message: &models.Message{ID: 99, Text: "remote"}})
	require.Len(t, alice.ofType(EventNewMessage), 2)

	relay.mu.Lock()
	defer relay.mu.Unlock()
	require.Len(t, relay.events, 2)
}

func TestConcurrentSendsArriveInHistoryOrder(t *testing.T) {
	router, _ := newTestRouter(t)
	alice, bob := newFakeConn(), newFakeConn()
	require.NoError(t, router.Join(alice, "chat_1_2", 1))
	require.NoError(t, router.Join(bob, "chat_1_2", 2))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender, receiver := int64(1), int64(2)
			if i%2 == 1 {
				sender, receiver = receiver, sender
			}
			_, err := router.Send(context.Background(), "chat_1_2", sender, receiver, fmt.Sprintf("msg %d", i), nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history, err := router.History(context.Background(), "chat_1_2")
	require.NoError(t, err)
	require.Len(t, history, 20)
	want := lo.Map(history, func(m models.Message, _ int) int64 { return m.ID })

	for _, conn := range []*fakeConn{alice, bob} {
		got := lo.Map(conn.ofType(EventNewMessage), func(ev Event, _ int) int64 { return ev.Message.ID })
		require.Equal(t, want, got)
	}
}

func TestConcurrentJoinLeave(t *testing.T) {
	router, _ := newTestRouter(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := newFakeConn()
			for j := 0; j < 10; j++ {
				if err := router.Join(conn, "chat_1_2", 1); err != nil {
					t.Error(err)
					return
				}
				router.Leave(conn, "chat_1_2", 1)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, router.Members("chat_1_2"))
}

func TestShutdownRejectsJoin(t *testing.T) {
	router, _ := newTestRouter(t)
	conn := newFakeConn()
	require.NoError(t, router.Join(conn, "chat_1_2", 1))

	router.Shutdown()

	require.Empty(t, router.Members("chat_1_2"))
	require.ErrorIs(t, router.Join(conn, "chat_1_2", 1), ErrRouterClosed)
}
