package websocket

import (
	"net"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/mock/gomock"

	"github.com/rajivgeraev/toyswap-api/internal/chat"
	"github.com/rajivgeraev/toyswap-api/internal/config"
	"github.com/rajivgeraev/toyswap-api/internal/ledger"
	"github.com/rajivgeraev/toyswap-api/internal/logger"
	"github.com/rajivgeraev/toyswap-api/internal/mocks"
	"github.com/rajivgeraev/toyswap-api/internal/models"
	"github.com/rajivgeraev/toyswap-api/internal/utils"
)

func newTestGateway(t *testing.T, bufferSize int) *Gateway {
	t.Helper()
	store, err := ledger.OpenBadgerStore(t.TempDir(), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	catalog := mocks.NewMockCatalog(gomock.NewController(t))
	for _, id := range []int64{1, 2, 3} {
		catalog.EXPECT().GetUser(gomock.Any(), id).Return(&models.User{ID: id}, nil).AnyTimes()
	}

	router := chat.NewRouter(ledger.New(store, catalog, logger.Discard()), logger.Discard())
	cfg := config.ChatConfig{SendBufferSize: bufferSize, PongWait: time.Minute, MaxMessageSize: 1 << 16}
	return NewGateway(router, utils.NewJWTService("secret", time.Hour), cfg, logger.Discard())
}

func drain(c *Client) []chat.Event {
	var out []chat.Event
	for {
		select {
		case ev := <-c.send:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestClientFramesRouteThroughRooms(t *testing.T) {
	g := newTestGateway(t, 16)
	alice, bob := newClient(1, nil, g), newClient(2, nil, g)

	alice.handle(Frame{Type: FrameJoin, RoomID: "chat_1_2"})
	bob.handle(Frame{Type: FrameJoin, RoomID: "chat_1_2"})
	alice.handle(Frame{Type: FrameSend, RoomID: "chat_1_2", Text: "hi"})

	got := drain(bob)
	require.Len(t, got, 2)
	require.Equal(t, chat.EventJoined, got[0].Type)
	require.Equal(t, chat.EventNewMessage, got[1].Type)
	require.Equal(t, "hi", got[1].Message.Text)
	require.Equal(t, int64(1), got[1].Message.SenderID)
	require.Equal(t, int64(2), got[1].Message.ReceiverID)

	bob.handle(Frame{Type: FrameHistory, RoomID: "chat_1_2"})
	got = drain(bob)
	require.Len(t, got, 1)
	require.Equal(t, chat.EventHistory, got[0].Type)
	require.Len(t, got[0].Messages, 1)
}

func TestClientErrorsGoToSenderOnly(t *testing.T) {
	g := newTestGateway(t, 16)
	alice, bob := newClient(1, nil, g), newClient(2, nil, g)
	alice.handle(Frame{Type: FrameJoin, RoomID: "chat_1_2"})
	bob.handle(Frame{Type: FrameJoin, RoomID: "chat_1_2"})
	drain(alice)
	drain(bob)

	alice.handle(Frame{Type: FrameSend, RoomID: "chat_1_2", Text: ""})
	alice.handle(Frame{Type: "typing", RoomID: "chat_1_2"})

	got := drain(alice)
	require.Len(t, got, 2)
	for _, ev := range got {
		require.Equal(t, chat.EventError, ev.Type)
		require.Equal(t, "validation", ev.Kind)
	}
	require.Empty(t, drain(bob))

	outsider := newClient(3, nil, g)
	outsider.handle(Frame{Type: FrameHistory, RoomID: "chat_1_2"})
	got = drain(outsider)
	require.Len(t, got, 1)
	require.Equal(t, chat.EventError, got[0].Type)
}

func TestSlowClientIsClosed(t *testing.T) {
	g := newTestGateway(t, 1)
	c := newClient(1, nil, g)

	require.True(t, c.Deliver(chat.Event{Type: chat.EventJoined}))
	require.False(t, c.Deliver(chat.Event{Type: chat.EventJoined}))

	select {
	case <-c.done:
	default:
		t.Fatal("overflowing client must be closed")
	}
	require.False(t, c.Deliver(chat.Event{Type: chat.EventJoined}))
}

// serveInMemory поднимает gateway на in-memory listener и возвращает функцию подключения
func serveInMemory(t *testing.T, g *Gateway) func(userID int64) *websocket.Conn {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: g.Handler(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	})}
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() {
		g.Shutdown()
		_ = server.Shutdown()
	})

	dialer := websocket.Dialer{NetDial: func(_, _ string) (net.Conn, error) { return ln.Dial() }}
	return func(userID int64) *websocket.Conn {
		token, err := g.jwtService.GenerateToken(userID)
		require.NoError(t, err)
		conn, _, err := dialer.Dial("ws://toyswap.test/ws?token="+token, nil)
		require.NoError(t, err)
		return conn
	}
}

func await(t *testing.T, conn *websocket.Conn, typ chat.EventType) chat.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var ev chat.Event
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == typ {
			return ev
		}
	}
}

func TestWebSocketEndToEnd(t *testing.T) {
	g := newTestGateway(t, 16)
	connect := serveInMemory(t, g)

	alice, bob := connect(1), connect(2)
	defer alice.Close()
	defer bob.Close()

	require.NoError(t, alice.WriteJSON(Frame{Type: FrameJoin, RoomID: "chat_1_2"}))
	await(t, alice, chat.EventJoined)
	require.NoError(t, bob.WriteJSON(Frame{Type: FrameJoin, RoomID: "chat_1_2"}))
	await(t, bob, chat.EventJoined)

	require.NoError(t, alice.WriteJSON(Frame{Type: FrameSend, RoomID: "chat_1_2", Text: "hi"}))
	for _, conn := range []*websocket.Conn{alice, bob} {
		ev := await(t, conn, chat.EventNewMessage)
		require.Equal(t, "hi", ev.Message.Text)
		require.Equal(t, int64(1), ev.Message.SenderID)
		require.Equal(t, int64(2), ev.Message.ReceiverID)
		require.NotZero(t, ev.Message.ID)
	}
}

func TestClientDropKeepsServerRunning(t *testing.T) {
	g := newTestGateway(t, 16)
	connect := serveInMemory(t, g)

	alice := connect(1)
	require.NoError(t, alice.WriteJSON(Frame{Type: FrameJoin, RoomID: "chat_1_2"}))
	await(t, alice, chat.EventJoined)
	require.Equal(t, 1, g.Count())

	require.NoError(t, alice.Close())
	require.Eventually(t, func() bool { return g.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
	// writePump успевает проснуться после разрыва
	time.Sleep(100 * time.Millisecond)

	// сервер продолжает обслуживать новые соединения
	bob := connect(2)
	defer bob.Close()
	require.NoError(t, bob.WriteJSON(Frame{Type: FrameJoin, RoomID: "chat_1_2"}))
	ev := await(t, bob, chat.EventJoined)
	require.Equal(t, int64(2), ev.UserID)
}

func TestShutdownClosesLiveConnections(t *testing.T) {
	g := newTestGateway(t, 16)
	connect := serveInMemory(t, g)

	alice := connect(1)
	defer alice.Close()
	require.NoError(t, alice.WriteJSON(Frame{Type: FrameJoin, RoomID: "chat_1_2"}))
	await(t, alice, chat.EventJoined)

	g.Shutdown()
	require.Equal(t, 0, g.Count())

	start := time.Now()
	require.NoError(t, alice.SetReadDeadline(start.Add(5*time.Second)))
	for {
		if _, _, err := alice.ReadMessage(); err != nil {
			break
		}
	}
	// соединение закрыто сервером, а не истек таймаут чтения
	require.Less(t, time.Since(start), 4*time.Second)
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	g := newTestGateway(t, 16)

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/ws")
	g.Handler(func(*fasthttp.RequestCtx) { t.Fatal("must not reach next handler") })(&ctx)

	require.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}
