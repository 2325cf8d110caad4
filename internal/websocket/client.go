package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rajivgeraev/toyswap-api/internal/chat"
	"github.com/rajivgeraev/toyswap-api/internal/errs"
)

const (
	// Время на запись одного кадра
	writeWait = 10 * time.Second

	// Таймаут обработки одного входящего кадра
	frameTimeout = 5 * time.Second
)

// Типы входящих кадров
const (
	FrameJoin    = "join"
	FrameLeave   = "leave"
	FrameSend    = "send"
	FrameHistory = "history"
)

// Frame - входящий кадр от клиента
type Frame struct {
	Type       string `json:"type"`
	RoomID     string `json:"room_id"`
	ReceiverID int64  `json:"receiver_id,omitempty"`
	Text       string `json:"text,omitempty"`
	ToyID      *int64 `json:"toy_id,omitempty"`
}

// Client представляет собой отдельное WebSocket соединение
type Client struct {
	id      uuid.UUID
	userID  int64
	conn    *websocket.Conn
	send    chan chat.Event // Буферизованный канал исходящих событий
	gateway *Gateway

	closeOnce  sync.Once
	done       chan struct{}
	writerDone chan struct{} // закрывается, когда writePump больше не пишет в conn
}

// newClient создает новый экземпляр Client
func newClient(userID int64, conn *websocket.Conn, gateway *Gateway) *Client {
	return &Client{
		id:         uuid.New(),
		userID:     userID,
		conn:       conn,
		send:       make(chan chat.Event, gateway.cfg.SendBufferSize),
		gateway:    gateway,
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

func (c *Client) ID() uuid.UUID { return c.id }

// Deliver ставит событие в очередь без блокировки.
// Если буфер заполнен, клиент слишком медленный и соединение закрывается.
func (c *Client) Deliver(ev chat.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- ev:
		return true
	default:
		c.gateway.log.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.userID}).
			Warn("Буфер отправки заполнен, закрываем соединение")
		c.close()
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// serve обслуживает соединение и возвращается, только когда оба насоса остановлены:
// после выхода из callback fasthttp освобождает соединение
func (c *Client) serve() {
	go c.writePump()
	c.readPump()
	<-c.writerDone
}

// readPump читает кадры клиента до разрыва соединения
func (c *Client) readPump() {
	defer func() {
		c.gateway.router.Disconnect(c)
		c.gateway.removeClient(c)
		c.close()
	}()

	pongWait := c.gateway.cfg.PongWait

	// Настраиваем соединение
	c.conn.SetReadLimit(c.gateway.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.gateway.log.WithError(err).WithField("conn_id", c.id).Debug("Неожиданное закрытие соединения")
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.replyError("", errs.Validation("malformed frame"))
			continue
		}
		c.handle(frame)
	}
}

// writePump отправляет события клиенту и поддерживает соединение ping-сообщениями
func (c *Client) writePump() {
	ticker := time.NewTicker(c.gateway.cfg.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.close()
		close(c.writerDone)
	}()

	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.gateway.log.WithError(err).WithField("conn_id", c.id).Debug("Ошибка записи события")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handle выполняет кадр от имени пользователя соединения.
// Ошибки возвращаются только этому соединению.
func (c *Client) handle(frame Frame) {
	router := c.gateway.router

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	switch frame.Type {
	case FrameJoin:
		if err := router.Join(c, frame.RoomID, c.userID); err != nil {
			c.replyError(frame.RoomID, err)
		}
	case FrameLeave:
		router.Leave(c, frame.RoomID, c.userID)
	case FrameSend:
		receiverID := frame.ReceiverID
		if receiverID == 0 {
			peer, err := chat.Peer(frame.RoomID, c.userID)
			if err != nil {
				c.replyError(frame.RoomID, err)
				return
			}
			receiverID = peer
		}
		if _, err := router.Send(ctx, frame.RoomID, c.userID, receiverID, frame.Text, frame.ToyID); err != nil {
			c.replyError(frame.RoomID, err)
		}
	case FrameHistory:
		if _, err := chat.Peer(frame.RoomID, c.userID); err != nil {
			c.replyError(frame.RoomID, err)
			return
		}
		messages, err := router.History(ctx, frame.RoomID)
		if err != nil {
			c.replyError(frame.RoomID, err)
			return
		}
		c.Deliver(chat.Event{Type: chat.EventHistory, RoomID: frame.RoomID, Messages: messages, Timestamp: time.Now()})
	default:
		c.replyError(frame.RoomID, errs.Validation("unknown frame type %q", frame.Type))
	}
}

func (c *Client) replyError(roomID string, err error) {
	kind := errs.KindOf(err)
	msg := err.Error()
	if kind == errs.KindUnknown {
		c.gateway.log.WithError(err).WithFields(logrus.Fields{"conn_id": c.id, "room_id": roomID}).Error("Ошибка обработки кадра")
		msg = "internal error"
	}
	c.Deliver(chat.Event{
		Type:      chat.EventError,
		RoomID:    roomID,
		Error:     msg,
		Kind:      kind.String(),
		Timestamp: time.Now(),
	})
}
