package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/rajivgeraev/toyswap-api/internal/errs"
	"github.com/rajivgeraev/toyswap-api/internal/models"
	"github.com/rajivgeraev/toyswap-api/internal/utils"
)

// ErrRouterClosed возвращается после Shutdown
var ErrRouterClosed = errors.New("chat router is shut down")

// Ledger - журнал переписки, через который проходит каждое сообщение
type Ledger interface {
	Append(ctx context.Context, msg models.Message) (*models.Message, error)
	Fetch(ctx context.Context, roomID string) ([]models.Message, error)
}

// Relay пересылает события комнат другим инстансам
type Relay interface {
	Publish(ctx context.Context, ev Event) error
}

// Router управляет участниками комнат и рассылкой событий
type Router struct {
	ledger Ledger
	relay  Relay
	log    *logrus.Logger
	now    func() time.Time

	mu     sync.Mutex
	rooms  map[string]*room
	closed bool

	connMu    sync.Mutex
	connRooms map[uuid.UUID]map[string]struct{}

	// запись и рассылка сообщений комнаты идут под одной блокировкой,
	// чтобы участники получали сообщения в порядке журнала
	sends utils.KeyedMutex[string]
}

type room struct {
	mu      sync.Mutex
	members map[uuid.UUID]Conn
	dead    bool // комната удалена из Router.rooms, нужно взять новую
}

// NewRouter создает новый экземпляр Router
func NewRouter(ledger Ledger, log *logrus.Logger) *Router {
	return &Router{
		ledger:    ledger,
		log:       log,
		now:       time.Now,
		rooms:     make(map[string]*room),
		connRooms: make(map[uuid.UUID]map[string]struct{}),
	}
}

// SetRelay подключает межинстансовую рассылку
func (r *Router) SetRelay(relay Relay) {
	r.relay = relay
}

// Join добавляет соединение в комнату и оповещает всех участников, включая вошедшего
func (r *Router) Join(conn Conn, roomID string, userID int64) error {
	if _, err := Peer(roomID, userID); err != nil {
		return err
	}

	rm, err := r.acquire(roomID)
	if err != nil {
		return err
	}
	rm.members[conn.ID()] = conn
	r.track(conn.ID(), roomID)

	ev := Event{Type: EventJoined, RoomID: roomID, UserID: userID, Timestamp: r.now()}
	r.deliverLocked(rm, ev)
	r.release(roomID, rm)

	r.log.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "conn_id": conn.ID()}).Debug("Вход в комнату")
	r.publish(ev)
	return nil
}

// Leave удаляет соединение из комнаты. Для не-участника ничего не делает.
func (r *Router) Leave(conn Conn, roomID string, userID int64) {
	rm := r.lookup(roomID)
	if rm == nil {
		return
	}

	if _, ok := rm.members[conn.ID()]; !ok {
		r.release(roomID, rm)
		return
	}
	delete(rm.members, conn.ID())
	r.untrack(conn.ID(), roomID)

	ev := Event{Type: EventLeft, RoomID: roomID, UserID: userID, Timestamp: r.now()}
	r.deliverLocked(rm, ev)
	r.release(roomID, rm)

	r.log.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "conn_id": conn.ID()}).Debug("Выход из комнаты")
	r.publish(ev)
}

// Disconnect убирает оборванное соединение из всех комнат без оповещений
func (r *Router) Disconnect(conn Conn) {
	r.connMu.Lock()
	rooms := lo.Keys(r.connRooms[conn.ID()])
	delete(r.connRooms, conn.ID())
	r.connMu.Unlock()

	for _, roomID := range rooms {
		rm := r.lookup(roomID)
		if rm == nil {
			continue
		}
		delete(rm.members, conn.ID())
		r.release(roomID, rm)
	}
}

// Send сохраняет сообщение в журнале и рассылает его участникам комнаты.
// При ошибке ничего не рассылается, ошибка возвращается только отправителю.
func (r *Router) Send(ctx context.Context, roomID string, senderID, receiverID int64, text string, toyID *int64) (*models.Message, error) {
	if senderID != receiverID && roomID != RoomID(senderID, receiverID) {
		return nil, errs.Validation("room %s does not belong to users %d and %d", roomID, senderID, receiverID)
	}

	unlock := r.sends.Lock(roomID)
	defer unlock()

	msg, err := r.ledger.Append(ctx, models.Message{
		RoomID:     roomID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		ToyID:      toyID,
		Text:       text,
	})
	if err != nil {
		return nil, err
	}

	ev := Event{Type: EventNewMessage, RoomID: roomID, UserID: senderID, Message: msg, Timestamp: msg.CreatedAt}
	r.Dispatch(ev)
	r.publish(ev)
	return msg, nil
}

// History возвращает историю комнаты от старых сообщений к новым
func (r *Router) History(ctx context.Context, roomID string) ([]models.Message, error) {
	if _, _, err := ParseRoomID(roomID); err != nil {
		return nil, err
	}
	return r.ledger.Fetch(ctx, roomID)
}

// Dispatch доставляет событие локальным участникам комнаты, не пересылая его дальше
func (r *Router) Dispatch(ev Event) {
	rm := r.lookup(ev.RoomID)
	if rm == nil {
		return
	}
	r.deliverLocked(rm, ev)
	r.release(ev.RoomID, rm)
}

// Members возвращает ID соединений, находящихся в комнате
func (r *Router) Members(roomID string) []uuid.UUID {
	rm := r.lookup(roomID)
	if rm == nil {
		return nil
	}
	defer r.release(roomID, rm)
	return lo.Keys(rm.members)
}

// Shutdown очищает все комнаты; дальнейшие Join завершаются ошибкой
func (r *Router) Shutdown() {
	r.mu.Lock()
	r.closed = true
	rooms := r.rooms
	r.rooms = make(map[string]*room)
	r.mu.Unlock()

	for _, rm := range rooms {
		rm.mu.Lock()
		rm.dead = true
		rm.members = make(map[uuid.UUID]Conn)
		rm.mu.Unlock()
	}

	r.connMu.Lock()
	r.connRooms = make(map[uuid.UUID]map[string]struct{})
	r.connMu.Unlock()
}

// acquire возвращает заблокированную комнату, создавая ее при необходимости
func (r *Router) acquire(roomID string) (*room, error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrRouterClosed
		}
		rm, ok := r.rooms[roomID]
		if !ok {
			rm = &room{members: make(map[uuid.UUID]Conn)}
			r.rooms[roomID] = rm
		}
		r.mu.Unlock()

		rm.mu.Lock()
		if !rm.dead {
			return rm, nil
		}
		rm.mu.Unlock()
	}
}

// lookup возвращает заблокированную существующую комнату или nil
func (r *Router) lookup(roomID string) *room {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	rm.mu.Lock()
	if rm.dead {
		rm.mu.Unlock()
		return nil
	}
	return rm
}

// release снимает блокировку комнаты и удаляет ее, если участников не осталось
func (r *Router) release(roomID string, rm *room) {
	if len(rm.members) == 0 {
		rm.dead = true
		r.mu.Lock()
		if r.rooms[roomID] == rm {
			delete(r.rooms, roomID)
		}
		r.mu.Unlock()
	}
	rm.mu.Unlock()
}

func (r *Router) deliverLocked(rm *room, ev Event) {
	for id, conn := range rm.members {
		if !conn.Deliver(ev) {
			r.log.WithFields(logrus.Fields{"room_id": ev.RoomID, "conn_id": id}).Warn("Событие не доставлено, соединение закрывается")
		}
	}
}

func (r *Router) track(connID uuid.UUID, roomID string) {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if _, ok := r.connRooms[connID]; !ok {
		r.connRooms[connID] = make(map[string]struct{})
	}
	r.connRooms[connID][roomID] = struct{}{}
}

func (r *Router) untrack(connID uuid.UUID, roomID string) {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if rooms, ok := r.connRooms[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.connRooms, connID)
		}
	}
}

func (r *Router) publish(ev Event) {
	if r.relay == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.relay.Publish(ctx, ev); err != nil {
		r.log.WithError(err).WithField("room_id", ev.RoomID).Warn("Не удалось переслать событие комнаты")
	}
}
