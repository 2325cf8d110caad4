package websocket

import (
	"sync"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/rajivgeraev/toyswap-api/internal/chat"
	"github.com/rajivgeraev/toyswap-api/internal/config"
	"github.com/rajivgeraev/toyswap-api/internal/utils"
)

// Path - адрес WebSocket-эндпоинта
const Path = "/ws"

// Gateway принимает WebSocket соединения и связывает их с маршрутизатором комнат
type Gateway struct {
	router     *chat.Router
	jwtService *utils.JWTService
	cfg        config.ChatConfig
	log        *logrus.Logger
	upgrader   websocket.FastHTTPUpgrader

	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

// NewGateway создает новый экземпляр Gateway
func NewGateway(router *chat.Router, jwtService *utils.JWTService, cfg config.ChatConfig, log *logrus.Logger) *Gateway {
	return &Gateway{
		router:     router,
		jwtService: jwtService,
		cfg:        cfg,
		log:        log,
		upgrader: websocket.FastHTTPUpgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*fasthttp.RequestCtx) bool { return true },
		},
		clients: make(map[uuid.UUID]*Client),
	}
}

// Handler обслуживает Path, остальные запросы передает next
func (g *Gateway) Handler(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == Path {
			g.serveWS(ctx)
			return
		}
		next(ctx)
	}
}

func (g *Gateway) serveWS(ctx *fasthttp.RequestCtx) {
	// Браузеры не передают заголовки при открытии WebSocket, поэтому токен в query
	userID, err := g.jwtService.ExtractUserID(string(ctx.QueryArgs().Peek("token")))
	if err != nil {
		ctx.Error("Invalid or expired token", fasthttp.StatusUnauthorized)
		return
	}

	err = g.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		client := newClient(userID, conn, g)
		g.addClient(client)
		client.serve()
	})
	if err != nil {
		g.log.WithError(err).WithField("user_id", userID).Warn("Ошибка upgrade WebSocket")
	}
}

func (g *Gateway) addClient(c *Client) {
	g.mu.Lock()
	g.clients[c.id] = c
	g.mu.Unlock()

	g.log.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.userID}).Info("WebSocket клиент подключен")
}

func (g *Gateway) removeClient(c *Client) {
	g.mu.Lock()
	_, ok := g.clients[c.id]
	delete(g.clients, c.id)
	g.mu.Unlock()

	if ok {
		g.log.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.userID}).Info("WebSocket клиент отключен")
	}
}

// Count возвращает число активных соединений
func (g *Gateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

// Shutdown закрывает все соединения
func (g *Gateway) Shutdown() {
	g.log.WithField("connections", g.Count()).Info("Закрытие WebSocket соединений")

	g.mu.Lock()
	clients := g.clients
	g.clients = make(map[uuid.UUID]*Client)
	g.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
