package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/rajivgeraev/toyswap-api/internal/catalog"
	"github.com/rajivgeraev/toyswap-api/internal/chat"
	"github.com/rajivgeraev/toyswap-api/internal/config"
	"github.com/rajivgeraev/toyswap-api/internal/db"
	"github.com/rajivgeraev/toyswap-api/internal/events"
	"github.com/rajivgeraev/toyswap-api/internal/ledger"
	"github.com/rajivgeraev/toyswap-api/internal/logger"
	"github.com/rajivgeraev/toyswap-api/internal/relay"
	"github.com/rajivgeraev/toyswap-api/internal/response"
	"github.com/rajivgeraev/toyswap-api/internal/services/auth"
	chatservice "github.com/rajivgeraev/toyswap-api/internal/services/chat"
	"github.com/rajivgeraev/toyswap-api/internal/services/toy"
	"github.com/rajivgeraev/toyswap-api/internal/services/trade"
	"github.com/rajivgeraev/toyswap-api/internal/transaction"
	"github.com/rajivgeraev/toyswap-api/internal/websocket"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации: %v", err)
	}

	logr := logger.New(cfg.AppName, cfg.AppEnv)
	if err := run(cfg, logr); err != nil {
		logr.WithError(err).Fatal("❌ Сервер остановлен с ошибкой")
	}
	logr.Info("Сервер остановлен")
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Схема базы данных
	if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
		return err
	}

	pool, err := db.NewPool(cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Журнал переписки
	var store ledger.Store
	switch cfg.LedgerConfig.Backend {
	case "badger":
		badgerStore, err := ledger.OpenBadgerStore(cfg.LedgerConfig.BadgerDir, log)
		if err != nil {
			return err
		}
		defer badgerStore.Close()
		store = badgerStore
	default:
		store = ledger.NewPostgresStore(pool)
	}
	log.WithField("backend", cfg.LedgerConfig.Backend).Info("Журнал переписки готов")

	catalogStore := catalog.NewStore(pool, store, log)
	conversations := ledger.New(store, catalogStore, log)

	router := chat.NewRouter(conversations, log)
	defer router.Shutdown()

	// Рассылка событий комнат между инстансами
	if cfg.RelayConfig.RedisAddr != "" {
		rdb, err := relay.NewRedisClient(ctx, cfg.RelayConfig)
		if err != nil {
			return err
		}
		defer rdb.Close()

		roomRelay := relay.NewRedisRelay(rdb, cfg.RelayConfig.Channel, router, log)
		router.SetRelay(roomRelay)
		go func() {
			if err := roomRelay.Run(ctx); err != nil {
				log.WithError(err).Error("Relay остановлен")
			}
		}()
	}

	// Доменные события
	var publisher events.Publisher = events.Nop{}
	if cfg.EventsConfig.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.EventsConfig.RabbitMQURL, cfg.EventsConfig.Queue)
		if err != nil {
			return err
		}
		defer rabbit.Close()
		publisher = rabbit
	}

	machine := transaction.NewMachine(transaction.NewPostgresRepository(pool), catalogStore, publisher, log)

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ErrorHandler: response.ErrorHandler(log),
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Создаём сервисы и регистрируем маршруты
	authService := auth.NewAuthService(cfg, catalogStore, log)
	authService.SetupRoutes(app)
	toy.NewToyService(cfg, catalogStore, log).SetupRoutes(app)
	chatservice.NewChatService(cfg, router, log).SetupRoutes(app)
	trade.NewTradeService(cfg, machine, log).SetupRoutes(app)

	gateway := websocket.NewGateway(router, authService.GetJWTService(), cfg.ChatConfig, log)

	// Один fasthttp-сервер обслуживает и Fiber, и WebSocket
	server := &fasthttp.Server{
		Name:    cfg.AppName,
		Handler: gateway.Handler(app.Handler()),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("✅ Toyswap API запущен")
		errCh <- server.ListenAndServe(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("ошибка сервера: %w", err)
	case <-ctx.Done():
	}

	log.Info("Получен сигнал остановки")
	gateway.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.ShutdownWithContext(shutdownCtx)
}
