package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rajivgeraev/toyswap-api/internal/chat"
	"github.com/rajivgeraev/toyswap-api/internal/config"
)

// Dispatcher доставляет событие локальным участникам комнаты
type Dispatcher interface {
	Dispatch(ev chat.Event)
}

// envelope - формат сообщения в канале Redis
type envelope struct {
	Origin uuid.UUID  `json:"origin"`
	Event  chat.Event `json:"event"`
}

// RedisRelay пересылает события комнат между инстансами через Redis pub/sub
type RedisRelay struct {
	rdb        *redis.Client
	channel    string
	origin     uuid.UUID
	dispatcher Dispatcher
	log        *logrus.Logger
}

// NewRedisClient создает клиент Redis и проверяет соединение
func NewRedisClient(ctx context.Context, cfg config.RelayConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewRedisRelay создает новый экземпляр RedisRelay с уникальным ID инстанса
func NewRedisRelay(rdb *redis.Client, channel string, dispatcher Dispatcher, log *logrus.Logger) *RedisRelay {
	return &RedisRelay{
		rdb:        rdb,
		channel:    channel,
		origin:     uuid.New(),
		dispatcher: dispatcher,
		log:        log,
	}
}

// Publish отправляет событие остальным инстансам
func (r *RedisRelay) Publish(ctx context.Context, ev chat.Event) error {
	payload, err := json.Marshal(envelope{Origin: r.origin, Event: ev})
	if err != nil {
		return fmt.Errorf("encode relay event: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run слушает канал до отмены контекста
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	r.log.WithFields(logrus.Fields{"channel": r.channel, "origin": r.origin}).Info("Relay подписан на канал")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.handle([]byte(msg.Payload))
		}
	}
}

// handle доставляет чужие события локально, собственные пропускает
func (r *RedisRelay) handle(payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.log.WithError(err).Warn("Некорректное сообщение relay")
		return
	}
	if env.Origin == r.origin {
		return
	}
	r.dispatcher.Dispatch(env.Event)
}
