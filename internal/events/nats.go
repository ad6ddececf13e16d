// Package events публикует события чата в NATS для внешних потребителей
// (индексация, модерация, аудит). Состояние присутствия между инстансами не синхронизирует.
package events

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

type Config struct {
	URL           string        // nats://localhost:4222
	Name          string        // имя клиента
	SubjectPrefix string        // напр. "chat"
	ReconnectWait time.Duration // пауза между переподключениями
	MaxReconnects int           // -1: бесконечно
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "chat-service"
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "chat"
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = 2 * time.Second
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = -1
	}
	return c
}

// Connect открывает соединение с NATS и возвращает готовый Publisher.
func Connect(cfg Config) (*Publisher, error) {
	cfg = cfg.withDefaults()

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			slog.Info("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	slog.Info("nats connected", "url", nc.ConnectedUrl())

	return NewPublisher(nc, cfg.SubjectPrefix), nil
}
