package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/service"
	"github.com/cwrk-planet/chat-service/internal/sqlite"
)

// storage держит репозитории выбранного драйвера.
type storage struct {
	rooms    service.RoomRepository
	messages service.MessageRepository
	users    service.UserRepository
	ping     func(ctx context.Context) error
	close    func()
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageSQLite:
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		slog.Info("sqlite store opened", "path", cfg.SQLite.Path)
		return &storage{
			rooms:    store.Rooms(),
			messages: store.Messages(),
			users:    store.Users(),
			ping:     store.Ping,
			close:    func() { _ = store.Close() },
		}, nil

	default:
		db, err := postgres.Open(ctx, cfg.Postgres, cfg.Logging.Service)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return &storage{
			rooms:    postgres.NewRoomRepository(db.Pool),
			messages: postgres.NewMessageRepository(db.Pool),
			users:    postgres.NewUserRepository(db.Pool),
			ping:     db.Ping,
			close:    db.Close,
		}, nil
	}
}
