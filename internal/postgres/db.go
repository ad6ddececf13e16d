package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwrk-planet/chat-service/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB хранит пул и таймаут проверки для /readyz.
type DB struct {
	Pool        *pgxpool.Pool
	pingTimeout time.Duration
}

// Open поднимает хранилище по секции postgres: при autoMigrate сначала миграции,
// потом пул и проверка соединения. appName попадает в pg_stat_activity.
func Open(ctx context.Context, cfg config.Postgres, appName string) (*DB, error) {
	if cfg.AutoMigrate {
		if err := MigrateUp(cfg.DSN); err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "postgres migrations applied")
	}

	pc, err := poolConfig(cfg, appName)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	db := &DB{Pool: pool, pingTimeout: cfg.PingTimeout}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	slog.InfoContext(ctx, "connected to postgres",
		"max_conns", pc.MaxConns, "min_conns", pc.MinConns, "app", appName)
	return db, nil
}

// poolConfig разбирает DSN и накладывает лимиты пула. Нули в конфиге оставляют значения pgx.
func poolConfig(cfg config.Postgres, appName string) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = min(cfg.MinConns, pc.MaxConns)
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		pc.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	// application_name из DSN важнее
	if _, ok := pc.ConnConfig.RuntimeParams["application_name"]; !ok && appName != "" {
		if pc.ConnConfig.RuntimeParams == nil {
			pc.ConnConfig.RuntimeParams = map[string]string{}
		}
		pc.ConnConfig.RuntimeParams["application_name"] = appName
	}
	return pc, nil
}

func (db *DB) Ping(ctx context.Context) error {
	if db.pingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.pingTimeout)
		defer cancel()
	}
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (db *DB) Close() {
	db.Pool.Close()
}
