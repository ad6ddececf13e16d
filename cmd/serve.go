package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/chat-service/internal/auth"
	"github.com/cwrk-planet/chat-service/internal/events"
	"github.com/cwrk-planet/chat-service/internal/presence"
	"github.com/cwrk-planet/chat-service/internal/ratelimit"
	"github.com/cwrk-planet/chat-service/internal/realtime"
	"github.com/cwrk-planet/chat-service/internal/service"
	"github.com/cwrk-planet/chat-service/internal/session"
	"github.com/cwrk-planet/chat-service/internal/tracing"
	grpcx "github.com/cwrk-planet/chat-service/internal/transport/grpc"
	httpx "github.com/cwrk-planet/chat-service/internal/transport/http"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP/WebSocket and admin gRPC servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	slog.Info("starting chat-service")

	// --- tracing ---
	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, cfg.Logging.Service, cfg.Logging.Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("tracing shutdown", "err", err)
		}
	}()

	// --- storage ---
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	// --- jwt ---
	public, err := auth.LoadRSAPublicKeyFromPEM(cfg.JWT.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}
	verifier := auth.New(nil, public, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.AccessTTL, cfg.JWT.ClockSkew)

	// --- services ---
	roomSvc := service.NewRoomService(store.rooms)
	chatSvc := service.NewChatService(store.messages, cfg.Chat.MaxMessageLen)
	identitySvc := service.NewIdentityService(verifier, store.users)

	if cfg.Chat.EnsureDefaultRoom {
		if err := roomSvc.EnsureDefaultRoom(ctx); err != nil {
			return fmt.Errorf("default room: %w", err)
		}
	}

	// --- optional: redis, nats ---
	var limiter session.Limiter = ratelimit.Nop{}
	if cfg.Redis.Addr != "" {
		rdb, err := ratelimit.NewClient(ctx, ratelimit.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()
		limiter = ratelimit.NewLimiter(rdb)
		slog.Info("rate limiter enabled", "addr", cfg.Redis.Addr)
	}

	var publisher session.EventPublisher = events.Nop{}
	if cfg.NATS.URL != "" {
		pub, err := events.Connect(events.Config{
			URL:           cfg.NATS.URL,
			Name:          cfg.Logging.Service,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			ReconnectWait: cfg.NATS.ReconnectWait,
			MaxReconnects: cfg.NATS.MaxReconnects,
		})
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer pub.Close()
		publisher = pub
	}

	// --- realtime ---
	table := presence.NewTable()
	sessions := session.New(session.Deps{
		Registry: realtime.NewRegistry(),
		Presence: table,
		Rooms:    roomSvc,
		Messages: chatSvc,
		Limiter:  limiter,
		Events:   publisher,
		MessageRule: ratelimit.Rule{
			Key:    ratelimit.RuleMessage.Key,
			Limit:  cfg.RateLimit.Messages.Limit,
			Window: cfg.RateLimit.Messages.Window,
		},
		SignalRule: ratelimit.Rule{
			Key:    ratelimit.RuleSignal.Key,
			Limit:  cfg.RateLimit.Signaling.Limit,
			Window: cfg.RateLimit.Signaling.Window,
		},
	})
	wsServer := ws.NewServer(ws.Config{
		PingEvery:      cfg.WS.PingEvery,
		WriteTimeout:   cfg.WS.WriteTimeout,
		ReadLimit:      cfg.WS.ReadLimit,
		SendQueue:      cfg.WS.SendQueue,
		AllowedOrigins: cfg.WS.AllowedOrigins,
	}, identitySvc, sessions)

	// --- HTTP ---
	router := httpx.NewRouter(httpx.Deps{
		Handler:        httpx.NewHandler(roomSvc, chatSvc, table),
		Identity:       identitySvc,
		WS:             wsServer.HandleWS,
		Ready:          store.ping,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		APITimeout:     cfg.HTTP.WriteTimeout,
	})
	httpSrv := httpx.New(httpx.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, router, func(ctx context.Context) {
		n := wsServer.CloseAll()
		// хранилище закроется следом, Disconnect и Persist должны успеть
		if err := wsServer.Wait(ctx); err != nil {
			slog.Warn("websocket handlers still running", "err", err)
		}
		slog.Info("websocket connections closed", "count", n)
	})

	// --- run ---
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- httpSrv.Run(ctx) }()

	running := 1
	if cfg.GRPC.Addr != "" {
		grpcSrv := grpcx.New(grpcx.NewAdminServer(table, sessions), identitySvc)
		go func() { errCh <- grpcSrv.Run(ctx, cfg.GRPC.Addr) }()
		running++
	}

	// первая ошибка останавливает остальные серверы
	var firstErr error
	for i := 0; i < running; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			slog.Error("server error", "err", err)
			firstErr = err
			cancel()
		}
	}
	slog.Info("chat-service stopped")
	return firstErr
}
