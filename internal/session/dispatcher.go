package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/internal/realtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errPanic = errors.New("handler panic")

// Client описывает отправителя события: соединение и его identity.
type Client struct {
	Conn     realtime.Conn
	Identity domain.Identity
}

// Handler обрабатывает одно клиентское событие. Ошибка уходит отправителю как error{message}.
type Handler interface {
	Handle(ctx context.Context, c Client, payload json.RawMessage) error
}

type HandlerFunc func(ctx context.Context, c Client, payload json.RawMessage) error

func (f HandlerFunc) Handle(ctx context.Context, c Client, payload json.RawMessage) error {
	return f(ctx, c, payload)
}

// Dispatcher ведёт таблицу "тип события -> обработчик".
type Dispatcher struct {
	registry *realtime.Registry
	handlers map[string]Handler
	tracer   trace.Tracer
}

func NewDispatcher(registry *realtime.Registry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		handlers: make(map[string]Handler),
		tracer:   otel.Tracer("github.com/cwrk-planet/chat-service/internal/session"),
	}
}

func (d *Dispatcher) Register(eventType string, h Handler) {
	d.handlers[eventType] = h
}

// Dispatch разбирает кадр и вызывает обработчик. Ни ошибка, ни паника обработчика
// не выходят наружу: отправитель получает error, соединение живёт дальше.
func (d *Dispatcher) Dispatch(ctx context.Context, conn realtime.Conn, data []byte) {
	id, ok := d.registry.Resolve(conn.ID())
	if !ok {
		slog.DebugContext(ctx, "dispatch: connection not registered", "conn", conn.ID())
		return
	}

	var env realtime.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		metrics.EventsIn.WithLabelValues("invalid", "error").Inc()
		_ = conn.Send(realtime.ErrorMessage("invalid message"))
		return
	}

	h, ok := d.handlers[env.Type]
	if !ok {
		metrics.EventsIn.WithLabelValues("unknown", "error").Inc()
		_ = conn.Send(realtime.ErrorMessage("unknown event"))
		return
	}

	ctx, span := d.tracer.Start(ctx, "session."+env.Type,
		trace.WithAttributes(
			attribute.String("chat.conn_id", conn.ID()),
			attribute.Int64("chat.user_id", id.UserID),
		))
	defer span.End()

	start := time.Now()
	err := d.invoke(ctx, h, Client{Conn: conn, Identity: id}, env.Payload)
	metrics.HandlerDuration.WithLabelValues(env.Type).Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.EventsIn.WithLabelValues(env.Type, "ok").Inc()
		return
	}

	result := "error"
	if errors.Is(err, errPanic) {
		result = "panic"
	}
	metrics.EventsIn.WithLabelValues(env.Type, result).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, domain.PublicMessage(err))

	logHandlerError(ctx, env.Type, id, err)
	_ = conn.Send(realtime.ErrorMessage(domain.PublicMessage(err)))
}

func (d *Dispatcher) invoke(ctx context.Context, h Handler, c Client, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "session handler panic",
				"conn", c.Conn.ID(),
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	return h.Handle(ctx, c, payload)
}

func logHandlerError(ctx context.Context, eventType string, id domain.Identity, err error) {
	attrs := []any{"event", eventType, "user_id", id.UserID, "err", err}
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrRateLimited):
		slog.DebugContext(ctx, "session event rejected", attrs...)
	default:
		slog.ErrorContext(ctx, "session event failed", attrs...)
	}
}

func decode(payload json.RawMessage, dst any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return &domain.Error{Kind: domain.ErrValidation, Msg: "invalid payload", Err: err}
	}
	return nil
}
