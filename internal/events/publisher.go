package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

const (
	KindJoined = "joined"
	KindLeft   = "left"
)

// MessageEvent уходит в <prefix>.room.<id>.message после сохранения сообщения.
type MessageEvent struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// PresenceEvent уходит в <prefix>.room.<id>.presence при входе/выходе пользователя.
type PresenceEvent struct {
	Kind   string    `json:"kind"`
	RoomID int64     `json:"room_id"`
	UserID int64     `json:"user_id"`
	At     time.Time `json:"at"`
}

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type Publisher struct {
	nc     conn
	prefix string
}

func NewPublisher(nc conn, prefix string) *Publisher {
	return &Publisher{nc: nc, prefix: prefix}
}

func (p *Publisher) MessageCreated(_ context.Context, m domain.Message) error {
	return p.publish(p.roomSubject(m.RoomID, "message"), MessageEvent{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		Username:  m.Username,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	})
}

func (p *Publisher) PresenceChanged(_ context.Context, ev PresenceEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return p.publish(p.roomSubject(ev.RoomID, "presence"), ev)
}

func (p *Publisher) Close() {
	if err := p.nc.Drain(); err != nil {
		slog.Warn("nats drain", "err", err)
	}
}

func (p *Publisher) roomSubject(roomID int64, kind string) string {
	return p.prefix + ".room." + strconv.FormatInt(roomID, 10) + "." + kind
}

func (p *Publisher) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("events: publish %s: %w", subject, err)
	}
	return nil
}

// Nop используется, когда NATS не настроен.
type Nop struct{}

func (Nop) MessageCreated(context.Context, domain.Message) error { return nil }
func (Nop) PresenceChanged(context.Context, PresenceEvent) error { return nil }
