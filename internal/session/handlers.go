package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/events"
	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/internal/ratelimit"
	"github.com/cwrk-planet/chat-service/internal/realtime"
)

var (
	errRoomRequired        = domain.Invalid("room_id required")
	errMessageRequired     = domain.Invalid("room and message text required")
	errTooManyMessages     = domain.RateLimited("too many messages, slow down")
	errTooManySignals      = domain.RateLimited("too many signaling messages, slow down")
	errSignalTargetMissing = domain.Invalid("room_id and target_user_id required")
)

// join_room: участники до входа -> отправителю, joined_room -> остальным.
func (s *Service) joinRoom(ctx context.Context, c Client, payload json.RawMessage) error {
	var req realtime.RoomRequest
	if err := decode(payload, &req); err != nil {
		return err
	}
	roomID := int64(req.RoomID)
	if roomID <= 0 {
		return errRoomRequired
	}
	if err := s.ensureRoom(ctx, roomID); err != nil {
		return err
	}

	// список уходит под блокировкой таблицы, иначе joined_room следующего
	// вошедшего может обогнать его
	others, added := s.presence.JoinThen(roomID, c.Conn.ID(), c.Identity, func(others []domain.Identity) {
		_ = c.Conn.Send(realtime.Message{
			Type:    realtime.TypeRoomUsersList,
			Payload: realtime.RoomUsersPayload{RoomID: roomID, Users: others},
		})
	})
	metrics.RoomsActive.Set(float64(s.presence.RoomCount()))

	s.router.Broadcast(roomID, realtime.Message{
		Type:    realtime.TypeJoinedRoom,
		Payload: realtime.JoinedRoomPayload{RoomID: roomID, User: c.Identity},
	}, c.Conn.ID())

	if added {
		s.publishPresence(ctx, events.KindJoined, roomID, c.Identity.UserID)
	}
	slog.DebugContext(ctx, "joined room", "room_id", roomID, "user_id", c.Identity.UserID, "members_before", len(others))
	return nil
}

// leave_room: left_room всегда получает сам уходящий; вся комната, только если
// у пользователя не осталось в ней других соединений.
func (s *Service) leaveRoom(ctx context.Context, c Client, payload json.RawMessage) error {
	var req realtime.RoomRequest
	if err := decode(payload, &req); err != nil {
		return err
	}
	roomID := int64(req.RoomID)
	if roomID <= 0 {
		return errRoomRequired
	}

	msg := leftRoom(roomID, c.Identity.UserID)
	if d, ok := s.presence.Leave(roomID, c.Conn.ID()); ok && d.Gone {
		metrics.RoomsActive.Set(float64(s.presence.RoomCount()))
		s.router.Broadcast(roomID, msg, c.Conn.ID())
		s.publishPresence(ctx, events.KindLeft, roomID, c.Identity.UserID)
	}
	_ = c.Conn.Send(msg)
	return nil
}

// send_message: сначала запись в хранилище, потом рассылка. Если не сохранилось, не рассылаем.
func (s *Service) sendMessage(ctx context.Context, c Client, payload json.RawMessage) error {
	if err := s.allow(ctx, c, s.messageRule, errTooManyMessages); err != nil {
		return err
	}

	var req realtime.SendMessageRequest
	if err := decode(payload, &req); err != nil {
		return err
	}
	roomID := int64(req.RoomID)
	content := strings.TrimSpace(req.Content)
	if roomID <= 0 || content == "" {
		return errMessageRequired
	}
	if err := s.ensureRoom(ctx, roomID); err != nil {
		return err
	}

	m, err := s.messages.Persist(ctx, roomID, c.Identity.UserID, content)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return err
		}
		metrics.PersistFailures.Inc()
		if !errors.Is(err, domain.ErrPersistence) {
			err = domain.Persistence("failed to save message", err)
		}
		return err
	}
	metrics.MessagesPersisted.Inc()

	m.Username = c.Identity.Username
	m.UserCity = c.Identity.City
	s.router.Broadcast(roomID, realtime.NewMessage(*m), "")

	if err := s.events.MessageCreated(ctx, *m); err != nil {
		slog.WarnContext(ctx, "publish message event failed", "message_id", m.ID, "err", err)
	}
	return nil
}

// get_room_users: текущие участники комнаты, кроме самого спрашивающего.
func (s *Service) getRoomUsers(_ context.Context, c Client, payload json.RawMessage) error {
	var req realtime.RoomRequest
	if err := decode(payload, &req); err != nil {
		return err
	}
	roomID := int64(req.RoomID)
	if roomID <= 0 {
		return errRoomRequired
	}

	members := s.presence.Members(roomID)
	users := make([]domain.Identity, 0, len(members))
	for _, m := range members {
		if m.UserID != c.Identity.UserID {
			users = append(users, m)
		}
	}
	_ = c.Conn.Send(realtime.Message{
		Type:    realtime.TypeRoomUsersList,
		Payload: realtime.RoomUsersPayload{RoomID: roomID, Users: users},
	})
	return nil
}

func (s *Service) ensureRoom(ctx context.Context, roomID int64) error {
	ok, err := s.rooms.RoomExists(ctx, roomID)
	if err != nil {
		return fmt.Errorf("rooms.RoomExists: %w", err)
	}
	if !ok {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *Service) allow(ctx context.Context, c Client, rule ratelimit.Rule, limited error) error {
	ok, err := s.limiter.Allow(ctx, strconv.FormatInt(c.Identity.UserID, 10), rule)
	if err != nil {
		slog.DebugContext(ctx, "rate limiter error", "rule", rule.Key, "err", err)
	}
	if !ok {
		metrics.RateLimited.WithLabelValues(rule.Key).Inc()
		return limited
	}
	return nil
}
