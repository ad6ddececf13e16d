// Package session реализует протокол реального времени: подключение, комнаты, чат,
// ретрансляция WebRTC-сигналинга и уборка присутствия при разрыве.
package session

import (
	"context"
	"log/slog"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/events"
	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/internal/presence"
	"github.com/cwrk-planet/chat-service/internal/ratelimit"
	"github.com/cwrk-planet/chat-service/internal/realtime"
)

type RoomChecker interface {
	RoomExists(ctx context.Context, roomID int64) (bool, error)
}

// MessageStore сохраняет сообщение и возвращает его с id и временем создания.
type MessageStore interface {
	Persist(ctx context.Context, roomID, userID int64, content string) (*domain.Message, error)
}

type Limiter interface {
	Allow(ctx context.Context, identifier string, rule ratelimit.Rule) (bool, error)
}

type EventPublisher interface {
	MessageCreated(ctx context.Context, m domain.Message) error
	PresenceChanged(ctx context.Context, ev events.PresenceEvent) error
}

type Deps struct {
	Registry *realtime.Registry
	Presence *presence.Table
	Rooms    RoomChecker
	Messages MessageStore

	// необязательные
	Limiter     Limiter
	Events      EventPublisher
	MessageRule ratelimit.Rule
	SignalRule  ratelimit.Rule
}

type Service struct {
	registry *realtime.Registry
	presence *presence.Table
	router   *realtime.Router
	rooms    RoomChecker
	messages MessageStore
	limiter  Limiter
	events   EventPublisher

	messageRule ratelimit.Rule
	signalRule  ratelimit.Rule

	dispatcher *Dispatcher
}

func New(d Deps) *Service {
	s := &Service{
		registry:    d.Registry,
		presence:    d.Presence,
		router:      realtime.NewRouter(d.Registry, d.Presence),
		rooms:       d.Rooms,
		messages:    d.Messages,
		limiter:     d.Limiter,
		events:      d.Events,
		messageRule: d.MessageRule,
		signalRule:  d.SignalRule,
	}
	if s.limiter == nil {
		s.limiter = ratelimit.Nop{}
	}
	if s.events == nil {
		s.events = events.Nop{}
	}

	s.dispatcher = NewDispatcher(d.Registry)
	s.registerHandlers()
	return s
}

func (s *Service) registerHandlers() {
	d := s.dispatcher
	d.Register(realtime.TypeJoinRoom, HandlerFunc(s.joinRoom))
	d.Register(realtime.TypeLeaveRoom, HandlerFunc(s.leaveRoom))
	d.Register(realtime.TypeSendMessage, HandlerFunc(s.sendMessage))
	d.Register(realtime.TypeGetRoomUsers, HandlerFunc(s.getRoomUsers))

	d.Register(realtime.TypeOffer, s.relay(realtime.TypeOffer))
	d.Register(realtime.TypeAnswer, s.relay(realtime.TypeAnswer))
	d.Register(realtime.TypeICECandidate, s.relay(realtime.TypeICECandidate))

	d.Register(realtime.TypeUserMicEnabled, s.micState(realtime.TypeUserMicEnabled))
	d.Register(realtime.TypeUserMicMuted, s.micState(realtime.TypeUserMicMuted))
}

func (s *Service) Router() *realtime.Router { return s.router }

// Connect регистрирует соединение и отправляет ему connected.
// connected всегда первый кадр: он встаёт в очередь раньше, чем соединение
// становится видно для адресной доставки.
func (s *Service) Connect(ctx context.Context, conn realtime.Conn, id domain.Identity) error {
	err := s.registry.RegisterThen(conn, id, func() {
		_ = conn.Send(realtime.Message{
			Type: realtime.TypeConnected,
			Payload: realtime.ConnectedPayload{
				Username: id.Username,
				UserID:   id.UserID,
				UserCity: id.City,
			},
		})
	})
	if err != nil {
		return err
	}
	metrics.ConnectionsActive.Inc()

	slog.InfoContext(ctx, "client connected", "conn", conn.ID(), "user_id", id.UserID, "username", id.Username)
	return nil
}

// Handle обрабатывает один входящий кадр от клиента.
func (s *Service) Handle(ctx context.Context, conn realtime.Conn, data []byte) {
	s.dispatcher.Dispatch(ctx, conn, data)
}

// Disconnect снимает все подписки соединения и снимает его с учёта.
// Должен вызываться при любом завершении соединения; повторный вызов ничего не делает.
func (s *Service) Disconnect(ctx context.Context, conn realtime.Conn) {
	departures := s.presence.PurgeConn(conn.ID())
	id, registered := s.registry.Unregister(conn.ID())
	if registered {
		metrics.ConnectionsActive.Dec()
	}
	metrics.RoomsActive.Set(float64(s.presence.RoomCount()))

	for _, d := range departures {
		if !d.Gone {
			continue
		}
		s.router.Broadcast(d.RoomID, leftRoom(d.RoomID, d.UserID), "")
		s.publishPresence(ctx, events.KindLeft, d.RoomID, d.UserID)
	}

	if registered {
		slog.InfoContext(ctx, "client disconnected",
			"conn", conn.ID(), "user_id", id.UserID, "rooms_left", len(departures))
	}
}

// Kick сразу убирает пользователя из всех комнат и закрывает его соединения.
// Disconnect, который придёт от транспорта следом, присутствие уже не найдёт.
func (s *Service) Kick(ctx context.Context, userID int64) int {
	for _, d := range s.presence.Purge(userID) {
		s.router.Broadcast(d.RoomID, leftRoom(d.RoomID, d.UserID), "")
		s.publishPresence(ctx, events.KindLeft, d.RoomID, d.UserID)
	}
	metrics.RoomsActive.Set(float64(s.presence.RoomCount()))

	conns := s.registry.ConnsOf(userID)
	for _, c := range conns {
		_ = c.Close()
	}
	return len(conns)
}

type Stats struct {
	Connections int
	Users       int
	Rooms       int
}

func (s *Service) Stats() Stats {
	return Stats{
		Connections: s.registry.Len(),
		Users:       s.registry.Users(),
		Rooms:       s.presence.RoomCount(),
	}
}

func (s *Service) publishPresence(ctx context.Context, kind string, roomID, userID int64) {
	err := s.events.PresenceChanged(ctx, events.PresenceEvent{Kind: kind, RoomID: roomID, UserID: userID})
	if err != nil {
		slog.WarnContext(ctx, "publish presence event failed", "room_id", roomID, "user_id", userID, "err", err)
	}
}

func leftRoom(roomID, userID int64) realtime.Message {
	return realtime.Message{
		Type:    realtime.TypeLeftRoom,
		Payload: realtime.LeftRoomPayload{RoomID: roomID, UserID: userID},
	}
}
