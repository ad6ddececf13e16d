package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/realtime"
	"github.com/cwrk-planet/chat-service/internal/transport/httputil"

	"github.com/gorilla/websocket"
)

type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (domain.Identity, error)
}

type Session interface {
	Connect(ctx context.Context, conn realtime.Conn, id domain.Identity) error
	Handle(ctx context.Context, conn realtime.Conn, data []byte)
	Disconnect(ctx context.Context, conn realtime.Conn)
}

type Config struct {
	PingEvery      time.Duration
	WriteTimeout   time.Duration
	ReadLimit      int64
	SendQueue      int
	AllowedOrigins []string
}

func (c Config) withDefaults() Config {
	if c.PingEvery <= 0 {
		c.PingEvery = 15 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 64 << 10
	}
	if c.SendQueue <= 0 {
		c.SendQueue = 64
	}
	return c
}

type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	identity IdentityResolver
	session  Session

	mu      sync.Mutex
	conns   map[string]*wsConn
	closing bool
	live    sync.WaitGroup // обработчики, которые ещё не закончили Disconnect
}

func NewServer(cfg Config, identity IdentityResolver, session Session) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:      cfg,
		identity: identity,
		session:  session,
		conns:    make(map[string]*wsConn),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// WS endpoint: GET /ws?access_token=... (или Authorization / cookie access_token)
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	// identity проверяем до апгрейда: без неё только 401
	id, err := s.identity.Resolve(r.Context(), httputil.TokenFromRequest(r))
	if err != nil {
		httputil.Error(r.Context(), w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам ответил клиенту
		slog.Warn("ws upgrade failed", "user_id", id.UserID, "err", err)
		return
	}

	c := newWsConn(conn, s.cfg.SendQueue)
	ctx := context.WithoutCancel(r.Context())

	if !s.track(c) {
		s.closeWith(c, websocket.CloseGoingAway, "server shutdown")
		return
	}
	defer s.untrack(c)

	if err := s.session.Connect(ctx, c, id); err != nil {
		slog.Warn("ws connect rejected", "user_id", id.UserID, "err", err)
		s.closeWith(c, websocket.ClosePolicyViolation, domain.PublicMessage(err))
		return
	}

	defer func() {
		_ = c.Close()
		s.session.Disconnect(ctx, c)
	}()

	go c.writeLoop(s.cfg.PingEvery, s.cfg.WriteTimeout)
	s.readLoop(ctx, c)
}

// readLoop обрабатывает кадры по одному и выходит при любой ошибке чтения.
func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	c.conn.SetReadLimit(s.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingEvery))
	})

	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				slog.Debug("ws read failed", "conn", c.ID(), "err", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingEvery))
		s.session.Handle(ctx, c, data)
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// track возвращает false, если сервер уже останавливается.
func (s *Server) track(c *wsConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return false
	}
	s.conns[c.ID()] = c
	s.live.Add(1)
	return true
}

func (s *Server) untrack(c *wsConn) {
	s.mu.Lock()
	delete(s.conns, c.ID())
	s.mu.Unlock()
	s.live.Done()
}

func (s *Server) closeWith(c *wsConn, code int, reason string) {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(s.cfg.WriteTimeout))
	_ = c.Close()
}

// CloseAll рвёт все соединения и перестаёт принимать новые;
// уборка присутствия пройдёт в HandleWS каждого из них.
func (s *Server) CloseAll() int {
	s.mu.Lock()
	s.closing = true
	conns := make([]*wsConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		s.closeWith(c, websocket.CloseGoingAway, "server shutdown")
	}
	return len(conns)
}

// Wait ждёт, пока все обработчики закончат Disconnect, или истечения ctx.
// Вызывать после CloseAll: новые соединения к этому моменту уже не принимаются.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.live.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
