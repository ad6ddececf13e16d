package realtime

import (
	"errors"
	"sync"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

var ErrDuplicateConn = errors.New("connection already registered")

type entry struct {
	conn     Conn
	identity domain.Identity
}

// Registry связывает живые соединения с identity и индексирует их по пользователю.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]entry
	byUser map[int64]map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]entry),
		byUser: make(map[int64]map[string]Conn),
	}
}

func (r *Registry) Register(c Conn, id domain.Identity) error {
	return r.RegisterThen(c, id, nil)
}

// RegisterThen вызывает then под блокировкой реестра сразу после вставки:
// адресная доставка этому пользователю увидит соединение только после then.
func (r *Registry) RegisterThen(c Conn, id domain.Identity, then func()) error {
	if !id.Valid() {
		return domain.Unauthenticated("unauthenticated", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.ID()]; ok {
		return ErrDuplicateConn
	}
	r.conns[c.ID()] = entry{conn: c, identity: id}

	cs, ok := r.byUser[id.UserID]
	if !ok {
		cs = make(map[string]Conn)
		r.byUser[id.UserID] = cs
	}
	cs[c.ID()] = c

	if then != nil {
		then()
	}
	return nil
}

// Unregister идемпотентен: повторный вызов вернёт ok=false.
func (r *Registry) Unregister(connID string) (domain.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return domain.Identity{}, false
	}
	delete(r.conns, connID)
	if cs := r.byUser[e.identity.UserID]; cs != nil {
		delete(cs, connID)
		if len(cs) == 0 {
			delete(r.byUser, e.identity.UserID)
		}
	}
	return e.identity, true
}

func (r *Registry) Resolve(connID string) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	return e.identity, ok
}

func (r *Registry) Get(connID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	return e.conn, ok
}

// ConnsOf возвращает все соединения пользователя: у каждой вкладки своё.
func (r *Registry) ConnsOf(userID int64) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cs := r.byUser[userID]
	out := make([]Conn, 0, len(cs))
	for _, c := range cs {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

func (r *Registry) Users() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser)
}
