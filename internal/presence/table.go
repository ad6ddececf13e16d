// Package presence хранит, кто из пользователей сейчас находится в какой комнате.
//
// Пользователь считается участником комнаты, пока хотя бы одно его соединение
// подписано на неё. Все операции атомарны относительно друг друга.
package presence

import (
	"sort"
	"sync"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type member struct {
	identity domain.Identity
	conns    map[string]struct{}
	seq      uint64 // порядок входа, для стабильной выдачи списков
}

// Departure описывает снятие подписки соединения с комнаты.
// Gone=true значит, что у пользователя в комнате больше не осталось соединений.
type Departure struct {
	RoomID int64
	UserID int64
	Gone   bool
}

type RoomStat struct {
	RoomID  int64
	Members int
}

type Table struct {
	mu     sync.Mutex
	rooms  map[int64]map[int64]*member  // roomID -> userID -> member
	byConn map[string]map[int64]int64   // connID -> roomID -> userID
	byUser map[int64]map[int64]struct{} // userID -> set of roomID
	seq    uint64
}

func NewTable() *Table {
	return &Table{
		rooms:  make(map[int64]map[int64]*member),
		byConn: make(map[string]map[int64]int64),
		byUser: make(map[int64]map[int64]struct{}),
	}
}

// Join подписывает соединение на комнату и возвращает снимок остальных участников
// до вставки. Повторный вход того же пользователя только обновляет снимок его identity;
// added=true, если пользователя в комнате до этого не было.
func (t *Table) Join(roomID int64, connID string, id domain.Identity) (others []domain.Identity, added bool) {
	return t.JoinThen(roomID, connID, id, nil)
}

// JoinThen как Join, но then(others) вызывается ещё под блокировкой таблицы.
// Всё, что then положит в очередь соединения, окажется там раньше событий
// следующих вошедших: их рассылка читает подписчиков после нас.
// then не должен блокироваться и обращаться к таблице.
func (t *Table) JoinThen(roomID int64, connID string, id domain.Identity, then func(others []domain.Identity)) (others []domain.Identity, added bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.rooms[roomID]
	if !ok {
		members = make(map[int64]*member)
		t.rooms[roomID] = members
	}

	others = snapshot(members, id.UserID)

	m, ok := members[id.UserID]
	if !ok {
		added = true
		t.seq++
		m = &member{conns: make(map[string]struct{}), seq: t.seq}
		members[id.UserID] = m
	}
	m.identity = id
	m.conns[connID] = struct{}{}

	rs, ok := t.byConn[connID]
	if !ok {
		rs = make(map[int64]int64)
		t.byConn[connID] = rs
	}
	rs[roomID] = id.UserID

	ur, ok := t.byUser[id.UserID]
	if !ok {
		ur = make(map[int64]struct{})
		t.byUser[id.UserID] = ur
	}
	ur[roomID] = struct{}{}

	if then != nil {
		then(others)
	}
	return others, added
}

// Leave снимает подписку соединения с комнаты. Без подписки это no-op с ok=false.
func (t *Table) Leave(roomID int64, connID string) (Departure, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	userID, ok := t.byConn[connID][roomID]
	if !ok {
		return Departure{}, false
	}
	return t.removeConnLocked(roomID, connID, userID), true
}

// PurgeConn снимает все подписки соединения. Вызывается при разрыве.
// Стоит O(число комнат соединения).
func (t *Table) PurgeConn(connID string) []Departure {
	t.mu.Lock()
	defer t.mu.Unlock()

	rs, ok := t.byConn[connID]
	if !ok {
		return nil
	}
	out := make([]Departure, 0, len(rs))
	for roomID, userID := range rs {
		out = append(out, t.removeConnLocked(roomID, connID, userID))
	}
	sortDepartures(out)
	return out
}

// Purge убирает пользователя из всех комнат вместе со всеми его подписками.
// Стоит O(число комнат пользователя).
func (t *Table) Purge(userID int64) []Departure {
	t.mu.Lock()
	defer t.mu.Unlock()

	ur, ok := t.byUser[userID]
	if !ok {
		return nil
	}
	out := make([]Departure, 0, len(ur))
	for roomID := range ur {
		members := t.rooms[roomID]
		m := members[userID]
		for connID := range m.conns {
			if rs := t.byConn[connID]; rs != nil {
				delete(rs, roomID)
				if len(rs) == 0 {
					delete(t.byConn, connID)
				}
			}
		}
		delete(members, userID)
		if len(members) == 0 {
			delete(t.rooms, roomID)
		}
		out = append(out, Departure{RoomID: roomID, UserID: userID, Gone: true})
	}
	delete(t.byUser, userID)
	sortDepartures(out)
	return out
}

// Members возвращает снимок участников комнаты в порядке входа.
func (t *Table) Members(roomID int64) []domain.Identity {
	t.mu.Lock()
	defer t.mu.Unlock()

	return snapshot(t.rooms[roomID], 0)
}

// Subscribers возвращает id соединений, подписанных на комнату.
func (t *Table) Subscribers(roomID int64) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	members := t.rooms[roomID]
	out := make([]string, 0, len(members))
	for _, m := range members {
		for connID := range m.conns {
			out = append(out, connID)
		}
	}
	return out
}

func (t *Table) RoomCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.rooms)
}

func (t *Table) RoomsOf(userID int64) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]int64, 0, len(t.byUser[userID]))
	for roomID := range t.byUser[userID] {
		out = append(out, roomID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Rooms перечисляет комнаты, где сейчас кто-то есть.
func (t *Table) Rooms() []RoomStat {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]RoomStat, 0, len(t.rooms))
	for roomID, members := range t.rooms {
		out = append(out, RoomStat{RoomID: roomID, Members: len(members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

func (t *Table) removeConnLocked(roomID int64, connID string, userID int64) Departure {
	d := Departure{RoomID: roomID, UserID: userID}

	if rs := t.byConn[connID]; rs != nil {
		delete(rs, roomID)
		if len(rs) == 0 {
			delete(t.byConn, connID)
		}
	}

	members := t.rooms[roomID]
	m, ok := members[userID]
	if !ok {
		return d
	}
	delete(m.conns, connID)
	if len(m.conns) > 0 {
		return d
	}

	d.Gone = true
	delete(members, userID)
	if len(members) == 0 {
		delete(t.rooms, roomID)
	}
	if ur := t.byUser[userID]; ur != nil {
		delete(ur, roomID)
		if len(ur) == 0 {
			delete(t.byUser, userID)
		}
	}
	return d
}

func snapshot(members map[int64]*member, skipUserID int64) []domain.Identity {
	list := make([]*member, 0, len(members))
	for userID, m := range members {
		if userID == skipUserID {
			continue
		}
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })

	out := make([]domain.Identity, 0, len(list))
	for _, m := range list {
		out = append(out, m.identity)
	}
	return out
}

func sortDepartures(ds []Departure) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].RoomID < ds[j].RoomID })
}
