package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/service"
	"github.com/cwrk-planet/chat-service/internal/transport/httputil"
)

type fakeIdentity map[string]domain.Identity

func (f fakeIdentity) Resolve(_ context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.Unauthenticated("missing access token", nil)
	}
	id, ok := f[token]
	if !ok {
		return domain.Identity{}, domain.Unauthenticated("invalid access token", nil)
	}
	return id, nil
}

type fakeRooms struct {
	rooms []domain.Room
	fail  error
}

func (f *fakeRooms) CreateRoom(_ context.Context, name, description string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("room name required")
	}
	for _, r := range f.rooms {
		if r.Name == name {
			return nil, domain.ErrRoomExists
		}
	}
	r := domain.Room{ID: int64(len(f.rooms) + 1), Name: name, Description: description, CreatedAt: time.Now()}
	f.rooms = append(f.rooms, r)
	return &r, nil
}

func (f *fakeRooms) GetRoom(_ context.Context, id int64) (*domain.Room, error) {
	for _, r := range f.rooms {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, domain.ErrRoomNotFound
}

func (f *fakeRooms) ListRooms(context.Context) ([]domain.Room, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return f.rooms, nil
}

type fakeHistory struct {
	gotLimit  int
	gotBefore string
}

func (f *fakeHistory) History(_ context.Context, roomID int64, limit int, before string) (service.HistoryPage, error) {
	f.gotLimit, f.gotBefore = limit, before
	if before == "broken" {
		return service.HistoryPage{}, domain.Invalid("invalid cursor")
	}
	return service.HistoryPage{
		Messages: []domain.Message{
			{ID: 7, RoomID: roomID, UserID: 1, Content: "hi", Username: "alice", UserCity: "Москва",
				CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		},
		NextCursor: "next",
	}, nil
}

type fakePresence map[int64][]domain.Identity

func (f fakePresence) Members(roomID int64) []domain.Identity { return f[roomID] }

var alice = domain.Identity{UserID: 1, Username: "alice", City: "Москва"}

func newTestRouter(rooms *fakeRooms, hist *fakeHistory, ready func(context.Context) error) http.Handler {
	h := NewHandler(rooms, hist, fakePresence{1: {alice}})
	return NewRouter(Deps{
		Handler:  h,
		Identity: fakeIdentity{"tok": alice},
		WS:       func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) },
		Ready:    ready,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth {
		req.Header.Set("Authorization", "Bearer tok")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e httputil.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return e.Error
}

func TestAPI_RequiresToken(t *testing.T) {
	h := newTestRouter(&fakeRooms{}, &fakeHistory{}, nil)

	rec := do(t, h, http.MethodGet, "/api/rooms", "", false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := errorOf(t, rec); msg != "missing access token" {
		t.Fatalf("error = %q", msg)
	}
}

func TestAPI_CreateAndListRooms(t *testing.T) {
	rooms := &fakeRooms{}
	h := newTestRouter(rooms, &fakeHistory{}, nil)

	rec := do(t, h, http.MethodPost, "/api/rooms", `{"name":"  Флуд ","description":"обо всём"}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body)
	}
	var created RoomItem
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	if created.ID != 1 || created.Name != "Флуд" {
		t.Fatalf("created = %+v", created)
	}

	rec = do(t, h, http.MethodPost, "/api/rooms", `{"name":"Флуд"}`, true)
	if rec.Code != http.StatusBadRequest || errorOf(t, rec) != "room already exists" {
		t.Fatalf("duplicate: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/api/rooms", `{"name":"   "}`, true)
	if rec.Code != http.StatusBadRequest || errorOf(t, rec) != "room name required" {
		t.Fatalf("empty name: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/api/rooms", `{bad`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/rooms", "", true)
	var list []RoomItem
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if rec.Code != http.StatusOK || len(list) != 1 {
		t.Fatalf("list: %d %s", rec.Code, rec.Body)
	}
}

func TestAPI_GetRoom(t *testing.T) {
	rooms := &fakeRooms{rooms: []domain.Room{{ID: 1, Name: domain.DefaultRoomName}}}
	h := newTestRouter(rooms, &fakeHistory{}, nil)

	if rec := do(t, h, http.MethodGet, "/api/rooms/1", "", true); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/rooms/42", "", true); rec.Code != http.StatusNotFound {
		t.Fatalf("missing room status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/rooms/abc", "", true); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}
}

func TestAPI_InternalErrorHidden(t *testing.T) {
	h := newTestRouter(&fakeRooms{fail: errors.New("pg: connection refused")}, &fakeHistory{}, nil)

	rec := do(t, h, http.MethodGet, "/api/rooms", "", true)
	if rec.Code != http.StatusInternalServerError || errorOf(t, rec) != "internal error" {
		t.Fatalf("got %d %s", rec.Code, rec.Body)
	}
}

func TestAPI_RoomUsers(t *testing.T) {
	h := newTestRouter(&fakeRooms{}, &fakeHistory{}, nil)

	rec := do(t, h, http.MethodGet, "/api/rooms/1/users", "", true)
	var resp RoomUsersResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if rec.Code != http.StatusOK || len(resp.Users) != 1 || resp.Users[0].Username != "alice" {
		t.Fatalf("got %d %s", rec.Code, rec.Body)
	}
}

func TestAPI_History(t *testing.T) {
	hist := &fakeHistory{}
	h := newTestRouter(&fakeRooms{}, hist, nil)

	rec := do(t, h, http.MethodGet, "/api/messages/1?limit=20&before=abc", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if hist.gotLimit != 20 || hist.gotBefore != "abc" {
		t.Fatalf("passed limit=%d before=%q", hist.gotLimit, hist.gotBefore)
	}
	var resp HistoryResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Messages) != 1 || resp.NextCursor != "next" {
		t.Fatalf("resp = %+v", resp)
	}
	m := resp.Messages[0]
	if m.Username != "alice" || m.UserCity != "Москва" || m.Timestamp != "2026-01-02T03:04:05Z" {
		t.Fatalf("message = %+v", m)
	}

	if rec := do(t, h, http.MethodGet, "/api/messages/1?limit=x", "", true); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/messages/1?before=broken", "", true); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad cursor status = %d", rec.Code)
	}
}

func TestAPI_Me(t *testing.T) {
	h := newTestRouter(&fakeRooms{}, &fakeHistory{}, nil)

	rec := do(t, h, http.MethodGet, "/api/me", "", true)
	var id domain.Identity
	_ = json.Unmarshal(rec.Body.Bytes(), &id)
	if rec.Code != http.StatusOK || id != alice {
		t.Fatalf("got %d %+v", rec.Code, id)
	}
}

func TestHealthAndReady(t *testing.T) {
	h := newTestRouter(&fakeRooms{}, &fakeHistory{}, func(context.Context) error { return errors.New("down") })

	if rec := do(t, h, http.MethodGet, "/healthz", "", false); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/readyz", "", false); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/ws", "", false); rec.Code != http.StatusTeapot {
		t.Fatalf("ws route not mounted: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/metrics", "", false); rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}
}
