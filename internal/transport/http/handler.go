package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/realtime"
	"github.com/cwrk-planet/chat-service/internal/service"
	"github.com/cwrk-planet/chat-service/internal/transport/httputil"
	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type RoomCatalog interface {
	CreateRoom(ctx context.Context, name, description string) (*domain.Room, error)
	GetRoom(ctx context.Context, id int64) (*domain.Room, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)
}

type MessageHistory interface {
	History(ctx context.Context, roomID int64, limit int, before string) (service.HistoryPage, error)
}

type Presence interface {
	Members(roomID int64) []domain.Identity
}

type Handler struct {
	roomSvc  RoomCatalog
	chatSvc  MessageHistory
	presence Presence
}

func NewHandler(rooms RoomCatalog, chat MessageHistory, presence Presence) *Handler {
	return &Handler{
		roomSvc:  rooms,
		chatSvc:  chat,
		presence: presence,
	}
}

// POST /api/rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(r.Context(), w, domain.Invalid("invalid json"))
		return
	}
	room, err := h.roomSvc.CreateRoom(r.Context(), req.Name, req.Description)
	if err != nil {
		httputil.Error(r.Context(), w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, toRoomItem(*room))
}

// GET /api/rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomSvc.ListRooms(r.Context())
	if err != nil {
		httputil.Error(r.Context(), w, err)
		return
	}
	items := make([]RoomItem, 0, len(rooms))
	for _, rm := range rooms {
		items = append(items, toRoomItem(rm))
	}
	httputil.JSON(w, http.StatusOK, items)
}

// GET /api/rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.Error(r.Context(), w, err)
		return
	}
	room, err := h.roomSvc.GetRoom(r.Context(), id)
	if err != nil {
		httputil.Error(r.Context(), w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toRoomItem(*room))
}

// GET /api/rooms/{id}/users: кто сейчас в комнате
func (h *Handler) RoomUsers(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.Error(r.Context(), w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, RoomUsersResponse{RoomID: id, Users: h.presence.Members(id)})
}

// GET /api/messages/{room_id}?limit=&before=
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	roomID, err := idParam(r, "room_id")
	if err != nil {
		httputil.Error(r.Context(), w, err)
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			httputil.Error(r.Context(), w, domain.Invalid("invalid limit"))
			return
		}
		limit = n
	}

	page, err := h.chatSvc.History(r.Context(), roomID, limit, r.URL.Query().Get("before"))
	if err != nil {
		httputil.Error(r.Context(), w, err)
		return
	}
	resp := HistoryResponse{
		Messages:   make([]realtime.NewMessagePayload, 0, len(page.Messages)),
		NextCursor: page.NextCursor,
	}
	for _, m := range page.Messages {
		resp.Messages = append(resp.Messages, realtime.MessagePayload(m))
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := httpmw.IdentityFromCtx(r.Context())
	if !ok {
		httputil.Error(r.Context(), w, domain.Unauthenticated("missing access token", nil))
		return
	}
	httputil.JSON(w, http.StatusOK, id)
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("invalid " + name)
	}
	return id, nil
}
