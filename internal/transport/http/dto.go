package http

import (
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/realtime"
)

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type RoomItem struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type RoomUsersResponse struct {
	RoomID int64             `json:"room_id"`
	Users  []domain.Identity `json:"users"`
}

// сообщения истории в том же виде, что и new_message по WebSocket
type HistoryResponse struct {
	Messages   []realtime.NewMessagePayload `json:"messages"`
	NextCursor string                       `json:"next_cursor,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

func toRoomItem(r domain.Room) RoomItem {
	return RoomItem{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}
