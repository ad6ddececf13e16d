package domain

import "time"

// Message хранит сохранённое сообщение комнаты. Username/UserCity подтягиваются из users при чтении.
type Message struct {
	ID        int64     `db:"id"`
	RoomID    int64     `db:"room_id"`
	UserID    int64     `db:"user_id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`

	Username string `db:"username"`
	UserCity string `db:"city"`
}
