package domain

import "time"

const (
	DefaultRoomName        = "Общий чат"
	DefaultRoomDescription = "Главная комната для общения"

	MaxRoomNameLen = 100
)

type Room struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}
