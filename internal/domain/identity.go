package domain

import "time"

const (
	DefaultCity = "Не указан"

	MaxUsernameLen = 80
)

// Identity описывает, кто стоит за соединением. Не меняется, пока соединение живо.
type Identity struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	City     string `json:"city"`
}

func (i Identity) Valid() bool {
	return i.UserID > 0 && i.Username != ""
}

type User struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	Email     string    `db:"email"`
	City      string    `db:"city"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

func (u *User) Identity() Identity {
	city := u.City
	if city == "" {
		city = DefaultCity
	}
	return Identity{
		UserID:   u.ID,
		Username: u.Username,
		City:     city,
	}
}
