package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type RoomRepository struct {
	db *sql.DB
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (name, description, created_at) VALUES (?, ?, ?)`,
		room.Name, room.Description, toMillis(now))
	if err != nil {
		return mapSQLiteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	room.ID = id
	room.CreatedAt = fromMillis(toMillis(now))
	return nil
}

func (r *RoomRepository) Get(ctx context.Context, id int64) (*domain.Room, error) {
	var (
		rm        domain.Room
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM rooms WHERE id = ?`, id).
		Scan(&rm.ID, &rm.Name, &rm.Description, &createdAt)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	rm.CreatedAt = fromMillis(createdAt)
	return &rm, nil
}

func (r *RoomRepository) List(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description, created_at FROM rooms ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]domain.Room, 0, 16)
	for rows.Next() {
		var (
			rm        domain.Room
			createdAt int64
		)
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.Description, &createdAt); err != nil {
			return nil, err
		}
		rm.CreatedAt = fromMillis(createdAt)
		rooms = append(rooms, rm)
	}
	return rooms, rows.Err()
}

func (r *RoomRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rooms WHERE id = ?)`, id).Scan(&exists)
	return exists, err
}

type MessageRepository struct {
	db *sql.DB
}

func (r *MessageRepository) Save(ctx context.Context, m *domain.Message) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (room_id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
		m.RoomID, m.UserID, m.Content, toMillis(now))
	if err != nil {
		return mapSQLiteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = id
	m.CreatedAt = fromMillis(toMillis(now))
	return nil
}

// History отдаёт сообщения комнаты по (created_at, id) DESC.
func (r *MessageRepository) History(ctx context.Context, roomID int64, limit int, before *domain.Cursor) ([]domain.Message, error) {
	query := `
		SELECT m.id, m.room_id, m.user_id, m.content, m.created_at, u.username, u.city
		FROM messages AS m
		JOIN users AS u ON u.id = m.user_id
		WHERE m.room_id = ?`
	args := []any{roomID}
	if before != nil {
		ts := toMillis(before.CreatedAt)
		query += ` AND (m.created_at < ? OR (m.created_at = ? AND m.id < ?))`
		args = append(args, ts, ts, before.ID)
	}
	query += ` ORDER BY m.created_at DESC, m.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Message, 0, limit)
	for rows.Next() {
		var (
			m         domain.Message
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Content, &createdAt, &m.Username, &m.UserCity); err != nil {
			return nil, err
		}
		m.CreatedAt = fromMillis(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

type UserRepository struct {
	db *sql.DB
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, city, is_active, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.City, u.IsActive, toMillis(now))
	if err != nil {
		return mapSQLiteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	u.CreatedAt = fromMillis(toMillis(now))
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `SELECT id, username, email, city, is_active, created_at FROM users WHERE id = ?`, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT id, username, email, city, is_active, created_at FROM users WHERE username = ?`, username)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		u         domain.User
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Email, &u.City, &u.IsActive, &createdAt)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}
