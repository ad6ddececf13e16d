package postgres

import (
	"context"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db querier
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Save(ctx context.Context, m *domain.Message) error {
	err := r.db.QueryRow(ctx, querySaveMessage, m.RoomID, m.UserID, m.Content).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

// History возвращает сообщения комнаты по (created_at, id) DESC.
func (r *MessageRepository) History(ctx context.Context, roomID int64, limit int, before *domain.Cursor) ([]domain.Message, error) {
	var createdAt, id any
	if before != nil {
		createdAt = before.CreatedAt
		id = before.ID
	}

	rows, err := r.db.Query(ctx, queryHistory, roomID, createdAt, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Message, 0, limit)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Content, &m.CreatedAt, &m.Username, &m.UserCity); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
