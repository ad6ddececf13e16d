package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

const (
	DefaultMaxMessageLen = 4000

	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 500
)

type MessageRepository interface {
	// Save заполняет ID и CreatedAt.
	Save(ctx context.Context, m *domain.Message) error
	// History отдаёт сообщения комнаты от новых к старым, строго старше before (если задан).
	History(ctx context.Context, roomID int64, limit int, before *domain.Cursor) ([]domain.Message, error)
}

type ChatService struct {
	chatRepo      MessageRepository
	maxMessageLen int
}

func NewChatService(chatRepo MessageRepository, maxMessageLen int) *ChatService {
	if maxMessageLen <= 0 {
		maxMessageLen = DefaultMaxMessageLen
	}
	return &ChatService{chatRepo: chatRepo, maxMessageLen: maxMessageLen}
}

// Persist сохраняет сообщение. Ошибка хранилища возвращается как persistence-ошибка.
func (s *ChatService) Persist(ctx context.Context, roomID, userID int64, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if roomID <= 0 || content == "" {
		return nil, domain.Invalid("room and message text required")
	}
	if utf8.RuneCountInString(content) > s.maxMessageLen {
		return nil, domain.Invalid("message too long")
	}

	m := &domain.Message{RoomID: roomID, UserID: userID, Content: content}
	if err := s.chatRepo.Save(ctx, m); err != nil {
		return nil, domain.Persistence("failed to save message", fmt.Errorf("chatRepo.Save: %w", err))
	}
	return m, nil
}

type HistoryPage struct {
	Messages   []domain.Message
	NextCursor string
}

// History возвращает последние limit сообщений по возрастанию времени.
// NextCursor листает дальше в прошлое; пустой: старее ничего нет.
func (s *ChatService) History(ctx context.Context, roomID int64, limit int, before string) (HistoryPage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	cur, err := domain.DecodeCursor(before)
	if err != nil {
		return HistoryPage{}, err
	}

	msgs, err := s.chatRepo.History(ctx, roomID, limit, cur)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return HistoryPage{}, err
		}
		return HistoryPage{}, fmt.Errorf("chatRepo.History: %w", err)
	}

	var page HistoryPage
	if len(msgs) == limit {
		oldest := msgs[len(msgs)-1]
		if c, e := domain.EncodeCursor(domain.Cursor{CreatedAt: oldest.CreatedAt, ID: oldest.ID}); e == nil {
			page.NextCursor = c
		}
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	for i := range msgs {
		if msgs[i].UserCity == "" {
			msgs[i].UserCity = domain.DefaultCity
		}
	}
	page.Messages = msgs
	return page, nil
}
