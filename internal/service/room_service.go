package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, id int64) (*domain.Room, error)
	List(ctx context.Context) ([]domain.Room, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

type RoomService struct {
	roomRepo RoomRepository
}

func NewRoomService(roomRepo RoomRepository) *RoomService {
	return &RoomService{roomRepo: roomRepo}
}

// CreateRoom создаёт комнату; имя обязательно и уникально.
func (s *RoomService) CreateRoom(ctx context.Context, name, description string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("room name required")
	}
	if utf8.RuneCountInString(name) > domain.MaxRoomNameLen {
		return nil, domain.Invalid("room name too long")
	}

	room := &domain.Room{
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrRoomExists
		}
		return nil, domain.Persistence("failed to create room", fmt.Errorf("roomRepo.Create: %w", err))
	}
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	room, err := s.roomRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("roomRepo.Get: %w", err)
	}
	return room, nil
}

// ListRooms возвращает все комнаты по возрастанию id.
func (s *RoomService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := s.roomRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.List: %w", err)
	}
	return rooms, nil
}

func (s *RoomService) RoomExists(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	return s.roomRepo.Exists(ctx, id)
}

// EnsureDefaultRoom создаёт общую комнату, если её ещё нет.
func (s *RoomService) EnsureDefaultRoom(ctx context.Context) error {
	room := &domain.Room{
		Name:        domain.DefaultRoomName,
		Description: domain.DefaultRoomDescription,
	}
	err := s.roomRepo.Create(ctx, room)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "default room created", "room_id", room.ID, "name", room.Name)
		return nil
	case errors.Is(err, domain.ErrAlreadyExists):
		return nil
	default:
		return fmt.Errorf("create default room: %w", err)
	}
}
