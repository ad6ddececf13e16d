package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type TokenVerifier interface {
	// Verify проверяет access-токен и возвращает id пользователя.
	Verify(token string) (int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// IdentityService превращает токен соединения в Identity.
type IdentityService struct {
	verifier TokenVerifier
	userRepo UserRepository
}

func NewIdentityService(verifier TokenVerifier, userRepo UserRepository) *IdentityService {
	return &IdentityService{verifier: verifier, userRepo: userRepo}
}

func (s *IdentityService) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, domain.Unauthenticated("missing access token", nil)
	}

	userID, err := s.verifier.Verify(token)
	if err != nil {
		return domain.Identity{}, domain.Unauthenticated("invalid access token", err)
	}

	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Identity{}, domain.Unauthenticated("unknown user", err)
		}
		return domain.Identity{}, fmt.Errorf("userRepo.Get: %w", err)
	}
	if !u.IsActive {
		return domain.Identity{}, domain.Unauthenticated("user is disabled", nil)
	}
	return u.Identity(), nil
}

// CreateUser заводит пользователя (dev-утилита вместо формы регистрации).
func (s *IdentityService) CreateUser(ctx context.Context, username, email, city string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.Invalid("username required")
	}
	if utf8.RuneCountInString(username) > domain.MaxUsernameLen {
		return nil, domain.Invalid("username too long")
	}
	city = strings.TrimSpace(city)
	if city == "" {
		city = domain.DefaultCity
	}

	u := &domain.User{
		Username: username,
		Email:    strings.TrimSpace(email),
		City:     city,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, &domain.Error{Kind: domain.ErrAlreadyExists, Msg: "user already exists", Err: err}
		}
		return nil, fmt.Errorf("userRepo.Create: %w", err)
	}
	return u, nil
}

func (s *IdentityService) UserByName(ctx context.Context, username string) (*domain.User, error) {
	u, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByUsername: %w", err)
	}
	return u, nil
}
