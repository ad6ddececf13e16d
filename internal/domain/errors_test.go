package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_KindAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("chatService.Persist: %w", Persistence("failed to save message", cause))

	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence kind, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if got := PublicMessage(err); got != "failed to save message" {
		t.Fatalf("public message = %q", got)
	}
}

func TestError_NamedSentinels(t *testing.T) {
	if !errors.Is(ErrRoomNotFound, ErrNotFound) {
		t.Fatal("ErrRoomNotFound must be a not-found error")
	}
	if !errors.Is(fmt.Errorf("wrap: %w", ErrRoomExists), ErrRoomExists) {
		t.Fatal("ErrRoomExists must survive wrapping")
	}
	if errors.Is(Invalid("x"), ErrNotFound) {
		t.Fatal("validation error must not match not-found")
	}
}

func TestPublicMessage_HidesInternal(t *testing.T) {
	if got := PublicMessage(errors.New("pq: password authentication failed")); got != "internal error" {
		t.Fatalf("leaked internal error: %q", got)
	}
}

func TestUser_IdentityDefaultsCity(t *testing.T) {
	u := &User{ID: 7, Username: "anna"}
	id := u.Identity()
	if id.City != DefaultCity {
		t.Fatalf("city = %q, want %q", id.City, DefaultCity)
	}
	if !id.Valid() {
		t.Fatal("identity should be valid")
	}
	if (Identity{Username: "x"}).Valid() {
		t.Fatal("identity without user id must be invalid")
	}
}
