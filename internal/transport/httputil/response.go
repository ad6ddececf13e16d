package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", slog.Any("err", err))
	}
}

// Error отдаёт {"error": msg} со статусом по классу ошибки.
// Внутренние ошибки логируются, клиент видит только "internal error".
func Error(ctx context.Context, w http.ResponseWriter, err error) {
	status := StatusFromError(err)
	if status >= http.StatusInternalServerError {
		reqID, _ := RequestIDFromContext(ctx)
		slog.ErrorContext(ctx, "request failed", "req_id", reqID, "err", err)
	}
	JSON(w, status, ErrorResponse{Error: domain.PublicMessage(err)})
}

func StatusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	// дубликат имени комнаты: 400, как у веб-клиента
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
