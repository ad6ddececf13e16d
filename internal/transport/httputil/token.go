package httputil

import (
	"net/http"
	"strings"
)

const TokenParam = "access_token"

// BearerToken достаёт токен из заголовка Authorization: Bearer <token>.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// TokenFromRequest ищет токен в query access_token, затем в Authorization, затем в cookie.
// Браузерный WebSocket не умеет ставить заголовки, отсюда query и cookie.
func TokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get(TokenParam)); t != "" {
		return t
	}
	if t := BearerToken(r); t != "" {
		return t
	}
	if c, err := r.Cookie(TokenParam); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
