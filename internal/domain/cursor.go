package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor задаёт позицию в ленте (created_at, id), упорядоченной по убыванию.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        int64     `json:"id"`
}

func EncodeCursor(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeCursor для пустой строки возвращает (nil, nil), то есть начало ленты.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, &Error{Kind: ErrValidation, Msg: "invalid cursor", Err: err}
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, &Error{Kind: ErrValidation, Msg: "invalid cursor", Err: err}
	}
	return &c, nil
}
