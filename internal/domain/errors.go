package domain

import "errors"

// Классы ошибок. Транспорты решают, что отдать клиенту, через errors.Is по ним.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrPersistence     = errors.New("persistence failed")
	ErrRateLimited     = errors.New("rate limited")
)

var (
	ErrRoomNotFound = &Error{Kind: ErrNotFound, Msg: "room not found"}
	ErrRoomExists   = &Error{Kind: ErrAlreadyExists, Msg: "room already exists"}
	ErrUserNotFound = &Error{Kind: ErrNotFound, Msg: "user not found"}
)

// Error несёт сообщение, которое безопасно показать клиенту, и класс ошибки.
// Err хранит исходную причину; в ответ клиенту она не попадает.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func Invalid(msg string) error {
	return &Error{Kind: ErrValidation, Msg: msg}
}

func Unauthenticated(msg string, cause error) error {
	return &Error{Kind: ErrUnauthenticated, Msg: msg, Err: cause}
}

func Persistence(msg string, cause error) error {
	return &Error{Kind: ErrPersistence, Msg: msg, Err: cause}
}

func RateLimited(msg string) error {
	return &Error{Kind: ErrRateLimited, Msg: msg}
}

// PublicMessage возвращает текст для клиента; внутренние ошибки не раскрываются.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Msg
	}
	return "internal error"
}
