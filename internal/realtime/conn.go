package realtime

import "errors"

var (
	ErrConnClosed = errors.New("connection closed")
	ErrQueueFull  = errors.New("send queue full")
)

// Conn представляет живое соединение клиента. Send не блокируется на сети:
// реализация ставит сообщение в очередь и сохраняет порядок для одного получателя.
type Conn interface {
	ID() string
	Send(msg Message) error
	Close() error
}
