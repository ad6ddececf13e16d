package realtime

import (
	"log/slog"

	"github.com/cwrk-planet/chat-service/internal/metrics"
)

// Subscriptions отдаёт id соединений, подписанных на комнату.
type Subscriptions interface {
	Subscribers(roomID int64) []string
}

// Router доставляет события в комнату или конкретному пользователю.
// Порядок гарантируется только в пределах одного получателя.
type Router struct {
	registry *Registry
	subs     Subscriptions
}

func NewRouter(registry *Registry, subs Subscriptions) *Router {
	return &Router{registry: registry, subs: subs}
}

// Broadcast рассылает msg всем подпискам комнаты, кроме excludeConnID.
// Отвалившиеся получатели пропускаются молча. Возвращает число доставок.
func (r *Router) Broadcast(roomID int64, msg Message, excludeConnID string) int {
	delivered := 0
	for _, connID := range r.subs.Subscribers(roomID) {
		if connID == excludeConnID {
			continue
		}
		if r.SendTo(connID, msg) {
			delivered++
		}
	}
	metrics.EventsOut.WithLabelValues("broadcast", msg.Type).Add(float64(delivered))
	return delivered
}

// DeliverToUser отправляет msg во все соединения пользователя.
// Если пользователь офлайн, no-op: сигналинг best-effort.
func (r *Router) DeliverToUser(userID int64, msg Message) int {
	delivered := 0
	for _, c := range r.registry.ConnsOf(userID) {
		if r.send(c, msg) {
			delivered++
		}
	}
	metrics.EventsOut.WithLabelValues("direct", msg.Type).Add(float64(delivered))
	return delivered
}

func (r *Router) SendTo(connID string, msg Message) bool {
	c, ok := r.registry.Get(connID)
	if !ok {
		return false
	}
	return r.send(c, msg)
}

func (r *Router) send(c Conn, msg Message) bool {
	if err := c.Send(msg); err != nil {
		slog.Debug("router: skip recipient", "conn", c.ID(), "type", msg.Type, "err", err)
		metrics.DroppedEvents.WithLabelValues(msg.Type).Inc()
		return false
	}
	return true
}
