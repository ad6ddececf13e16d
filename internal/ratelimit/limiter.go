// Package ratelimit ограничивает частоту клиентских событий счётчиками в Redis
// (INCR + EXPIRE, фиксированное окно). При недоступности Redis пропускает запросы.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Rule struct {
	Key    string        // префикс ключа, напр. "rl:msg:"
	Limit  int           // сколько событий в окне
	Window time.Duration // длина окна
}

var (
	RuleMessage = Rule{Key: "rl:msg:", Limit: 20, Window: 10 * time.Second}
	RuleSignal  = Rule{Key: "rl:sig:", Limit: 200, Window: 10 * time.Second}
)

func (r Rule) Enabled() bool {
	return r.Limit > 0 && r.Window > 0
}

type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Allow увеличивает счётчик identifier в окне rule.
// Ошибка Redis не блокирует клиента: возвращается true вместе с ошибкой.
func (l *Limiter) Allow(ctx context.Context, identifier string, rule Rule) (bool, error) {
	if !rule.Enabled() {
		return true, nil
	}
	key := rule.Key + identifier

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		slog.Warn("ratelimit: incr failed, failing open", "key", key, "err", err)
		return true, err
	}

	// первый инкремент открывает окно
	if count == 1 {
		if err := l.client.Expire(ctx, key, rule.Window).Err(); err != nil {
			slog.Warn("ratelimit: expire failed, failing open", "key", key, "err", err)
			// ключ без TTL заблокировал бы пользователя навсегда
			l.client.Del(ctx, key)
			return true, err
		}
	}

	return count <= int64(rule.Limit), nil
}

// Nop пропускает всё; используется, когда Redis не настроен.
type Nop struct{}

func (Nop) Allow(context.Context, string, Rule) (bool, error) { return true, nil }
