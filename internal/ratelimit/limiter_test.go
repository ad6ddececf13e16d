package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestLimiter_FailsOpenWhenRedisDown(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	l := NewLimiter(client)
	ok, err := l.Allow(context.Background(), "42", RuleMessage)
	if !ok {
		t.Fatal("limiter must fail open")
	}
	if err == nil {
		t.Fatal("expected redis error to be reported")
	}
}

func TestLimiter_DisabledRuleSkipsRedis(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	ok, err := NewLimiter(client).Allow(context.Background(), "42", Rule{Key: "rl:x:"})
	if !ok || err != nil {
		t.Fatalf("disabled rule: ok=%v err=%v", ok, err)
	}
}

func TestNop(t *testing.T) {
	ok, err := Nop{}.Allow(context.Background(), "1", RuleSignal)
	if !ok || err != nil {
		t.Fatalf("nop: ok=%v err=%v", ok, err)
	}
}
