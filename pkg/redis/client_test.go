package redis

import (
	"context"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
)

func TestNewClientUnreachable(t *testing.T) {
	_, err := NewClient(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1", PoolSize: 1})
	if err == nil {
		t.Fatal("expected ping failure against a closed port")
	}
}
