package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestOwnerRateLimitKey(t *testing.T) {
	t.Parallel()

	a := uuid.New()
	b := uuid.New()

	if ownerRateLimitKey(a) != ownerRateLimitKey(a) {
		t.Error("same owner should produce same key")
	}
	if ownerRateLimitKey(a) == ownerRateLimitKey(b) {
		t.Error("different owners should produce different keys")
	}
	if !strings.HasPrefix(ownerRateLimitKey(a), rateLimitOwnerPrefix) {
		t.Errorf("key %q is missing prefix %q", ownerRateLimitKey(a), rateLimitOwnerPrefix)
	}
}

func TestCheckOwnerRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	// A disabled limit never reaches Redis, so a nil client is fine.
	c := &Cache{}
	res, err := c.CheckOwnerRateLimit(context.Background(), uuid.New(), 0, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed {
		t.Error("expected request to be allowed when the limit is disabled")
	}
	if res.Remaining != 5 {
		t.Errorf("expected remaining 5, got %d", res.Remaining)
	}
}

func TestOptions_Apply(t *testing.T) {
	t.Parallel()

	opt, err := redis.ParseURL("redis://localhost:6379/0?pool_size=3&min_idle_conns=1")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	Options{PoolSize: 12, PoolTimeout: 4 * time.Second}.apply(opt)

	if opt.PoolSize != 12 {
		t.Errorf("PoolSize = %d, want 12", opt.PoolSize)
	}
	if opt.MinIdleConns != 1 {
		t.Errorf("MinIdleConns = %d, want the URL value 1", opt.MinIdleConns)
	}
	if opt.PoolTimeout != 4*time.Second {
		t.Errorf("PoolTimeout = %v, want 4s", opt.PoolTimeout)
	}
	if opt.ConnMaxIdleTime != 0 {
		t.Errorf("ConnMaxIdleTime = %v, want untouched", opt.ConnMaxIdleTime)
	}
}
