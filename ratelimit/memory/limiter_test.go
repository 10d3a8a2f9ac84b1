package memorylimiter

import (
	"context"
	"testing"
	"time"

	"github.com/swimbuddz/membership-gateway/ratelimit"
)

func TestAllow_WindowLimit(t *testing.T) {
	l := New(map[string]ratelimit.Limit{
		"test": {Limit: 3, Window: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "test", "ip-1")
		if err != nil || !ok {
			t.Fatalf("call %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := l.Allow(ctx, "test", "ip-1"); ok {
		t.Fatal("fourth call allowed past limit")
	}

	// A different key has its own budget.
	if ok, _ := l.Allow(ctx, "test", "ip-2"); !ok {
		t.Fatal("separate key denied")
	}
}

func TestAllow_UnknownBucketUsesDefault(t *testing.T) {
	l := New(map[string]ratelimit.Limit{
		"default": {Limit: 1, Window: time.Minute},
	})
	ctx := context.Background()
	if ok, _ := l.Allow(ctx, "mystery", "k"); !ok {
		t.Fatal("first call denied")
	}
	if ok, _ := l.Allow(ctx, "mystery", "k"); ok {
		t.Fatal("default limit not applied")
	}
}

func TestAllow_RequiresBucketAndKey(t *testing.T) {
	l := New(nil)
	if _, err := l.Allow(context.Background(), "", "k"); err == nil {
		t.Fatal("empty bucket accepted")
	}
	if _, err := l.Allow(context.Background(), "b", ""); err == nil {
		t.Fatal("empty key accepted")
	}
}
