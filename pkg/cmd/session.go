package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/flightline/pkg/session"
)

// NewSessionStore returns a Redis store for redis:// and rediss:// URLs and an
// in-memory store otherwise.
func NewSessionStore(ctx context.Context, storeURL string, ttl time.Duration) (session.Store, error) {
	switch {
	case storeURL == "", storeURL == "memory":
		return session.NewMemoryStore(ttl), nil
	case strings.HasPrefix(storeURL, "redis://"), strings.HasPrefix(storeURL, "rediss://"):
		return session.NewRedisStore(ctx, storeURL, session.WithTTL(ttl))
	default:
		return nil, fmt.Errorf("unsupported session store: %s", storeURL)
	}
}
