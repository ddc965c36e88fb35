package storage

import (
	"context"
	"fmt"

	"github.com/joss/scanchat/internal/domain"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string // sqlite, redis or memory
	SQLitePath string
	RedisURL   string
}

// Open returns the configured backend.
func Open(ctx context.Context, opts Options) (domain.LocalStore, error) {
	switch opts.Backend {
	case "", "sqlite":
		return NewSQLite(opts.SQLitePath)
	case "redis":
		return NewRedis(ctx, opts.RedisURL)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
