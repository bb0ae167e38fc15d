// Package timeouts provides the deadlines used around store and file I/O.
//
//   - Ping: health checks
//   - Short: single-document reads and writes
//   - Medium: list queries, reads followed by a write
//   - Long: cascading deletes that touch several collections and files
//
// Configure is called once at startup from app configuration; zero values
// keep the defaults.
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
)

var (
	mu     sync.RWMutex
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
)

// Config holds timeout overrides. Zero values are ignored.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// Configure applies non-zero overrides.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Medium > 0 {
		medium = cfg.Medium
	}
	if cfg.Long > 0 {
		long = cfg.Long
	}
}

// Reset restores the defaults. Used by tests.
func Reset() {
	Configure(Config{Ping: DefaultPing, Short: DefaultShort, Medium: DefaultMedium, Long: DefaultLong})
}

func Ping() time.Duration   { mu.RLock(); defer mu.RUnlock(); return ping }
func Short() time.Duration  { mu.RLock(); defer mu.RUnlock(); return short }
func Medium() time.Duration { mu.RLock(); defer mu.RUnlock(); return medium }
func Long() time.Duration   { mu.RLock(); defer mu.RUnlock(); return long }

// WithTimeout wraps context.WithTimeout and logs when the deadline was the
// reason the operation ended.
func WithTimeout(parent context.Context, d time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", d))
		}
		cancel()
	}
}
