// Package kv provides the key-value backends the board is persisted to.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Get when the key has no value.
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by Set when the backend is full.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Store is a byte-oriented key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Backends lists the backend names in the order they are documented.
func Backends() []string {
	return []string{BackendMemory, BackendFile, BackendSQLite, BackendRedis}
}

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Dir         string // file backend
	SQLitePath  string // sqlite backend
	RedisAddr   string
	RedisPrefix string
	QuotaBytes  int // memory backend, 0 means unlimited
}

// Open creates the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendMemory:
		return NewMemory(opts.QuotaBytes), nil
	case "", BackendFile:
		return NewFile(opts.Dir)
	case BackendSQLite:
		return OpenSQLite(ctx, opts.SQLitePath)
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown backend %q (want one of %s)", opts.Backend, strings.Join(Backends(), ", "))
	}
}
