/*
Package storage implements the key/value stores that hold serialized
frecency records.

A Provider only needs three operations: read, write and remove a string
value by key. It has no knowledge of what it stores. Backends:

  - Memory: process-local map, mainly for tests and the debug CLI
  - Dir: one file per key inside a directory
  - SQLite: a single key/value table (modernc.org/sqlite, no cgo)
  - Redis: plain GET/SET/DEL through a redigo connection pool

Probe runs the capability check used at construction time: a provider that
cannot write and remove a throwaway key is treated as unavailable.
*/
package storage

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Provider is a minimal string key/value store.
type Provider interface {
	// GetItem returns the value stored under key and whether it exists.
	GetItem(key string) (string, bool, error)
	// SetItem stores value under key, replacing any previous value.
	SetItem(key, value string) error
	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(key string) error
}

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("storage: unknown backend")

const probeKey = "____featurecheck____"

// Probe reports whether p can store and remove a value.
func Probe(p Provider) error {
	if p == nil {
		return errors.New("storage: nil provider")
	}
	if err := p.SetItem(probeKey, probeKey); err != nil {
		return fmt.Errorf("storage: probe write: %w", err)
	}
	if err := p.RemoveItem(probeKey); err != nil {
		return fmt.Errorf("storage: probe remove: %w", err)
	}
	return nil
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
}

// Open builds the provider described by opts. The returned closer releases
// backend resources and is never nil.
func Open(opts Options) (Provider, io.Closer, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendMemory:
		return NewMemory(), nopCloser{}, nil
	case BackendFile:
		d, err := NewDir(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		return d, nopCloser{}, nil
	case BackendSQLite:
		s, err := OpenSQLite(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendRedis:
		r, err := DialRedis(opts.RedisAddr, opts.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
