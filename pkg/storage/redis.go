package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/garyburd/redigo/redis"
)

// MaxIdleConns bounds idle connections kept by the Redis pool.
const MaxIdleConns = 4

// Redis stores items as plain Redis string keys.
type Redis struct {
	pool *redis.Pool
}

// NewRedis wraps an existing pool.
func NewRedis(pool *redis.Pool) *Redis {
	return &Redis{pool: pool}
}

// DialRedis creates a pool for addr and checks the server answers PING,
// retrying with exponential backoff for a few attempts.
func DialRedis(addr, password string) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("storage: redis address is empty")
	}
	pool := &redis.Pool{
		Dial: func() (redis.Conn, error) {
			opts := []redis.DialOption{redis.DialConnectTimeout(2 * time.Second)}
			if password != "" {
				opts = append(opts, redis.DialPassword(password))
			}
			return redis.Dial("tcp", addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
		MaxIdle:     MaxIdleConns,
		IdleTimeout: 5 * time.Minute,
	}

	ping := func() error {
		conn := pool.Get()
		defer conn.Close()
		_, err := conn.Do("PING")
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Debugf("redis %s not ready (%v), retrying in %v", addr, err, wait)
	}
	if err := backoff.RetryNotify(ping, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), notify); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: redis dial %s: %w", addr, err)
	}
	return &Redis{pool: pool}, nil
}

func (r *Redis) GetItem(key string) (string, bool, error) {
	conn := r.pool.Get()
	defer conn.Close()

	value, err := redis.String(conn.Do("GET", key))
	if errors.Is(err, redis.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: redis get %q: %w", key, err)
	}
	return value, true, nil
}

func (r *Redis) SetItem(key, value string) error {
	conn := r.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("SET", key, value); err != nil {
		return fmt.Errorf("storage: redis set %q: %w", key, err)
	}
	return nil
}

func (r *Redis) RemoveItem(key string) error {
	conn := r.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("DEL", key); err != nil {
		return fmt.Errorf("storage: redis del %q: %w", key, err)
	}
	return nil
}

// Close closes the connection pool.
func (r *Redis) Close() error {
	return r.pool.Close()
}
