package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindMemory   Kind = "memory"
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
)

type Config struct {
	Kind          Kind
	DSN           string
	Table         string
	RetryAttempts uint
	RetryDelay    time.Duration
}

type Option func(*Config)

func NewConfig(opts ...Option) Config {
	c := Config{}
	for _, opt := range opts {
		opt(&c)
	}

	return c
}

func WithKind(kind Kind) Option {
	return func(c *Config) {
		c.Kind = kind
	}
}

func WithDSN(dsn string) Option {
	return func(c *Config) {
		c.DSN = dsn
	}
}

func WithTable(table string) Option {
	return func(c *Config) {
		c.Table = table
	}
}

func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Config) {
		c.RetryAttempts = attempts
		c.RetryDelay = delay
	}
}

func (c *Config) SetDefault() {
	if c.Kind == "" {
		c.Kind = KindMemory
	}

	if c.Table == "" {
		c.Table = DefaultTable
	}

	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}

	if c.RetryDelay == 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
}

func (c Config) Validate() error {
	var err error
	switch c.Kind {
	case KindMemory:
	case KindPostgres, KindSQLite:
		if strings.TrimSpace(c.DSN) == "" {
			err = errors.Join(err, fmt.Errorf("checkpoint dsn cannot be empty for %s store", c.Kind))
		}
	default:
		err = errors.Join(err, fmt.Errorf("checkpoint kind must be '%s', '%s' or '%s'", KindMemory, KindPostgres, KindSQLite))
	}

	if strings.TrimSpace(c.Table) == "" {
		err = errors.Join(err, errors.New("checkpoint table cannot be empty"))
	}

	return err
}

// Open builds the store described by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	cfg.SetDefault()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("checkpoint config validation: %w", err)
	}

	switch cfg.Kind {
	case KindPostgres:
		return NewPostgresStore(ctx, cfg.DSN, cfg.Table)
	case KindSQLite:
		return NewSQLiteStore(ctx, cfg.DSN, cfg.Table)
	default:
		return NewMemoryStore(), nil
	}
}
