package slot

import (
	"errors"
	"strings"
	"time"
)

type Config struct {
	Name         string
	QueryTimeout time.Duration
}

type Option func(*Config)

func NewConfig(opts ...Option) Config {
	c := Config{}
	for _, opt := range opts {
		opt(&c)
	}

	return c
}

func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithQueryTimeout bounds the pg_replication_slots lookup.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.QueryTimeout = timeout
	}
}

func (c *Config) SetDefault() {
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 5 * time.Second
	}
}

func (c Config) Validate() error {
	var err error
	if strings.TrimSpace(c.Name) == "" {
		err = errors.Join(err, errors.New("slot name cannot be empty"))
	}

	if c.QueryTimeout < 0 {
		err = errors.Join(err, errors.New("slot query timeout cannot be negative"))
	}

	return err
}
