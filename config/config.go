package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/snapflowio/pgsource/checkpoint"
	"github.com/snapflowio/pgsource/slot"
)

const DefaultConnector = "postgresql"

type Config struct {
	Logger     LoggerConfig
	Checkpoint checkpoint.Config
	Slot       slot.Config
	ServerName string
	Connector  string
	Version    string
	Host       string
	Username   string
	Password   string
	Database   string
	Port       int
}

type LoggerConfig struct {
	LogLevel logrus.Level
}

type Option func(*Config)

func NewConfig(opts ...Option) *Config {
	c := &Config{}
	for _, opt := range opts {
		opt(c)
	}
	c.SetDefault()
	return c
}

func WithDSN(dsn string) Option {
	return func(c *Config) {
		parsedURL, err := url.Parse(dsn)
		if err != nil {
			return
		}

		c.Host = parsedURL.Hostname()
		if parsedURL.Port() != "" {
			port := 5432
			if _, err := fmt.Sscanf(parsedURL.Port(), "%d", &port); err == nil {
				c.Port = port
			}
		}

		if parsedURL.User != nil {
			c.Username = parsedURL.User.Username()
			if password, ok := parsedURL.User.Password(); ok {
				c.Password = password
			}
		}

		c.Database = strings.TrimPrefix(parsedURL.Path, "/")
	}
}

// WithServerName sets the logical name of the source server. Offsets are
// partitioned by it, so it must stay stable across restarts.
func WithServerName(name string) Option {
	return func(c *Config) {
		c.ServerName = name
	}
}

func WithConnector(name, version string) Option {
	return func(c *Config) {
		c.Connector = name
		c.Version = version
	}
}

func WithLogLevel(level logrus.Level) Option {
	return func(c *Config) {
		c.Logger.LogLevel = level
	}
}

func WithCheckpoint(cfg checkpoint.Config) Option {
	return func(c *Config) {
		c.Checkpoint = cfg
	}
}

func WithSlot(slotConfig slot.Config) Option {
	return func(c *Config) {
		c.Slot = slotConfig
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", url.QueryEscape(c.Username), url.QueryEscape(c.Password), c.Host, c.Port, c.Database)
}

func (c *Config) SetDefault() {
	if c.Port == 0 {
		c.Port = 5432
	}

	if c.ServerName == "" {
		c.ServerName = c.Host
	}

	if c.Connector == "" {
		c.Connector = DefaultConnector
	}

	if c.Logger.LogLevel == 0 {
		c.Logger.LogLevel = logrus.InfoLevel
	}

	c.Checkpoint.SetDefault()
	c.Slot.SetDefault()

	// offsets default to the source database itself
	if c.Checkpoint.Kind == checkpoint.KindPostgres && isEmpty(c.Checkpoint.DSN) && !isEmpty(c.Host) {
		c.Checkpoint.DSN = c.DSN()
	}
}

func (c *Config) Validate() error {
	var err error
	if isEmpty(c.ServerName) {
		err = errors.Join(err, errors.New("server name cannot be empty"))
	}

	if isEmpty(c.Host) {
		err = errors.Join(err, errors.New("host cannot be empty"))
	}

	if isEmpty(c.Database) {
		err = errors.Join(err, errors.New("database cannot be empty"))
	}

	if cErr := c.Checkpoint.Validate(); cErr != nil {
		err = errors.Join(err, cErr)
	}

	if cErr := c.Slot.Validate(); cErr != nil {
		err = errors.Join(err, cErr)
	}

	return err
}

func (c *Config) String() string {
	return fmt.Sprintf("Config: Server=%s Host=%s Port=%d Database=%s Username=%s Checkpoint=%s", c.ServerName, c.Host, c.Port, c.Database, c.Username, c.Checkpoint.Kind)
}

func isEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}
