// Package conn provides the postgres client used by the account store.
package conn

import (
	"context"
	"fmt"
	"net/url"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	_defaultHost    = "localhost"
	_defaultPort    = 5432
	_defaultSSLMode = "disable"
)

// Option describes one postgres connection. ConnString, when set, wins over
// the individual fields.
type Option struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	Params     map[string]string
	ConnString string
	Config     *gorm.Config
}

// Client wraps a postgres connection pool.
type Client struct {
	opt Option
	db  *gorm.DB
}

// New opens a pool from the option. The connection is lazy; call Ping to
// verify reachability before depending on it.
func New(option Option) (*Client, error) {
	config := option.Config
	if config == nil {
		config = &gorm.Config{}
	}

	db, err := gorm.Open(postgres.Open(option.dsn()), config)
	if err != nil {
		return nil, err
	}
	return &Client{opt: option, db: db}, nil
}

// DB returns the underlying gorm handle.
func (c *Client) DB() *gorm.DB {
	if c == nil {
		return nil
	}
	return c.db
}

// Ping verifies the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying pool.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (opt Option) dsn() string {
	if opt.ConnString != "" {
		return opt.ConnString
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", orDefault(opt.Host, _defaultHost), orDefaultInt(opt.Port, _defaultPort)),
	}
	switch {
	case opt.User != "" && opt.Password != "":
		u.User = url.UserPassword(opt.User, opt.Password)
	case opt.User != "":
		u.User = url.User(opt.User)
	}
	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	query := url.Values{}
	query.Set("sslmode", orDefault(opt.SSLMode, _defaultSSLMode))
	for key, value := range opt.Params {
		if key == "" {
			continue
		}
		query.Set(key, value)
	}
	u.RawQuery = query.Encode()

	return u.String()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
