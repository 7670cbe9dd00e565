package relational

import (
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// Config selects the relational backend. For postgres, DSN wins over the
// individual connection fields. For sqlite, DSN is the file path.
type Config struct {
	Driver   string            `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	DSN      string            `mapstructure:"dsn"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port" validate:"gte=0,lte=65535"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Database string            `mapstructure:"database"`
	SSLMode  string            `mapstructure:"ssl_mode"`
	Params   map[string]string `mapstructure:"params"`
	// LogQueries logs every SQL statement at debug level.
	LogQueries bool `mapstructure:"log_queries"`
}

func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid database config", err)
	}

	if c.Driver == DriverSQLite && c.DSN == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "sqlite requires a dsn")
	}

	return nil
}

func (c Config) postgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}

	host := c.Host
	if host == "" {
		host = defaultPostgresHost
	}

	port := c.Port
	if port == 0 {
		port = defaultPostgresPort
	}

	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}

	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}

	if c.Database != "" {
		u.Path = "/" + c.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)

	for key, value := range c.Params {
		if key == "" {
			continue
		}

		query.Set(key, value)
	}

	u.RawQuery = query.Encode()

	return u.String()
}
