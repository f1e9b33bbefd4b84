package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/umalmyha/customer-registry/internal/validation"
)

type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendMongo    Backend = "mongo"
	BackendMemory   Backend = "memory"
)

type PostgresCfg struct {
	Host        string `env:"POSTGRES_HOST" envDefault:"localhost" validate:"required"`
	Port        int    `env:"POSTGRES_PORT" envDefault:"5432" validate:"min=1,max=65535"`
	User        string `env:"POSTGRES_USER" validate:"required"`
	Password    string `env:"POSTGRES_PASSWORD"`
	Database    string `env:"POSTGRES_DB" validate:"required"`
	SslMode     string `env:"POSTGRES_SSL_MODE" envDefault:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	PoolMaxConn int    `env:"POSTGRES_POOL_MAX_CONN" envDefault:"100" validate:"min=1"`
}

func (c PostgresCfg) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SslMode)
	params.Set("pool_max_conns", strconv.Itoa(c.PoolMaxConn))

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: params.Encode(),
	}
	return u.String()
}

type MongoCfg struct {
	Host         string `env:"MONGO_HOST" envDefault:"localhost" validate:"required"`
	Port         int    `env:"MONGO_PORT" envDefault:"27017" validate:"min=1,max=65535"`
	User         string `env:"MONGO_USER"`
	Password     string `env:"MONGO_PASSWORD"`
	Database     string `env:"MONGO_DB" envDefault:"customers" validate:"required"`
	MaxPoolSize  int    `env:"MONGO_MAX_POOL_SIZE" envDefault:"100" validate:"min=1"`
	Transactions bool   `env:"MONGO_TRANSACTIONS" envDefault:"false"`
	ReplicaSet   string `env:"MONGO_REPLICA_SET" validate:"required_if=Transactions true"`
}

func (c MongoCfg) URI() string {
	params := url.Values{}
	params.Set("maxPoolSize", strconv.Itoa(c.MaxPoolSize))
	if c.ReplicaSet != "" {
		params.Set("replicaSet", c.ReplicaSet)
	}

	u := url.URL{
		Scheme:   "mongodb",
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/",
		RawQuery: params.Encode(),
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}

type LogCfg struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
}

type Config struct {
	Backend     Backend       `env:"CUSTOMERS_BACKEND" envDefault:"memory" validate:"oneof=postgres mongo memory"`
	Timeout     time.Duration `env:"CUSTOMERS_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	PostgresCfg PostgresCfg   `validate:"-"`
	MongoCfg    MongoCfg      `validate:"-"`
	LogCfg      LogCfg
}

// Build reads configuration from environment, connection settings are validated for selected backend only
func Build() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment variables - %w", err)
	}

	v, err := validation.New()
	if err != nil {
		return cfg, err
	}

	if err := v.Validate(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration - %w", err)
	}

	switch cfg.Backend {
	case BackendPostgres:
		err = v.Validate(cfg.PostgresCfg)
	case BackendMongo:
		err = v.Validate(cfg.MongoCfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("invalid %s configuration - %w", cfg.Backend, err)
	}

	return cfg, nil
}
