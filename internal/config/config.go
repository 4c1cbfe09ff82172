package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Pagination PaginationConfig
	Seed       SeedConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port    string
	AppName string `mapstructure:"app_name"`
}

type DatabaseConfig struct {
	Driver      string // "postgres" | "sqlite"
	Path        string // sqlite 文件路径
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	TimeZone    string
	TablePrefix string `mapstructure:"table_prefix"`
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	LoginRateLimit int           `mapstructure:"login_rate_limit"` // 每分钟每个 IP 的请求数
}

type PaginationConfig struct {
	DefaultSize int `mapstructure:"default_size"`
	MaxSize     int `mapstructure:"max_size"`
}

type SeedConfig struct {
	Enabled       bool
	AdminPassword string `mapstructure:"admin_password"`
	DemoPassword  string `mapstructure:"demo_password"`
}

type LogConfig struct {
	Level  string
	Format string // "text" | "json"
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// envPrefix is prepended to every environment override, e.g. BLOGHUB_SERVER_PORT.
const envPrefix = "BLOGHUB"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.app_name", "bloghub")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "bloghub.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "bloghub")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "bloghub-dev-secret-change-me")
	v.SetDefault("auth.token_ttl", 72*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.login_rate_limit", 10)

	v.SetDefault("pagination.default_size", 10)
	v.SetDefault("pagination.max_size", 50)

	v.SetDefault("seed.enabled", true)
	v.SetDefault("seed.admin_password", "admin123")
	v.SetDefault("seed.demo_password", "demo123")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig reads configuration from an optional .env file, a config.yaml
// (either the explicit path or ./config.yaml, ./config/config.yaml) and
// BLOGHUB_* environment variables, in increasing order of precedence.
func LoadConfig(path string) (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")        // 在当前目录中查找配置
		v.AddConfigPath("./config") // 在 config 目录中查找配置
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment", "component", "config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret must not be empty")
	}
	if c.Pagination.DefaultSize < 1 {
		return errors.New("config: pagination.default_size must be positive")
	}
	if c.Pagination.MaxSize < c.Pagination.DefaultSize {
		return errors.New("config: pagination.max_size must be >= pagination.default_size")
	}
	return nil
}
