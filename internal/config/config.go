package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the server reads at start-up.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	JWT      JWTConfig
	PIN      PINConfig
	Rules    AccountRules
	Login    LoginConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	StoreDriver    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional; an empty Host disables Redis-backed features.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// PINConfig selects the PIN hashing algorithm and its cost parameters.
type PINConfig struct {
	Algorithm     string
	BcryptCost    int
	Argon2Time    uint32
	Argon2Memory  uint32
	Argon2Threads uint8
	Argon2KeyLen  uint32
	Argon2SaltLen uint32
}

// AccountRules are the money rules applied by the account service.
type AccountRules struct {
	MinTransferAmount int64
	FeeThreshold      int64
	TransferFee       int64
	ActivationGrant   int64
}

type LoginConfig struct {
	MaxAttempts   int
	AttemptWindow time.Duration
}

// ErrMissingSecret is returned when no token-signing secret is configured.
var ErrMissingSecret = errors.New("ACCESS_TOKEN_SECRET must be set")

var envBindings = map[string]string{
	"server.port":            "PORT",
	"server.allowed_origins": "ALLOWED_ORIGINS",
	"server.store_driver":    "STORE_DRIVER",
	"server.read_timeout":    "SERVER_READ_TIMEOUT",
	"server.write_timeout":   "SERVER_WRITE_TIMEOUT",
	"server.request_timeout": "SERVER_REQUEST_TIMEOUT",

	"database.host":              "DATABASE_HOST",
	"database.port":              "DATABASE_PORT",
	"database.user":              "DATABASE_USER",
	"database.password":          "DATABASE_PASSWORD",
	"database.name":              "DATABASE_NAME",
	"database.ssl_mode":          "DATABASE_SSL_MODE",
	"database.max_open_conns":    "DATABASE_MAX_OPEN_CONNS",
	"database.max_idle_conns":    "DATABASE_MAX_IDLE_CONNS",
	"database.conn_max_lifetime": "DATABASE_CONN_MAX_LIFETIME",

	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"rabbitmq.url":      "RABBITMQ_URL",
	"rabbitmq.exchange": "EVENTS_EXCHANGE",

	"jwt.secret": "ACCESS_TOKEN_SECRET",
	"jwt.expiry": "JWT_EXPIRY",

	"pin.algorithm":       "PIN_ALGORITHM",
	"pin.bcrypt_cost":     "PIN_BCRYPT_COST",
	"pin.argon2_time":     "ARGON2_TIME",
	"pin.argon2_memory":   "ARGON2_MEMORY",
	"pin.argon2_threads":  "ARGON2_THREADS",
	"pin.argon2_key_len":  "ARGON2_KEY_LENGTH",
	"pin.argon2_salt_len": "ARGON2_SALT_LENGTH",

	"rules.min_transfer_amount": "TRANSFER_MIN_AMOUNT",
	"rules.fee_threshold":       "TRANSFER_FEE_THRESHOLD",
	"rules.transfer_fee":        "TRANSFER_FEE",
	"rules.activation_grant":    "ACTIVATION_GRANT",

	"login.max_attempts":   "LOGIN_MAX_ATTEMPTS",
	"login.attempt_window": "LOGIN_ATTEMPT_WINDOW",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.allowed_origins", "http://localhost:5173,https://readypay.vercel.app")
	v.SetDefault("server.store_driver", "postgres")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 60*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "readypay")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", "readypay.events")

	v.SetDefault("jwt.expiry", time.Hour)

	v.SetDefault("pin.algorithm", "bcrypt")
	v.SetDefault("pin.bcrypt_cost", 10)
	v.SetDefault("pin.argon2_time", 1)
	v.SetDefault("pin.argon2_memory", 64*1024)
	v.SetDefault("pin.argon2_threads", 4)
	v.SetDefault("pin.argon2_key_len", 32)
	v.SetDefault("pin.argon2_salt_len", 16)

	v.SetDefault("rules.min_transfer_amount", 50)
	v.SetDefault("rules.fee_threshold", 100)
	v.SetDefault("rules.transfer_fee", 5)
	v.SetDefault("rules.activation_grant", 40)

	v.SetDefault("login.max_attempts", 5)
	v.SetDefault("login.attempt_window", 15*time.Minute)
}

// Load reads the optional .env file in the working directory and the process
// environment. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Printf("[CONFIG] .env not loaded, using environment and defaults: %v", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("server.port"),
			AllowedOrigins: splitList(v.GetString("server.allowed_origins")),
			StoreDriver:    strings.ToLower(v.GetString("server.store_driver")),
			ReadTimeout:    v.GetDuration("server.read_timeout"),
			WriteTimeout:   v.GetDuration("server.write_timeout"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("rabbitmq.url"),
			Exchange: v.GetString("rabbitmq.exchange"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Expiry: v.GetDuration("jwt.expiry"),
		},
		PIN: PINConfig{
			Algorithm:     strings.ToLower(v.GetString("pin.algorithm")),
			BcryptCost:    v.GetInt("pin.bcrypt_cost"),
			Argon2Time:    v.GetUint32("pin.argon2_time"),
			Argon2Memory:  v.GetUint32("pin.argon2_memory"),
			Argon2Threads: uint8(v.GetUint("pin.argon2_threads")),
			Argon2KeyLen:  v.GetUint32("pin.argon2_key_len"),
			Argon2SaltLen: v.GetUint32("pin.argon2_salt_len"),
		},
		Rules: AccountRules{
			MinTransferAmount: v.GetInt64("rules.min_transfer_amount"),
			FeeThreshold:      v.GetInt64("rules.fee_threshold"),
			TransferFee:       v.GetInt64("rules.transfer_fee"),
			ActivationGrant:   v.GetInt64("rules.activation_grant"),
		},
		Login: LoginConfig{
			MaxAttempts:   v.GetInt("login.max_attempts"),
			AttemptWindow: v.GetDuration("login.attempt_window"),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, ErrMissingSecret
	}

	return cfg, nil
}

// DefaultRules returns the production money rules.
func DefaultRules() AccountRules {
	return AccountRules{
		MinTransferAmount: 50,
		FeeThreshold:      100,
		TransferFee:       5,
		ActivationGrant:   40,
	}
}

// RedisEnabled reports whether a Redis host was configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
