package config

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds all configuration for the front server.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Backend BackendConfig `mapstructure:"backend"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Redis   RedisConfig   `mapstructure:"redis"`
	DB      DBConfig      `mapstructure:"db"`
	Journal JournalConfig `mapstructure:"journal"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Trade   TradeConfig   `mapstructure:"trade"`
	Logger  LoggerConfig  `mapstructure:"logger"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // "development" or "production"
}

// IsProduction reports whether cookies must be Secure and signup needs a passcode.
func (a AppConfig) IsProduction() bool { return a.Env == "production" }

type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	PushURL string        `mapstructure:"push_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	SecretKey          string        `mapstructure:"secret_key"`
	SessionTTL         time.Duration `mapstructure:"session_ttl"`
	CookieName         string        `mapstructure:"cookie_name"`
	SignupPasscodeHash string        `mapstructure:"signup_passcode_hash"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Port     string `mapstructure:"port"`
}

type JournalConfig struct {
	Driver   string `mapstructure:"driver"` // postgres, mongo or none
	MongoURI string `mapstructure:"mongo_uri"`
	MongoDB  string `mapstructure:"mongo_db"`
}

type FeedConfig struct {
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	LeaderboardInterval time.Duration `mapstructure:"leaderboard_interval"`
}

type TradeConfig struct {
	SubmitTimeout time.Duration `mapstructure:"submit_timeout"`
	PriceCacheTTL time.Duration `mapstructure:"price_cache_ttl"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig reads configuration from a .env file, environment variables and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	v.SetDefault("app.port", ":3000")
	v.SetDefault("app.env", "development")

	v.SetDefault("backend.base_url", "http://localhost:5000")
	v.SetDefault("backend.push_url", "ws://localhost:5000/ws")
	v.SetDefault("backend.timeout", "10s")

	v.SetDefault("auth.secret_key", "")
	v.SetDefault("auth.session_ttl", "24h")
	v.SetDefault("auth.cookie_name", "sid")
	v.SetDefault("auth.signup_passcode_hash", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "stock_game")
	v.SetDefault("db.port", "5432")

	v.SetDefault("journal.driver", "none")
	v.SetDefault("journal.mongo_uri", "")
	v.SetDefault("journal.mongo_db", "stock_game")

	v.SetDefault("feed.poll_interval", "10s")
	v.SetDefault("feed.leaderboard_interval", "10s")

	v.SetDefault("trade.submit_timeout", "15s")
	v.SetDefault("trade.price_cache_ttl", "5s")

	v.SetDefault("logger.level", "info")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnv(v, "app.port", "app.env")
	bindEnv(v, "backend.base_url", "backend.push_url", "backend.timeout")
	bindEnv(v, "auth.secret_key", "auth.session_ttl", "auth.cookie_name", "auth.signup_passcode_hash")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "db.host", "db.user", "db.password", "db.name", "db.port")
	bindEnv(v, "journal.driver", "journal.mongo_uri", "journal.mongo_db")
	bindEnv(v, "feed.poll_interval", "feed.leaderboard_interval")
	bindEnv(v, "trade.submit_timeout", "trade.price_cache_ttl")
	bindEnv(v, "logger.level")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("auth secret key must be set (AUTH_SECRET_KEY)")
	}
	if c.Feed.PollInterval <= 0 {
		return fmt.Errorf("feed poll interval must be positive, got %s", c.Feed.PollInterval)
	}
	if c.Feed.LeaderboardInterval <= 0 {
		return fmt.Errorf("leaderboard interval must be positive, got %s", c.Feed.LeaderboardInterval)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.Auth.SessionTTL)
	}
	switch c.Journal.Driver {
	case "postgres", "mongo", "none":
	default:
		return fmt.Errorf("unknown journal driver %q", c.Journal.Driver)
	}
	if c.Journal.Driver == "mongo" && c.Journal.MongoURI == "" {
		return fmt.Errorf("journal driver mongo requires JOURNAL_MONGO_URI")
	}
	if c.App.IsProduction() && c.Auth.SignupPasscodeHash == "" {
		return fmt.Errorf("production mode requires AUTH_SIGNUP_PASSCODE_HASH")
	}
	return nil
}

func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}

// NewLogger builds a zap logger for the configured environment and level.
func NewLogger(app AppConfig, cfg LoggerConfig) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if app.IsProduction() {
		zc = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zc.Level = level
	return zc.Build()
}

// InitDB opens the PostgreSQL connection used by the trade journal.
func InitDB(cfg DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.Host,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.Port,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}
	return db, nil
}

// InitRedis connects to Redis and checks the connection with a ping.
func InitRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}
