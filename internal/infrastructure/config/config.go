package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App             AppConfig             `mapstructure:"app"`
	Server          ServerConfig          `mapstructure:"server"`
	Data            DataConfig            `mapstructure:"data"`
	Personalization PersonalizationConfig `mapstructure:"personalization"`
	Planner         PlannerConfig         `mapstructure:"planner"`
	Cache           CacheConfig           `mapstructure:"cache"`
	Redis           RedisConfig           `mapstructure:"redis"`
	S3              S3Config              `mapstructure:"s3"`
	RateLimit       RateLimitConfig       `mapstructure:"rate_limit"`
	DedupWindow     time.Duration         `mapstructure:"dedup_window"`
	LogLevel        string                `mapstructure:"log_level"`
	LogDir          string                `mapstructure:"log_dir"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// DataConfig 輸入資料表位置，支援本機路徑、http(s) 與 s3://
type DataConfig struct {
	NutrientCSV     string        `mapstructure:"nutrient_csv"`
	InflammationCSV string        `mapstructure:"inflammation_csv"`
	RecipesJSON     string        `mapstructure:"recipes_json"`
	AvailabilityCSV string        `mapstructure:"availability_csv"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
}

// PersonalizationConfig 個人化分數設定
type PersonalizationConfig struct {
	Jitter    bool    `mapstructure:"jitter"`
	Seed      int64   `mapstructure:"seed"`
	JitterMin float64 `mapstructure:"jitter_min"`
	JitterMax float64 `mapstructure:"jitter_max"`
}

// PlannerConfig 菜單規劃設定
type PlannerConfig struct {
	Workers       int    `mapstructure:"workers"`
	DefaultPerson string `mapstructure:"default_person"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// S3Config S3 設定
type S3Config struct {
	Region string `mapstructure:"region"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 為選用檔案
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// 設定預設值
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("data.nutrient_csv", "NUTRIENT_CSV")
	_ = v.BindEnv("data.inflammation_csv", "INFLAMMATION_CSV")
	_ = v.BindEnv("data.recipes_json", "RECIPES_JSON")
	_ = v.BindEnv("data.availability_csv", "AVAILABILITY_CSV")
	_ = v.BindEnv("personalization.seed", "PERSONALIZATION_SEED")
	_ = v.BindEnv("cache.enabled", "CACHE_ENABLED")
	_ = v.BindEnv("cache.backend", "CACHE_BACKEND")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("s3.region", "S3_REGION", "AWS_REGION")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("dedup_window", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// 讀取設定檔
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "inflammation-planner")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 1<<20) // 1MB

	// 資料表設定
	v.SetDefault("data.nutrient_csv", "")
	v.SetDefault("data.inflammation_csv", "ingredients_with_inflammation.csv")
	v.SetDefault("data.recipes_json", "popular_recipes_database.json")
	v.SetDefault("data.availability_csv", "")
	v.SetDefault("data.fetch_timeout", "30s")

	// 個人化設定
	v.SetDefault("personalization.jitter", false)
	v.SetDefault("personalization.seed", 0)
	v.SetDefault("personalization.jitter_min", 0.9)
	v.SetDefault("personalization.jitter_max", 1.1)

	// 規劃設定
	v.SetDefault("planner.workers", 4)
	v.SetDefault("planner.default_person", "general")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_size", 256)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// Redis 設定
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證個人化設定
	if config.Personalization.Jitter && config.Personalization.JitterMin > config.Personalization.JitterMax {
		return fmt.Errorf("jitter_min must not exceed jitter_max")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		switch config.Cache.Backend {
		case "memory":
			if config.Cache.MaxSize <= 0 {
				return fmt.Errorf("invalid cache max size")
			}
			if config.Cache.CleanupInterval <= 0 {
				return fmt.Errorf("invalid cache cleanup interval")
			}
		case "redis":
			if config.Redis.Addr == "" {
				return fmt.Errorf("redis addr is required for redis cache backend")
			}
		default:
			return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	if config.Planner.Workers <= 0 {
		return fmt.Errorf("invalid planner workers")
	}

	return nil
}
