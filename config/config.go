package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port              string        `mapstructure:"port"`
	DatabaseURL       string        `mapstructure:"database_url"`
	RedisURL          string        `mapstructure:"redis_url"`
	RankIndexKey      string        `mapstructure:"rank_index_key"`
	RankSyncInterval  time.Duration `mapstructure:"rank_sync_interval"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	JWTTTL            time.Duration `mapstructure:"jwt_ttl"`
	ClientURL         string        `mapstructure:"client_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	LogMode           string        `mapstructure:"log_mode"`
	Timezone          string        `mapstructure:"timezone"`
	AuthRatePerMinute int           `mapstructure:"auth_rate_per_minute"`
	BodyLimitMB       int           `mapstructure:"body_limit_mb"`
	R2                R2Config      `mapstructure:",squash"`
}

// R2Config configures avatar uploads. Uploads are disabled when the bucket is empty.
type R2Config struct {
	AccountID       string `mapstructure:"cloudflare_account_id"`
	AccessKeyID     string `mapstructure:"r2_access_key_id"`
	AccessKeySecret string `mapstructure:"r2_access_key_secret"`
	Bucket          string `mapstructure:"r2_bucket_name"`
	CDNBaseURL      string `mapstructure:"cdn_base_url"`
}

func (r R2Config) Enabled() bool {
	return r.Bucket != "" && r.AccountID != ""
}

var keys = []string{
	"port", "database_url", "redis_url", "rank_index_key", "rank_sync_interval",
	"jwt_secret", "jwt_ttl", "client_url", "allowed_origins", "log_mode", "timezone",
	"auth_rate_per_minute", "body_limit_mb",
	"cloudflare_account_id", "r2_access_key_id", "r2_access_key_secret", "r2_bucket_name", "cdn_base_url",
}

// Load reads the configuration from environment variables (upper-cased keys),
// optionally layered over a config file named by CONFIG_FILE.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "5000")
	v.SetDefault("rank_index_key", "leaderboard:highest_score")
	v.SetDefault("rank_sync_interval", 10*time.Minute)
	v.SetDefault("jwt_ttl", 7*24*time.Hour)
	v.SetDefault("client_url", "http://localhost:3000")
	v.SetDefault("allowed_origins", "http://localhost:3000")
	v.SetDefault("log_mode", "development")
	v.SetDefault("auth_rate_per_minute", 20)
	v.SetDefault("body_limit_mb", 5)

	// AutomaticEnv only answers Get calls, so bind every key for Unmarshal.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	if c.RankSyncInterval <= 0 {
		return fmt.Errorf("RANK_SYNC_INTERVAL must be positive, got %s", c.RankSyncInterval)
	}
	return nil
}

// Location is the zone used for daily, weekly and monthly leaderboard boundaries.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Origins splits ALLOWED_ORIGINS and trims each entry.
func (c *Config) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
