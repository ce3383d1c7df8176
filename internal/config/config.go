package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	LogLevel   string        `mapstructure:"log_level"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`

	AllowedOrigins []string `mapstructure:"allowed_origins"`
	IdentityPolicy string   `mapstructure:"identity_policy"`
	SlowConsumer   string   `mapstructure:"slow_consumer"`

	RateLimit  RateLimitConfig   `mapstructure:"rate_limit"`
	Location   LocationConfig    `mapstructure:"location"`
	Postgres   PostgresConfig    `mapstructure:"postgres"`
	ICEServers []ICEServerConfig `mapstructure:"ice_servers"`
}

// RateLimitConfig bounds inbound events per connection. Events <= 0
// disables limiting.
type RateLimitConfig struct {
	Events   int           `mapstructure:"events"`
	Interval time.Duration `mapstructure:"interval"`
}

type LocationConfig struct {
	Backend   string        `mapstructure:"backend"`
	QueueSize int           `mapstructure:"queue_size"`
	Workers   int           `mapstructure:"workers"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MinConns int    `mapstructure:"min_conns"`
	MaxConns int    `mapstructure:"max_conns"`
}

type ICEServerConfig struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 5000)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "change-me")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("identity_policy", "supersede")
	v.SetDefault("slow_consumer", "drop")
	v.SetDefault("rate_limit.events", 50)
	v.SetDefault("rate_limit.interval", "1s")
	v.SetDefault("location.backend", "none")
	v.SetDefault("location.queue_size", 256)
	v.SetDefault("location.workers", 2)
	v.SetDefault("location.timeout", "5s")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.min_conns", 1)
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

// Load reads config/config.<env>.yaml, then PULSE_* environment
// variables, then command-line flags, each overriding the previous.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("pulse", pflag.ContinueOnError)
	envFlag := fs.String("env", "", "config environment (reads config/config.<env>.yaml)")
	fs.Int("port", 0, "listen port")
	fs.String("mode", "", "gin mode: debug or release")
	fs.String("log-level", "", "zerolog level")
	fs.String("location-backend", "", "last-location store: none, memory or postgres")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	env := *envFlag
	if env == "" {
		env = os.Getenv("CONFIG_ENV")
	}
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		"port":             "port",
		"mode":             "mode",
		"log_level":        "log-level",
		"location.backend": "location-backend",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("identity_policy", cfg.IdentityPolicy).Str("location", cfg.Location.Backend).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive, got %d", c.SendBuffer)
	}
	if c.PingPeriod <= 0 || c.WriteWait <= 0 {
		return fmt.Errorf("ping_period and write_wait must be positive")
	}
	if c.PingPeriod >= c.PongWait {
		return fmt.Errorf("ping_period (%s) must be shorter than pong_wait (%s)", c.PingPeriod, c.PongWait)
	}
	switch c.Location.Backend {
	case "none", "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("location backend postgres requires postgres.dsn")
		}
	default:
		return fmt.Errorf("unknown location backend %q", c.Location.Backend)
	}
	return nil
}
