package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Security  SecurityConfig  `mapstructure:"security"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Encounter EncounterConfig `mapstructure:"encounter"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	Debug      bool   `mapstructure:"debug"`
	AdminKey   string `mapstructure:"admin_key"`
	PresetPath string `mapstructure:"preset_path"` // YAML party and monster presets
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	GMTokenTTL     time.Duration `mapstructure:"gm_token_ttl"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// AdminIPs limits the operator routes to these client IPs. Empty = any.
	AdminIPs []string `mapstructure:"admin_ips"`
}

// RulesConfig holds the table limits every new encounter starts with.
type RulesConfig struct {
	MaxPlayers  int    `mapstructure:"max_players"`
	MaxMonsters int    `mapstructure:"max_monsters"`
	StatBudget  int    `mapstructure:"stat_budget"`
	TurnOrder   string `mapstructure:"turn_order"` // roster | agility
}

type EncounterConfig struct {
	MaxActive    int           `mapstructure:"max_active"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	LastRoundTTL time.Duration `mapstructure:"last_round_ttl"`
	HistoryLen   int           `mapstructure:"history_len"`
	Seed         int64         `mapstructure:"seed"` // 0 = time seed
}

type SchedulerConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// Load reads config from the given YAML file path. Every key can be
// overridden from the environment, e.g. ENCOUNTER_SERVER_PORT.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ENCOUNTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.admin_key", "")
	v.SetDefault("server.preset_path", "./presets/default.yaml")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/encounters.db")
	v.SetDefault("database.mysql_dsn", "")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.gm_token_ttl", "24h")
	v.SetDefault("security.rate_limit_rps", 50)
	v.SetDefault("security.rate_limit_burst", 100)
	v.SetDefault("security.allowed_origins", []string{})
	v.SetDefault("security.admin_ips", []string{})
	v.SetDefault("rules.max_players", 8)
	v.SetDefault("rules.max_monsters", 4)
	v.SetDefault("rules.stat_budget", 28)
	v.SetDefault("rules.turn_order", "roster")
	v.SetDefault("encounter.max_active", 200)
	v.SetDefault("encounter.idle_timeout", "2h")
	v.SetDefault("encounter.last_round_ttl", "24h")
	v.SetDefault("encounter.history_len", 20)
	v.SetDefault("encounter.seed", 0)
	v.SetDefault("scheduler.sweep_interval", "5m")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
