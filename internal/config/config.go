package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	FreeSMS  FreeSMSConfig
	Sync     SyncConfig
	Log      LogConfig
}

type ServerConfig struct {
	Address string
}

// DatabaseConfig is optional; without a Postgres URL accounts live in
// memory.
type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// FreeSMSConfig leaves VerifyMessage and TestMessage empty unless set; the
// consumers fall back to their own defaults.
type FreeSMSConfig struct {
	APIURL         string
	Timeout        time.Duration
	VerifyOnCreate bool
	VerifyMessage  string
	TestMessage    string
}

type SyncConfig struct {
	Interval time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

const DefaultAPIURL = "https://smsapi.free-mobile.fr/sendmsg"

// LoadAll reads the configuration from the environment. Every invalid or
// missing value is reported in the returned error.
func LoadAll() (*Config, error) {
	var errs []error

	collectInt := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	collectBool := func(key string, def bool) bool {
		v, err := getEnvBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: DatabaseConfig{
			PostgresURL: os.Getenv("POSTGRES_URL"),
		},
		FreeSMS: FreeSMSConfig{
			APIURL:         getEnv("FREESMS_API_URL", DefaultAPIURL),
			Timeout:        time.Duration(collectInt("FREESMS_TIMEOUT_SECONDS", 10)) * time.Second,
			VerifyOnCreate: collectBool("FREESMS_VERIFY_ON_CREATE", true),
			VerifyMessage:  os.Getenv("FREESMS_VERIFY_MESSAGE"),
			TestMessage:    os.Getenv("FREESMS_TEST_MESSAGE"),
		},
		Sync: SyncConfig{
			Interval: time.Duration(collectInt("STATUS_SYNC_INTERVAL_SECONDS", 60)) * time.Second,
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Redis = redisCfg

	errs = append(errs, validate(cfg)...)

	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() (RedisConfig, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	var errs []error
	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		errs = append(errs, err)
	}
	ttl, err := getEnvInt("REDIS_TTL_SECONDS", 86400)
	if err != nil {
		errs = append(errs, err)
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttl) * time.Second,
	}, joinErrors(errs)
}

func validate(cfg *Config) []error {
	var errs []error
	if cfg.FreeSMS.Timeout <= 0 {
		errs = append(errs, errors.New("FREESMS_TIMEOUT_SECONDS must be > 0"))
	}
	if cfg.Sync.Interval <= 0 {
		errs = append(errs, errors.New("STATUS_SYNC_INTERVAL_SECONDS must be > 0"))
	}
	if u, err := url.Parse(cfg.FreeSMS.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("FREESMS_API_URL is not an absolute url: %q", cfg.FreeSMS.APIURL))
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error: %q", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json: %q", cfg.Log.Format))
	}
	if cfg.Redis.Enabled && cfg.Redis.TTL <= 0 {
		errs = append(errs, errors.New("REDIS_TTL_SECONDS must be > 0"))
	}
	return errs
}

// LoadCredentials fills whichever of username and token is empty from
// FREESMS_USER and FREESMS_PASS. Only the variables actually consulted are
// reported as missing.
func LoadCredentials(username, token string) (string, string, error) {
	var errs []error
	if username == "" {
		v, err := requireEnv("FREESMS_USER")
		username = v
		errs = append(errs, err)
	}
	if token == "" {
		v, err := requireEnv("FREESMS_PASS")
		token = v
		errs = append(errs, err)
	}
	if err := joinErrors(errs); err != nil {
		return "", "", err
	}
	return username, token, nil
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid int for env %s: %q", key, v)
	}
	return i, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("invalid bool for env %s: %q", key, v)
	}
	return b, nil
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}
