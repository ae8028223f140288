package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Bind       string
	TLSCert    string
	TLSKey     string
	CORSOrigin string
	LogLevel   zerolog.Level

	DevicesPath string

	SessionsPath    string
	SessionTTL      time.Duration
	SessionHashKey  []byte
	SessionBlockKey []byte
	SecretPath      string
	SecureCookie    bool

	DeviceTimeout time.Duration
	DNSCacheTTL   time.Duration

	// Landing page context used after login and when an edit misses.
	LandingIP      string
	LandingType    string
	LandingChannel string

	Users map[string]string

	MetricsEnabled bool
}

type fileConfig struct {
	HTTP struct {
		Bind    string `yaml:"bind"`
		TLSCert string `yaml:"tlsCert"`
		TLSKey  string `yaml:"tlsKey"`
	} `yaml:"http"`
	CORS struct {
		Origin string `yaml:"origin"`
	} `yaml:"cors"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Store struct {
		DevicesPath string `yaml:"devicesPath"`
	} `yaml:"store"`
	Sessions struct {
		Path         string `yaml:"path"`
		TTL          string `yaml:"ttl"`
		HashKey      string `yaml:"hashKey"`
		BlockKey     string `yaml:"blockKey"`
		SecretPath   string `yaml:"secretPath"`
		SecureCookie *bool  `yaml:"secureCookie"`
	} `yaml:"sessions"`
	Devices struct {
		Timeout     string `yaml:"timeout"`
		DNSCacheTTL string `yaml:"dnsCacheTTL"`
	} `yaml:"devices"`
	Landing struct {
		IP      string `yaml:"ip"`
		Type    string `yaml:"type"`
		Channel string `yaml:"channel"`
	} `yaml:"landing"`
	Users   map[string]string `yaml:"users"`
	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Bind:           "0.0.0.0:5000",
		LogLevel:       zerolog.InfoLevel,
		DevicesPath:    "devices.json",
		SessionTTL:     24 * time.Hour,
		DeviceTimeout:  5 * time.Second,
		DNSCacheTTL:    5 * time.Minute,
		LandingIP:      "192.168.1.10",
		LandingType:    "relay",
		LandingChannel: "0",
		Users:          map[string]string{"admin": "password123"},
		MetricsEnabled: true,
	}
}

// FromEnv loads the file named by DASH_CONFIG (if any) and applies env overrides.
func FromEnv() Config {
	return Load(os.Getenv("DASH_CONFIG"))
}

// LoadDotEnv loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// Load builds a Config from defaults, then the YAML file at path, then
// DASH_* environment variables.
func Load(path string) Config {
	cfg := Defaults()
	var secure *bool
	if path != "" {
		if b, err := os.ReadFile(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("config file unreadable, using defaults")
		} else {
			var fc fileConfig
			if err := yaml.Unmarshal(b, &fc); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("config file invalid, using defaults")
			} else {
				secure = fc.apply(&cfg)
			}
		}
	}
	if v, ok := envBool("DASH_SECURE_COOKIE"); ok {
		secure = &v
	}
	applyEnv(&cfg)
	if secure != nil {
		cfg.SecureCookie = *secure
	} else {
		cfg.SecureCookie = cfg.TLSEnabled()
	}
	return cfg
}

func (fc fileConfig) apply(cfg *Config) *bool {
	setStr(&cfg.Bind, fc.HTTP.Bind)
	setStr(&cfg.TLSCert, fc.HTTP.TLSCert)
	setStr(&cfg.TLSKey, fc.HTTP.TLSKey)
	setStr(&cfg.CORSOrigin, fc.CORS.Origin)
	setLevel(&cfg.LogLevel, fc.Logging.Level)
	setStr(&cfg.DevicesPath, fc.Store.DevicesPath)
	setStr(&cfg.SessionsPath, fc.Sessions.Path)
	setDur(&cfg.SessionTTL, fc.Sessions.TTL)
	setBytes(&cfg.SessionHashKey, fc.Sessions.HashKey)
	setBytes(&cfg.SessionBlockKey, fc.Sessions.BlockKey)
	setStr(&cfg.SecretPath, fc.Sessions.SecretPath)
	setDur(&cfg.DeviceTimeout, fc.Devices.Timeout)
	setDur(&cfg.DNSCacheTTL, fc.Devices.DNSCacheTTL)
	setStr(&cfg.LandingIP, fc.Landing.IP)
	setStr(&cfg.LandingType, fc.Landing.Type)
	setStr(&cfg.LandingChannel, fc.Landing.Channel)
	if len(fc.Users) > 0 {
		cfg.Users = fc.Users
	}
	if fc.Metrics.Enabled != nil {
		cfg.MetricsEnabled = *fc.Metrics.Enabled
	}
	return fc.Sessions.SecureCookie
}

func applyEnv(cfg *Config) {
	setStr(&cfg.Bind, os.Getenv("DASH_HTTP_BIND"))
	setStr(&cfg.TLSCert, os.Getenv("DASH_TLS_CERT"))
	setStr(&cfg.TLSKey, os.Getenv("DASH_TLS_KEY"))
	setStr(&cfg.CORSOrigin, os.Getenv("DASH_CORS_ORIGIN"))
	setLevel(&cfg.LogLevel, os.Getenv("DASH_LOG"))
	setStr(&cfg.DevicesPath, os.Getenv("DASH_DEVICES_PATH"))
	setStr(&cfg.SessionsPath, os.Getenv("DASH_SESSIONS_PATH"))
	setDur(&cfg.SessionTTL, os.Getenv("DASH_SESSION_TTL"))
	setBytes(&cfg.SessionHashKey, os.Getenv("DASH_SESSION_SECRET"))
	setBytes(&cfg.SessionBlockKey, os.Getenv("DASH_SESSION_BLOCK_KEY"))
	setStr(&cfg.SecretPath, os.Getenv("DASH_SECRET_PATH"))
	setDur(&cfg.DeviceTimeout, os.Getenv("DASH_DEVICE_TIMEOUT"))
	setDur(&cfg.DNSCacheTTL, os.Getenv("DASH_DNS_CACHE_TTL"))
	if v := os.Getenv("DASH_USERS"); v != "" {
		if users := parseUsers(v); len(users) > 0 {
			cfg.Users = users
		}
	}
	if v, ok := envBool("DASH_METRICS"); ok {
		cfg.MetricsEnabled = v
	}
}

// TLSEnabled reports whether both a certificate and a key are configured.
func (c Config) TLSEnabled() bool { return c.TLSCert != "" && c.TLSKey != "" }

// SessionKeys returns the cookie hash and block keys. A non-empty file at
// SecretPath wins over SessionHashKey. generated is true when neither is set
// and a random hash key was made, in which case sessions end on restart.
func (c Config) SessionKeys() (hashKey, blockKey []byte, generated bool) {
	blockKey = c.SessionBlockKey
	if c.SecretPath != "" {
		if b, err := os.ReadFile(c.SecretPath); err == nil {
			if b = []byte(strings.TrimSpace(string(b))); len(b) > 0 {
				return b, blockKey, false
			}
		}
	}
	if len(c.SessionHashKey) > 0 {
		return c.SessionHashKey, blockKey, false
	}
	return securecookie.GenerateRandomKey(32), blockKey, true
}

// parseUsers reads "user:secret,user2:secret2". The secret is everything
// after the first colon.
func parseUsers(v string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(v, ",") {
		user, secret, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || user == "" {
			continue
		}
		out[user] = secret
	}
	return out
}

func envBool(key string) (bool, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func setStr(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setBytes(dst *[]byte, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = []byte(v)
	}
}

func setDur(dst *time.Duration, v string) {
	if v = strings.TrimSpace(v); v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		*dst = d
	}
}

func setLevel(dst *zerolog.Level, v string) {
	if v = strings.TrimSpace(v); v == "" {
		return
	}
	if l, err := zerolog.ParseLevel(v); err == nil {
		*dst = l
	}
}
