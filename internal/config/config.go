// Package config arma la configuración del servicio en capas: defaults,
// archivo YAML opcional, variables MEDREMINDER_* y por último los nombres de
// variables que usaba el despliegue anterior (EMAIL_USER, EMAIL_PASSWORD,
// PORT, DB_DSN).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	NotifierSMTP    = "smtp"
	NotifierWebhook = "webhook"
	NotifierConsole = "console"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Config struct {
	App      AppConfig      `koanf:"app"`
	HTTP     HTTPConfig     `koanf:"http"`
	Reminder ReminderConfig `koanf:"reminder"`
	Notifier NotifierConfig `koanf:"notifier"`
	Store    StoreConfig    `koanf:"store"`
	Redis    RedisConfig    `koanf:"redis"`
	Log      LogConfig      `koanf:"log"`
}

type AppConfig struct {
	Name string `koanf:"name"`
}

type HTTPConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type ReminderConfig struct {
	LeadTime     time.Duration `koanf:"lead_time"`
	SendTimeout  time.Duration `koanf:"send_timeout"`
	MaxRetries   int           `koanf:"max_retries"`
	RetryBackoff time.Duration `koanf:"retry_backoff"`
	Workers      int           `koanf:"workers"`
	Timezone     string        `koanf:"timezone"`
	Reconcile    string        `koanf:"reconcile"` // expresión cron; vacío lo desactiva
	DedupTTL     time.Duration `koanf:"dedup_ttl"`
}

type NotifierConfig struct {
	Kind       string        `koanf:"kind"`
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	User       string        `koanf:"user"`
	Secret     string        `koanf:"secret"`
	From       string        `koanf:"from"`
	WebhookURL string        `koanf:"webhook_url"`
	Timeout    time.Duration `koanf:"timeout"`
}

type StoreConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// legacyEnv mapea variables del despliegue anterior a claves de koanf.
var legacyEnv = map[string]string{
	"EMAIL_USER":     "notifier.user",
	"EMAIL_PASSWORD": "notifier.secret",
	"DB_DSN":         "store.dsn",
}

func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	for name, key := range legacyEnv {
		// sólo completan lo que ni el archivo ni MEDREMINDER_* definieron
		if v := os.Getenv(name); v != "" && k.String(key) == "" {
			_ = k.Set(key, v)
		}
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv(EnvPrefix+"HTTP__ADDR") == "" {
		_ = k.Set("http.addr", ":"+port)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.normalize()
	return &cfg, nil
}

// envKey: MEDREMINDER_REMINDER__LEAD_TIME -> reminder.lead_time
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func (c *Config) normalize() {
	c.Notifier.Kind = strings.ToLower(strings.TrimSpace(c.Notifier.Kind))
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))

	// sin kind explícito: smtp si hay credenciales, si no console
	if c.Notifier.Kind == "" {
		if c.Notifier.User != "" && c.Notifier.Secret != "" {
			c.Notifier.Kind = NotifierSMTP
		} else {
			c.Notifier.Kind = NotifierConsole
		}
	}

	// sin driver explícito: un DSN (p.ej. DB_DSN) implica postgres
	if c.Store.Driver == "" {
		if strings.TrimSpace(c.Store.DSN) != "" {
			c.Store.Driver = StorePostgres
		} else {
			c.Store.Driver = StoreMemory
		}
	}
}

func (c *Config) Validate() error {
	if c.Reminder.LeadTime < 0 {
		return fmt.Errorf("reminder.lead_time must not be negative")
	}
	if c.Reminder.Workers <= 0 {
		return fmt.Errorf("reminder.workers must be positive")
	}
	if c.Reminder.MaxRetries < 0 {
		return fmt.Errorf("reminder.max_retries must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	switch c.Notifier.Kind {
	case NotifierSMTP:
		if c.Notifier.Host == "" {
			return fmt.Errorf("notifier.host is required for smtp")
		}
		if c.Notifier.User == "" || c.Notifier.Secret == "" {
			return fmt.Errorf("notifier.user and notifier.secret are required for smtp (set EMAIL_USER / EMAIL_PASSWORD)")
		}
	case NotifierWebhook:
		if c.Notifier.WebhookURL == "" {
			return fmt.Errorf("notifier.webhook_url is required for webhook")
		}
	case NotifierConsole:
	default:
		return fmt.Errorf("unknown notifier.kind: %s (supported: %s, %s, %s)",
			c.Notifier.Kind, NotifierSMTP, NotifierWebhook, NotifierConsole)
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres, StoreSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store.driver: %s (supported: %s, %s, %s)",
			c.Store.Driver, StoreMemory, StorePostgres, StoreSQLite)
	}

	return nil
}

// Location resuelve reminder.timezone ("Local", "UTC", "America/Argentina/Buenos_Aires").
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Reminder.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("reminder.timezone: %w", err)
	}
	return loc, nil
}
