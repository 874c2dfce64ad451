package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

const EnvPrefix = "MEDREMINDER_"

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"app": map[string]interface{}{
			"name": "medicine-reminder",
		},
		"http": map[string]interface{}{
			"addr":          ":8080",
			"read_timeout":  "5s",
			"write_timeout": "10s",
		},
		"reminder": map[string]interface{}{
			"lead_time":     "5m",
			"send_timeout":  "30s",
			"max_retries":   0,
			"retry_backoff": "1s",
			"workers":       4,
			"timezone":      "Local",
			"reconcile":     "@every 10m",
			"dedup_ttl":     "24h",
		},
		"notifier": map[string]interface{}{
			"kind":        "",
			"host":        "smtp.gmail.com",
			"port":        587,
			"user":        "",
			"secret":      "",
			"from":        "",
			"webhook_url": "",
			"timeout":     "10s",
		},
		"store": map[string]interface{}{
			"driver": "",
			"dsn":    "",
		},
		"redis": map[string]interface{}{
			"addr":     "",
			"password": "",
			"db":       0,
		},
		"log": map[string]interface{}{
			"level":  "info",
			"format": "text",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}
