// Package config loads runtime configuration from the environment, applying
// defaults and collecting every validation problem before failing.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration for the activity service.
type Config struct {
	App      AppConfig
	Provider ProviderConfig
	Activity ActivityConfig
	Kafka    KafkaConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	Port     int
	LogLevel string
	// BaseURL is the public URL Journey Builder reaches this service on;
	// it is echoed into the activity manifest.
	BaseURL string
}

// ProviderConfig holds the DIGO endpoint, credentials and delivery tuning.
type ProviderConfig struct {
	URL           string
	BasicAuth     string
	BearerToken   string
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
	StubMode      bool
	MaxInFlight   int64
}

// ActivityConfig controls payload construction.
type ActivityConfig struct {
	// PayloadVariant selects the provider payload shape: single, bulk or
	// flat.
	PayloadVariant string
	// DefaultRecipients is the fallback recipient list for bulk sends
	// without a caller-supplied dataSet.
	DefaultRecipients []string
	// Originator is the sender id attached to outbound payloads.
	Originator string
	// StaticTestData force-enables the static regression arguments for
	// every request, not just per-request opt-ins.
	StaticTestData bool
}

// KafkaConfig enables optional delivery status events. Publishing is off
// when no brokers are configured.
type KafkaConfig struct {
	Brokers     []string
	StatusTopic string
}

// Load reads environment variables, applies defaults, validates required
// values and returns a populated Config instance.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.Port = ldr.getInt("PORT", 3001, false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)
	cfg.App.BaseURL = ldr.getString("ACTIVITY_BASE_URL", "", false)

	cfg.Provider.URL = ldr.getString("DIGO_API_URL", "", false)
	cfg.Provider.BasicAuth = ldr.getString("DIGO_BASIC_AUTH", "", false)
	cfg.Provider.BearerToken = ldr.getString("DIGO_BEARER_TOKEN", "", false)
	cfg.Provider.Timeout = time.Duration(ldr.getInt("DIGO_HTTP_TIMEOUT_MS", 15000, false)) * time.Millisecond
	cfg.Provider.RetryAttempts = ldr.getInt("DIGO_RETRY_ATTEMPTS", 3, false)
	cfg.Provider.RetryBackoff = time.Duration(ldr.getInt("DIGO_RETRY_BACKOFF_MS", 500, false)) * time.Millisecond
	cfg.Provider.StubMode = ldr.getBool("DIGO_STUB_MODE", false, false)
	cfg.Provider.MaxInFlight = int64(ldr.getInt("DIGO_MAX_INFLIGHT", 32, false))

	cfg.Activity.PayloadVariant = ldr.getString("DIGO_PAYLOAD_VARIANT", "flat", false)
	cfg.Activity.DefaultRecipients = ldr.getStringSlice("DIGO_DEFAULT_RECIPIENTS", false)
	cfg.Activity.Originator = ldr.getString("DIGO_ORIGINATOR", "", false)
	cfg.Activity.StaticTestData = ldr.getBool("USE_STATIC_TEST_DATA", false, false)

	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BROKERS", false)
	cfg.Kafka.StatusTopic = ldr.getString("KAFKA_STATUS_TOPIC", "sms-activity-status", false)

	if cfg.Provider.URL == "" && !cfg.Provider.StubMode {
		ldr.addError("DIGO_API_URL is required unless DIGO_STUB_MODE is enabled")
	}

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	raw := l.getString(key, "", required)
	if raw == "" {
		return def
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid integer", key))
		return def
	}
	return i
}

func (l *envLoader) getBool(key string, def bool, required bool) bool {
	raw := l.getString(key, "", required)
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid boolean", key))
		return def
	}
	return parsed
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
