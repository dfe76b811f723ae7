// Package config loads daemon settings from configs/config.yml and
// PIMONITOR_* environment variables using viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "PIMONITOR"

// Config holds all application configuration.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string
	Backend   BackendConfig
	Poll      PollConfig
	Stream    StreamConfig
	DB        DBConfig
	Auth      AuthConfig
	MQTT      MQTTConfig
}

// BackendConfig points at the sensor/camera API.
type BackendConfig struct {
	BaseURL        string
	AccessLogLimit int
}

// PollConfig tunes the polling cells.
type PollConfig struct {
	ReadingInterval   time.Duration
	AccessLogInterval time.Duration
	SuspendWhenIdle   bool
}

// StreamConfig controls the camera stream cell.
type StreamConfig struct {
	RespectManualPause bool
}

// DBConfig locates the sqlite file; an empty path disables persistence.
type DBConfig struct {
	Path string
}

// AuthConfig guards mutating API routes with a JWT.
type AuthConfig struct {
	Enabled    bool
	SigningKey string
	TokenTTL   time.Duration
}

// MQTTConfig holds MQTT broker configuration.
type MQTTConfig struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

var errEmptyBaseURL = errors.New("backend.base_url must not be empty")

// setDefaults registers a default for every key so env overrides work without a file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("backend.base_url", "http://localhost:5000")
	v.SetDefault("backend.access_log_limit", 100)
	v.SetDefault("poll.reading_interval", 10*time.Second)
	v.SetDefault("poll.access_log_interval", 5*time.Second)
	v.SetDefault("poll.suspend_when_idle", true)
	v.SetDefault("stream.respect_manual_pause", false)
	v.SetDefault("db.path", "pimonitor.db")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "pimonitor")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "pimonitor")
}

// Load reads config.yml from the given directories (first match wins), then
// overlays PIMONITOR_* environment variables. A missing file is not an error.
func Load(paths ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Port:      v.GetString("port"),
		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		Backend: BackendConfig{
			BaseURL:        strings.TrimRight(v.GetString("backend.base_url"), "/"),
			AccessLogLimit: v.GetInt("backend.access_log_limit"),
		},
		Poll: PollConfig{
			ReadingInterval:   v.GetDuration("poll.reading_interval"),
			AccessLogInterval: v.GetDuration("poll.access_log_interval"),
			SuspendWhenIdle:   v.GetBool("poll.suspend_when_idle"),
		},
		Stream: StreamConfig{
			RespectManualPause: v.GetBool("stream.respect_manual_pause"),
		},
		DB: DBConfig{
			Path: v.GetString("db.path"),
		},
		Auth: AuthConfig{
			Enabled:    v.GetBool("auth.enabled"),
			SigningKey: v.GetString("auth.signing_key"),
			TokenTTL:   v.GetDuration("auth.token_ttl"),
		},
		MQTT: MQTTConfig{
			Enabled:     v.GetBool("mqtt.enabled"),
			Broker:      v.GetString("mqtt.broker"),
			ClientID:    v.GetString("mqtt.client_id"),
			Username:    v.GetString("mqtt.username"),
			Password:    v.GetString("mqtt.password"),
			TopicPrefix: strings.Trim(v.GetString("mqtt.topic_prefix"), "/"),
		},
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Backend.BaseURL == "" {
		return errEmptyBaseURL
	}
	if c.Auth.Enabled && c.Auth.SigningKey == "" {
		return errors.New("auth.signing_key is required when auth.enabled is true")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return errors.New("mqtt.broker is required when mqtt.enabled is true")
	}
	return nil
}
