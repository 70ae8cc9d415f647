package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Otp        OtpConfig        `yaml:"otp"`
	Weather    WeatherConfig    `yaml:"weather"`
	Geocode    GeocodeConfig    `yaml:"geocode"`
	OTA        OTAConfig        `yaml:"ota"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// MQTTConfig holds the broker connection settings for the ingest listener.
type MQTTConfig struct {
	BrokerURL string `yaml:"broker_url"`
	ClientID  string `yaml:"client_id"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Topic     string `yaml:"topic"`
}

// OtpConfig holds the WhatsApp OTP dispatch settings.
type OtpConfig struct {
	APIURL            string        `yaml:"api_url"`
	AuthKey           string        `yaml:"auth_key"`
	IntegratedNumber  string        `yaml:"integrated_number"`
	TemplateName      string        `yaml:"template_name"`
	TemplateNamespace string        `yaml:"template_namespace"`
	CountryPrefix     string        `yaml:"country_prefix"`
	ExpiryMinutes     int           `yaml:"expiry_minutes"`
	TimeoutSeconds    int           `yaml:"timeout_seconds"`
	Timeout           time.Duration `yaml:"-"` // Ignored by YAML parser
}

// WeatherConfig holds the weather lookup settings.
type WeatherConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
}

// GeocodeConfig holds the forward-geocoding settings for location pings.
type GeocodeConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
}

// OTAConfig holds the firmware distribution settings.
type OTAConfig struct {
	FirmwareBaseURL string `yaml:"firmware_base_url"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "solar/+/data/#"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "solar-ingest"
	}

	if cfg.Otp.ExpiryMinutes <= 0 {
		cfg.Otp.ExpiryMinutes = 15
	}
	if cfg.Otp.TimeoutSeconds <= 0 {
		cfg.Otp.TimeoutSeconds = 10
	}
	cfg.Otp.Timeout = time.Duration(cfg.Otp.TimeoutSeconds) * time.Second
	if cfg.Otp.CountryPrefix == "" {
		cfg.Otp.CountryPrefix = "91"
	}

	if cfg.Weather.TimeoutSeconds <= 0 {
		cfg.Weather.TimeoutSeconds = 5
	}
	cfg.Weather.Timeout = time.Duration(cfg.Weather.TimeoutSeconds) * time.Second

	if cfg.Geocode.TimeoutSeconds <= 0 {
		cfg.Geocode.TimeoutSeconds = 5
	}
	cfg.Geocode.Timeout = time.Duration(cfg.Geocode.TimeoutSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
