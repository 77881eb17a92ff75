package config

import (
	"errors"
	"fmt"
	"os"

	"kovorka/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Authority  AuthorityConfig  `yaml:"authority"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Journal    JournalConfig    `yaml:"journal"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// AuthorityConfig points at the external booking authority.
type AuthorityConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	APIExtra       string `yaml:"api_extra"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheTTL       int    `yaml:"cache_ttl"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key   string `yaml:"key"`
	Extra string `yaml:"extra"`
	Name  string `yaml:"name"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BookingConfig holds the operating-hours and grid rules plus the session
// rate budget.
type BookingConfig struct {
	WorkdayStartHour  int `yaml:"workday_start_hour"`
	WorkdayEndHour    int `yaml:"workday_end_hour"`
	SlotMinutes       int `yaml:"slot_minutes"`
	MaxExtensionDays  int `yaml:"max_extension_days"`
	SessionTTLSeconds int `yaml:"session_ttl_seconds"`
	RateLimitRequests int `yaml:"rate_limit_requests"`
	RateLimitWindow   int `yaml:"rate_limit_window"`
}

// WindowRules converts the section into the domain shape.
func (c BookingConfig) WindowRules() models.WindowRules {
	return models.WindowRules{
		OpenHour:         c.WorkdayStartHour,
		CloseHour:        c.WorkdayEndHour,
		SlotMinutes:      c.SlotMinutes,
		MaxExtensionDays: c.MaxExtensionDays,
	}
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
	HealthCheckPort   int  `yaml:"health_check_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	JournalSpreadSheetID  string `yaml:"journal_spreadsheet_id"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Debug    bool   `yaml:"debug"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; ExpandEnv below picks the variables up
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Authority.BaseURL == "" {
		return errors.New("authority base url is required")
	}

	if c.Journal.Path == "" {
		return errors.New("journal path is required")
	}

	if c.Booking.WorkdayStartHour >= c.Booking.WorkdayEndHour {
		return fmt.Errorf("workday start hour %d must be before end hour %d",
			c.Booking.WorkdayStartHour, c.Booking.WorkdayEndHour)
	}

	if c.Booking.SlotMinutes <= 0 || 60%c.Booking.SlotMinutes != 0 {
		return fmt.Errorf("slot minutes %d must divide an hour", c.Booking.SlotMinutes)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}

	if c.Authority.TimeoutSeconds == 0 {
		c.Authority.TimeoutSeconds = 15
	}

	if c.Booking.WorkdayStartHour == 0 {
		c.Booking.WorkdayStartHour = models.DefaultWorkdayStartHour
	}
	if c.Booking.WorkdayEndHour == 0 {
		c.Booking.WorkdayEndHour = models.DefaultWorkdayEndHour
	}
	if c.Booking.SlotMinutes == 0 {
		c.Booking.SlotMinutes = models.DefaultSlotMinutes
	}
	if c.Booking.MaxExtensionDays == 0 {
		c.Booking.MaxExtensionDays = models.DefaultMaxExtensionDays
	}
	if c.Booking.SessionTTLSeconds == 0 {
		c.Booking.SessionTTLSeconds = models.DefaultSessionTTL
	}
	if c.Booking.RateLimitRequests == 0 {
		c.Booking.RateLimitRequests = models.RateLimitRequests
	}
	if c.Booking.RateLimitWindow == 0 {
		c.Booking.RateLimitWindow = models.RateLimitWindow
	}
}
