package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Auth     AuthConfig     `yaml:"auth"`
	Mail     MailConfig     `yaml:"mail"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	DefaultBaseFare      string `yaml:"default_base_fare"`
	Currency             string `yaml:"currency"`
	TimeZone             string `yaml:"time_zone"`
	RoutesCacheTTL       int    `yaml:"routes_cache_ttl_seconds"`
	TicketTTLHours       int    `yaml:"ticket_ttl_hours"`
	PublicTicketDownload *bool  `yaml:"public_ticket_download"`
}

// BaseFare parses DefaultBaseFare.
func (b BookingConfig) BaseFare() (decimal.Decimal, error) {
	return decimal.NewFromString(b.DefaultBaseFare)
}

func (b BookingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.TimeZone)
}

func (b BookingConfig) RoutesTTL() time.Duration {
	return time.Duration(b.RoutesCacheTTL) * time.Second
}

func (b BookingConfig) TicketTTL() time.Duration {
	return time.Duration(b.TicketTTLHours) * time.Hour
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type MailConfig struct {
	// Transport is one of "log", "gmail" or "kafka".
	Transport string      `yaml:"transport"`
	From      string      `yaml:"from"`
	Gmail     GmailConfig `yaml:"gmail"`
}

type GmailConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig reads the YAML file at path, overlays secrets from the
// environment (and a .env file when present) and fills defaults.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"DB_PASSWORD":         &c.Database.Password,
		"REDIS_PASSWORD":      &c.Redis.Password,
		"JWT_SECRET":          &c.Auth.JWTSecret,
		"GMAIL_CLIENT_ID":     &c.Mail.Gmail.ClientID,
		"GMAIL_CLIENT_SECRET": &c.Mail.Gmail.ClientSecret,
		"GMAIL_REFRESH_TOKEN": &c.Mail.Gmail.RefreshToken,
		"MAIL_TRANSPORT":      &c.Mail.Transport,
		"LOG_LEVEL":           &c.Log.Level,
	}
	for key, target := range overrides {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Booking.DefaultBaseFare == "" {
		c.Booking.DefaultBaseFare = "2500"
	}
	if c.Booking.Currency == "" {
		c.Booking.Currency = "RWF"
	}
	if c.Booking.TimeZone == "" {
		c.Booking.TimeZone = "Africa/Kigali"
	}
	if c.Booking.RoutesCacheTTL == 0 {
		c.Booking.RoutesCacheTTL = 300
	}
	if c.Booking.TicketTTLHours == 0 {
		c.Booking.TicketTTLHours = 24 * 30
	}
	if c.Booking.PublicTicketDownload == nil {
		public := true
		c.Booking.PublicTicketDownload = &public
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "smartticket-mailer"
	}
	if c.Mail.Transport == "" {
		c.Mail.Transport = "log"
	}
	if c.Mail.From == "" {
		c.Mail.From = `"SmartTicket Rwanda" <bookings@smartticket.rw>`
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	if _, err := c.Booking.BaseFare(); err != nil {
		return fmt.Errorf("invalid booking.default_base_fare %q: %w", c.Booking.DefaultBaseFare, err)
	}
	if _, err := c.Booking.Location(); err != nil {
		return fmt.Errorf("invalid booking.time_zone %q: %w", c.Booking.TimeZone, err)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (or JWT_SECRET) is required")
	}
	switch c.Mail.Transport {
	case "log", "gmail":
	case "kafka":
		if c.Kafka.NotificationsTopic == "" || len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("mail transport kafka needs kafka.brokers and kafka.notifications_topic")
		}
	default:
		return fmt.Errorf("unknown mail.transport %q", c.Mail.Transport)
	}
	return nil
}
