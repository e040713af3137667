package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// NotifyChannel selects how patients are told their prescription is ready.
type NotifyChannel string

const (
	ChannelEmail NotifyChannel = "email"
	ChannelSMS   NotifyChannel = "sms"
)

func (c NotifyChannel) IsValid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	QR       QRConfig
	Notify   NotifyConfig
	Report   ReportConfig
	Log      LogConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s Timezone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

// QRConfig points at the external image provider and the directory where
// fetched artifacts are written.
type QRConfig struct {
	BaseURL        string
	OutputDir      string
	RequestTimeout time.Duration
}

type NotifyConfig struct {
	Channel NotifyChannel

	// Email channel
	SMTPHost string
	SMTPPort int
	SMTPFrom string

	// SMS channel
	SMSGatewayURL string
	SMSSender     string

	SendTimeout time.Duration
}

type ReportConfig struct {
	// DispensedPath is overwritten in full on every export.
	DispensedPath string
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("HP_APP_NAME", "healthpass"),
			Environment: getEnv("HP_APP_ENV", "development"),
			Version:     getEnv("HP_APP_VERSION", "0.0.0"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("HP_DB_HOST", "localhost"),
			Port:            getEnvInt("HP_DB_PORT", 5432),
			Name:            getEnv("HP_DB_NAME", "healthpass"),
			User:            getEnv("HP_DB_USER", "healthpass"),
			Password:        getEnv("HP_DB_PASSWORD", ""),
			SSLMode:         getEnv("HP_DB_SSLMODE", "require"),
			MaxOpenConns:    getEnvInt("HP_DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("HP_DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("HP_DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("HP_DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		QR: QRConfig{
			BaseURL:        getEnv("HP_QR_BASE_URL", "https://api.qrserver.com/v1/create-qr-code/"),
			OutputDir:      getEnv("HP_QR_OUTPUT_DIR", "qr_codes"),
			RequestTimeout: getEnvDuration("HP_QR_TIMEOUT", 10*time.Second),
		},
		Notify: NotifyConfig{
			Channel:       NotifyChannel(strings.ToLower(getEnv("HP_NOTIFY_CHANNEL", "email"))),
			SMTPHost:      getEnv("HP_SMTP_HOST", "localhost"),
			SMTPPort:      getEnvInt("HP_SMTP_PORT", 25),
			SMTPFrom:      getEnv("HP_SMTP_FROM", "pharmacy@healthpass.local"),
			SMSGatewayURL: getEnv("HP_SMS_GATEWAY_URL", ""),
			SMSSender:     getEnv("HP_SMS_SENDER", "HealthPass"),
			SendTimeout:   getEnvDuration("HP_NOTIFY_TIMEOUT", 10*time.Second),
		},
		Report: ReportConfig{
			DispensedPath: getEnv("HP_REPORT_DISPENSED_PATH", "reports/dispensed.csv"),
		},
		Log: LogConfig{
			Level:      getEnv("HP_LOG_LEVEL", "info"),
			Format:     getEnv("HP_LOG_FORMAT", "json"),
			OutputPath: getEnv("HP_LOG_OUTPUT", "stderr"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects configurations the process cannot safely start with.
func validate(cfg *Config) error {
	var errs []string

	if !cfg.Notify.Channel.IsValid() {
		errs = append(errs, fmt.Sprintf("HP_NOTIFY_CHANNEL must be %q or %q, got %q",
			ChannelEmail, ChannelSMS, cfg.Notify.Channel))
	}
	if cfg.Notify.Channel == ChannelSMS && cfg.Notify.SMSGatewayURL == "" {
		errs = append(errs, "HP_SMS_GATEWAY_URL is required when HP_NOTIFY_CHANNEL=sms")
	}
	if cfg.QR.BaseURL == "" {
		errs = append(errs, "HP_QR_BASE_URL must not be empty")
	}
	if cfg.Report.DispensedPath == "" {
		errs = append(errs, "HP_REPORT_DISPENSED_PATH must not be empty")
	}
	if cfg.Database.Password == "" && cfg.App.Environment != "development" {
		errs = append(errs, "HP_DB_PASSWORD is required in non-development environments")
	}
	if cfg.Database.SSLMode == "disable" && cfg.App.Environment == "production" {
		errs = append(errs, "HP_DB_SSLMODE=disable is not allowed in production")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
