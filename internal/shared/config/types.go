package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// GetDSN builds the connection string for the configured driver.
func (d *DatabaseConfig) GetDSN() string {
	if d.Driver == "postgres" {
		sslMode := d.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			d.Host, d.Port, d.Username, d.Password, d.Database, sslMode)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Issuer        string `mapstructure:"issuer"`
	Audience      string `mapstructure:"audience"`
	Secret        string `mapstructure:"secret"`
	PublicKeyPEM  string `mapstructure:"public_key_pem"`
	OrgClaim      string `mapstructure:"org_claim"`
	OrgRoleClaim  string `mapstructure:"org_role_claim"`
	LeewaySeconds int    `mapstructure:"leeway_seconds"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
	// PolicyAdmins lists user ids granted the billing admin role on startup.
	PolicyAdmins []string `mapstructure:"policy_admins"`
}

type EmailConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	SMTPHost        string   `mapstructure:"smtp_host"`
	SMTPPort        int      `mapstructure:"smtp_port"`
	SMTPUser        string   `mapstructure:"smtp_user"`
	SMTPPassword    string   `mapstructure:"smtp_password"`
	FromAddress     string   `mapstructure:"from_address"`
	FromName        string   `mapstructure:"from_name"`
	// BillingAlertsTo receives plan change and cancellation notices.
	BillingAlertsTo []string `mapstructure:"billing_alerts_to"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type EntitlementConfig struct {
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

func (e *EntitlementConfig) CacheTTL() time.Duration {
	if e.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(e.CacheTTLSeconds) * time.Second
}

// PriceIDs holds the provider identifiers for one tier, one per billing interval.
type PriceIDs struct {
	Monthly string `mapstructure:"monthly"`
	Annual  string `mapstructure:"annual"`
}

type StripeConfig struct {
	SecretKey     string              `mapstructure:"secret_key"`
	WebhookSecret string              `mapstructure:"webhook_secret"`
	BaseURL       string              `mapstructure:"base_url"`
	Prices        map[string]PriceIDs `mapstructure:"prices"`
}

type PolarConfig struct {
	AccessToken   string              `mapstructure:"access_token"`
	WebhookSecret string              `mapstructure:"webhook_secret"`
	BaseURL       string              `mapstructure:"base_url"`
	Products      map[string]PriceIDs `mapstructure:"products"`
}

type PaystackConfig struct {
	SecretKey string              `mapstructure:"secret_key"`
	BaseURL   string              `mapstructure:"base_url"`
	Plans     map[string]PriceIDs `mapstructure:"plans"`
}

type BillingConfig struct {
	DefaultProvider   string         `mapstructure:"default_provider"`
	SuccessURL        string         `mapstructure:"success_url"`
	CancelURL         string         `mapstructure:"cancel_url"`
	PortalReturnURL   string         `mapstructure:"portal_return_url"`
	RequestTimeoutSec int            `mapstructure:"request_timeout_seconds"`
	MaxRetries        int            `mapstructure:"max_retries"`
	SessionsPerMinute int            `mapstructure:"sessions_per_minute"`
	Stripe            StripeConfig   `mapstructure:"stripe"`
	Polar             PolarConfig    `mapstructure:"polar"`
	Paystack          PaystackConfig `mapstructure:"paystack"`
}

func (b *BillingConfig) RequestTimeout() time.Duration {
	if b.RequestTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(b.RequestTimeoutSec) * time.Second
}
