// Package config loads the accessbot configuration: the shared core sections
// plus database, access and sender settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	coreconfig "github.com/m3rciful/accessbot/core/config"
	"github.com/m3rciful/accessbot/core/database"
	tgsender "github.com/m3rciful/accessbot/core/telegram/sender"
)

// AccessConfig controls registration, approval and the admin panel.
type AccessConfig struct {
	// PaymentContact is shown after registration as the place to pay.
	PaymentContact string `yaml:"payment_contact" envconfig:"PAYMENT_CONTACT"`
	// ChannelID is the managed private channel. Zero disables invite links
	// and publishing; posts are echoed back to the admin instead.
	ChannelID int64 `yaml:"channel_id" envconfig:"CHANNEL_ID"`
	// AdminPassword is stored at startup when no admin password exists yet.
	AdminPassword     string `yaml:"admin_password" envconfig:"ADMIN_PASSWORD"`
	RequireAdminLogin bool   `yaml:"require_admin_login" envconfig:"REQUIRE_ADMIN_LOGIN"`
	AdminTools        bool   `yaml:"admin_tools" envconfig:"ADMIN_TOOLS"`

	RegisterRetryAttempts  int `yaml:"register_retry_attempts" envconfig:"REGISTER_RETRY_ATTEMPTS"`
	RegisterRetryBackoffMS int `yaml:"register_retry_backoff_ms" envconfig:"REGISTER_RETRY_BACKOFF_MS"`
	BcryptCost             int `yaml:"bcrypt_cost" envconfig:"BCRYPT_COST"`
	// InviteExpireHours bounds the lifetime of one-time invite links.
	InviteExpireHours int `yaml:"invite_expire_hours" envconfig:"INVITE_EXPIRE_HOURS"`
}

// SenderConfig sizes the asynchronous outbound queue.
type SenderConfig struct {
	QueueSize      int `yaml:"queue_size" envconfig:"SENDER_QUEUE_SIZE"`
	Workers        int `yaml:"workers" envconfig:"SENDER_WORKERS"`
	MaxRetries     int `yaml:"max_retries" envconfig:"SENDER_MAX_RETRIES"`
	RetryBackoffMS int `yaml:"retry_backoff_ms" envconfig:"SENDER_RETRY_BACKOFF_MS"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database database.Config `yaml:"database"`
	Access   AccessConfig    `yaml:"access"`
	Sender   SenderConfig    `yaml:"sender"`
}

// Defaults returns the configuration used for keys absent from file and env.
func Defaults() *Config {
	return &Config{
		Database: database.Config{Driver: database.DriverSQLite, Path: "subscriptions.db"},
		Access: AccessConfig{
			RequireAdminLogin:      true,
			AdminTools:             true,
			RegisterRetryAttempts:  5,
			RegisterRetryBackoffMS: 1000,
			InviteExpireHours:      24,
		},
		Sender: SenderConfig{MaxRetries: 2},
	}
}

// Load reads, overlays and validates the configuration for serving the bot.
func Load(path string) (*Config, error) {
	cfg, err := LoadStorage(path)
	if err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStorage is Load without the Telegram checks, for offline CLI commands
// that only touch the database.
func LoadStorage(path string) (*Config, error) {
	cfg := Defaults()
	if err := coreconfig.Decode(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Database.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Access.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *AccessConfig) normalize() error {
	a.PaymentContact = strings.TrimSpace(a.PaymentContact)
	if a.RegisterRetryAttempts < 1 {
		return fmt.Errorf("access.register_retry_attempts must be >= 1")
	}
	if a.RegisterRetryBackoffMS < 0 {
		return fmt.Errorf("access.register_retry_backoff_ms must be >= 0")
	}
	if a.BcryptCost != 0 && (a.BcryptCost < bcrypt.MinCost || a.BcryptCost > bcrypt.MaxCost) {
		return fmt.Errorf("access.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if a.InviteExpireHours < 0 {
		return fmt.Errorf("access.invite_expire_hours must be >= 0")
	}
	return nil
}

// CoreConfig exposes the shared core sections.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// RetryBackoff is the pause between registration attempts.
func (a AccessConfig) RetryBackoff() time.Duration {
	return time.Duration(a.RegisterRetryBackoffMS) * time.Millisecond
}

// InviteTTL is zero when invite links never expire.
func (a AccessConfig) InviteTTL() time.Duration {
	return time.Duration(a.InviteExpireHours) * time.Hour
}

// DispatcherOptions maps the sender section onto the dispatcher.
func (s SenderConfig) DispatcherOptions() tgsender.Options {
	return tgsender.Options{
		QueueSize:    s.QueueSize,
		Workers:      s.Workers,
		MaxRetries:   s.MaxRetries,
		RetryBackoff: time.Duration(s.RetryBackoffMS) * time.Millisecond,
	}
}
