// Package config loads arxenbot settings from an optional YAML file, a .env file
// and the process environment, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all arxenbot configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	KB       KBConfig       `yaml:"kb"`
	Store    StoreConfig    `yaml:"store"`
	Email    EmailConfig    `yaml:"email"`
	Relay    RelayConfig    `yaml:"relay"`
	Estimate EstimateConfig `yaml:"estimate"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// ChatRateLimit is the sustained requests per second allowed per client on /api/chat.
	ChatRateLimit float64 `yaml:"chat_rate_limit"`
	AdminToken    string  `yaml:"admin_token"`
}

// KBConfig configures the knowledge base.
type KBConfig struct {
	// Dir optionally overrides the embedded data files. Watched for changes when set.
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// StoreConfig configures the SQLite database used for drafts and submissions.
type StoreConfig struct {
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// EmailConfig selects and configures the email channel.
type EmailConfig struct {
	// Provider is "emailjs", "smtp" or "none".
	Provider string `yaml:"provider"`

	EmailJSEndpoint string `yaml:"emailjs_endpoint"`
	ServiceID       string `yaml:"service_id"`
	TemplateID      string `yaml:"template_id"`
	PublicKey       string `yaml:"public_key"`
	PrivateKey      string `yaml:"private_key"`

	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUsername string `yaml:"smtp_username"`
	SMTPPassword string `yaml:"smtp_password"`
	From         string `yaml:"from"`
	To           string `yaml:"to"`

	// Timeout bounds one EmailJS request or SMTP session.
	Timeout time.Duration `yaml:"timeout"`
}

// RelayConfig configures the redundant form-relay channel.
type RelayConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// EstimateConfig holds business contact details and submission timing.
type EstimateConfig struct {
	CompanyName   string        `yaml:"company_name"`
	Website       string        `yaml:"website"`
	SupportEmail  string        `yaml:"support_email"`
	OfficePhone   string        `yaml:"office_phone"`
	EstimateURL   string        `yaml:"estimate_url"`
	DraftBaseURL  string        `yaml:"draft_base_url"`
	SafetyTimeout time.Duration `yaml:"safety_timeout"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Default returns a Config with every value populated.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8050",
			AllowedOrigins: []string{"*"},
			ChatRateLimit:  5,
		},
		KB: KBConfig{Watch: true},
		Store: StoreConfig{
			Path:        "arxenbot.db",
			BusyTimeout: 5 * time.Second,
		},
		Email: EmailConfig{
			Provider:        "none",
			EmailJSEndpoint: "https://api.emailjs.com/api/v1.0/email/send",
			SMTPPort:        587,
			Timeout:         15 * time.Second,
		},
		Relay: RelayConfig{Timeout: 15 * time.Second},
		Estimate: EstimateConfig{
			CompanyName:   "Arxen Construction",
			Website:       "arxenconstruction.com",
			SupportEmail:  "info@arxenconstruction.com",
			OfficePhone:   "(404) 934-9458",
			EstimateURL:   "/free-estimate",
			DraftBaseURL:  "/free-estimate",
			SafetyTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads configuration from path (optional), then .env, then the environment.
// A missing file at path is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	// .env is optional; values already in the environment take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies PORT and ARXEN_* variables.
func (c *Config) applyEnvOverrides() {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		c.Server.Addr = ":" + port
	}
	if v := os.Getenv("ARXEN_ADMIN_TOKEN"); v != "" {
		c.Server.AdminToken = v
	}
	if v := os.Getenv("ARXEN_KB_DIR"); v != "" {
		c.KB.Dir = v
	}
	if v := os.Getenv("ARXEN_DB_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("ARXEN_EMAIL_PROVIDER"); v != "" {
		c.Email.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("ARXEN_EMAILJS_SERVICE_ID"); v != "" {
		c.Email.ServiceID = v
	}
	if v := os.Getenv("ARXEN_EMAILJS_TEMPLATE_ID"); v != "" {
		c.Email.TemplateID = v
	}
	if v := os.Getenv("ARXEN_EMAILJS_PUBLIC_KEY"); v != "" {
		c.Email.PublicKey = v
	}
	if v := os.Getenv("ARXEN_EMAILJS_PRIVATE_KEY"); v != "" {
		c.Email.PrivateKey = v
	}
	if v := os.Getenv("ARXEN_SMTP_HOST"); v != "" {
		c.Email.SMTPHost = v
	}
	if v := os.Getenv("ARXEN_SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Email.SMTPPort = port
		}
	}
	if v := os.Getenv("ARXEN_SMTP_USERNAME"); v != "" {
		c.Email.SMTPUsername = v
	}
	if v := os.Getenv("ARXEN_SMTP_PASSWORD"); v != "" {
		c.Email.SMTPPassword = v
	}
	if v := os.Getenv("ARXEN_RELAY_URL"); v != "" {
		c.Relay.URL = v
	}
	if v := os.Getenv("ARXEN_SUPPORT_EMAIL"); v != "" {
		c.Estimate.SupportEmail = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("config: server.addr is required")
	}
	if c.Estimate.SafetyTimeout <= 0 {
		return errors.New("config: estimate.safety_timeout must be positive")
	}
	switch c.Email.Provider {
	case "none", "":
	case "emailjs":
		if c.Email.ServiceID == "" || c.Email.TemplateID == "" || c.Email.PublicKey == "" {
			return errors.New("config: emailjs requires service_id, template_id and public_key")
		}
	case "smtp":
		if c.Email.SMTPHost == "" || c.Email.From == "" || c.Email.To == "" {
			return errors.New("config: smtp requires smtp_host, from and to")
		}
	default:
		return fmt.Errorf("config: unknown email provider %q", c.Email.Provider)
	}
	return nil
}
