package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the CLI and the gateway.
type Config struct {
	Server struct {
		URL       string        `mapstructure:"url"`
		Timeout   time.Duration `mapstructure:"timeout"`
		UserAgent string        `mapstructure:"user_agent"`
	} `mapstructure:"server"`
	Auth struct {
		// Mode is one of none, token, session, oidc.
		Mode         string   `mapstructure:"mode"`
		Token        string   `mapstructure:"token"`
		SessionID    string   `mapstructure:"session_id"`
		CSRFToken    string   `mapstructure:"csrf_token"`
		Issuer       string   `mapstructure:"issuer"`
		ClientID     string   `mapstructure:"client_id"`
		ClientSecret string   `mapstructure:"client_secret"`
		Scopes       []string `mapstructure:"scopes"`
	} `mapstructure:"auth"`
	Gateway struct {
		Listen      string `mapstructure:"listen"`
		RequireAuth bool   `mapstructure:"require_auth"`
		Issuer      string `mapstructure:"issuer"`
		Audience    string `mapstructure:"audience"`
	} `mapstructure:"gateway"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
	DB struct {
		Enable   bool   `mapstructure:"enable"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	Poll struct {
		Interval    time.Duration `mapstructure:"interval"`
		MaxInterval time.Duration `mapstructure:"max_interval"`
		Timeout     time.Duration `mapstructure:"timeout"`
	} `mapstructure:"poll"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Telemetry struct {
		// Exporter is one of none, stdout, otlp.
		Exporter string `mapstructure:"exporter"`
		Endpoint string `mapstructure:"endpoint"`
		Insecure bool   `mapstructure:"insecure"`
	} `mapstructure:"telemetry"`
}

// DSN returns the Postgres connection string for the snapshot journal.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:8000")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.user_agent", "resolwe-go/1.0")
	v.SetDefault("auth.mode", "none")
	v.SetDefault("auth.scopes", []string{"openid"})
	v.SetDefault("gateway.listen", ":8080")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "resolwe")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("poll.interval", 2*time.Second)
	v.SetDefault("poll.max_interval", 30*time.Second)
	v.SetDefault("poll.timeout", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("telemetry.exporter", "none")
}

// LoadConfig loads the configuration from a file and the environment.
// With an empty path, config.yaml is looked up in . and ./config and may be
// absent. RESOLWE_SERVER_URL style variables override file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("RESOLWE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	config.Server.URL = normalizeURL(config.Server.URL)
	config.Auth.Issuer = normalizeURL(config.Auth.Issuer)
	config.Gateway.Issuer = normalizeURL(config.Gateway.Issuer)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.Auth.Mode {
	case "none":
	case "token":
		if c.Auth.Token == "" {
			return errors.New("auth.token is required when auth.mode is token")
		}
	case "session":
		if c.Auth.SessionID == "" {
			return errors.New("auth.session_id is required when auth.mode is session")
		}
	case "oidc":
		if c.Auth.Issuer == "" || c.Auth.ClientID == "" {
			return errors.New("auth.issuer and auth.client_id are required when auth.mode is oidc")
		}
	default:
		return fmt.Errorf("unknown auth.mode %q", c.Auth.Mode)
	}
	if c.Gateway.RequireAuth && c.Gateway.Issuer == "" {
		return errors.New("gateway.issuer is required when gateway.require_auth is set")
	}
	return nil
}

// normalizeURL removes any trailing slash so issuer and server URLs pasted
// from a browser compare equal to their canonical form.
func normalizeURL(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}
