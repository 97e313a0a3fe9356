package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`

	// HistoryLimit is how many recent messages a joiner receives.
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`

	// ReconcileInterval is how often overdue live sessions are swept.
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval" yaml:"reconcile_interval"`

	// Provider selects the meeting backend: "zoom" or "livekit".
	Provider string `mapstructure:"provider" yaml:"provider"`

	JWT     JWTConfig     `mapstructure:"jwt" yaml:"jwt"`
	Zoom    ZoomConfig    `mapstructure:"zoom" yaml:"zoom"`
	LiveKit LiveKitConfig `mapstructure:"livekit" yaml:"livekit"`
}

// JWTConfig configures verification of identity tokens.
type JWTConfig struct {
	Secret   string `mapstructure:"secret" yaml:"secret"`
	Issuer   string `mapstructure:"issuer" yaml:"issuer"`
	Audience string `mapstructure:"audience" yaml:"audience"`
}

// ZoomConfig configures the Zoom meeting provider.
type ZoomConfig struct {
	AccountID    string        `mapstructure:"account_id" yaml:"account_id"`
	ClientID     string        `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string        `mapstructure:"client_secret" yaml:"client_secret"`
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	OAuthURL     string        `mapstructure:"oauth_url" yaml:"oauth_url"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LiveKitConfig configures the self-hosted LiveKit meeting provider.
type LiveKitConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	APISecret string `mapstructure:"api_secret" yaml:"api_secret"`
	WSURL     string `mapstructure:"ws_url" yaml:"ws_url"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "liveclass.db",
		HistoryLimit:      50,
		ReconcileInterval: time.Minute,
		Provider:          "zoom",
		JWT: JWTConfig{
			Issuer:   "liveclass",
			Audience: "liveclass",
		},
		Zoom: ZoomConfig{
			BaseURL:  "https://api.zoom.us/v2",
			OAuthURL: "https://zoom.us/oauth/token",
			Timeout:  10 * time.Second,
		},
	}
}
