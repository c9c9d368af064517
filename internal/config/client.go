package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	LocalAPIURL      = "http://localhost:8000/api"
	ProductionAPIURL = "https://www.swaadanna.shop/api"
)

// ClientConfig drives the storefront CLI.
type ClientConfig struct {
	APIURL  string `mapstructure:"API_URL"`
	APIHost string `mapstructure:"API_HOST"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	SessionID     string `mapstructure:"SESSION_ID"`

	AdminUsername     string `mapstructure:"ADMIN_USERNAME"`
	AdminPasswordHash string `mapstructure:"ADMIN_PASSWORD_HASH"`

	CartClearDelay time.Duration `mapstructure:"CART_CLEAR_DELAY"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
}

var clientDefaults = map[string]interface{}{
	"API_URL":             "",
	"API_HOST":            "localhost",
	"REDIS_ADDR":          "localhost:6379",
	"REDIS_PASSWORD":      "",
	"SESSION_ID":          "default",
	"ADMIN_USERNAME":      "admin",
	"ADMIN_PASSWORD_HASH": "",
	"CART_CLEAR_DELAY":    1500 * time.Millisecond,
	"LOG_LEVEL":           "warn",
}

func LoadClient() (*ClientConfig, error) {
	v, err := newViper(clientDefaults)
	if err != nil {
		return nil, err
	}
	cfg := &ClientConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode client config: %w", err)
	}
	cfg.APIURL = ResolveAPIURL(cfg.APIURL, cfg.APIHost)
	return cfg, nil
}

// ResolveAPIURL prefers an explicit URL, otherwise picks the local or the
// production API depending on where the storefront is running.
func ResolveAPIURL(explicit, host string) string {
	if explicit != "" {
		return strings.TrimRight(explicit, "/")
	}
	if isLocalHost(host) {
		return LocalAPIURL
	}
	return ProductionAPIURL
}

func isLocalHost(host string) bool {
	if u, err := url.Parse(host); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	} else if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host == "localhost" || host == "127.0.0.1"
}
