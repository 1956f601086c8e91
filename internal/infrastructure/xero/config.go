package xero

import (
	"errors"
	"time"

	"github.com/club19/salesos/internal/infrastructure/config"
)

const (
	// ProductionAPIURL is the accounting API root
	ProductionAPIURL = "https://api.xero.com/api.xro/2.0"
	// ProductionTokenURL is the OAuth2 token endpoint
	ProductionTokenURL = "https://identity.xero.com/connect/token"
	// ProductionConnectionsURL lists the tenants an access token is connected to
	ProductionConnectionsURL = "https://api.xero.com/connections"

	defaultTimeoutSeconds = 20
)

// Errors for Xero configuration
var (
	ErrConfigMissingClientID     = errors.New("xero: client id is required")
	ErrConfigMissingClientSecret = errors.New("xero: client secret is required")
)

// Config holds configuration for the Xero API adapter
type Config struct {
	// ClientID is the OAuth2 app client id
	ClientID string
	// ClientSecret is the OAuth2 app client secret
	ClientSecret string
	// APIBaseURL is the accounting API root
	APIBaseURL string
	// TokenURL is the OAuth2 token endpoint
	TokenURL string
	// ConnectionsURL is the endpoint used to probe a fresh access token
	ConnectionsURL string
	// TimeoutSeconds bounds every outbound request
	TimeoutSeconds int
}

// NewConfig maps the xero config section. Empty endpoints are filled with
// the production ones by Validate.
func NewConfig(settings config.XeroConfig) *Config {
	return &Config{
		ClientID:       settings.ClientID,
		ClientSecret:   settings.ClientSecret,
		APIBaseURL:     settings.APIBaseURL,
		TokenURL:       settings.TokenURL,
		ConnectionsURL: settings.ConnectionsURL,
		TimeoutSeconds: settings.TimeoutSeconds,
	}
}

// Validate checks required fields and fills in endpoint defaults
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return ErrConfigMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrConfigMissingClientSecret
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = ProductionAPIURL
	}
	if c.TokenURL == "" {
		c.TokenURL = ProductionTokenURL
	}
	if c.ConnectionsURL == "" {
		c.ConnectionsURL = ProductionConnectionsURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// Timeout returns the request timeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
