package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// SetupConfig is the user/installation profile file (setup-config.json).
// It carries the user identity, messaging credentials, calendar list, and
// the OAuth triple needed for placeholder substitution in remote
// tool-server configs.
type SetupConfig struct {
	UserContext UserContext `json:"userContext"`
	Slack       SlackSetup  `json:"slack"`
	Calendars   []string    `json:"calendars"`
	Google      GoogleSetup `json:"google"`
}

// UserContext identifies the person Callisto assists.
type UserContext struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Timezone string `json:"timezone"`
}

// SlackSetup holds Slack workspace credentials.
type SlackSetup struct {
	BotToken string   `json:"botToken"`
	TeamID   string   `json:"teamId"`
	Channels []string `json:"channels"`
}

// GoogleSetup holds the OAuth client triple for Google tool servers.
type GoogleSetup struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RefreshToken string `json:"refreshToken"`
}

// LoadSetupConfig reads and validates setup-config.json. A missing or
// malformed file is fatal at startup; individual empty credential fields
// are allowed (the corresponding servers simply fail to authenticate).
func LoadSetupConfig(path string) (*SetupConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read setup config: %w", err)
	}

	var cfg SetupConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.UserContext.Timezone == "" {
		cfg.UserContext.Timezone = "UTC"
	}

	return &cfg, nil
}

// ConnectionContext flattens the setup fields that get merged into a
// remote server's declarative config before it is encoded into the URL.
func (c *SetupConfig) ConnectionContext() map[string]any {
	return map[string]any{
		"clientId":     c.Google.ClientID,
		"clientSecret": c.Google.ClientSecret,
		"refreshToken": c.Google.RefreshToken,
		"botToken":     c.Slack.BotToken,
		"teamId":       c.Slack.TeamID,
		"name":         c.UserContext.Name,
		"email":        c.UserContext.Email,
		"role":         c.UserContext.Role,
		"company":      c.UserContext.Company,
		"location":     c.UserContext.Location,
		"timezone":     c.UserContext.Timezone,
	}
}
