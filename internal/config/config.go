// Package config holds the application configuration: the reusable core
// sections plus the meetup, snapshot and ops sections.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	coreconfig "github.com/m3rciful/unilinkup/core/config"
	"github.com/m3rciful/unilinkup/internal/meetup"
)

// placeholderToken is the value shipped in example configs.
const placeholderToken = "YOUR_BOT_TOKEN_HERE"

// MeetupConfig tunes the conversation, rosters and history limits.
type MeetupConfig struct {
	Locations []string `yaml:"locations"`
	Friends   []string `yaml:"friends"`

	ConversationTimeoutSeconds int `yaml:"conversation_timeout_seconds" envconfig:"MEETUP_CONVERSATION_TIMEOUT_SECONDS"`
	MaxPingHistory             int `yaml:"max_ping_history" envconfig:"MEETUP_MAX_PING_HISTORY"`
	RecentPingsLimit           int `yaml:"recent_pings_limit"`
	MaxTimeLength              int `yaml:"max_time_length"`
	MaxInputLength             int `yaml:"max_input_length"`

	SessionMaxAgeHours     int `yaml:"session_max_age_hours"`
	PingMaxAgeDays         int `yaml:"ping_max_age_days"`
	JanitorIntervalMinutes int `yaml:"janitor_interval_minutes"`

	ErrorLogSize int `yaml:"error_log_size"`
}

// SnapshotConfig locates the snapshot file. An empty path disables snapshots.
type SnapshotConfig struct {
	Path        string `yaml:"path" envconfig:"SNAPSHOT_PATH"`
	LoadOnStart bool   `yaml:"load_on_start" envconfig:"SNAPSHOT_LOAD_ON_START"`
	Backup      bool   `yaml:"backup"`
}

// OpsConfig configures the operations HTTP server. An empty Listen disables it.
type OpsConfig struct {
	Listen string `yaml:"listen" envconfig:"OPS_LISTEN"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Meetup   MeetupConfig   `yaml:"meetup"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Ops      OpsConfig      `yaml:"ops"`
}

// CoreConfig exposes the embedded core section to the core runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads the YAML file at path, applies environment overrides and normalizes the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults. All problems are reported together.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	var result *multierror.Error
	if strings.TrimSpace(cfg.Telegram.Token) == placeholderToken {
		result = multierror.Append(result, fmt.Errorf("telegram token is still the placeholder value"))
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		result = multierror.Append(result, err)
	}

	m := &cfg.Meetup
	if len(m.Locations) == 0 {
		m.Locations = append([]string(nil), meetup.DefaultLocations...)
	}
	if len(m.Friends) == 0 {
		m.Friends = append([]string(nil), meetup.DefaultFriends...)
	}
	if _, err := meetup.NewRoster(m.Locations); err != nil {
		result = multierror.Append(result, fmt.Errorf("meetup.locations: %w", err))
	}
	if _, err := meetup.NewRoster(m.Friends); err != nil {
		result = multierror.Append(result, fmt.Errorf("meetup.friends: %w", err))
	}

	defaults := []struct {
		name  string
		value *int
		def   int
	}{
		{"meetup.conversation_timeout_seconds", &m.ConversationTimeoutSeconds, 300},
		{"meetup.max_ping_history", &m.MaxPingHistory, 100},
		{"meetup.recent_pings_limit", &m.RecentPingsLimit, 5},
		{"meetup.max_time_length", &m.MaxTimeLength, meetup.DefaultMaxTimeLength},
		{"meetup.max_input_length", &m.MaxInputLength, 100},
		{"meetup.session_max_age_hours", &m.SessionMaxAgeHours, 24},
		{"meetup.ping_max_age_days", &m.PingMaxAgeDays, 30},
		{"meetup.janitor_interval_minutes", &m.JanitorIntervalMinutes, 30},
		{"meetup.error_log_size", &m.ErrorLogSize, 10},
	}
	for _, d := range defaults {
		switch {
		case *d.value < 0:
			result = multierror.Append(result, fmt.Errorf("%s must be >= 0", d.name))
		case *d.value == 0:
			*d.value = d.def
		}
	}

	cfg.Snapshot.Path = strings.TrimSpace(cfg.Snapshot.Path)
	if cfg.Snapshot.LoadOnStart && cfg.Snapshot.Path == "" {
		result = multierror.Append(result, fmt.Errorf("snapshot.path is required when snapshot.load_on_start is set"))
	}
	cfg.Ops.Listen = strings.TrimSpace(cfg.Ops.Listen)
	return result.ErrorOrNil()
}

// ConversationTimeout returns the idle window of a conversation.
func (m MeetupConfig) ConversationTimeout() time.Duration {
	return time.Duration(m.ConversationTimeoutSeconds) * time.Second
}

// SessionMaxAge returns how long an inactive session is kept.
func (m MeetupConfig) SessionMaxAge() time.Duration {
	return time.Duration(m.SessionMaxAgeHours) * time.Hour
}

// PingMaxAge returns how long a ping stays in history.
func (m MeetupConfig) PingMaxAge() time.Duration {
	return time.Duration(m.PingMaxAgeDays) * 24 * time.Hour
}

// JanitorInterval returns the period between eviction sweeps.
func (m MeetupConfig) JanitorInterval() time.Duration {
	return time.Duration(m.JanitorIntervalMinutes) * time.Minute
}
