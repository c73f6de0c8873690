// Package config loads the two configuration files the sync job reads at
// startup: config.json for settings and creds.json for service secrets.
// The loaded struct is passed explicitly into every adapter and into the
// engine; nothing reads configuration from package state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	xdgAppName = "dhp-sync"
	configFile = "config.json"
	credsFile  = "creds.json"

	// DefaultCutoffHour is the local hour after which "today" rolls
	// forward when computing the patrol date. Requests entered late in
	// the evening are patrolled the next day.
	DefaultCutoffHour = 23
)

// ProfileCreds authenticates against the membership-profile service using
// the OAuth2 client-credentials grant.
type ProfileCreds struct {
	BaseURL      string `json:"base_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// TaskCreds authenticates against the task-list service.
type TaskCreds struct {
	BaseURL       string `json:"base_url"`
	ClientID      string `json:"client_id"`
	AccessToken   string `json:"access_token"`
	ListID        int64  `json:"list_id"`
	ArchiveListID int64  `json:"archive_list_id"`
}

// EmailCreds configures the SMTP sender. The server is expected to speak
// implicit TLS on the configured port.
type EmailCreds struct {
	Host     string `json:"email_host"`
	Port     int    `json:"email_port"`
	Address  string `json:"email_address"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type Config struct {
	CutoffHour   int  `json:"cutoff_hour"`
	EmailMembers bool `json:"email_members"`

	// MemberBCC is the fixed blind-copy distribution for member updates;
	// EODRecipients receives the end-of-day report.
	MemberBCC      []string `json:"member_bcc"`
	EODRecipients  []string `json:"eod_recipients"`
	TestRecipients []string `json:"test_recipients"`

	RequestsFile   string `json:"requests_file"`
	LogFile        string `json:"log_file"`
	RequestLogFile string `json:"request_log_file"`
	MemberTemplate string `json:"member_template"`
	EODTemplate    string `json:"eod_template"`

	Profile ProfileCreds `json:"-"`
	Tasks   TaskCreds    `json:"-"`
	Email   EmailCreds   `json:"-"`
}

type credentials struct {
	Profile ProfileCreds `json:"profile_service"`
	Tasks   TaskCreds    `json:"task_service"`
	Email   EmailCreds   `json:"email"`
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

// Load reads config.json and creds.json from dir. Relative file paths in
// config.json are resolved against dir. In test mode the snapshot, log and
// template files get a "test_" prefix, the recipient lists collapse to
// TestRecipients, and per-member delivery is forced off, so a test run can
// never mail a member.
func Load(dir string, testMode bool) (*Config, error) {
	cfg := &Config{CutoffHour: DefaultCutoffHour}

	f, err := os.Open(filepath.Join(dir, configFile))
	if err != nil {
		return nil, fmt.Errorf("could not open config: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}

	var creds credentials
	cf, err := os.Open(filepath.Join(dir, credsFile))
	if err != nil {
		return nil, fmt.Errorf("could not open credentials: %w", err)
	}
	defer cf.Close()
	if err := json.NewDecoder(cf).Decode(&creds); err != nil {
		return nil, fmt.Errorf("could not decode credentials: %w", err)
	}
	cfg.Profile = creds.Profile
	cfg.Tasks = creds.Tasks
	cfg.Email = creds.Email

	cfg.applyDefaults()
	if testMode {
		cfg.applyTestMode()
	}
	cfg.resolvePaths(dir)
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CutoffHour <= 0 {
		c.CutoffHour = DefaultCutoffHour
	}
	if c.RequestsFile == "" {
		c.RequestsFile = "request_list.json"
	}
	if c.LogFile == "" {
		c.LogFile = "log.txt"
	}
	if c.RequestLogFile == "" {
		c.RequestLogFile = "request_log.csv"
	}
}

func (c *Config) applyTestMode() {
	c.RequestsFile = testPath(c.RequestsFile)
	c.LogFile = testPath(c.LogFile)
	c.RequestLogFile = testPath(c.RequestLogFile)
	if c.MemberTemplate != "" {
		c.MemberTemplate = testPath(c.MemberTemplate)
	}
	if c.EODTemplate != "" {
		c.EODTemplate = testPath(c.EODTemplate)
	}
	c.MemberBCC = append([]string(nil), c.TestRecipients...)
	c.EODRecipients = append([]string(nil), c.TestRecipients...)
	c.EmailMembers = false
}

func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{
		&c.RequestsFile, &c.LogFile, &c.RequestLogFile,
		&c.MemberTemplate, &c.EODTemplate,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

func testPath(p string) string {
	return filepath.Join(filepath.Dir(p), "test_"+filepath.Base(p))
}
