package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/crmsync/pkg/constants"
	"github.com/agentstation/crmsync/pkg/errors"
)

// EnvPrefix prefixes every environment variable crmsync reads.
const EnvPrefix = "CRMSYNC"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// CRM webservice
	CRMURL          string
	CRMUsername     string
	CRMAccessKey    string
	CRMModule       string
	SessionLifetime time.Duration
	HTTPTimeout     time.Duration

	// Ledger store: a CSV directory when set, the spreadsheet otherwise
	LedgerDir             string
	SpreadsheetID         string
	SheetsCredentialsFile string
	SheetsTimeout         time.Duration

	// Mapping file, the built-in mapping when empty
	MappingFile string

	// Pass journal
	JournalEnabled bool
	JournalPath    string

	// Logging configuration
	LogLevel  string // --log-level flag only
	EnvLevel  string // log.level from config or environment
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (CRMSYNC_CRM_URL for crm.url)
// 3. .env files
// 4. Config file (~/.crmsync.yaml, or configFile when set)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, &errors.ConfigError{Component: "config", Message: "cannot read " + configFile, Err: err}
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".crmsync")

		// A missing default config file is fine
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, &errors.ConfigError{Component: "config", Message: "cannot read config file", Err: err}
			}
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no-color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		CRMURL:          v.GetString("crm.url"),
		CRMUsername:     v.GetString("crm.username"),
		CRMAccessKey:    v.GetString("crm.access_key"),
		CRMModule:       v.GetString("crm.module"),
		SessionLifetime: v.GetDuration("crm.session_lifetime"),
		HTTPTimeout:     v.GetDuration("crm.timeout"),

		LedgerDir:             v.GetString("ledger.dir"),
		SpreadsheetID:         v.GetString("sheets.spreadsheet_id"),
		SheetsCredentialsFile: v.GetString("sheets.credentials_file"),
		SheetsTimeout:         v.GetDuration("sheets.timeout"),

		MappingFile: v.GetString("mapping.file"),

		JournalEnabled: v.GetBool("journal.enabled"),
		JournalPath:    v.GetString("journal.path"),

		EnvLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
		LogOutput: v.GetString("log.output"),
	}

	if config.JournalPath == "" {
		config.JournalPath = defaultJournalPath()
	}

	return config, nil
}

// setDefaults registers the default of every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("crm.module", constants.DefaultModule)
	v.SetDefault("crm.session_lifetime", constants.DefaultSessionLifetime)
	v.SetDefault("crm.timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("sheets.timeout", constants.DefaultSheetsTimeout)
	v.SetDefault("journal.enabled", true)
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	c.LogLevel = logLevel
}

// Endpoint returns the webservice URL derived from the CRM base URL.
func (c *Config) Endpoint() (string, error) {
	if c.CRMURL == "" {
		return "", &errors.ConfigError{Component: "crm", Message: "crm.url is required (CRMSYNC_CRM_URL)"}
	}
	url := strings.TrimRight(c.CRMURL, "/")
	if strings.HasSuffix(url, constants.WebservicePath) {
		return url, nil
	}
	return url + constants.WebservicePath, nil
}

// validateCRM checks the settings a CRM session needs.
func (c *Config) validateCRM() error {
	if _, err := c.Endpoint(); err != nil {
		return err
	}
	if c.CRMUsername == "" {
		return &errors.ConfigError{Component: "crm", Message: "crm.username is required (CRMSYNC_CRM_USERNAME)"}
	}
	if c.CRMAccessKey == "" {
		return &errors.ConfigError{Component: "crm", Message: "crm.access_key is required (CRMSYNC_CRM_ACCESS_KEY)"}
	}
	return nil
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local overrides .env
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// defaultJournalPath places the journal under the user's home directory.
func defaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".crmsync", "journal.db")
	}
	return filepath.Join(home, ".crmsync", "journal.db")
}
