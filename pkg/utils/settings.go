package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Database drivers understood by the message store
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Settings is the explicit, typed configuration built once at startup and
// passed by reference into the components that need it
type Settings struct {
	// HTTP boundary
	Port               string
	APIKey             string
	CORSAllowedOrigins []string

	// Message store
	DatabaseDriver string
	DatabasePath   string
	MySQL          mysql.Config
	CheckpointSpec string

	// Lookup client and aggregator
	NVDBaseURL    string
	NVDAPIKey     string
	LookupTimeout time.Duration
	MaxParallel   int

	// Agent and chat
	Model         string
	SysPromptPath string
	Debounce      time.Duration
}

// LoadSettings reads the typed settings out of a Config, applying defaults
func LoadSettings(cfg *Config) (*Settings, error) {
	s := &Settings{
		Port:               cfg.GetWithDefault("API_PORT", "8080"),
		APIKey:             cfg.Get("API_KEY"),
		CORSAllowedOrigins: strings.Split(cfg.GetWithDefault("CORS_ALLOWED_ORIGINS", "*"), ","),

		DatabaseDriver: strings.ToLower(cfg.GetWithDefault("DATABASE_DRIVER", DriverSQLite)),
		DatabasePath:   cfg.GetWithDefault("DATABASE_PATH", ".chat_app_messages.sqlite"),
		MySQL:          *mysql.NewConfig(),
		CheckpointSpec: cfg.GetWithDefault("STORE_CHECKPOINT_CRON", "@hourly"),

		NVDBaseURL:    cfg.Get("NVD_BASE_URL"),
		NVDAPIKey:     cfg.Get("NVD_API_KEY"),
		LookupTimeout: cfg.GetDurationWithDefault("LOOKUP_TIMEOUT", 60*time.Second),
		MaxParallel:   cfg.GetIntWithDefault("AGGREGATOR_MAX_PARALLEL", 0),

		Model:         cfg.GetWithDefault("MODEL", "gpt-4.1"),
		SysPromptPath: cfg.Get("VULN_SYSPROMPT_PATH"),
		Debounce:      cfg.GetDurationWithDefault("CHAT_DEBOUNCE", 10*time.Millisecond),
	}

	s.MySQL.User = cfg.Get("MYSQL_USER")
	s.MySQL.Passwd = cfg.Get("MYSQL_PASSWORD")
	s.MySQL.Net = "tcp"
	s.MySQL.Addr = fmt.Sprintf("%s:%s", cfg.GetWithDefault("MYSQL_HOST", "127.0.0.1"), cfg.GetWithDefault("MYSQL_PORT", "3306"))
	s.MySQL.DBName = cfg.Get("MYSQL_DATABASE")
	s.MySQL.ParseTime = true

	// "none" disables the scheduled checkpoint
	if strings.EqualFold(s.CheckpointSpec, "none") {
		s.CheckpointSpec = ""
	}

	switch s.DatabaseDriver {
	case DriverSQLite:
		if s.DatabasePath == "" {
			return nil, fmt.Errorf("DATABASE_PATH must not be empty for the sqlite driver")
		}
	case DriverMySQL:
		if s.MySQL.DBName == "" {
			return nil, fmt.Errorf("MYSQL_DATABASE not set in environment")
		}
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", s.DatabaseDriver)
	}

	if s.LookupTimeout <= 0 {
		return nil, fmt.Errorf("LOOKUP_TIMEOUT must be positive, got %s", s.LookupTimeout)
	}
	if s.MaxParallel < 0 {
		return nil, fmt.Errorf("AGGREGATOR_MAX_PARALLEL must not be negative, got %d", s.MaxParallel)
	}
	if s.Debounce < 0 {
		return nil, fmt.Errorf("CHAT_DEBOUNCE must not be negative, got %s", s.Debounce)
	}

	return s, nil
}

// DSN returns the MySQL data source name for the configured database
func (s *Settings) DSN() string {
	return s.MySQL.FormatDSN()
}
