// Package config loads server settings from an optional .env file, an
// optional TOML file named by WALL_CONFIG, and WALL_* environment variables,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/alfredjeanlab/guestwall/internal/censor"
)

type Config struct {
	HTTPAddr         string        `toml:"http_addr"`          // WALL_HTTP_ADDR (default ":8080")
	NATSURL          string        `toml:"nats_url"`           // WALL_NATS_URL (empty = in-process bus)
	EmbeddedNATS     bool          `toml:"embedded_nats"`      // WALL_EMBEDDED_NATS (start a nats-server in process)
	EmbeddedNATSPort int           `toml:"embedded_nats_port"` // WALL_EMBEDDED_NATS_PORT (default 4222; -1 = random)
	DatabaseURL      string        `toml:"database_url"`       // WALL_DATABASE_URL (empty = in-memory directory)
	AdminToken       string        `toml:"admin_token"`        // WALL_ADMIN_TOKEN (empty = admin routes open)
	MaxMessageLength int           `toml:"max_message_length"` // WALL_MAX_MESSAGE_LENGTH (default 500)
	BlockedWords     []string      `toml:"blocked_words"`      // WALL_BLOCKED_WORDS (comma separated)
	MaskChar         string        `toml:"mask_char"`          // WALL_MASK_CHAR (default "*")
	ScreenTimeout    time.Duration `toml:"screen_timeout"`     // WALL_SCREEN_TIMEOUT (default 2m)
	LogLevel         string        `toml:"log_level"`          // WALL_LOG_LEVEL (default "info")

	Archive ArchiveConfig `toml:"archive"`
}

// ArchiveConfig selects where walls are exported. Any number of destinations
// may be enabled; Interval 0 disables archiving.
type ArchiveConfig struct {
	Interval   time.Duration `toml:"interval"`    // WALL_ARCHIVE_INTERVAL (default 0)
	S3Bucket   string        `toml:"s3_bucket"`   // WALL_ARCHIVE_S3_BUCKET (enables S3 when set)
	S3Endpoint string        `toml:"s3_endpoint"` // WALL_ARCHIVE_S3_ENDPOINT (custom endpoint for MinIO)
	S3Region   string        `toml:"s3_region"`   // WALL_ARCHIVE_S3_REGION (default "us-east-1")
	S3Prefix   string        `toml:"s3_prefix"`   // WALL_ARCHIVE_S3_PREFIX (default "guestwall/")
	Dir        string        `toml:"dir"`         // WALL_ARCHIVE_DIR (enables local files when set)
	GitRepo    string        `toml:"git_repo"`    // WALL_ARCHIVE_GIT_REPO (enables git when set; path to clone)
	GitDir     string        `toml:"git_dir"`     // WALL_ARCHIVE_GIT_DIR (default "walls")
	GitBranch  string        `toml:"git_branch"`  // WALL_ARCHIVE_GIT_BRANCH (default "main")
}

// Enabled reports whether the archive scheduler should run.
func (a ArchiveConfig) Enabled() bool {
	return a.Interval > 0
}

func defaults() *Config {
	return &Config{
		HTTPAddr:         ":8080",
		EmbeddedNATSPort: 4222,
		MaxMessageLength: 500,
		MaskChar:         "*",
		ScreenTimeout:    2 * time.Minute,
		LogLevel:         "info",
		Archive: ArchiveConfig{
			S3Region:  "us-east-1",
			S3Prefix:  "guestwall/",
			GitDir:    "walls",
			GitBranch: "main",
		},
	}
}

// Load reads .env from the working directory if present, then LoadFile with
// WALL_CONFIG.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return LoadFile(os.Getenv("WALL_CONFIG"))
}

// LoadFile applies defaults, the TOML file at path (skipped when empty), and
// environment overrides, then validates the result.
func LoadFile(path string) (*Config, error) {
	c := defaults()
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	if err := applyEnv(c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func applyEnv(c *Config) error {
	c.HTTPAddr = envOrDefault("WALL_HTTP_ADDR", c.HTTPAddr)
	c.NATSURL = envOrDefault("WALL_NATS_URL", c.NATSURL)
	c.DatabaseURL = envOrDefault("WALL_DATABASE_URL", c.DatabaseURL)
	c.AdminToken = envOrDefault("WALL_ADMIN_TOKEN", c.AdminToken)
	c.MaskChar = envOrDefault("WALL_MASK_CHAR", c.MaskChar)
	c.LogLevel = envOrDefault("WALL_LOG_LEVEL", c.LogLevel)
	if v := os.Getenv("WALL_BLOCKED_WORDS"); v != "" {
		c.BlockedWords = censor.ParseWords(v)
	}

	a := &c.Archive
	a.S3Bucket = envOrDefault("WALL_ARCHIVE_S3_BUCKET", a.S3Bucket)
	a.S3Endpoint = envOrDefault("WALL_ARCHIVE_S3_ENDPOINT", a.S3Endpoint)
	a.S3Region = envOrDefault("WALL_ARCHIVE_S3_REGION", a.S3Region)
	a.S3Prefix = envOrDefault("WALL_ARCHIVE_S3_PREFIX", a.S3Prefix)
	a.Dir = envOrDefault("WALL_ARCHIVE_DIR", a.Dir)
	a.GitRepo = envOrDefault("WALL_ARCHIVE_GIT_REPO", a.GitRepo)
	a.GitDir = envOrDefault("WALL_ARCHIVE_GIT_DIR", a.GitDir)
	a.GitBranch = envOrDefault("WALL_ARCHIVE_GIT_BRANCH", a.GitBranch)

	var err error
	if c.EmbeddedNATS, err = envBool("WALL_EMBEDDED_NATS", c.EmbeddedNATS); err != nil {
		return err
	}
	if c.EmbeddedNATSPort, err = envInt("WALL_EMBEDDED_NATS_PORT", c.EmbeddedNATSPort); err != nil {
		return err
	}
	if c.MaxMessageLength, err = envInt("WALL_MAX_MESSAGE_LENGTH", c.MaxMessageLength); err != nil {
		return err
	}
	if c.ScreenTimeout, err = envDuration("WALL_SCREEN_TIMEOUT", c.ScreenTimeout); err != nil {
		return err
	}
	if a.Interval, err = envDuration("WALL_ARCHIVE_INTERVAL", a.Interval); err != nil {
		return err
	}
	return nil
}

func (c *Config) validate() error {
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("WALL_MAX_MESSAGE_LENGTH must be positive, got %d", c.MaxMessageLength)
	}
	if utf8.RuneCountInString(c.MaskChar) != 1 {
		return fmt.Errorf("WALL_MASK_CHAR must be a single character, got %q", c.MaskChar)
	}
	if c.EmbeddedNATS && c.NATSURL != "" {
		return errors.New("WALL_EMBEDDED_NATS and WALL_NATS_URL are mutually exclusive")
	}
	if c.ScreenTimeout < 0 || c.Archive.Interval < 0 {
		return errors.New("durations must not be negative")
	}
	if c.Archive.Enabled() && c.Archive.S3Bucket == "" && c.Archive.Dir == "" && c.Archive.GitRepo == "" {
		return errors.New("WALL_ARCHIVE_INTERVAL is set but no archive destination is configured")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Mask returns MaskChar as a rune.
func (c *Config) Mask() rune {
	r, _ := utf8.DecodeRuneInString(c.MaskChar)
	return r
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("WALL_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
