// Package config provides application configuration management with support for
// environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App          AppConfig
	Logger       LoggerConfig
	Library      LibraryConfig
	Database     DatabaseConfig
	Server       ServerConfig
	Segmentation SegmentationConfig
	Scanner      ScannerConfig
	Watcher      WatcherConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// LibraryConfig holds the EDF archive configuration.
type LibraryConfig struct {
	// EDFPath is the directory holding the EDF recordings.
	EDFPath string
	// StateFile tracks the last completed scan for incremental rescans.
	StateFile string
}

// DatabaseConfig holds catalog database configuration.
type DatabaseConfig struct {
	// Path is the SQLite database file. Segment payload files are written
	// next to it under segments/.
	Path string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SegmentationConfig holds the default segmentation engine settings.
// Per-call overrides are accepted by the API; there is no process-wide
// mutable state.
type SegmentationConfig struct {
	// MinSegmentDuration is the shortest segment kept, in seconds.
	MinSegmentDuration float64
	// Workers bounds the worker pool for interior-window computation.
	Workers int
	// Mode selects boundary, pairs, or grouped segmentation.
	Mode string
	// ShortNames enables the truncated-prefix naming policy.
	ShortNames bool
}

// ScannerConfig holds library scan settings.
type ScannerConfig struct {
	Workers int
	// ExcludeChannels are channel labels dropped when reading recordings.
	ExcludeChannels []string
}

// WatcherConfig holds filesystem watcher settings.
type WatcherConfig struct {
	Enabled  bool
	Debounce time.Duration
}

// LoadConfig loads configuration with precedence:
// command-line flags > environment variables > .env file > defaults.
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	edfPath := flag.String("edf-path", "", "Path to the EDF recording archive")
	dbPath := flag.String("db-path", "", "Path to the SQLite catalog database")
	stateFile := flag.String("state-file", "", "Path to the scan state file")
	serverName := flag.String("server-name", "", "Name for the server")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	minSegDuration := flag.String("min-segment-duration", "", "Minimum segment duration in seconds (default: 5.0)")
	segWorkers := flag.String("segment-workers", "", "Segmentation worker pool size (default: 4)")
	segMode := flag.String("segment-mode", "", "Segmentation mode: boundary, pairs, grouped (default: pairs)")
	shortNames := flag.String("short-names", "", "Use truncated-prefix segment names (default: false)")

	scanWorkers := flag.String("scan-workers", "", "Scanner worker pool size (default: number of CPUs)")
	excludeChannels := flag.String("exclude-channels", "", "Comma-separated channel labels to drop")

	watchEnabled := flag.String("watch", "", "Watch the EDF directory for changes (default: true)")
	watchDebounce := flag.String("watch-debounce", "", "Watcher debounce interval (default: 5s)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env if present; silently ignore a missing file.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Library: LibraryConfig{
			EDFPath:   getConfigValue(*edfPath, "EDF_PATH", ""),
			StateFile: getConfigValue(*stateFile, "SCAN_STATE_FILE", ""),
		},
		Database: DatabaseConfig{
			Path: getConfigValue(*dbPath, "DB_PATH", ""),
		},
		Server: ServerConfig{
			Name: getConfigValue(*serverName, "SERVER_NAME", "NeuroVault Server"),
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Segmentation: SegmentationConfig{
			MinSegmentDuration: getFloatConfigValue(*minSegDuration, "MIN_SEGMENT_DURATION", 5.0),
			Workers:            getIntConfigValue(*segWorkers, "SEGMENT_WORKERS", 4),
			Mode:               getConfigValue(*segMode, "SEGMENT_MODE", "pairs"),
			ShortNames:         getBoolConfigValue(*shortNames, "SEGMENT_SHORT_NAMES", false),
		},
		Scanner: ScannerConfig{
			Workers:         getIntConfigValue(*scanWorkers, "SCAN_WORKERS", 0),
			ExcludeChannels: splitList(getConfigValue(*excludeChannels, "EXCLUDE_CHANNELS", "ECG  ECG")),
		},
		Watcher: WatcherConfig{
			Enabled: getBoolConfigValue(*watchEnabled, "WATCH_ENABLED", true),
		},
	}

	var err error
	cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	cfg.Watcher.Debounce, err = parseDurationValue(*watchDebounce, "WATCH_DEBOUNCE", "5s")
	if err != nil {
		return nil, err
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Database.Path == "" {
		return errors.New("database path cannot be empty after expansion")
	}

	if c.Segmentation.MinSegmentDuration < 0 {
		return fmt.Errorf("minimum segment duration cannot be negative: %g", c.Segmentation.MinSegmentDuration)
	}
	if c.Segmentation.Workers < 1 {
		return fmt.Errorf("segmentation workers must be at least 1: %d", c.Segmentation.Workers)
	}

	validModes := map[string]bool{
		"boundary": true,
		"pairs":    true,
		"grouped":  true,
	}
	if !validModes[c.Segmentation.Mode] {
		return fmt.Errorf("invalid segmentation mode: %s (must be boundary, pairs, or grouped)", c.Segmentation.Mode)
	}

	// EDFPath may be empty; scans can be triggered against explicit paths.

	return nil
}

// expandPaths expands ~ and applies defaults derived from the home directory.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	base := filepath.Join(homeDir, "NeuroVault")

	c.Database.Path, err = expandPath(c.Database.Path, filepath.Join(base, "catalog.db"))
	if err != nil {
		return fmt.Errorf("invalid database path: %w", err)
	}

	if c.Library.EDFPath != "" {
		c.Library.EDFPath, err = expandPath(c.Library.EDFPath, "")
		if err != nil {
			return fmt.Errorf("invalid EDF path: %w", err)
		}
	}

	c.Library.StateFile, err = expandPath(c.Library.StateFile, filepath.Join(base, "scan-state.yaml"))
	if err != nil {
		return fmt.Errorf("invalid state file path: %w", err)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is used verbatim.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns a string from flag, env var, or default, in that order.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts "true", "1", "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// parseDurationValue parses a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(strings.ReplaceAll(envKey, "_", " ")), strValue, err)
	}
	return d, nil
}

// splitList splits a comma-separated list, trimming whitespace-only entries
// but preserving interior whitespace (EDF channel labels are space-padded).
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Real environment variables win over .env entries.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
