package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	OutputDir    string   `yaml:"output_dir"`
	Application  string   `yaml:"application"`
	SearchRoots  []string `yaml:"search_roots"`
	ArchiveRoots []string `yaml:"archive_roots"`
	BackupDays   int      `yaml:"backup_days"`
	LogDays      int      `yaml:"log_days"`
	PushDest     string   `yaml:"push_dest"`
	LogLevel     string   `yaml:"log_level"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/qcmet/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		OutputDir:    "/gt/data/seqdma/GTwebMetricsTables",
		Application:  "speciesid",
		SearchRoots:  []string{"/gt/data/seqdma/qifa"},
		ArchiveRoots: []string{"/gt/data/seqdma/.qifa.qc-archive"},
		BackupDays:   10,
		LogDays:      1,
		PushDest:     "ctgenometech03:/srv/shiny-server/.InputDatabase",
		LogLevel:     "info",
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// Load ~/.config/qcmet/config.yaml if it exists
	if err := loadYAMLConfig(cfg); err != nil {
		// YAML config is optional, so we don't fail if it doesn't exist
	}

	// Override with environment variables
	if outputDir := os.Getenv("QCMET_OUTPUT_DIR"); outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if app := os.Getenv("QCMET_APPLICATION"); app != "" {
		cfg.Application = app
	}
	if roots := os.Getenv("QCMET_SEARCH_ROOTS"); roots != "" {
		cfg.SearchRoots = filepath.SplitList(roots)
	}
	if roots := os.Getenv("QCMET_ARCHIVE_ROOTS"); roots != "" {
		cfg.ArchiveRoots = filepath.SplitList(roots)
	}
	if days := os.Getenv("QCMET_BACKUP_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil {
			cfg.BackupDays = n
		}
	}
	if days := os.Getenv("QCMET_LOG_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil {
			cfg.LogDays = n
		}
	}
	if dest := os.Getenv("QCMET_PUSH_DEST"); dest != "" {
		cfg.PushDest = dest
	}
	if logLevel := os.Getenv("QCMET_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("output directory not configured (set QCMET_OUTPUT_DIR)")
	}
	if cfg.Application == "" {
		return nil, fmt.Errorf("application tag not configured (set QCMET_APPLICATION)")
	}

	return cfg, nil
}

// RootsFor returns the search roots for this invocation. The first run (empty
// success ledger) also walks the archive roots; later runs only revisit the
// active roots.
func (c *Config) RootsFor(firstRun bool) []string {
	if firstRun {
		roots := make([]string, 0, len(c.SearchRoots)+len(c.ArchiveRoots))
		roots = append(roots, c.SearchRoots...)
		roots = append(roots, c.ArchiveRoots...)
		return roots
	}
	return append([]string(nil), c.SearchRoots...)
}

// ReportSuffix returns the report filename suffix for the configured application
func (c *Config) ReportSuffix() string {
	return fmt.Sprintf("QCreport.%s.csv", c.Application)
}

// MetricsFile returns the path of the canonical metrics table
func (c *Config) MetricsFile() string {
	return filepath.Join(c.OutputDir, fmt.Sprintf("%s.metrics.csv", c.Application))
}

// SuccessLedger returns the path of the processed-folder success ledger
func (c *Config) SuccessLedger() string {
	return filepath.Join(c.OutputDir, fmt.Sprintf(".%s.QCDir.update.txt", c.Application))
}

// FailLedger returns the path of the processed-folder fail ledger
func (c *Config) FailLedger() string {
	return filepath.Join(c.OutputDir, fmt.Sprintf(".%s.QCDir.ToCollectQC.txt", c.Application))
}

// BackupDir returns the directory holding dated backups of the metrics table
func (c *Config) BackupDir() string {
	return filepath.Join(c.OutputDir, ".GTmetricsbackup")
}

// LogDir returns the directory holding auxiliary scheduler logs
func (c *Config) LogDir() string {
	return filepath.Join(c.OutputDir, ".slurmlog")
}

// DBFile returns the path of the SQLite mirror of the metrics table
func (c *Config) DBFile() string {
	return filepath.Join(c.OutputDir, "metrics.db")
}

// WatchStateFile returns the path of the persisted watch-intent record
func (c *Config) WatchStateFile() string {
	return filepath.Join(c.OutputDir, ".qcmet.watcher.json")
}

// DaemonLogFile returns the path of the watch daemon's rotating log
func (c *Config) DaemonLogFile() string {
	return filepath.Join(c.OutputDir, ".qcmetd.log")
}

// loadYAMLConfig loads configuration from ~/.config/qcmet/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "qcmet", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, just check cwd
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Clean paths for reliable comparison
	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		// Stop if we've reached home directory
		if dir == homeDir {
			break
		}

		// Get parent directory
		parent := filepath.Dir(dir)

		// Stop if we've reached the filesystem root
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
