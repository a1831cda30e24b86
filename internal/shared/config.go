package shared

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Scan struct {
		SeverityThreshold string   `yaml:"severity_threshold"` // critical|high|medium|low
		Categories        []string `yaml:"categories"`         // subset of the five; empty = all
		Languages         []string `yaml:"languages"`          // empty = auto-detect everything
		Ignore            []string `yaml:"ignore"`             // extra ignore patterns
		RulePacks         []string `yaml:"rule_packs"`         // extra catalog paths, in precedence order
		Workers           int      `yaml:"workers"`            // 0 = NumCPU
	} `yaml:"scan"`

	Reporting struct {
		Format string `yaml:"format"` // "human"|"structured"
		OutDir string `yaml:"out_dir"`
	} `yaml:"reporting"`

	Database struct {
		DSN string `yaml:"dsn"` // "" = no run history
	} `yaml:"database"`

	API struct {
		Addr            string   `yaml:"addr"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
		SessionDuration string   `yaml:"session_duration"` // Go duration, e.g. "12h"
	} `yaml:"api"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`
}

func DefaultConfig() Config {
	var c Config
	c.Scan.SeverityThreshold = "high"
	c.Reporting.Format = "human"
	c.Reporting.OutDir = "./reports"
	c.API.Addr = ":8787"
	c.API.SessionDuration = "12h"
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	return c
}

// LoadConfig reads an optional YAML config and applies env overrides.
// A .env file next to the working directory is honored if present.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	c := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if v := os.Getenv("AVASTSCAN_THRESHOLD"); v != "" {
		c.Scan.SeverityThreshold = v
	}
	if v := os.Getenv("AVASTSCAN_FORMAT"); v != "" {
		c.Reporting.Format = v
	}
	if v := os.Getenv("AVASTSCAN_OUT_DIR"); v != "" {
		c.Reporting.OutDir = v
	}
	if v := os.Getenv("AVASTSCAN_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("AVASTSCAN_API_ADDR"); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv("AVASTSCAN_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("AVASTSCAN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("AVASTSCAN_RULE_PACKS"); v != "" {
		c.Scan.RulePacks = splitList(v)
	}
	return c, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
