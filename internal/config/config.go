package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for a benchmark run.
type Config struct {
	NumSnapshots    int           `yaml:"numSnapshots"`
	Output          string        `yaml:"output"`
	SizeGB          int           `yaml:"sizeGB"`
	AMICSV          string        `yaml:"amiCSV"`
	Region          string        `yaml:"region"`
	Profile         string        `yaml:"profile"`
	WaitTimeout     time.Duration `yaml:"waitTimeout"`
	FastRestore     bool          `yaml:"fastRestore"`
	CopyRegion      string        `yaml:"copyRegion"`
	DataDir         string        `yaml:"dataDir"`
	FilePrefix      string        `yaml:"filePrefix"`
	IMDSEndpoint    string        `yaml:"imdsEndpoint"`
	MetadataTimeout time.Duration `yaml:"metadataTimeout"`
	LogLevel        string        `yaml:"logLevel"`
}

const (
	// DefaultIMDSEndpoint is the link-local instance metadata address.
	DefaultIMDSEndpoint = "http://169.254.169.254"

	// DefaultWaitTimeout matches a 40 attempt, 15 second poll budget.
	DefaultWaitTimeout = 40 * 15 * time.Second
)

// Default returns the settings used when neither a config file nor flags override them.
func Default() Config {
	return Config{
		NumSnapshots:    1,
		Output:          "snapshot_results.csv",
		SizeGB:          10,
		AMICSV:          "ami_results.csv",
		WaitTimeout:     DefaultWaitTimeout,
		FastRestore:     true,
		DataDir:         "/tmp",
		FilePrefix:      "aws-snapshot-profiler",
		IMDSEndpoint:    DefaultIMDSEndpoint,
		MetadataTimeout: 5 * time.Second,
		LogLevel:        "info",
	}
}

// LoadFile overlays the YAML document at path onto cfg.
// Keys missing from the file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config file %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

// Validate checks that the configuration can drive a run.
func (c Config) Validate() error {
	var problems []string
	if c.NumSnapshots < 1 {
		problems = append(problems, fmt.Sprintf("num-snapshots must be at least 1, got %d", c.NumSnapshots))
	}
	if c.SizeGB < 1 {
		problems = append(problems, fmt.Sprintf("size must be at least 1 GB, got %d", c.SizeGB))
	}
	if strings.TrimSpace(c.Output) == "" {
		problems = append(problems, "output CSV path must not be empty")
	}
	if strings.TrimSpace(c.AMICSV) == "" {
		problems = append(problems, "ami-csv path must not be empty")
	}
	if c.WaitTimeout <= 0 {
		problems = append(problems, "wait-timeout must be positive")
	}
	if c.MetadataTimeout <= 0 {
		problems = append(problems, "metadata timeout must be positive")
	}
	if c.DataDir == "" {
		problems = append(problems, "data-dir must not be empty")
	}
	if len(problems) > 0 {
		return errors.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
