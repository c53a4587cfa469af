// Package config loads the optional pgjson.yaml project file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// DefaultPath is where the CLI looks when --config is not given.
const DefaultPath = "pgjson.yaml"

type ConnectionConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Database       string `yaml:"database"`
	SSLMode        string `yaml:"sslmode"`
	SSLCert        string `yaml:"sslcert,omitempty"`
	SSLKey         string `yaml:"sslkey,omitempty"`
	SSLRootCert    string `yaml:"sslrootcert,omitempty"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

// ImportConfig holds import defaults. Booleans are pointers so that an
// absent key can be told apart from an explicit false.
type ImportConfig struct {
	Prefix           string `yaml:"prefix,omitempty"`
	Schema           string `yaml:"schema,omitempty"`
	TargetSchema     string `yaml:"target_schema,omitempty"`
	Table            string `yaml:"table,omitempty"`
	CleanupOnFailure *bool  `yaml:"cleanup_on_failure,omitempty"`
	Validate         *bool  `yaml:"validate,omitempty"`
	History          *bool  `yaml:"history,omitempty"`
}

type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Import     ImportConfig     `yaml:"import"`
	Timeout    string           `yaml:"timeout"`
}

// TimeoutDuration parses Timeout. An empty value yields zero.
func (p *ProjectConfig) TimeoutDuration() (time.Duration, error) {
	if p == nil || p.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", p.Timeout, err)
	}
	return d, nil
}

// Load reads and decodes the file at path. Unknown keys are rejected so that
// typos surface instead of being silently ignored.
func Load(path string) (*ProjectConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	defer f.Close()

	var cfg ProjectConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// BoolOr dereferences b, falling back to def when b is nil.
func BoolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
