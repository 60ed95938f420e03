// engine/internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port     int    `yaml:"port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Storage struct {
		SlotDir string `yaml:"slot_dir"`
		SlotKey string `yaml:"slot_key"`
		WorkDir string `yaml:"work_dir"`
	} `yaml:"storage"`

	AI struct {
		APIKeyEnv         string  `yaml:"api_key_env"`
		DiscoveryModel    string  `yaml:"discovery_model"`
		StructureModel    string  `yaml:"structure_model"`
		AuditModel        string  `yaml:"audit_model"`
		ChatModel         string  `yaml:"chat_model"`
		AuditConcurrency  int     `yaml:"audit_concurrency"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
	} `yaml:"ai"`

	Assistant struct {
		SystemInstruction string `yaml:"system_instruction"`
		Greeting          string `yaml:"greeting"`
	} `yaml:"assistant"`

	Probe struct {
		Enabled        bool `yaml:"enabled"`
		TimeoutSeconds int  `yaml:"timeout_seconds"`
	} `yaml:"probe"`

	Backup struct {
		Enabled       bool `yaml:"enabled"`
		IntervalHours int  `yaml:"interval_hours"`
		Keep          int  `yaml:"keep"`
	} `yaml:"backup"`

	Scoring struct {
		NoChatbot         int    `yaml:"no_chatbot"`
		NoBooking         int    `yaml:"no_booking"`
		NoWebsite         int    `yaml:"no_website"`
		NegativeSentiment int    `yaml:"negative_sentiment"`
		GapRules          []Rule `yaml:"gap_rules"`
	} `yaml:"scoring"`
}

// Rule adds Weight and Tag when any needle appears in a lead's market gaps.
type Rule struct {
	Tag    string   `yaml:"tag"`
	Weight int      `yaml:"weight"`
	Any    []string `yaml:"any"`
}

// Default is the built-in configuration, parsed from the embedded config.yml.
func Default() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		panic("config: embedded default is invalid: " + err.Error())
	}
	return cfg
}

// Load reads path over the defaults, so keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// Resolve returns p, or dataDir/def when p is empty. Relative paths are
// taken relative to dataDir.
func Resolve(dataDir, p, def string) string {
	if p == "" {
		p = def
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dataDir, p)
}

// Holder keeps the live config. Readers never see a partially applied reload.
type Holder struct {
	v    atomic.Value // stores Config
	path string
}

func NewHolder(path string, cfg Config) *Holder {
	h := &Holder{path: path}
	h.v.Store(cfg)
	return h
}

func (h *Holder) Get() Config  { return h.v.Load().(Config) }
func (h *Holder) Set(c Config) { h.v.Store(c) }
func (h *Holder) Path() string { return h.path }

// Reload re-reads the file; an invalid file leaves the live config unchanged.
func (h *Holder) Reload() (Config, Validation, error) {
	cfg, err := Load(h.path)
	if err != nil {
		return h.Get(), Validation{}, err
	}
	norm, v := NormalizeAndValidate(cfg)
	if !v.OK() {
		return h.Get(), v, nil
	}
	h.Set(norm)
	return norm, v, nil
}
