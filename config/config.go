package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/gridsim/core/metrics"
	"github.com/kilianp07/gridsim/core/runlog"
	"github.com/kilianp07/gridsim/core/scheduler"
	"github.com/kilianp07/gridsim/infra/mqtt"
	"github.com/kilianp07/gridsim/infra/solver"
)

type Config struct {
	Solver    solver.Config            `json:"solver"`
	Run       RunConfig                `json:"run"`
	Artifacts scheduler.ArtifactConfig `json:"artifacts"`
	Metrics   metrics.Config           `json:"metrics"`
	RunLog    runlog.Config            `json:"runlog"`
	Store     StoreConfig              `json:"store"`
	MQTT      mqtt.Config              `json:"mqtt"`
	Sentry    SentryConfig             `json:"sentry"`
	API       APIConfig                `json:"api"`
}

// APIConfig protects the run log endpoint served next to /metrics.
type APIConfig struct {
	Token string `json:"token"`
}

// Load reads a YAML or JSON file, applies K_ prefixed environment
// overrides (K_SOLVER__MAX_PARALLEL=4), then defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if cfg.Run.RangesFile != "" && !filepath.IsAbs(cfg.Run.RangesFile) {
		cfg.Run.RangesFile = filepath.Join(filepath.Dir(path), cfg.Run.RangesFile)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Solver.SetDefaults()
	c.Run.SetDefaults()
	c.RunLog.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section and joins the errors.
func (c Config) Validate() error {
	var errs []error
	wrap := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	wrap("solver", c.Solver.Validate())
	wrap("run", c.Run.Validate())
	wrap("metrics", c.Metrics.Validate())
	wrap("runlog", c.RunLog.Validate())
	wrap("mqtt", c.MQTT.Validate())
	wrap("sentry", c.Sentry.Validate())
	return errors.Join(errs...)
}
