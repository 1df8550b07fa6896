package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"

	"github.com/autobrr/dupescan/pkg/confirm"
	"github.com/autobrr/dupescan/pkg/expression"
	"github.com/autobrr/dupescan/pkg/paths"
	"github.com/autobrr/dupescan/pkg/report"
	"github.com/autobrr/dupescan/pkg/scanerr"
)

// EnvPrefix prefixes environment overrides, e.g. DUPESCAN__SCAN__LEVEL=3.
const EnvPrefix = "DUPESCAN__"

type Configuration struct {
	Scan          ScanConfig          `yaml:"scan" koanf:"scan"`
	Filter        FilterConfig        `yaml:"filter" koanf:"filter"`
	Output        OutputConfig        `yaml:"output" koanf:"output"`
	Notifications NotificationsConfig `yaml:"notifications" koanf:"notifications"`
}

type ScanConfig struct {
	Root string `yaml:"root" koanf:"root"`
	// Exclude is added to paths.DefaultExcludes unless DefaultExcludes is off.
	Exclude         []string `yaml:"exclude" koanf:"exclude"`
	DefaultExcludes bool     `yaml:"default_excludes" koanf:"default_excludes"`
	IncludeHidden   bool     `yaml:"include_hidden" koanf:"include_hidden"`
	FollowLinks     bool     `yaml:"follow_links" koanf:"follow_links"`
	// MinSize accepts plain bytes or units, e.g. "4097" or "1 MiB".
	MinSize string `yaml:"min_size" koanf:"min_size"`
	// MinAge is in days.
	MinAge          float64       `yaml:"min_age" koanf:"min_age"`
	Level           int           `yaml:"level" koanf:"level"`
	Limit           int64         `yaml:"limit" koanf:"limit"`
	Workers         int           `yaml:"workers" koanf:"workers"`
	FileTimeout     time.Duration `yaml:"file_timeout" koanf:"file_timeout"`
	IORate          int           `yaml:"io_rate" koanf:"io_rate"`
	SampleBlockSize int           `yaml:"sample_block_size" koanf:"sample_block_size"`
	SampleBlocks    int           `yaml:"sample_blocks" koanf:"sample_blocks"`
	// Progress prints a marker every n sampled files, 0 disables it.
	Progress int `yaml:"progress" koanf:"progress"`
}

type FilterConfig struct {
	// Ignore lists expressions; matching files are left out of the scan.
	Ignore []string `yaml:"ignore" koanf:"ignore"`
}

type OutputConfig struct {
	Path   string `yaml:"path" koanf:"path"`
	Format string `yaml:"format" koanf:"format"`
	Units  string `yaml:"units" koanf:"units"`
	Quiet  bool   `yaml:"quiet" koanf:"quiet"`
}

var (
	Config *Configuration
	K      = koanf.New(".")
)

// Defaults returns the built-in settings, lowest precedence.
func Defaults() map[string]any {
	return map[string]any{
		"scan.root":              ".",
		"scan.exclude":           []string{},
		"scan.default_excludes":  true,
		"scan.include_hidden":    false,
		"scan.follow_links":      false,
		"scan.min_size":          strconv.Itoa(os.Getpagesize() + 1),
		"scan.min_age":           0,
		"scan.level":             confirm.DefaultLevel,
		"scan.limit":             0,
		"scan.workers":           0,
		"scan.file_timeout":      "10m",
		"scan.io_rate":           0,
		"scan.sample_block_size": os.Getpagesize(),
		"scan.sample_blocks":     0,
		"scan.progress":          1000,
		"output.path":            "dupescan",
		"output.format":          string(report.FormatCSV),
		"output.units":           string(report.UnitAuto),
	}
}

// Excludes returns the effective exclusion patterns.
func (c *Configuration) Excludes() []string {
	if !c.Scan.DefaultExcludes {
		return c.Scan.Exclude
	}

	out := make([]string, 0, len(paths.DefaultExcludes)+len(c.Scan.Exclude))
	out = append(out, paths.DefaultExcludes...)
	return append(out, c.Scan.Exclude...)
}

// Init loads the configuration into Config and K.
func Init(configFilePath string) error {
	cfg, err := Load(K, configFilePath)
	if err != nil {
		return err
	}

	Config = cfg
	return nil
}

// Load layers defaults, the optional YAML file and DUPESCAN__ environment
// variables into k and unmarshals the result.
func Load(k *koanf.Koanf, configFilePath string) (*Configuration, error) {
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "load defaults")
	}

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "load config file %s", configFilePath)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "load environment")
	}

	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (*Configuration, error) {
	cfg := &Configuration{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	return cfg, nil
}

// envKey maps DUPESCAN__SCAN__MIN_SIZE to scan.min_size.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// MinSizeBytes parses Scan.MinSize.
func (c *Configuration) MinSizeBytes() (int64, error) {
	if strings.TrimSpace(c.Scan.MinSize) == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(c.Scan.MinSize)
	if err != nil {
		return 0, errors.Wrapf(scanerr.ErrConfiguration, "min size %q: %v", c.Scan.MinSize, err)
	}
	return int64(n), nil
}

// Validate fails with scanerr.ErrConfiguration on the first invalid setting.
func (c *Configuration) Validate() error {
	if c.Scan.Root == "" {
		return errors.Wrap(scanerr.ErrConfiguration, "scan root must be set")
	}

	if err := confirm.ValidateLevel(c.Scan.Level); err != nil {
		return err
	}

	if _, err := c.MinSizeBytes(); err != nil {
		return err
	}

	for name, v := range map[string]float64{
		"min age":           c.Scan.MinAge,
		"limit":             float64(c.Scan.Limit),
		"workers":           float64(c.Scan.Workers),
		"file timeout":      float64(c.Scan.FileTimeout),
		"io rate":           float64(c.Scan.IORate),
		"sample block size": float64(c.Scan.SampleBlockSize),
		"sample blocks":     float64(c.Scan.SampleBlocks),
		"progress":          float64(c.Scan.Progress),
	} {
		if v < 0 {
			return errors.Wrapf(scanerr.ErrConfiguration, "%s must not be negative", name)
		}
	}

	if _, err := paths.NewExcluder(c.Excludes()); err != nil {
		return err
	}

	if _, err := expression.Compile(c.Filter.Ignore); err != nil {
		return err
	}

	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return err
	}

	if _, err := report.ParseUnit(c.Output.Units); err != nil {
		return err
	}

	return nil
}
