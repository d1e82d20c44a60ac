package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tabprep/internal/export"
	"github.com/KaramelBytes/tabprep/internal/logging"
	"github.com/KaramelBytes/tabprep/internal/prep"
	"github.com/KaramelBytes/tabprep/internal/source"
)

// Global configuration structure.
type Global struct {
	// Reading sources
	Delimiter          string   `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator   string   `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string   `mapstructure:"thousands_separator" yaml:"thousands_separator"`
	NullTokens         []string `mapstructure:"null_tokens" yaml:"null_tokens"`

	// Strategies used by non-interactive runs; empty picks the first
	// non-cancel choice of each stage.
	MissingStrategy  string `mapstructure:"missing_strategy" yaml:"missing_strategy"`
	FillConstant     string `mapstructure:"fill_constant" yaml:"fill_constant"`
	EncodingStrategy string `mapstructure:"encoding_strategy" yaml:"encoding_strategy"`
	ScalingStrategy  string `mapstructure:"scaling_strategy" yaml:"scaling_strategy"`
	OutlierStrategy  string `mapstructure:"outlier_strategy" yaml:"outlier_strategy"`

	// Export
	ExportFormat string `mapstructure:"export_format" yaml:"export_format"`
	ExportDir    string `mapstructure:"export_dir" yaml:"export_dir"`

	// Views
	SampleRows    int `mapstructure:"sample_rows" yaml:"sample_rows"`
	HistogramBins int `mapstructure:"histogram_bins" yaml:"histogram_bins"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Dir returns ~/.tabprep.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tabprep"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabprep/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TABPREP")
	v.AutomaticEnv()

	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("thousands_separator", "")
	v.SetDefault("null_tokens", source.DefaultNullTokens)
	v.SetDefault("missing_strategy", "")
	v.SetDefault("fill_constant", "0")
	v.SetDefault("encoding_strategy", "")
	v.SetDefault("scaling_strategy", "")
	v.SetDefault("outlier_strategy", "")
	v.SetDefault("export_format", string(export.FormatCSV))
	v.SetDefault("export_dir", ".")
	v.SetDefault("sample_rows", 5)
	v.SetDefault("histogram_bins", 20)
	v.SetDefault("log_level", logging.DefaultLevel)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"delimiter", "decimal_separator", "thousands_separator", "null_tokens",
	"missing_strategy", "fill_constant", "encoding_strategy", "scaling_strategy", "outlier_strategy",
	"export_format", "export_dir", "sample_rows", "histogram_bins", "log_level",
}

// Get renders the value of key for display.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "delimiter":
		return c.Delimiter, nil
	case "decimal_separator":
		return c.DecimalSeparator, nil
	case "thousands_separator":
		return c.ThousandsSeparator, nil
	case "null_tokens":
		quoted := make([]string, len(c.NullTokens))
		for i, t := range c.NullTokens {
			quoted[i] = strconv.Quote(t)
		}
		return strings.Join(quoted, ","), nil
	case "missing_strategy":
		return c.MissingStrategy, nil
	case "fill_constant":
		return c.FillConstant, nil
	case "encoding_strategy":
		return c.EncodingStrategy, nil
	case "scaling_strategy":
		return c.ScalingStrategy, nil
	case "outlier_strategy":
		return c.OutlierStrategy, nil
	case "export_format":
		return c.ExportFormat, nil
	case "export_dir":
		return c.ExportDir, nil
	case "sample_rows":
		return strconv.Itoa(c.SampleRows), nil
	case "histogram_bins":
		return strconv.Itoa(c.HistogramBins), nil
	case "log_level":
		return c.LogLevel, nil
	}
	return "", fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(sortedKeys(), ", "))
}

// Set validates val and assigns it to key.
func (c *Global) Set(key, val string) error {
	switch key {
	case "delimiter":
		if _, err := Rune(val); err != nil {
			return fmt.Errorf("invalid delimiter: %w", err)
		}
		c.Delimiter = val
	case "decimal_separator", "thousands_separator":
		if _, err := Rune(val); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if key == "decimal_separator" {
			c.DecimalSeparator = val
		} else {
			c.ThousandsSeparator = val
		}
	case "null_tokens":
		var toks []string
		for _, t := range strings.Split(val, ",") {
			toks = append(toks, strings.TrimSpace(t))
		}
		c.NullTokens = toks
	case "missing_strategy":
		if _, err := prep.ParseMissingStrategy(val, c.FillConstant); err != nil {
			return err
		}
		c.MissingStrategy = val
	case "fill_constant":
		if _, err := prep.ParseConstant(val); err != nil {
			return err
		}
		c.FillConstant = val
	case "encoding_strategy":
		if _, err := prep.ParseEncodingStrategy(val); err != nil {
			return err
		}
		c.EncodingStrategy = val
	case "scaling_strategy":
		if _, err := prep.ParseScalingStrategy(val); err != nil {
			return err
		}
		c.ScalingStrategy = val
	case "outlier_strategy":
		if _, err := prep.ParseOutlierStrategy(val); err != nil {
			return err
		}
		c.OutlierStrategy = val
	case "export_format":
		f, err := export.ParseFormat(val)
		if err != nil {
			return err
		}
		c.ExportFormat = string(f)
	case "export_dir":
		c.ExportDir = val
	case "sample_rows", "histogram_bins":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid positive int for %s: %v", key, val)
		}
		if key == "sample_rows" {
			c.SampleRows = i
		} else {
			c.HistogramBins = i
		}
	case "log_level":
		if _, err := logging.ParseLevel(val); err != nil {
			return err
		}
		c.LogLevel = val
	default:
		return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(sortedKeys(), ", "))
	}
	return nil
}

func sortedKeys() []string {
	out := append([]string(nil), Keys...)
	sort.Strings(out)
	return out
}

// Rune parses a single-character setting. Empty means unset (0); "tab" and
// `\t` name the tab character.
func Rune(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("want a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// SourceOptions turns the reading settings into source options.
func (c *Global) SourceOptions() (source.Options, error) {
	opt := source.DefaultOptions()
	var err error
	if opt.Delimiter, err = Rune(c.Delimiter); err != nil {
		return opt, fmt.Errorf("delimiter: %w", err)
	}
	if opt.DecimalSeparator, err = Rune(c.DecimalSeparator); err != nil {
		return opt, fmt.Errorf("decimal_separator: %w", err)
	}
	if opt.ThousandsSeparator, err = Rune(c.ThousandsSeparator); err != nil {
		return opt, fmt.Errorf("thousands_separator: %w", err)
	}
	if c.NullTokens != nil {
		opt.NullTokens = append([]string(nil), c.NullTokens...)
	}
	return opt, nil
}
