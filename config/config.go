// Package config loads the declarative key-value configuration tree
// spec §6 names (sections `servers`, `couplers`, `publishers`,
// `services`, `filters`, `applications`, `features`, plus top-level
// globals) using github.com/spf13/viper, grounded on
// firestige-Otus/internal/config.Load's viper-new/SetConfigFile/
// AutomaticEnv/Unmarshal shape.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level settings tree (spec §6).
type Config struct {
	LogLevel             string `mapstructure:"log_level"`
	LogFile              string `mapstructure:"log_file"`
	TraceDir             string `mapstructure:"trace_dir"`
	ManufacturerXML      string `mapstructure:"manufacturer_xml"`
	NMEA2000XML          string `mapstructure:"nmea2000_xml"`
	DebugConfiguration   bool   `mapstructure:"debug_configuration"`
	DecodeDefinitionOnly bool   `mapstructure:"decode_definition_only"`

	Servers      []Object        `mapstructure:"servers"`
	Couplers     []Object        `mapstructure:"couplers"`
	Publishers   []Object        `mapstructure:"publishers"`
	Services     []Object        `mapstructure:"services"`
	Filters      []Object        `mapstructure:"filters"`
	Applications []Object        `mapstructure:"applications"`
	Features     map[string]bool `mapstructure:"features"`
}

// Object is one entry of a declarative section: a named, classed
// component plus its free-form parameters, mirroring
// original_source/src/configuration.py's NavigationServerObject and
// Parameters. The config schema doesn't fix the field set per
// coupler/publisher/filter kind (a SocketCAN coupler and a TCP coupler
// take different keys), so params stay a bag read through typed
// accessors instead of being pinned to one Go struct per kind.
type Object struct {
	Name   string         `mapstructure:"name"`
	Class  string         `mapstructure:"class"`
	Params map[string]any `mapstructure:",remain"`
}

// GetString returns Params[key] as a string, or def if absent or not
// string-shaped.
func (o Object) GetString(key, def string) string {
	v, ok := o.Params[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// GetInt returns Params[key] as an int, or def if absent or not a
// number.
func (o Object) GetInt(key string, def int) int {
	v, ok := o.Params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// GetBool returns Params[key] as a bool, or def if absent or not a
// bool.
func (o Object) GetBool(key string, def bool) bool {
	v, ok := o.Params[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// GetFloat returns Params[key] as a float64, or def if absent or not
// a number.
func (o Object) GetFloat(key string, def float64) float64 {
	v, ok := o.Params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

// GetStringList returns Params[key] as a []string, or def if absent
// or not list-shaped (mirroring Parameters.getlist).
func (o Object) GetStringList(key string, def []string) []string {
	v, ok := o.Params[key]
	if !ok {
		return def
	}
	items, ok := v.([]any)
	if !ok {
		return def
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return def
		}
		out = append(out, s)
	}
	return out
}

// Load reads and validates the configuration tree from path (YAML,
// TOML, or JSON, detected by extension — whatever viper supports) and
// applies spec §6's defaults for any missing global.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	v.SetEnvPrefix("SHIPDATASERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "INFO")
	v.SetDefault("trace_dir", ".")
	v.SetDefault("decode_definition_only", false)
	v.SetDefault("debug_configuration", false)
}

var validLogLevels = map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true}

func (c *Config) validate() error {
	if !validLogLevels[strings.ToUpper(c.LogLevel)] {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	seen := make(map[string]bool)
	for _, sections := range [][]Object{c.Servers, c.Couplers, c.Publishers, c.Services, c.Filters, c.Applications} {
		for _, obj := range sections {
			if obj.Name == "" {
				return fmt.Errorf("object of class %q has no name", obj.Class)
			}
			if obj.Class == "" {
				return fmt.Errorf("object %q has no class", obj.Name)
			}
			if seen[obj.Name] {
				return fmt.Errorf("duplicate object name %q", obj.Name)
			}
			seen[obj.Name] = true
		}
	}
	return nil
}
