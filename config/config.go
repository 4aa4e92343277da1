// Package config loads sftool's ambient configuration: port/baud/chip/
// memory/compat/quiet defaults from a YAML/JSON file via viper, overridable
// by CLI flags. The core package never imports this directly -- cmd/sftool is the
// only consumer, keeping the file-format/flag-parsing plumbing out of the
// library surface.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// File holds the subset of sftool settings that make sense to default from
// a config file rather than re-typing on every invocation.
type File struct {
	Port    string `mapstructure:"port"`
	Baud    int    `mapstructure:"baud"`
	Chip    string `mapstructure:"chip"`
	Memory  string `mapstructure:"memory"`
	Compat  bool   `mapstructure:"compat"`
	Quiet   bool   `mapstructure:"quiet"`
}

// Load reads configPath (if non-empty) plus a conventional
// ".sftool.yaml"/".sftool.json" search path, with flags taking precedence
// over file values whenever both are set.
func Load(configPath string, flags *pflag.FlagSet) (File, error) {
	v := viper.New()
	v.SetEnvPrefix("SFTOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".sftool")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && configPath != "" {
			return File{}, err
		}
	}

	if flags != nil {
		_ = v.BindPFlags(flags)
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return File{}, err
	}
	return f, nil
}
