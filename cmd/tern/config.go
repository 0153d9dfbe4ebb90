package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "tern.yaml"

// config is the optional tool configuration; explicit command-line flags
// win over it.
type config struct {
	WarningsAreErrors bool   `yaml:"warnings_are_errors"`
	MessageFormat     string `yaml:"message_format"`
	OutputDir         string `yaml:"output_dir"`
	LibDir            string `yaml:"lib_dir"`
	Verbose           bool   `yaml:"verbose"`
}

func loadConfig(fs afero.Fs, path string) (*config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return &config{}, nil
		}
		if explicit {
			return nil, fmt.Errorf("cannot read config %v: %w", path, err)
		}
		return &config{}, nil
	}
	cfg := &config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config %v: %w", path, err)
	}
	return cfg, nil
}

// applyConfig backfills flags the user did not set on the command line.
func applyConfig(cfg *config) {
	if cfg.WarningsAreErrors && !rootCmd.PersistentFlags().Changed("warnings-are-errors") {
		*rootFlags.wError = true
	}
	if cfg.MessageFormat != "" && !rootCmd.PersistentFlags().Changed("message-format") {
		*rootFlags.format = cfg.MessageFormat
	}
	if cfg.OutputDir != "" && !rootCmd.PersistentFlags().Changed("output") {
		*rootFlags.outDir = cfg.OutputDir
	}
	if cfg.LibDir != "" && !rootCmd.PersistentFlags().Changed("lib") {
		*rootFlags.libDir = cfg.LibDir
	}
	if cfg.Verbose && !rootCmd.PersistentFlags().Changed("verbose") {
		*rootFlags.verbose = true
	}
}
