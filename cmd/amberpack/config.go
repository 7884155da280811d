package main

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/CognotEngine/amberpipeline/internal/corelog"
)

// applyFileConfig decodes an optional amberpipeline.toml and uses its
// values as defaults for flags the caller didn't explicitly set.
// Flags take precedence: level is filled in only when --level was not
// given on the command line, output only when it is still empty.
func applyFileConfig(path string, level *int, output *string) {
	data, err := os.ReadFile(path)
	if err != nil {
		corelog.Warn("amberpack: could not read config %s: %v", path, err)
		return
	}
	var cfg fileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		corelog.Warn("amberpack: could not parse config %s: %v", path, err)
		return
	}
	if *output == "" && cfg.OutputDir != "" {
		*output = cfg.OutputDir
	}
	if !pflag.CommandLine.Changed("level") && cfg.CompressionLevel != 0 {
		*level = cfg.CompressionLevel
	}
}
