// Command amberpack is a thin CLI front-end around packer.Packer, so
// the module is runnable end to end.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/CognotEngine/amberpipeline/internal/corelog"
	"github.com/CognotEngine/amberpipeline/packer"
	"github.com/CognotEngine/amberpipeline/pkgformat"
)

type fileConfig struct {
	CompressionLevel int    `toml:"compression_level"`
	OutputDir        string `toml:"output_dir"`
}

func main() {
	var (
		output      = pflag.StringP("output", "o", "", "destination .pkg path (required)")
		level       = pflag.IntP("level", "l", 6, "compression level 0-9")
		overwrite   = pflag.BoolP("overwrite", "f", false, "overwrite an existing output file")
		version     = pflag.Uint32P("version", "v", 1, "package format version")
		inputDir    = pflag.StringP("input-dir", "i", "", "directory to add recursively (type auto-detected per file)")
		configPath  = pflag.String("config", "", "optional amberpipeline.toml overriding defaults")
	)
	pflag.Parse()

	if *configPath != "" {
		applyFileConfig(*configPath, level, output)
	}

	if *output == "" {
		fmt.Fprintln(os.Stderr, "amberpack: --output is required")
		os.Exit(2)
	}

	p, err := packer.New(packer.Config{
		OutputPath:       *output,
		Version:          *version,
		CompressionLevel: *level,
		Overwrite:        *overwrite,
	})
	if err != nil {
		corelog.Fatal("amberpack: %v", err)
	}

	if *inputDir != "" {
		if err := p.AddResourceDirectory(*inputDir, pkgformat.ResourceTypeUnknown); err != nil {
			corelog.Fatal("amberpack: %v", err)
		}
	}
	for _, path := range pflag.Args() {
		if err := p.AddResource(path, pkgformat.ResourceTypeUnknown); err != nil {
			corelog.Fatal("amberpack: %v", err)
		}
	}

	if err := p.Pack(); err != nil {
		corelog.Fatal("amberpack: pack failed: %v", err)
	}
	fmt.Printf("amberpack: wrote %s (%d resources, %d bytes)\n", *output, p.ResourceCount(), p.TotalSize())
}
