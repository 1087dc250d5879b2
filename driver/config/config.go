package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DebugConfig gates the shader diagnostic side effects. All of them are
// off by default; a release build never touches the filesystem.
type DebugConfig struct {
	// Ask the compiler service to save every compiled source to a file.
	SaveShaderSources bool `toml:"save_shader_sources"`
	// Emit the raw concatenated source to the diagnostic sink on every
	// source assignment.
	DumpShaderSource bool `toml:"dump_shader_source"`
	// Directory the compiler service writes source dumps into.
	SourceDumpDir string `toml:"source_dump_dir"`
}

type Config struct {
	Debug DebugConfig `toml:"debug"`
}

func Default() *Config {
	return &Config{
		Debug: DebugConfig{
			SourceDumpDir: ".",
		},
	}
}

// Load reads a driver configuration file. A missing file is not an
// error; the defaults are returned instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
