package params

import (
	"fmt"
	"os"

	"github.com/naoina/toml"
)

// LoadConfig decodes a TOML config file into a Config, starting from
// DefaultConfig so a file only needs to override the fields it cares about.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("params: open config %q: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("params: decode config %q: %w", path, err)
	}
	return cfg, nil
}
