package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// LoadFile overlays a TOML config file onto opts. Unset keys keep their
// current values, so file, profile and flag layers compose naturally.
func LoadFile(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, opts); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}
