package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// mapProvider feeds a map to koanf. Dotted keys such as
// "storage.data_dir" are expanded into nested maps.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("confloader: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(m, "."), nil
}
