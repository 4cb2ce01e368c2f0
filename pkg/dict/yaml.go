package dict

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ReadYAML parses a dictionary fixture: a YAML mapping of dictionary name to
// a list of admissible values.
//
//	currencies:
//	  - RUB
//	  - USD
//	productTypes:
//	  - "КН"
//	  - "ИП"
func ReadYAML(r io.Reader) (*Store, error) {
	var raw map[string][]string
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding dictionary yaml: %w", err)
	}

	store := NewStore()
	for name, values := range raw {
		store.Register(name, values...)
	}
	return store, nil
}

// LoadYAML reads a dictionary fixture file
func LoadYAML(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary file: %w", err)
	}
	defer f.Close()

	store, err := ReadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return store, nil
}
