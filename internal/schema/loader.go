package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// dialectFile is the on-disk layout of a custom dialects file:
//
//	dialects:
//	  - name: lightspeed
//	    label: Lightspeed Retail
//	    indicators: ["System ID", "Default Cost"]
//	    aliases:
//	      name: ["Description"]
//	      price: ["Default - Price"]
//	      barcode: ["UPC", "EAN"]
type dialectFile struct {
	Dialects []dialectEntry `yaml:"dialects"`
}

type dialectEntry struct {
	Name       string              `yaml:"name"`
	Label      string              `yaml:"label"`
	Indicators []string            `yaml:"indicators"`
	Aliases    map[string][]string `yaml:"aliases"`
}

// ParseDialects decodes custom dialects from YAML. Unknown keys and unknown
// field names are rejected.
func ParseDialects(r io.Reader) ([]Dialect, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file dialectFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode dialects: %w", err)
	}

	out := make([]Dialect, 0, len(file.Dialects))
	seen := make(map[string]bool, len(file.Dialects))
	for i, e := range file.Dialects {
		d := Dialect{
			Name:       e.Name,
			Label:      e.Label,
			Indicators: e.Indicators,
			Aliases:    make(map[Field][]string, len(e.Aliases)),
		}
		if d.Label == "" {
			d.Label = d.Name
		}
		for k, v := range e.Aliases {
			d.Aliases[Field(k)] = v
		}
		if d.Name == GenericName {
			return nil, fmt.Errorf("dialect %d: name %q is reserved", i+1, GenericName)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("dialect %d: duplicate name %q", i+1, d.Name)
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("dialect %d: %w", i+1, err)
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out, nil
}

// LoadDialects reads custom dialects from path. An empty path yields none.
func LoadDialects(path string) ([]Dialect, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dialects file: %w", err)
	}
	return ParseDialects(bytes.NewReader(data))
}
