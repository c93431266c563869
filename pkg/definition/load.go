// Package definition reads automaton definitions from JSON or YAML and
// compiles them into immutable domain.Definition values.
package definition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// Format is the encoding of a definition file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the format from a file extension. Unknown extensions are treated as YAML,
// which also accepts JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Load reads, parses and compiles the definition at path.
func Load(path string) (*domain.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	doc, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	def, err := Compile(doc)
	if err != nil {
		var de *domain.DefinitionError
		if errors.As(err, &de) {
			de.Source = path
			return nil, de
		}
		return nil, err
	}
	return def, nil
}

// Parse decodes data into a Document. Scalars are coerced weakly so that a
// menu choice written as 1 is read as "1".
func Parse(data []byte, format Format) (*Document, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("empty definition")
	}

	var doc Document
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	if len(md.Unused) > 0 {
		doc.Unused = md.Unused
		sort.Strings(doc.Unused)
	}
	return &doc, nil
}
