package variant

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type rangeFile struct {
	Ranges []Range `json:"ranges" yaml:"ranges"`
}

// LoadRanges reads a list of ranges from a JSON or YAML file of the form
// {"ranges": [{"first": 0, "last": 99}]}.
func LoadRanges(path string) ([]Range, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return DecodeRanges(f, ext)
}

// DecodeRanges decodes ranges from r in the given format ("yaml" or "json").
func DecodeRanges(r io.Reader, format string) ([]Range, error) {
	var rf rangeFile
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&rf); err != nil {
			return nil, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&rf); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	for _, rg := range rf.Ranges {
		if err := rg.Validate(); err != nil {
			return nil, err
		}
	}
	return rf.Ranges, nil
}
