package core

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultMappingName is the file name the bundled mapping is extracted under.
const DefaultMappingName = "leapp_artifacts.xml"

//go:embed mappings/leapp_artifacts.xml
var defaultMapping []byte

// DefaultMappingDocument returns a copy of the bundled XML mapping document.
func DefaultMappingDocument() []byte {
	return bytes.Clone(defaultMapping)
}

// LoadDefaultMapping loads the bundled mapping document.
func LoadDefaultMapping(ctx context.Context, reg TypeRegistry, opts LoadOptions) (*Mapping, error) {
	if opts.Source == "" {
		opts.Source = "embedded:" + DefaultMappingName
	}
	return LoadMapping(ctx, bytes.NewReader(defaultMapping), FormatXML, reg, opts)
}

// ExtractDefaultMapping writes the bundled document to dir/DefaultMappingName and
// returns its path. An existing file is kept unless overwrite is set.
func ExtractDefaultMapping(dir string, overwrite bool) (string, error) {
	path := filepath.Join(dir, DefaultMappingName)

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create mapping directory: %w", err)
	}
	if err := os.WriteFile(path, defaultMapping, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
