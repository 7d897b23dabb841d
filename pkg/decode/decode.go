// Package decode turns JSON and YAML documents into zbxshipper data trees, keeping keys in document order.
package decode

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/atlassian/zbxshipper"
)

const (
	// FormatJSON is JSON, comments and trailing commas allowed.
	FormatJSON = "json"
	// FormatYAML is YAML, only the first document is read.
	FormatYAML = "yaml"
	// FormatAuto picks the format from the file extension.
	FormatAuto = "auto"
)

// Decode reads one document in the given format.
func Decode(format string, r io.Reader) (zbxshipper.Value, error) {
	switch format {
	case FormatJSON:
		return JSON(r)
	case FormatYAML:
		return YAML(r)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// FormatFromPath returns FormatYAML for .yaml and .yml files and FormatJSON otherwise, stdin included.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ResolveFormat returns format, unless it is FormatAuto in which case the format is derived from path.
func ResolveFormat(format, path string) (string, error) {
	switch format {
	case FormatAuto, "":
		return FormatFromPath(path), nil
	case FormatJSON, FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("format must be one of '%s', '%s' or '%s'", FormatAuto, FormatJSON, FormatYAML)
	}
}
