package io

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/matzehuels/sgtsnepi/pkg/errors"
)

// Format is a file encoding.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatTSV    Format = "tsv"
	FormatJSON   Format = "json"
	FormatMTX    Format = "mtx"
	FormatBinary Format = "f64"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))); f {
	case FormatCSV, FormatTSV, FormatJSON, FormatMTX, FormatBinary:
		return f, nil
	case "txt":
		return FormatTSV, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown format %q", s)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", errors.New(errors.ErrCodeInvalidFormat, "cannot infer format of %s: no extension", path)
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// delimiter returns the field separator of a text format.
func (f Format) delimiter() rune {
	if f == FormatTSV {
		return '\t'
	}
	return ','
}
