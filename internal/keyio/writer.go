package keyio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatList      Format = "list"
	FormatJSONArray Format = "json_array"
)

// ParseFormat validates a format flag value.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(FormatList):
		return FormatList, nil
	case string(FormatJSONArray):
		return FormatJSONArray, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected list or json_array)", value)
	}
}

// WriteKeys renders keys in the requested format. FormatList writes one key
// per line; FormatJSONArray writes an indented JSON array, so the output
// stays machine-parseable even for an empty result.
func WriteKeys(w io.Writer, keys []string, format Format) error {
	switch format {
	case FormatJSONArray:
		if keys == nil {
			keys = []string{}
		}
		data, err := json.MarshalIndent(keys, "", "  ")
		if err != nil {
			return fmt.Errorf("encode keys: %w", err)
		}
		if _, err := fmt.Fprintln(w, string(data)); err != nil {
			return fmt.Errorf("write keys: %w", err)
		}
	default:
		for _, key := range keys {
			if _, err := fmt.Fprintln(w, key); err != nil {
				return fmt.Errorf("write keys: %w", err)
			}
		}
	}
	return nil
}

// WriteKeysToPath writes to path, or to stdout when path is empty.
func WriteKeysToPath(path string, keys []string, format Format) error {
	if strings.TrimSpace(path) == "" {
		return WriteKeys(os.Stdout, keys, format)
	}
	file, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()
	if err := WriteKeys(file, keys, format); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	return nil
}
