package keyio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadKeys reads one credential per line, trims surrounding whitespace and
// drops blank lines. Input order is preserved.
func ReadKeys(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var keys []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read keys: %w", err)
	}
	return keys, nil
}

// ReadKeysFromPath reads keys from path, or from stdin when path is empty.
func ReadKeysFromPath(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return ReadKeys(os.Stdin)
	}
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer file.Close()
	return ReadKeys(file)
}
