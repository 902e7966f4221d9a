package capability

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// TempName returns prefix_<random hex>ext. Names never collide across concurrent jobs.
func TempName(prefix, ext string) string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return prefix + "_" + hex.EncodeToString(buf[:]) + ext
}

// WriteFile writes data to a fresh file named prefix_<random>ext inside dir and returns its path.
func WriteFile(dir, prefix, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, TempName(prefix, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return path, nil
}
