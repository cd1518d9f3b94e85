package cache

import (
	"os"
	"path/filepath"
)

func dirOf(path string) string {
	return filepath.Dir(path)
}

// writeAtomic writes data to a temp file in the same directory as path
// then renames it into place, so a concurrent reader never observes a
// partially written chunk (spec §4.3 "write then publish").
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
