package scaffold

import (
	"fmt"
	"os"
)

// CheckExisting returns an error naming every one of paths that already
// exists. Empty paths are ignored.
func CheckExisting(paths ...string) error {
	var existingFiles []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			existingFiles = append(existingFiles, p)
		}
	}

	if len(existingFiles) == 0 {
		return nil
	}

	errMsg := "already initialized\n\nFound existing"
	if len(existingFiles) == 1 {
		errMsg += fmt.Sprintf(": %s", existingFiles[0])
	} else {
		errMsg += " files:\n"
		for _, file := range existingFiles {
			errMsg += fmt.Sprintf("  - %s\n", file)
		}
	}
	errMsg += "\nUse 'originctl init --force' to overwrite them"

	return fmt.Errorf("%s", errMsg)
}
