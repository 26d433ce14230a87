package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/webclip/pkg/adapters/fs"
)

// ConfigFile is the config file name inside the system directory.
const ConfigFile = "config.yaml"

// FindRoot looks upwards from startDir for a vault root: a directory holding
// a .webclip system directory or a .git directory.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for dir := abs; ; {
		if hasFile(dir, fs.DefaultSystemDir) || hasFile(dir, ".git") {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("root not found from %s", abs)
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
