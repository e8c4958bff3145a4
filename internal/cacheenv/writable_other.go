//go:build !unix

package cacheenv

import (
	"os"
	"path/filepath"
)

// RootWritable reports whether the process may write to the filesystem root.
// Without access(2) the only reliable check is creating a file.
func RootWritable() bool {
	root := filepath.VolumeName(os.TempDir()) + string(filepath.Separator)
	f, err := os.CreateTemp(root, ".embedsvc-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
