//go:build unix

package cacheenv

import "golang.org/x/sys/unix"

// RootWritable reports whether the process may write to the filesystem root.
func RootWritable() bool {
	return unix.Access("/", unix.W_OK) == nil
}
