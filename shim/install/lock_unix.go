//go:build !windows

package install

import "golang.org/x/sys/unix"

func lockFile(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_EX)
}

func unlockFile(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_UN)
}
