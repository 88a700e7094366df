//go:build windows

package install

import "golang.org/x/sys/windows"

func lockFile(fd uintptr) error {
	var ol windows.Overlapped

	return windows.LockFileEx(windows.Handle(fd), windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, &ol)
}

func unlockFile(fd uintptr) error {
	var ol windows.Overlapped

	return windows.UnlockFileEx(windows.Handle(fd), 0, 1, 0, &ol)
}
