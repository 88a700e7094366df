//
// Copyright (c) 2025 Sumicare
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package install

import (
	"fmt"
	"os"
	"path/filepath"
)

// LockFilePermission is the mode of a newly created lock file.
const LockFilePermission os.FileMode = 0o644

// Lock is an advisory exclusive lock on a file, held until Close.
type Lock struct {
	file *os.File
}

// AcquireLock opens or creates path and blocks until an exclusive lock on it
// is held. The file is left in place on release.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), CommonDirectoryPermission); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, LockFilePermission)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := lockFile(file.Fd()); err != nil {
		file.Close()
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	return &Lock{file: file}, nil
}

// Close releases the lock.
func (l *Lock) Close() error {
	if l.file == nil {
		return nil
	}

	unlockErr := unlockFile(l.file.Fd())
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		return fmt.Errorf("unlocking: %w", unlockErr)
	}

	return closeErr
}
