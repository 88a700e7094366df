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
	"io"
	"os"
	"path/filepath"
)

var (
	// osLink is os.Link for mocking.
	osLink = os.Link //nolint:gochecknoglobals // used for mocking
	// osRename is os.Rename for mocking.
	osRename = os.Rename //nolint:gochecknoglobals // used for mocking
)

type (
	// Strategy puts the source file at the destination path.
	Strategy interface {
		Name() string
		Place(source, target string) error
	}

	// HardLink links the target to the source. It fails when the target exists
	// or the two paths are on different devices.
	HardLink struct{}

	// AtomicCopy copies the source to a unique temporary file next to the
	// target and renames it into place.
	AtomicCopy struct{}
)

// DefaultStrategies returns the placement chain tried by the installer.
func DefaultStrategies() []Strategy {
	return []Strategy{HardLink{}, AtomicCopy{}}
}

// Name implements Strategy.
func (HardLink) Name() string {
	return "hardlink"
}

// Place implements Strategy.
func (HardLink) Place(source, target string) error {
	return osLink(source, target)
}

// Name implements Strategy.
func (AtomicCopy) Name() string {
	return "copy"
}

// Place implements Strategy.
//
// The rename is the only step visible at target. If it fails, for instance
// because another process holds the destination, the temporary file is
// removed and the rename error is returned unchanged.
func (AtomicCopy) Place(source, target string) error {
	src, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("reading source mode: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", filepath.Dir(target), err)
	}

	tempPath := tempFile.Name()

	renamed := false
	defer func() {
		tempFile.Close()

		if !renamed {
			os.Remove(tempPath)
		}
	}()

	if _, err := io.Copy(tempFile, src); err != nil {
		return fmt.Errorf("copying to %s: %w", tempPath, err)
	}

	if err := tempFile.Chmod(info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting mode on %s: %w", tempPath, err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := osRename(tempPath, target); err != nil {
		return err
	}

	renamed = true

	return nil
}
