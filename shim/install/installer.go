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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sumicare/uv-shim/shim/platform"
	"github.com/sumicare/uv-shim/shim/provider"
)

const (
	// CommonDirectoryPermission is the permission used when creating directories.
	CommonDirectoryPermission os.FileMode = 0o755
	// ExecutablePermissionMask is added to the installed binary's mode.
	ExecutablePermissionMask os.FileMode = 0o111
	// BinDir is the directory under the root that holds the installed binary.
	BinDir = "bin"
)

// errRootRequired is returned when the installer has no root directory.
var errRootRequired = errors.New("install root is required")

type (
	// Config configures an Installer. Only Root is required.
	Config struct {
		Provider      provider.Provider
		Logger        *zap.Logger
		Key           platform.Key
		Root          string
		BinaryName    string
		PackagePrefix string
		Strategies    []Strategy
	}

	// Installer resolves the platform package and places its binary at
	// <Root>/bin/<binary>.
	Installer struct {
		provider   provider.Provider
		logger     *zap.Logger
		key        platform.Key
		root       string
		binary     string
		prefix     string
		strategies []Strategy
	}
)

// New creates an Installer, filling unset Config fields with defaults.
func New(cfg Config) (*Installer, error) {
	if cfg.Root == "" {
		return nil, errRootRequired
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving install root: %w", err)
	}

	if cfg.Key == (platform.Key{}) {
		cfg.Key = platform.Current()
	}

	if cfg.BinaryName == "" {
		cfg.BinaryName = platform.DefaultBinaryName
	}

	if cfg.PackagePrefix == "" {
		cfg.PackagePrefix = platform.DefaultPackagePrefix
	}

	if cfg.Provider == nil {
		cfg.Provider = provider.NewSearch(cfg.PackagePrefix, root)
	}

	if len(cfg.Strategies) == 0 {
		cfg.Strategies = DefaultStrategies()
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Installer{
		provider:   cfg.Provider,
		logger:     cfg.Logger,
		key:        cfg.Key,
		root:       root,
		binary:     cfg.BinaryName,
		prefix:     cfg.PackagePrefix,
		strategies: cfg.Strategies,
	}, nil
}

// Key returns the platform the installer targets.
func (inst *Installer) Key() platform.Key {
	return inst.key
}

// Target returns the installed binary path.
func (inst *Installer) Target() string {
	return filepath.Join(inst.root, BinDir, platform.ExecutableName(inst.binary, inst.key.OS))
}

// LockPath returns the file used to serialise installs across processes.
func (inst *Installer) LockPath() string {
	return filepath.Join(inst.root, "."+inst.binary+".install.lock")
}

// IsInstalled reports whether Target is a regular file that can be executed.
func (inst *Installer) IsInstalled() (bool, error) {
	info, err := os.Stat(inst.Target())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("stat binary: %w", err)
	}

	if !info.Mode().IsRegular() {
		return false, nil
	}

	if !inst.key.IsWindows() && info.Mode().Perm()&ExecutablePermissionMask == 0 {
		return false, nil
	}

	return true, nil
}

// Resolve returns the path of the binary inside the platform package.
// It never writes to the filesystem.
func (inst *Installer) Resolve() (string, error) {
	binary := platform.ExecutableName(inst.binary, inst.key.OS)

	pkg, err := platform.Lookup(inst.key)
	if err != nil {
		return "", inst.notFound(err)
	}

	source, err := inst.provider.Locate(pkg, binary)
	if err != nil {
		return "", inst.notFound(err)
	}

	return source, nil
}

// Install places the platform binary at Target and makes it executable.
func (inst *Installer) Install(ctx context.Context) error {
	source, err := inst.Resolve()
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	target := inst.Target()

	if err := os.MkdirAll(filepath.Dir(target), CommonDirectoryPermission); err != nil {
		return &PlacementError{Source: source, Target: target, Err: err}
	}

	if err := inst.place(source, target); err != nil {
		return err
	}

	if inst.key.IsWindows() {
		// A bare name may be left over from a cross-platform or partial install.
		stale := filepath.Join(filepath.Dir(target), inst.binary)
		if err := os.Remove(stale); err == nil {
			inst.logger.Debug("removed stale binary", zap.String("path", stale))
		}

		return nil
	}

	if err := makeExecutable(target); err != nil {
		return &PlacementError{Source: source, Target: target, Err: err}
	}

	return nil
}

// Lock blocks until the install lock is held. Closing the result releases it.
func (inst *Installer) Lock() (io.Closer, error) {
	lock, err := AcquireLock(inst.LockPath())
	if err != nil {
		return nil, err
	}

	return lock, nil
}

// place tries each strategy in order and stops at the first success.
func (inst *Installer) place(source, target string) error {
	errs := make([]error, 0, len(inst.strategies))

	for _, strategy := range inst.strategies {
		err := strategy.Place(source, target)
		if err == nil {
			inst.logger.Debug("placed binary",
				zap.String("strategy", strategy.Name()),
				zap.String("source", source),
				zap.String("target", target),
			)

			return nil
		}

		inst.logger.Debug("placement strategy failed",
			zap.String("strategy", strategy.Name()),
			zap.Error(err),
		)

		errs = append(errs, fmt.Errorf("%s: %w", strategy.Name(), err))
	}

	return &PlacementError{Source: source, Target: target, Err: errors.Join(errs...)}
}

func (inst *Installer) notFound(err error) *PackageNotFoundError {
	return &PackageNotFoundError{
		Key:     inst.key,
		Binary:  inst.binary,
		Package: platform.Package{Key: inst.key}.Name(inst.prefix),
		Err:     err,
	}
}

// makeExecutable adds the execute bits to path without removing any others.
func makeExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	return os.Chmod(path, info.Mode()|ExecutablePermissionMask)
}
