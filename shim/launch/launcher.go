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

package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// ExitShimFailure is the exit code reserved for failures of the shim itself:
// the binary could not be installed or could not be started.
const ExitShimFailure = 125

type (
	// Installer is the part of install.Installer the launcher depends on.
	Installer interface {
		Target() string
		IsInstalled() (bool, error)
		Resolve() (string, error)
		Install(ctx context.Context) error
		Lock() (io.Closer, error)
	}

	// SpawnError reports that the installed binary could not be run. It is
	// distinct from the binary exiting with a non-zero status.
	SpawnError struct {
		Path string
		Op   string
		Err  error
	}

	// Launcher installs the binary on first use and runs it with the shim's
	// arguments and standard streams.
	Launcher struct {
		installer Installer
		stdin     io.Reader
		stdout    io.Writer
		stderr    io.Writer
		logger    *zap.Logger
	}

	// Option configures a Launcher.
	Option func(*Launcher)
)

func (e *SpawnError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// WithStdio replaces the inherited standard streams.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(l *Launcher) {
		l.stdin = stdin
		l.stdout = stdout
		l.stderr = stderr
	}
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Launcher) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Launcher for the binary managed by installer.
func New(installer Installer, opts ...Option) *Launcher {
	launcher := &Launcher{
		installer: installer,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(launcher)
	}

	return launcher
}

// Launch makes sure the binary is installed, runs it with args and returns
// its exit code. A non-nil error means the binary never ran to completion;
// the code is then ExitShimFailure.
func (l *Launcher) Launch(ctx context.Context, args []string) (int, error) {
	if err := l.ensureInstalled(ctx); err != nil {
		return ExitShimFailure, err
	}

	return l.run(ctx, args)
}

func (l *Launcher) ensureInstalled(ctx context.Context) error {
	installed, err := l.installer.IsInstalled()
	if err != nil {
		return err
	}

	if installed {
		return nil
	}

	// Unsupported platforms fail here, before the lock file is created.
	if _, err := l.installer.Resolve(); err != nil {
		return err
	}

	lock, err := l.installer.Lock()
	if err != nil {
		l.logger.Warn("installing without lock", zap.Error(err))
	} else {
		defer lock.Close()

		// Another process may have finished while we waited.
		if installed, err := l.installer.IsInstalled(); err == nil && installed {
			return nil
		}
	}

	l.logger.Debug("installing binary", zap.String("target", l.installer.Target()))

	if err := l.installer.Install(ctx); err != nil {
		if installed, _ := l.installer.IsInstalled(); installed {
			l.logger.Warn("install lost a race, using the existing binary",
				zap.String("target", l.installer.Target()),
				zap.Error(err),
			)

			return nil
		}

		return err
	}

	return nil
}

func (l *Launcher) run(ctx context.Context, args []string) (int, error) {
	path := l.installer.Target()

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = l.stdin
	cmd.Stdout = l.stdout
	cmd.Stderr = l.stderr

	if err := cmd.Start(); err != nil {
		return ExitShimFailure, &SpawnError{Path: path, Op: "start", Err: err}
	}

	stop := relaySignals(cmd.Process, l.logger)
	err := cmd.Wait()

	stop()

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return ExitShimFailure, &SpawnError{Path: path, Op: "wait", Err: err}
		}

		return ExitCode(exitErr.ProcessState), nil
	}

	return ExitCode(cmd.ProcessState), nil
}
