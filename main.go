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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sumicare/uv-shim/shim/install"
	"github.com/sumicare/uv-shim/shim/launch"
)

// main forwards every argument to the platform uv binary, installing it next
// to the shim on first use, and exits with the binary's exit code.
func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run launches uv with args and returns the process exit code. Shim failures
// are reported on stderr.
func run(args []string, stderr io.Writer) int {
	logger := newLogger(stderr)
	defer logger.Sync() //nolint:errcheck // nothing useful to do on exit

	root, err := shimRoot()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return launch.ExitShimFailure
	}

	installer, err := install.New(install.Config{Root: root, Logger: logger})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return launch.ExitShimFailure
	}

	code, err := launch.New(installer, launch.WithLogger(logger)).Launch(context.Background(), args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}

	return code
}

// shimRoot returns the directory holding the real shim executable, following
// the symlinks package managers put on PATH.
func shimRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating shim executable: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolving shim executable: %w", err)
	}

	return filepath.Dir(resolved), nil
}

// newLogger writes warnings and errors to w without timestamps so a normal
// run adds nothing to the wrapped binary's output.
func newLogger(w io.Writer) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = ""
	encoderConfig.CallerKey = ""
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		zapcore.WarnLevel,
	)

	return zap.New(core).Named("uv-shim")
}
