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

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sumicare/uv-shim/shim/platform"
)

const (
	// ScriptPermission is the mode of generated fake binaries.
	ScriptPermission os.FileMode = 0o755
	// FakeVersion is printed by FakeUV for --version.
	FakeVersion = "uv 0.6.14"
)

// FakeUV returns a POSIX shell script standing in for uv. It prints
// FakeVersion for --version, otherwise echoes each argument on its own line,
// and exits with exitCode.
func FakeUV(exitCode int) string {
	return fmt.Sprintf(`#!/bin/sh
if [ "$#" -eq 1 ] && [ "$1" = "--version" ]; then
  echo %q
  exit %d
fi
for arg in "$@"; do
  printf '%%s\n' "$arg"
done
exit %d
`, FakeVersion, exitCode, exitCode)
}

// SignalUV returns a script that kills itself with the named signal.
func SignalUV(signal string) string {
	return "#!/bin/sh\nkill -" + signal + " $$\nsleep 5\n"
}

// WriteScript writes an executable script at path, creating parent directories.
func WriteScript(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(content), ScriptPermission)
}

// PlatformsPackage writes content as the binary of the key's package under
// <root>/platforms and returns its path.
func PlatformsPackage(root string, key platform.Key, content string) (string, error) {
	path := filepath.Join(
		root, "platforms", key.String(), "bin",
		platform.ExecutableName(platform.DefaultBinaryName, key.OS),
	)

	return path, WriteScript(path, content)
}

// NodeModulesPackage writes content as the binary of the key's package under
// <dir>/node_modules and returns its path.
func NodeModulesPackage(dir, prefix string, key platform.Key, content string) (string, error) {
	name := platform.Package{Key: key}.Name(prefix)
	path := filepath.Join(
		dir, "node_modules", filepath.FromSlash(name), "bin",
		platform.ExecutableName(platform.DefaultBinaryName, key.OS),
	)

	return path, WriteScript(path, content)
}

// ListFiles returns every regular file and symlink under root, relative to root,
// in lexical order.
func ListFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, filepath.ToSlash(rel))

		return nil
	})

	return files, err
}

// Lines splits output into lines, dropping the final newline.
func Lines(output string) []string {
	return strings.Split(strings.TrimSuffix(output, "\n"), "\n")
}
