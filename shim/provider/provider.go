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

package provider

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sumicare/uv-shim/shim/platform"
)

// ErrNotFound is returned when no installed package provides the binary.
var ErrNotFound = errors.New("platform package not found")

type (
	// Provider locates the binary shipped by a platform package.
	Provider interface {
		// Locate returns the path of binary inside pkg, or an error wrapping ErrNotFound.
		Locate(pkg platform.Package, binary string) (string, error)
	}

	// Search finds packages next to the shim root.
	//
	// It first looks at <Root>/platforms/<os>-<arch>, the layout produced when the
	// platform packages are prepared, then walks up from Root through every
	// node_modules directory the host package manager may have populated.
	Search struct {
		Prefix string
		Root   string
	}
)

// NewSearch creates a Search provider for packages named <prefix>-<os>-<arch>.
func NewSearch(prefix, root string) *Search {
	if prefix == "" {
		prefix = platform.DefaultPackagePrefix
	}

	return &Search{Prefix: prefix, Root: root}
}

// Locate implements Provider.
func (search *Search) Locate(pkg platform.Package, binary string) (string, error) {
	for _, candidate := range search.Candidates(pkg, binary) {
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		// Hard links do not follow a trailing symlink, so hand out the real file.
		resolved, err := filepath.EvalSymlinks(candidate)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", candidate, err)
		}

		return resolved, nil
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, pkg.Name(search.Prefix))
}

// Candidates returns the paths Locate probes, in order.
func (search *Search) Candidates(pkg platform.Package, binary string) []string {
	root := filepath.Clean(search.Root)
	name := filepath.FromSlash(pkg.Name(search.Prefix))

	candidates := []string{
		filepath.Join(root, "platforms", pkg.Key.String(), "bin", binary),
	}

	for dir := root; ; {
		candidates = append(candidates, filepath.Join(dir, "node_modules", name, "bin", binary))

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return candidates
}
