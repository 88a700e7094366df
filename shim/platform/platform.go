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

package platform

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// ErrUnsupported is returned when no package exists for a platform key.
var ErrUnsupported = errors.New("unsupported platform")

type (
	// OS is an operating system identifier in package-registry vocabulary.
	OS string

	// Arch is a CPU architecture identifier in package-registry vocabulary.
	Arch string

	// Key selects exactly one platform package.
	Key struct {
		OS   OS
		Arch Arch
	}

	// Package is one prebuilt binary variant.
	Package struct {
		Key Key
		// Triple is the upstream release target the binary was built for.
		Triple string
	}
)

const (
	// Darwin is macOS.
	Darwin OS = "darwin"
	// Linux is Linux with glibc.
	Linux OS = "linux"
	// Windows is named win32 by the package registry.
	Windows OS = "win32"

	// X64 is x86-64.
	X64 Arch = "x64"
	// ARM64 is aarch64.
	ARM64 Arch = "arm64"
	// IA32 is 32-bit x86.
	IA32 Arch = "ia32"

	// DefaultPackagePrefix is the name every platform package starts with.
	DefaultPackagePrefix = "@manzt/uv"
	// DefaultBinaryName is the wrapped executable without platform suffix.
	DefaultBinaryName = "uv"
)

// packages is keyed by platform; a missing key is an unsupported combination.
var packages = map[Key]Package{ //nolint:gochecknoglobals // static lookup table
	{Darwin, X64}:    {Key: Key{Darwin, X64}, Triple: "x86_64-apple-darwin"},
	{Darwin, ARM64}:  {Key: Key{Darwin, ARM64}, Triple: "aarch64-apple-darwin"},
	{Linux, X64}:     {Key: Key{Linux, X64}, Triple: "x86_64-unknown-linux-gnu"},
	{Linux, ARM64}:   {Key: Key{Linux, ARM64}, Triple: "aarch64-unknown-linux-gnu"},
	{Windows, X64}:   {Key: Key{Windows, X64}, Triple: "x86_64-pc-windows-msvc"},
	{Windows, IA32}:  {Key: Key{Windows, IA32}, Triple: "i686-pc-windows-msvc"},
	{Windows, ARM64}: {Key: Key{Windows, ARM64}, Triple: "aarch64-pc-windows-msvc"},
}

// FromGo maps GOOS and GOARCH values to a Key.
// Values without a registry name are kept verbatim.
func FromGo(goos, goarch string) Key {
	key := Key{OS: OS(strings.ToLower(goos)), Arch: Arch(strings.ToLower(goarch))}

	if key.OS == "windows" {
		key.OS = Windows
	}

	switch key.Arch {
	case "amd64", "x86_64":
		key.Arch = X64
	case "aarch64":
		key.Arch = ARM64
	case "386", "i386", "i686":
		key.Arch = IA32
	}

	return key
}

// Current returns the key of the running process.
func Current() Key {
	return FromGo(runtime.GOOS, runtime.GOARCH)
}

// String returns the "<os>-<arch>" form used in package names.
func (key Key) String() string {
	return string(key.OS) + "-" + string(key.Arch)
}

// IsWindows reports whether the key targets win32.
func (key Key) IsWindows() bool {
	return key.OS == Windows
}

// Lookup returns the package for key.
func Lookup(key Key) (Package, error) {
	pkg, ok := packages[key]
	if !ok {
		return Package{}, fmt.Errorf("%w: %s", ErrUnsupported, key)
	}

	return pkg, nil
}

// Supported returns every package sorted by key.
func Supported() []Package {
	out := make([]Package, 0, len(packages))
	for _, pkg := range packages {
		out = append(out, pkg)
	}

	slices.SortFunc(out, func(a, b Package) int {
		return strings.Compare(a.Key.String(), b.Key.String())
	})

	return out
}

// Name returns the registry name of the package, e.g. "@manzt/uv-linux-x64".
func (pkg Package) Name(prefix string) string {
	return prefix + "-" + pkg.Key.String()
}

// ExecutableName returns the on-disk name of binary on the given OS.
func ExecutableName(binary string, target OS) string {
	if target == Windows {
		return binary + ".exe"
	}

	return binary
}
