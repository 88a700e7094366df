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

	"github.com/sumicare/uv-shim/shim/platform"
)

type (
	// PackageNotFoundError reports that no platform package serves the current
	// OS and architecture. It is fatal and never retried.
	PackageNotFoundError struct {
		Key     platform.Key
		Binary  string
		Package string
		Err     error
	}

	// PlacementError reports that the binary could not be put in place after
	// every placement strategy failed, or that it could not be made executable.
	PlacementError struct {
		Source string
		Target string
		Err    error
	}
)

func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("no %s binary for %s (package %s): %v", e.Binary, e.Key, e.Package, e.Err)
}

func (e *PackageNotFoundError) Unwrap() error {
	return e.Err
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("placing %s at %s: %v", e.Source, e.Target, e.Err)
}

func (e *PlacementError) Unwrap() error {
	return e.Err
}
