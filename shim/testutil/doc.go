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

// Package testutil builds fake platform packages for the shim test suites.
//
// The fake uv binaries are POSIX shell scripts, so suites using them skip on
// Windows:
//
//	root := GinkgoT().TempDir()
//	source, err := testutil.PlatformsPackage(root, platform.Current(), testutil.FakeUV(0))
//	Expect(err).NotTo(HaveOccurred())
//
//	inst, err := install.New(install.Config{Root: root})
//	Expect(err).NotTo(HaveOccurred())
//	Expect(inst.Install(context.Background())).To(Succeed())
package testutil
