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

package launch_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sumicare/uv-shim/shim/install"
	"github.com/sumicare/uv-shim/shim/launch"
	"github.com/sumicare/uv-shim/shim/platform"
	"github.com/sumicare/uv-shim/shim/testutil"
)

type (
	// countingInstaller records how often the real installer is asked to install.
	countingInstaller struct {
		*install.Installer
		installs int
	}

	// fakeInstaller scripts the answers the launcher sees.
	fakeInstaller struct {
		installErr error
		lockErr    error
		target     string
		// installed holds successive IsInstalled answers; the last one repeats.
		installed []bool
		installs  int
		locks     int
		unlocks   int
	}

	closerFunc func() error
)

func (c closerFunc) Close() error {
	return c()
}

func (c *countingInstaller) Install(ctx context.Context) error {
	c.installs++
	return c.Installer.Install(ctx)
}

func (f *fakeInstaller) Target() string {
	return f.target
}

func (f *fakeInstaller) IsInstalled() (bool, error) {
	answer := f.installed[0]
	if len(f.installed) > 1 {
		f.installed = f.installed[1:]
	}

	return answer, nil
}

func (f *fakeInstaller) Resolve() (string, error) {
	return "/packages/uv", nil
}

func (f *fakeInstaller) Install(context.Context) error {
	f.installs++
	return f.installErr
}

func (f *fakeInstaller) Lock() (io.Closer, error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}

	f.locks++

	return closerFunc(func() error {
		f.unlocks++
		return nil
	}), nil
}

var _ = Describe("Launcher", func() {
	var (
		root   string
		stdout *bytes.Buffer
		stderr *bytes.Buffer
		key    platform.Key
	)

	BeforeEach(func() {
		if runtime.GOOS == "windows" {
			Skip("fake binaries are shell scripts")
		}

		root = GinkgoT().TempDir()
		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
		key = platform.Current()
	})

	newLauncher := func(inst launch.Installer) *launch.Launcher {
		return launch.New(inst, launch.WithStdio(nil, stdout, stderr), launch.WithLogger(nil))
	}

	realInstaller := func(script string) *countingInstaller {
		_, err := testutil.PlatformsPackage(root, key, script)
		Expect(err).NotTo(HaveOccurred())

		inst, err := install.New(install.Config{Root: root, Key: key})
		Expect(err).NotTo(HaveOccurred())

		return &countingInstaller{Installer: inst}
	}

	Context("with a fresh root", func() {
		It("installs once and runs uv --version", func() {
			if _, err := platform.Lookup(key); err != nil {
				Skip("no package for " + key.String())
			}

			inst := realInstaller(testutil.FakeUV(0))

			code, err := newLauncher(inst).Launch(context.Background(), []string{"--version"})
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal(0))
			Expect(stdout.String()).To(Equal(testutil.FakeVersion + "\n"))

			Expect(inst.installs).To(Equal(1))
			Expect(filepath.Join(root, "bin", "uv")).To(BeARegularFile())
		})
	})

	Context("with uv already installed", func() {
		var inst *countingInstaller

		BeforeEach(func() {
			if _, err := platform.Lookup(key); err != nil {
				Skip("no package for " + key.String())
			}

			inst = realInstaller(testutil.FakeUV(0))
			Expect(inst.Installer.Install(context.Background())).To(Succeed())
		})

		It("runs the binary without reinstalling", func() {
			code, err := newLauncher(inst).Launch(context.Background(), []string{"pip", "list"})
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal(0))
			Expect(testutil.Lines(stdout.String())).To(Equal([]string{"pip", "list"}))
			Expect(inst.installs).To(BeZero())
			Expect(inst.LockPath()).NotTo(BeAnExistingFile())
		})
	})

	Describe("exit codes", func() {
		var target string

		BeforeEach(func() {
			target = filepath.Join(root, "bin", "uv")
		})

		launchScript := func(script string, args ...string) (int, error) {
			Expect(testutil.WriteScript(target, script)).To(Succeed())

			return newLauncher(&fakeInstaller{target: target, installed: []bool{true}}).
				Launch(context.Background(), args)
		}

		DescribeTable("mirror the child's exit status",
			func(exitCode int) {
				code, err := launchScript(testutil.FakeUV(exitCode), "run")
				Expect(err).NotTo(HaveOccurred())
				Expect(code).To(Equal(exitCode))
			},
			Entry("success", 0),
			Entry("failure", 1),
			Entry("usage error", 2),
			Entry("command not found", 127),
		)

		It("maps death by signal to 128+signal", func() {
			code, err := launchScript(testutil.SignalUV("TERM"))
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal(143))
		})

		It("passes arguments through untouched", func() {
			args := []string{
				"run",
				"with space",
				`"double quoted"`,
				"'single quoted'",
				"ünïcødé ✓ 日本語",
				"",
				"--flag=a b",
				"$HOME",
				"*",
			}

			code, err := launchScript(testutil.FakeUV(0), args...)
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal(0))
			Expect(testutil.Lines(stdout.String())).To(Equal(args))
		})

		It("reports a binary that cannot be started", func() {
			Expect(os.MkdirAll(filepath.Dir(target), 0o755)).To(Succeed())
			Expect(os.WriteFile(target, []byte{0x00, 0x01, 0x02}, 0o755)).To(Succeed())

			code, err := newLauncher(&fakeInstaller{target: target, installed: []bool{true}}).
				Launch(context.Background(), nil)

			var spawnErr *launch.SpawnError
			Expect(errors.As(err, &spawnErr)).To(BeTrue())
			Expect(spawnErr.Path).To(Equal(target))
			Expect(spawnErr.Op).To(Equal("start"))
			Expect(code).To(Equal(launch.ExitShimFailure))
		})
	})

	Describe("installing", func() {
		var target string

		BeforeEach(func() {
			target = filepath.Join(root, "bin", "uv")
			Expect(testutil.WriteScript(target, testutil.FakeUV(0))).To(Succeed())
		})

		It("installs under the lock", func() {
			fake := &fakeInstaller{target: target, installed: []bool{false}}

			code, err := newLauncher(fake).Launch(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal(0))
			Expect(fake.installs).To(Equal(1))
			Expect(fake.locks).To(Equal(1))
			Expect(fake.unlocks).To(Equal(1))
		})

		It("skips the install another process finished while it waited", func() {
			fake := &fakeInstaller{target: target, installed: []bool{false, true}}

			code, err := newLauncher(fake).Launch(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal(0))
			Expect(fake.installs).To(BeZero())
		})

		It("uses the binary left by a racer that won the rename", func() {
			fake := &fakeInstaller{
				target:     target,
				installed:  []bool{false, false, true},
				installErr: &install.PlacementError{Err: os.ErrExist},
			}

			code, err := newLauncher(fake).Launch(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal(0))
			Expect(fake.installs).To(Equal(1))
		})

		It("fails when the install fails and nothing is in place", func() {
			installErr := &install.PlacementError{Err: os.ErrPermission}
			fake := &fakeInstaller{target: target, installed: []bool{false}, installErr: installErr}

			code, err := newLauncher(fake).Launch(context.Background(), nil)
			Expect(err).To(MatchError(installErr))
			Expect(code).To(Equal(launch.ExitShimFailure))
			Expect(stdout.String()).To(BeEmpty())
		})

		It("still installs when the lock cannot be taken", func() {
			fake := &fakeInstaller{target: target, installed: []bool{false}, lockErr: os.ErrPermission}

			code, err := newLauncher(fake).Launch(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal(0))
			Expect(fake.installs).To(Equal(1))
		})

		It("fails on an unsupported platform before touching the root", func() {
			inst, err := install.New(install.Config{Root: root, Key: platform.Key{OS: "plan9", Arch: "mips"}})
			Expect(err).NotTo(HaveOccurred())

			code, err := newLauncher(inst).Launch(context.Background(), []string{"--version"})

			var notFound *install.PackageNotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(code).To(Equal(launch.ExitShimFailure))
			Expect(inst.LockPath()).NotTo(BeAnExistingFile())
		})
	})

	Describe("ExitCode", func() {
		It("treats a missing state as a shim failure", func() {
			Expect(launch.ExitCode(nil)).To(Equal(launch.ExitShimFailure))
		})
	})
})
