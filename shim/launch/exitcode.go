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
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// signalExitBase is added to the signal number of a child killed by a signal,
// as POSIX shells do.
const signalExitBase = 128

// ExitCode maps a finished process to the code the shim exits with.
func ExitCode(state *os.ProcessState) int {
	if state == nil {
		return ExitShimFailure
	}

	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return signalExitBase + int(status.Signal())
	}

	return state.ExitCode()
}

// relaySignals keeps the shim alive while the child runs. Interrupts are
// dropped because the terminal already delivers them to the child's process
// group; termination requests aimed at the shim alone are passed on.
func relaySignals(proc *os.Process, logger *zap.Logger) func() {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})

	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case sig := <-sigs:
				if sig == os.Interrupt {
					continue
				}

				if err := proc.Signal(sig); err != nil {
					logger.Debug("forwarding signal", zap.Stringer("signal", sig), zap.Error(err))
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
