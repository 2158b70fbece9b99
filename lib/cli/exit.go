// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit code without an extra error
// message — the command has already printed what the user needs to
// see (usage text, a password prompt failure) and main only needs to
// know the process's exit status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit code %d", e.Code) }

// ExitCode returns the exit code. main checks for this interface on
// the error run returns to distinguish a handled non-zero exit from
// an unexpected failure that still needs printing.
func (e *ExitError) ExitCode() int { return e.Code }
