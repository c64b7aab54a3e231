//go:build windows

package main

import (
	"os/exec"
)

func configureDaemonProc(cmd *exec.Cmd) {
	// Windows has no session concept like Setsid; default detachment is
	// sufficient for our use case.
}
