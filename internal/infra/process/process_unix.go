//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// configureQuery is a no-op on Unix.
func configureQuery(_ *exec.Cmd) {}

// configureDetached puts the app in its own process group so signals sent
// to syncfix do not reach it.
func configureDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
