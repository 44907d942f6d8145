//go:build !windows && !unix

package process

import "os/exec"

func configureQuery(_ *exec.Cmd) {}

func configureDetached(_ *exec.Cmd) {}
