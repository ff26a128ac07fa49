//go:build unix

package audio

import (
	"os/exec"
	"syscall"
)

// detach starts cmd in its own process group so a terminal interrupt reaches
// only the analyser. In-flight conversions then stop only when their context
// is cancelled.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
