//go:build windows

package runner

import (
	"os"
	"os/exec"
	"syscall"
)

const createNewProcessGroup = 0x00000200

// setProcessGroup puts cmd in its own process group so CTRL_BREAK_EVENT
// can later be delivered to it alone.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
}

// terminateGracefully does not send an interrupt signal on Windows.
// Go's os.Process.Signal only supports os.Kill on Windows, so a true
// CTRL_BREAK_EVENT requires cgo or golang.org/x/sys/windows; absent
// that dependency in this module, a graceful request here degrades to
// the same forceful termination as terminateForcefully.
func terminateGracefully(pid int) error {
	return terminateForcefully(pid)
}

// terminateForcefully calls TerminateProcess via os.Process.Kill.
func terminateForcefully(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

// syscallZero has no Windows equivalent that os.Process.Signal
// accepts; os.Process.Signal rejects syscall.Signal(0) on this
// platform, so processAlive reports false and killProcess returns
// after its first poll tick, the process having already been killed
// forcefully by terminateGracefully.
func syscallZero() os.Signal { return syscall.Signal(0) }

// exitCodeMeaning classifies a process's exit code per spec §4.2's
// table: 0xC000013A is the status Windows uses for Ctrl+C/Break.
func exitCodeMeaning(code int) string {
	switch {
	case code == 0:
		return "success"
	case uint32(code) == 0xC000013A:
		return "terminated"
	default:
		return "failed"
	}
}
