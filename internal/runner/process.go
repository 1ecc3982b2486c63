package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/maumercado/flowcore/internal/logger"
)

// killGracePeriod is how long kill_process waits after a graceful
// terminate before escalating to a forceful kill.
const killGracePeriod = 30 * time.Second

// runProcess launches command/args as a child process with
// FLOW_RUN_ID injected into its environment, in its own process
// group, and waits for it to exit. It records the live PID via
// recordPID before waiting so a concurrent cancel_run can find it.
func runProcess(ctx context.Context, flowRunID uuid.UUID, command string, args []string, env []string, recordPID func(pid int)) (exitCode int, err error) {
	cmd := exec.Command(command, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Env = append(cmd.Env, fmt.Sprintf("PREFECT__FLOW_RUN_ID=%s", flowRunID))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("runner: start flow run process: %w", err)
	}
	recordPID(cmd.Process.Pid)

	log := logger.WithFlowRun(flowRunID.String())
	log.Info().Int("pid", cmd.Process.Pid).Msg("flow run process started")

	err = cmd.Wait()
	code := cmd.ProcessState.ExitCode()
	if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		// ExitCode reports -1 for a signal-terminated process; report
		// -signal so exitCodeMeaning can tell SIGTERM from SIGKILL.
		code = -int(ws.Signal())
	}
	log.Info().Int("pid", cmd.Process.Pid).Int("exit_code", code).
		Str("meaning", exitCodeMeaning(code)).Msg("flow run process exited")
	return code, err
}

// killProcess signals pid to terminate, polling its liveness every
// max(killGracePeriod/10, 1s) so an early exit is noticed promptly,
// and escalating to a forceful kill if it's still alive once
// killGracePeriod has elapsed — the Runner's kill_process contract.
func killProcess(ctx context.Context, pid int) error {
	if err := terminateGracefully(pid); err != nil {
		return fmt.Errorf("runner: terminate process %d: %w", pid, err)
	}

	pollInterval := killGracePeriod / 10
	if pollInterval < time.Second {
		pollInterval = time.Second
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for elapsed := time.Duration(0); elapsed < killGracePeriod; elapsed += pollInterval {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if !processAlive(pid) {
			return nil
		}
	}

	if err := terminateForcefully(pid); err != nil {
		return fmt.Errorf("runner: kill process %d: %w", pid, err)
	}
	return nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscallZero()) == nil
}
