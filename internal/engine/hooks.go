package engine

import (
	"github.com/rs/zerolog"

	"github.com/maumercado/flowcore/internal/logger"
)

// runHooks invokes hooks synchronously, in order, on the goroutine that
// reached the terminal state. A hook that panics is recovered and
// logged, never allowed to affect the task's own result — mirroring
// the original's "hook errors are logged and swallowed" rule.
func runHooks(hooks []Hook, task *Task, run *TaskRun, state State) {
	log := logger.WithTaskRun(run.ID.String())
	for i, hook := range hooks {
		runHook(log, hook, task, run, state, i)
	}
}

func runHook(log zerolog.Logger, hook Hook, task *Task, run *TaskRun, state State, index int) {
	log.Debug().Int("hook_index", index).Str("state_type", string(state.Type)).Msg("running task hook")
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int("hook_index", index).Msg("task hook panicked")
			return
		}
		log.Debug().Int("hook_index", index).Msg("task hook finished")
	}()
	hook(task, run, state)
}
