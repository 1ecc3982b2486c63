//go:build !windows

package runner

import (
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeMeaning(t *testing.T) {
	cases := []struct {
		code    int
		meaning string
	}{
		{0, "success"},
		{-int(syscall.SIGTERM), "terminated"},
		{-int(syscall.SIGKILL), "killed"},
		{247, "out-of-memory"},
		{1, "failed"},
	}
	for _, c := range cases {
		assert.Equal(t, c.meaning, exitCodeMeaning(c.code), "code %d", c.code)
	}
}

func TestProcessAlive(t *testing.T) {
	assert.True(t, processAlive(os.Getpid()))
	// a pid this large is exceedingly unlikely to be in use.
	assert.False(t, processAlive(1<<30))
}
