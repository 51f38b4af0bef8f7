package process

import (
	"io"
	"time"
)

const defaultGracePeriod = 5 * time.Second

// Command is one invocation of an external tool.
type Command struct {
	// Binary is an executable path or a name looked up in PATH.
	Binary string
	Args   []string
	// Env entries (KEY=value) are appended to the parent environment.
	Env   []string
	Stdin io.Reader
	// GracePeriod separates SIGTERM to the process group from SIGKILL
	// when ctx is canceled. Zero means 5s.
	GracePeriod time.Duration
}

// Result is what a finished process left behind. ffmpeg writes its
// diagnostics, silencedetect lines included, to Stderr.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int // -1 when killed by a signal
	Duration time.Duration
}
