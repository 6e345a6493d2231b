package notify

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/jonboulle/clockwork"
)

// SendToastCommand is the subcommand a ProcessRunner invokes.
const SendToastCommand = "send-toast"

// Runner shows one toast and returns once it has been hidden.
type Runner interface {
	Run(ctx context.Context, req Request) error
}

// InlineRunner presents toasts from the calling goroutine.
type InlineRunner struct {
	Presenter Presenter
	Clock     clockwork.Clock
	TempDir   string
}

func (r InlineRunner) Run(ctx context.Context, req Request) error {
	return Present(ctx, r.Presenter, req, r.Clock, r.TempDir)
}

// ProcessRunner presents each toast in a short-lived child process running
// "<Executable> <Args...> send-toast <request file>". A hung presenter then
// costs one child, which is interrupted when ctx ends.
type ProcessRunner struct {
	Executable string
	Args       []string
	TempDir    string
	// WaitDelay bounds how long an interrupted child may take to exit.
	WaitDelay time.Duration
}

func (r ProcessRunner) Run(ctx context.Context, req Request) error {
	path, err := WriteRequestFile(r.TempDir, req)
	if err != nil {
		return fmt.Errorf("write toast request: %w", err)
	}
	defer os.Remove(path)

	args := append(append([]string{}, r.Args...), SendToastCommand, path)
	cmd := exec.CommandContext(ctx, r.Executable, args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 2 * time.Second
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", SendToastCommand, err, bytes.TrimSpace(out))
	}
	return nil
}
