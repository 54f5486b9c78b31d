// Package viewer hands generated images to an external program.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Opener displays the file at path.
type Opener interface {
	Open(ctx context.Context, path string) error
}

// New returns a Command opener when command is set and the platform
// default viewer otherwise.
func New(command string, timeout time.Duration, log *slog.Logger) Opener {
	if strings.TrimSpace(command) != "" {
		return NewCommand(command, timeout, log)
	}
	return NewSystem(log)
}

// System opens files with the desktop's default handler. The handler is
// started and left running.
type System struct {
	log *slog.Logger
}

// NewSystem returns an opener for the platform default viewer.
func NewSystem(log *slog.Logger) *System {
	return &System{log: log}
}

// Open implements Opener. The launcher is detached from ctx so the viewer
// outlives the caller.
func (s *System) Open(_ context.Context, path string) error {
	name, args := systemCommand(runtime.GOOS, path)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	s.log.Debug("viewer started", "program", name, "path", path, "pid", cmd.Process.Pid)

	// Reap the launcher so it does not linger as a zombie.
	go cmd.Wait()
	return nil
}

func systemCommand(goos, path string) (string, []string) {
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	case "darwin":
		return "open", []string{path}
	default: // "linux", "freebsd", "openbsd", "netbsd"
		return "xdg-open", []string{path}
	}
}

// Command runs a user supplied shell command. Every "{path}" in the template
// is replaced with the quoted image path; when the template has no
// placeholder the path is appended.
type Command struct {
	template string
	timeout  time.Duration
	log      *slog.Logger
}

// NewCommand creates a Command opener. A non-positive timeout means 10s.
func NewCommand(template string, timeout time.Duration, log *slog.Logger) *Command {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Command{template: template, timeout: timeout, log: log}
}

// Expand returns the shell command line for path.
func (c *Command) Expand(path string) string {
	quoted := shellQuote(path)
	if strings.Contains(c.template, "{path}") {
		return strings.ReplaceAll(c.template, "{path}", quoted)
	}
	return c.template + " " + quoted
}

// Open implements Opener. It waits for the command to exit or the timeout
// to elapse.
func (c *Command) Open(ctx context.Context, path string) error {
	line := c.Expand(path)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.log.Info("viewer running command", "command", line)

	proc := exec.CommandContext(ctx, "sh", "-c", line)
	output, err := proc.CombinedOutput()
	if err != nil {
		c.log.Error("viewer command failed", "error", err, "output", string(output))
		return fmt.Errorf("viewer command: %w", err)
	}
	return nil
}

// Noop never opens anything.
type Noop struct{}

// Open implements Opener.
func (Noop) Open(context.Context, string) error { return nil }

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
