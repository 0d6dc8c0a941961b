// Package notify delivers job completion notifications to the local OS
// notification center. The notification center is an external collaborator:
// delivery is best effort and failures never reach job state.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/dmaia/remora/internal/core/ports"
)

// Desktop shells out to the platform notification command: osascript on
// macOS, notify-send elsewhere.
type Desktop struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*Desktop)(nil)

func NewDesktop(logger *slog.Logger) *Desktop {
	return &Desktop{logger: logger}
}

func (d *Desktop) Notify(ctx context.Context, title, message string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", sanitize(message), sanitize(title))
		cmd = exec.CommandContext(ctx, "osascript", "-e", script)
	default:
		cmd = exec.CommandContext(ctx, "notify-send", sanitize(title), sanitize(message))
	}

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notification command failed: %v (%s)", err, strings.TrimSpace(string(out)))
	}
	d.logger.Debug("notification delivered", "title", title)
	return nil
}

// sanitize strips characters that would escape the shell-quoted script.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.ReplaceAll(s, "\n", " ")
}

// Log is a Notifier that only writes to the log. It stands in when desktop
// notifications are disabled or no display is available.
type Log struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*Log)(nil)

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, title, message string) error {
	l.logger.Info("notification", "title", title, "message", message)
	return nil
}
