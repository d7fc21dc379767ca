// Package display applies wallpapers to displays. The engine only sees
// the Sink interface; the concrete sink is chosen at startup.
package display

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Sink applies an image file as the wallpaper of one display.
type Sink interface {
	Apply(ctx context.Context, displayID int, localPath string) error
}

// CommandSink shells out to a user-configured command. Occurrences of
// {display} and {path} in the command line are substituted before
// execution, so any desktop environment's wallpaper tool can be wired
// in from the config file.
type CommandSink struct {
	command []string
	logger  *slog.Logger
}

// NewCommandSink builds a sink from a command line split into argv
// form. The command must reference {path}; {display} is optional for
// tools that address all displays at once.
func NewCommandSink(command []string, logger *slog.Logger) (*CommandSink, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("display: sink command is empty")
	}

	if !strings.Contains(strings.Join(command, " "), "{path}") {
		return nil, fmt.Errorf("display: sink command must contain the {path} placeholder")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &CommandSink{command: command, logger: logger}, nil
}

// Apply runs the configured command with placeholders substituted.
func (s *CommandSink) Apply(ctx context.Context, displayID int, localPath string) error {
	argv := make([]string, len(s.command))

	for i, arg := range s.command {
		arg = strings.ReplaceAll(arg, "{display}", strconv.Itoa(displayID))
		arg = strings.ReplaceAll(arg, "{path}", localPath)
		argv[i] = arg
	}

	s.logger.Debug("applying wallpaper",
		slog.Int("display", displayID),
		slog.String("path", localPath),
		slog.String("command", argv[0]),
	)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("display: sink command for display %d failed: %w (output: %s)",
			displayID, err, strings.TrimSpace(string(output)))
	}

	return nil
}

// FuncSink adapts a function to the Sink interface. Used by tests and
// in-process integrations.
type FuncSink func(ctx context.Context, displayID int, localPath string) error

func (f FuncSink) Apply(ctx context.Context, displayID int, localPath string) error {
	return f(ctx, displayID, localPath)
}

// LogSink records what would have been applied without touching any
// display. Used for dry runs.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that only logs.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogSink{logger: logger}
}

func (s *LogSink) Apply(_ context.Context, displayID int, localPath string) error {
	s.logger.Info("dry run, wallpaper not applied",
		slog.Int("display", displayID),
		slog.String("path", localPath),
	)

	return nil
}
