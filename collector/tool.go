package collector

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"
)

// maxLineLength caps a single line of tool output. Describe output lines are short, this only guards the scanner.
const maxLineLength = 1024 * 1024

// ExitError is returned if the inspection tool ran but exited with a non-zero status.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%v exited with status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%v exited with status %d: %v", e.Command, e.ExitCode, e.Stderr)
}

// Tool collects consumer group lag by running kafka-consumer-groups.sh as a subprocess.
type Tool struct {
	cfg    Config
	logger *zap.Logger
}

func NewTool(cfg Config, logger *zap.Logger) *Tool {
	return &Tool{
		cfg:    cfg,
		logger: logger.With(zap.String("source", "consumer_groups_tool")),
	}
}

// Command returns the executable path and the argument vector used to describe the configured group. A configured
// zookeeper address selects the legacy consumer protocol, otherwise the bootstrap server is passed along with the
// new consumer flag.
func (t *Tool) Command() (string, []string) {
	path := strings.TrimRight(t.cfg.KafkaDir, "/") + "/" + ConsumerGroupsBinary

	args := []string{"--group", t.cfg.Group, "--describe"}
	if t.cfg.Zookeeper != "" {
		args = append(args, "--zookeeper", t.cfg.Zookeeper)
	} else {
		args = append(args, "--new-consumer", "--bootstrap-server", t.cfg.BootstrapServer)
	}

	return path, args
}

// Collect runs the inspection tool and returns its stdout line by line. The arguments are passed as a vector, no shell
// is involved. A non-zero exit status is reported as *ExitError and the captured output is discarded.
func (t *Tool) Collect(ctx context.Context) ([]string, error) {
	path, args := t.Command()
	t.logger.Debug("executing consumer group inspection tool",
		zap.String("command", shellquote.Join(append([]string{path}, args...)...)))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to attach to stdout of %v: %w", path, err)
	}

	err = cmd.Start()
	if err != nil {
		return nil, fmt.Errorf("failed to start %v: %w", path, err)
	}

	lines := make([]string, 0)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Keep draining so that the process can't block on a full pipe while we wait for it
		_, _ = io.Copy(io.Discard, stdout)
	}

	err = cmd.Wait()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%v was interrupted: %w", path, ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{
				Command:  path,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return nil, fmt.Errorf("failed to wait for %v: %w", path, err)
	}
	if scanErr != nil {
		return nil, fmt.Errorf("failed to read output of %v: %w", path, scanErr)
	}

	t.logger.Debug("inspection tool finished", zap.Int("line_count", len(lines)))

	return lines, nil
}
