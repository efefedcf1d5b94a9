package client

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/dcpkit/godcp/logx"
)

// stdioTransport implements Transport over the standard input/output of a
// spawned child process. A crashed child surfaces as end-of-stream on
// Receive, not as a distinguishable error.
type stdioTransport struct {
	command string
	args    []string
	options *TransportOptions
	logger  logx.Logger

	connMu    sync.RWMutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	connected bool

	writeMu sync.Mutex
}

// NewStdioTransport creates a transport that spawns the given command and
// exchanges newline-delimited frames over its standard input and output.
func NewStdioTransport(command string, args []string, logger logx.Logger, options ...TransportOption) Transport {
	opts := DefaultTransportOptions()
	for _, option := range options {
		option(opts)
	}
	if logger == nil {
		logger = logx.NewNilLogger()
	}

	return &stdioTransport{
		command: command,
		args:    args,
		options: opts,
		logger:  logger,
	}
}

// Connect spawns the child process with redirected pipes.
func (t *stdioTransport) Connect(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.connected {
		return NewConnectionError(t.command, "already connected", ErrAlreadyConnected)
	}

	cmd := exec.Command(t.command, t.args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return NewConnectionError(t.command, "failed to create stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return NewConnectionError(t.command, "failed to create stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return NewConnectionError(t.command, "failed to create stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return NewConnectionError(t.command, "failed to start process", err)
	}

	// Drain the child's stderr into our logger so diagnostics are not lost.
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			t.logger.Info("%s stderr: %s", t.command, scanner.Text())
		}
	}()

	t.cmd = cmd
	t.stdin = stdin
	t.stdout = bufio.NewReader(stdout)
	t.connected = true
	t.logger.Info("stdio transport connected to process %s (pid %d)", t.command, cmd.Process.Pid)
	return nil
}

// Send writes one newline-delimited frame to the child's stdin.
func (t *stdioTransport) Send(ctx context.Context, frame []byte) error {
	t.connMu.RLock()
	stdin := t.stdin
	connected := t.connected
	t.connMu.RUnlock()

	if !connected {
		return NewConnectionError(t.command, "not connected", ErrNotConnected)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := stdin.Write(appendNewline(frame)); err != nil {
		return NewConnectionError(t.command, "failed to send frame", err)
	}
	return nil
}

// Receive reads one line from the child's stdout. It returns io.EOF when the
// child exits or closes its stdout for any reason, including a crash.
func (t *stdioTransport) Receive(ctx context.Context) ([]byte, error) {
	t.connMu.RLock()
	stdout := t.stdout
	connected := t.connected
	t.connMu.RUnlock()

	if !connected {
		return nil, NewConnectionError(t.command, "not connected", ErrNotConnected)
	}

	for {
		line, err := stdout.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
				return nil, io.EOF
			}
			return nil, NewConnectionError(t.command, "failed to receive frame", err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		return line, nil
	}
}

// Close requests termination of the child process and waits for it to exit.
func (t *stdioTransport) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if !t.connected {
		return nil
	}
	t.connected = false

	// Closing stdin is the polite shutdown request for line-oriented peers.
	if err := t.stdin.Close(); err != nil {
		t.logger.Warn("failed to close stdin of %s: %v", t.command, err)
	}

	waited := make(chan error, 1)
	go func() { waited <- t.cmd.Wait() }()

	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		if err := t.cmd.Process.Signal(os.Interrupt); err != nil {
			t.logger.Warn("failed to interrupt process %s: %v", t.command, err)
		}
		select {
		case <-waited:
		case <-time.After(2 * time.Second):
			if err := t.cmd.Process.Kill(); err != nil {
				t.logger.Error("failed to kill process %s: %v", t.command, err)
			}
			<-waited
		}
	}

	t.logger.Info("stdio transport disconnected from process %s", t.command)
	return nil
}

// IsConnected reports whether the child process is still attached.
func (t *stdioTransport) IsConnected() bool {
	t.connMu.RLock()
	defer t.connMu.RUnlock()
	return t.connected
}
