// Package execx runs external tools (the Ultralytics CLI, the Azure CLI) on
// behalf of detectctl. Callers depend on Runner so tests can record commands
// instead of executing them.
package execx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"
)

// Cmd describes one process invocation.
type Cmd struct {
	Path string
	Args []string
	Env  map[string]string // additional env vars
	Dir  string            // working directory
}

// String renders the command the way it would be typed in a shell.
func (c Cmd) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Path))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n'\"$`\\*?&;|<>()") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, c Cmd) error
}

// ExecRunner runs commands with os/exec, forwarding their output line by line
// to Stdout and Stderr (os.Stdout/os.Stderr when nil). WaitDelay bounds how long
// Run waits for the output pipes after the process exits or ctx is cancelled;
// zero means defaultWaitDelay.
type ExecRunner struct {
	Stdout    io.Writer
	Stderr    io.Writer
	WaitDelay time.Duration
}

const defaultWaitDelay = 5 * time.Second

func (r ExecRunner) Run(ctx context.Context, c Cmd) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	// inherit environment
	cmd.Env = os.Environ()
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, c.Env[k]))
	}
	// grandchildren may keep the pipes open after the child is killed
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}
	var mu sync.Mutex
	stdout := &lineWriter{mu: &mu, w: orDefault(r.Stdout, os.Stdout)}
	stderr := &lineWriter{mu: &mu, w: orDefault(r.Stderr, os.Stderr)}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.Path, err)
	}
	err := cmd.Wait()
	stdout.Close()
	stderr.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", c.Path, err)
	}
	return nil
}

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}

// maxLine caps a buffered partial line; longer output is forwarded in pieces.
const maxLine = 64 << 10

// lineWriter forwards complete lines to w. A carriage return also ends a
// line, so progress bars that redraw in place show up as separate lines.
// It never fails a write, so the child is never blocked on a full pipe.
type lineWriter struct {
	mu     *sync.Mutex // shared by stdout and stderr of one command
	w      io.Writer
	buf    []byte
	lastCR bool
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexAny(p, "\r\n")
		if i < 0 {
			lw.buf = append(lw.buf, p...)
			if len(lw.buf) >= maxLine {
				lw.flush()
			}
			break
		}
		lw.buf = append(lw.buf, p[:i]...)
		cr := p[i] == '\r'
		// "\r\n" is one line end
		if !(p[i] == '\n' && lw.lastCR && len(lw.buf) == 0) {
			lw.flush()
		}
		lw.lastCR = cr
		p = p[i+1:]
	}
	return n, nil
}

func (lw *lineWriter) flush() {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.buf = append(lw.buf, '\n')
	_, _ = lw.w.Write(lw.buf)
	lw.buf = lw.buf[:0]
	lw.lastCR = false
}

// Close forwards a trailing partial line.
func (lw *lineWriter) Close() {
	if len(lw.buf) > 0 {
		lw.flush()
	}
}

// Recorder is a Runner that records commands instead of running them. Err,
// when set, is returned for the command at index FailAt.
type Recorder struct {
	mu     sync.Mutex
	Cmds   []Cmd
	Err    error
	FailAt int
}

func (r *Recorder) Run(_ context.Context, c Cmd) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Cmds = append(r.Cmds, c)
	if r.Err != nil && len(r.Cmds)-1 == r.FailAt {
		return r.Err
	}
	return nil
}
