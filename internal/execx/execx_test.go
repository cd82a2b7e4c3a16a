package execx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCmdString(t *testing.T) {
	c := Cmd{Path: "yolo", Args: []string{"detect", "train", "data=my data.yaml", ""}}
	assert.Equal(t, `yolo detect train 'data=my data.yaml' ''`, c.String())
	assert.Equal(t, `echo 'it'\''s'`, Cmd{Path: "echo", Args: []string{"it's"}}.String())
}

func TestLineWriterSplitsLines(t *testing.T) {
	var buf bytes.Buffer
	lw := &lineWriter{mu: &sync.Mutex{}, w: &buf}
	_, _ = lw.Write([]byte("line1\nli"))
	_, _ = lw.Write([]byte("ne2\r\n\n 10%\r 20%\r"))
	_, _ = lw.Write([]byte("tail"))
	lw.Close()
	assert.Equal(t, "line1\nline2\n\n 10%\n 20%\ntail\n", buf.String())
}

func TestLineWriterSplitsOverlongLines(t *testing.T) {
	var buf bytes.Buffer
	lw := &lineWriter{mu: &sync.Mutex{}, w: &buf}
	chunk := bytes.Repeat([]byte("x"), 32<<10)
	for i := 0; i < 5; i++ {
		_, _ = lw.Write(chunk)
	}
	lw.Close()
	assert.Equal(t, 5*len(chunk), strings.Count(buf.String(), "x"))
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	var out, errOut bytes.Buffer
	r := ExecRunner{Stdout: &out, Stderr: &errOut}
	err := r.Run(context.Background(), Cmd{Path: "sh", Args: []string{"-c", `echo "$GREETING"; echo oops 1>&2`}, Env: map[string]string{"GREETING": "hello"}})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.String())
	assert.Equal(t, "oops\n", errOut.String())

	err = r.Run(context.Background(), Cmd{Path: "sh", Args: []string{"-c", "exit 3"}})
	var ee *exec.ExitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 3, ee.ExitCode())

	err = r.Run(context.Background(), Cmd{Path: "definitely-not-a-binary-12345"})
	assert.Error(t, err)
}

func requireSh(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerDrainsLineWithoutNewline(t *testing.T) {
	requireSh(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	var out bytes.Buffer
	r := ExecRunner{Stdout: &out, Stderr: io.Discard}
	err := r.Run(ctx, Cmd{Path: "sh", Args: []string{"-c", `head -c 3000000 /dev/zero | tr '\0' x; echo done`}})
	require.NoError(t, err)
	assert.Equal(t, 3000000, strings.Count(out.String(), "x"))
	assert.True(t, strings.HasSuffix(out.String(), "done\n"))
}

func TestExecRunnerReturnsOnCancelDespiteOrphanedPipe(t *testing.T) {
	requireSh(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	r := ExecRunner{Stdout: io.Discard, Stderr: io.Discard, WaitDelay: 200 * time.Millisecond}
	start := time.Now()
	err := r.Run(ctx, Cmd{Path: "sh", Args: []string{"-c", "sleep 5 & sleep 5; wait"}})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRecorder(t *testing.T) {
	boom := errors.New("boom")
	r := &Recorder{Err: boom, FailAt: 1}
	require.NoError(t, r.Run(context.Background(), Cmd{Path: "a"}))
	assert.ErrorIs(t, r.Run(context.Background(), Cmd{Path: "b"}), boom)
	assert.Len(t, r.Cmds, 2)
}
