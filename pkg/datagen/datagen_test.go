package datagen

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younsl/snapshot-profiler/internal/errs"
)

type recordingRunner struct {
	name string
	args []string
	err  error
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) error {
	r.name = name
	r.args = args
	return r.err
}

func newTestGenerator(dir string, runner CommandRunner) *Generator {
	g := New(dir, "aws-snapshot-profiler")
	g.Runner = runner
	g.Logger, _ = test.NewNullLogger()
	return g
}

func TestGenerateInvokesDD(t *testing.T) {
	runner := &recordingRunner{}
	g := newTestGenerator("/tmp", runner)

	path, err := g.Generate(context.Background(), 2)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^/tmp/aws-snapshot-profiler-[1-9][0-9]{4}\.dat$`), path)
	assert.Equal(t, "dd", runner.name)
	assert.Equal(t, []string{"if=/dev/urandom", "of=" + path, "bs=1M", "count=2048"}, runner.args)
}

func TestGenerateFailure(t *testing.T) {
	runner := &recordingRunner{err: errors.New("exit status 1: No space left on device")}
	g := newTestGenerator("/tmp", runner)

	_, err := g.Generate(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.LocalResourceError))
	assert.Contains(t, err.Error(), "No space left on device")
}

func TestGenerateWithDD(t *testing.T) {
	if _, err := exec.LookPath("dd"); err != nil {
		t.Skip("dd not available")
	}
	if _, err := os.Stat("/dev/urandom"); err != nil {
		t.Skip("/dev/urandom not available")
	}

	dir := t.TempDir()
	g := newTestGenerator(dir, ExecRunner{})
	g.Prefix = "dd-check"

	// dd writes an empty file for count=0
	path, err := g.Generate(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestExecRunnerReportsStderr(t *testing.T) {
	if _, err := exec.LookPath("dd"); err != nil {
		t.Skip("dd not available")
	}
	err := ExecRunner{}.Run(context.Background(), "dd", "if=/nonexistent/input", "of=/dev/null", "count=1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/input")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "aws-snapshot-profiler-12345", Label("/tmp/aws-snapshot-profiler-12345.dat"))
	assert.Equal(t, "plain", Label("plain"))
}
