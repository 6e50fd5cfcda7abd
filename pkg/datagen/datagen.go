// Package datagen writes random-content files so snapshots have data to copy.
package datagen

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/younsl/snapshot-profiler/internal/errs"
)

// CommandRunner executes an external command and returns its stderr on failure.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// Generator creates /tmp/<prefix>-<5 digits>.dat files filled from /dev/urandom.
type Generator struct {
	Dir    string
	Prefix string
	Runner CommandRunner
	Logger log.FieldLogger

	mu   sync.Mutex
	rand *rand.Rand
}

// New creates a Generator writing into dir.
func New(dir, prefix string) *Generator {
	return &Generator{
		Dir:    dir,
		Prefix: prefix,
		Runner: ExecRunner{},
		Logger: log.StandardLogger(),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate synchronously writes a sizeGB file of random bytes and returns its path.
// Files are never removed.
func (g *Generator) Generate(ctx context.Context, sizeGB int) (string, error) {
	path := g.nextPath()
	sizeMB := sizeGB * 1024

	g.Logger.WithField("path", path).Infof("creating %s random file", humanize.IBytes(uint64(sizeGB)<<30))
	err := g.Runner.Run(ctx, "dd",
		"if=/dev/urandom",
		"of="+path,
		"bs=1M",
		fmt.Sprintf("count=%d", sizeMB),
	)
	if err != nil {
		return "", errs.Wrap(errs.LocalResourceError, "dd", "could not write "+path, err)
	}
	return path, nil
}

func (g *Generator) nextPath() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rand == nil {
		g.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	n := 10000 + g.rand.Intn(90000)
	return filepath.Join(g.Dir, fmt.Sprintf("%s-%d.dat", g.Prefix, n))
}

// Label strips the directory and the .dat suffix from a generated path.
func Label(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".dat")
}
