// Package benchmark sequences a snapshot benchmark run.
//
// A run moves through Resolving, then Generating, Snapshotting and Recording
// once per snapshot, then Imaging and RecordingImage. Any error ends the run
// in Failed; nothing created so far is cleaned up.
package benchmark

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/younsl/snapshot-profiler/internal/models"
	awsclient "github.com/younsl/snapshot-profiler/pkg/aws"
	"github.com/younsl/snapshot-profiler/pkg/datagen"
	"github.com/younsl/snapshot-profiler/pkg/recorder"
	"github.com/younsl/snapshot-profiler/pkg/utils"
)

// State is a step of the run.
type State int

const (
	Resolving State = iota
	Generating
	Snapshotting
	Recording
	Imaging
	RecordingImage
	Done
	Failed
)

var stateNames = map[State]string{
	Resolving:      "Resolving",
	Generating:     "Generating",
	Snapshotting:   "Snapshotting",
	Recording:      "Recording",
	Imaging:        "Imaging",
	RecordingImage: "RecordingImage",
	Done:           "Done",
	Failed:         "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MetadataResolver determines the instance and volume under test.
type MetadataResolver interface {
	Resolve(ctx context.Context) (models.RunContext, error)
}

// DataGenerator writes a random data file and returns its path.
type DataGenerator interface {
	Generate(ctx context.Context, sizeGB int) (string, error)
}

// SnapshotCreator creates a snapshot and waits for it to complete.
type SnapshotCreator interface {
	CreateAndWait(ctx context.Context, req awsclient.SnapshotRequest) (models.SnapshotRecord, error)
}

// ImageBuilder registers an image from a snapshot and waits for it.
type ImageBuilder interface {
	Build(ctx context.Context, snapshotID, label string) (models.ImageRecord, error)
}

// Indicator shows progress while a step blocks.
type Indicator interface {
	Start(message string)
	Stop(final string)
}

type nopIndicator struct{}

func (nopIndicator) Start(string) {}
func (nopIndicator) Stop(string)  {}

// Options are the run parameters.
type Options struct {
	NumSnapshots int
	SizeGB       int
	SnapshotCSV  string
	ImageCSV     string
	RunID        string
}

// Summary is what a completed run produced.
type Summary struct {
	Run       models.RunContext
	Snapshots []models.SnapshotRecord
	Image     models.ImageRecord
}

// Runner drives one benchmark run.
type Runner struct {
	Resolver  MetadataResolver
	Generator DataGenerator
	Snapshots SnapshotCreator
	Images    ImageBuilder
	Options   Options

	Logger    log.FieldLogger
	Indicator Indicator
	Out       io.Writer

	state State
}

// State returns the step the runner is in, or ended in.
func (r *Runner) State() State {
	return r.state
}

func (r *Runner) enter(s State, fields log.Fields) {
	r.state = s
	r.Logger.WithFields(fields).WithField("state", s).Debug("state transition")
}

// Run executes the whole benchmark. The returned summary holds everything
// recorded before a failure, so callers can still report partial results.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if r.Logger == nil {
		r.Logger = log.StandardLogger()
	}
	if r.Indicator == nil {
		r.Indicator = nopIndicator{}
	}
	if r.Out == nil {
		r.Out = io.Discard
	}
	if r.Options.NumSnapshots < 1 {
		return nil, errors.Errorf("number of snapshots must be at least 1, got %d", r.Options.NumSnapshots)
	}

	summary := &Summary{}
	err := r.run(ctx, summary)
	if err != nil {
		r.enter(Failed, log.Fields{"error": err})
		return summary, err
	}
	r.enter(Done, nil)
	return summary, nil
}

func (r *Runner) run(ctx context.Context, summary *Summary) error {
	r.enter(Resolving, nil)
	run, err := r.Resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	run.RunID = r.Options.RunID
	summary.Run = run
	fmt.Fprintf(r.Out, "Instance %s, volume %s (%s)\n", run.InstanceID, run.VolumeID, run.Region)
	if size := run.Volume.Size; size > 0 && r.Options.SizeGB >= size {
		r.Logger.WithFields(log.Fields{"volume": run.VolumeID, "volume_gib": size, "size_gb": r.Options.SizeGB}).
			Warn("data file is at least as large as the volume; dd is likely to run out of space")
	}

	var (
		lastSnapshotID string
		lastLabel      string
	)
	for n := 1; n <= r.Options.NumSnapshots; n++ {
		fields := log.Fields{"snapshot": n}

		r.enter(Generating, fields)
		path, err := r.Generator.Generate(ctx, r.Options.SizeGB)
		if err != nil {
			return errors.Wrapf(err, "snapshot %d", n)
		}
		label := datagen.Label(path)
		fmt.Fprintf(r.Out, "File %s created successfully\n", path)

		r.enter(Snapshotting, fields)
		r.Indicator.Start(fmt.Sprintf(" Waiting for snapshot %d/%d ...", n, r.Options.NumSnapshots))
		rec, err := r.Snapshots.CreateAndWait(ctx, awsclient.SnapshotRequest{
			VolumeID: run.VolumeID,
			Number:   n,
			Label:    label,
		})
		if err != nil {
			r.Indicator.Stop("")
			return errors.Wrapf(err, "snapshot %d", n)
		}
		r.Indicator.Stop(fmt.Sprintf("✓ Snapshot %s completed in %s\n", rec.SnapshotID, utils.FormatSeconds(rec.ElapsedSeconds)))

		r.enter(Recording, fields)
		if err := recorder.AppendSnapshot(r.Options.SnapshotCSV, rec); err != nil {
			return err
		}
		summary.Snapshots = append(summary.Snapshots, rec)
		lastSnapshotID, lastLabel = rec.SnapshotID, label
	}

	r.enter(Imaging, log.Fields{"snapshot": lastSnapshotID})
	r.Indicator.Start(fmt.Sprintf(" Waiting for AMI from %s ...", lastSnapshotID))
	img, err := r.Images.Build(ctx, lastSnapshotID, lastLabel)
	if err != nil {
		r.Indicator.Stop("")
		return errors.Wrap(err, "image")
	}
	r.Indicator.Stop(fmt.Sprintf("✓ AMI %s available in %s\n", img.ImageID, utils.FormatSeconds(img.ElapsedSeconds)))

	r.enter(RecordingImage, log.Fields{"image": img.ImageID})
	if err := recorder.AppendImage(r.Options.ImageCSV, img); err != nil {
		return err
	}
	summary.Image = img
	return nil
}
