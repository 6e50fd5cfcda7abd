package aws

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	log "github.com/sirupsen/logrus"
	"github.com/younsl/snapshot-profiler/internal/errs"
	"github.com/younsl/snapshot-profiler/internal/models"
	"github.com/younsl/snapshot-profiler/pkg/utils"
)

// SnapshotOptions configures a SnapshotOrchestrator
type SnapshotOptions struct {
	WaitTimeout time.Duration
	FastRestore bool
	RunID       string
	Logger      log.FieldLogger
}

// SnapshotRequest describes one benchmark snapshot
type SnapshotRequest struct {
	VolumeID string
	Number   int
	Label    string
}

// SnapshotOrchestrator creates snapshots and times them until completion
type SnapshotOrchestrator struct {
	client EC2API
	region string
	opts   SnapshotOptions
}

// NewSnapshotOrchestrator creates a SnapshotOrchestrator for region
func NewSnapshotOrchestrator(client EC2API, region string, opts SnapshotOptions) *SnapshotOrchestrator {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	return &SnapshotOrchestrator{client: client, region: region, opts: opts}
}

// CreateAndWait snapshots the volume and blocks until it completes.
// The elapsed time covers submission as well as provider-side processing.
func (s *SnapshotOrchestrator) CreateAndWait(ctx context.Context, req SnapshotRequest) (models.SnapshotRecord, error) {
	start := time.Now()

	out, err := s.client.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
		VolumeId:    aws.String(req.VolumeID),
		Description: aws.String(fmt.Sprintf("Benchmark snapshot %d (%s)", req.Number, req.Label)),
		TagSpecifications: utils.TagSpecification(types.ResourceTypeSnapshot, map[string]string{
			utils.TagName:     fmt.Sprintf("%s-%d", req.Label, req.Number),
			utils.TagRunID:    s.opts.RunID,
			utils.TagSequence: strconv.Itoa(req.Number),
		}),
	})
	if err != nil {
		return models.SnapshotRecord{}, apiError("CreateSnapshot", err)
	}
	snapshotID := aws.ToString(out.SnapshotId)
	s.opts.Logger.WithField("snapshot", snapshotID).Debug("snapshot requested")

	if err := s.waitCompleted(ctx, s.client, snapshotID); err != nil {
		return models.SnapshotRecord{}, err
	}
	elapsed := utils.ElapsedSeconds(start)

	record := models.SnapshotRecord{
		Number:         req.Number,
		SnapshotID:     snapshotID,
		VolumeID:       req.VolumeID,
		Label:          req.Label,
		ElapsedSeconds: elapsed,
		CompletedAt:    time.Now(),
	}

	if s.opts.FastRestore {
		if err := s.EnableFastRestore(ctx, snapshotID); err != nil {
			s.opts.Logger.WithFields(log.Fields{
				"snapshot": snapshotID,
				"zone":     utils.FastRestoreZone(s.region),
				"kind":     errs.KindOf(err),
			}).Warnf("could not enable fast snapshot restore: %v", err)
		} else {
			record.FastRestoreEnabled = true
		}
	}

	return record, nil
}

// EnableFastRestore enables fast snapshot restore for the snapshot in the
// region's "a" availability zone. Failures are OptionalFeatureFailure.
func (s *SnapshotOrchestrator) EnableFastRestore(ctx context.Context, snapshotID string) error {
	const op = "EnableFastSnapshotRestores"
	zone := utils.FastRestoreZone(s.region)

	out, err := s.client.EnableFastSnapshotRestores(ctx, &ec2.EnableFastSnapshotRestoresInput{
		AvailabilityZones: []string{zone},
		SourceSnapshotIds: []string{snapshotID},
	})
	if err != nil {
		return errs.Wrap(errs.OptionalFeatureFailure, op, "request failed", err)
	}
	if len(out.Unsuccessful) > 0 {
		return errs.New(errs.OptionalFeatureFailure, op, describeFastRestoreFailures(out.Unsuccessful))
	}
	return nil
}

func describeFastRestoreFailures(items []types.EnableFastSnapshotRestoreErrorItem) string {
	var parts []string
	for _, item := range items {
		for _, stateErr := range item.FastSnapshotRestoreStateErrors {
			msg := "unknown error"
			if stateErr.Error != nil {
				msg = fmt.Sprintf("%s: %s", aws.ToString(stateErr.Error.Code), aws.ToString(stateErr.Error.Message))
			}
			parts = append(parts, fmt.Sprintf("%s in %s (%s)", aws.ToString(item.SnapshotId), aws.ToString(stateErr.AvailabilityZone), msg))
		}
	}
	if len(parts) == 0 {
		return "request was not successful"
	}
	return strings.Join(parts, "; ")
}

// CopyToRegion copies a completed snapshot into the region the target client
// is bound to and waits for the copy to complete.
func (s *SnapshotOrchestrator) CopyToRegion(ctx context.Context, target EC2API, snapshotID, description string) (string, error) {
	out, err := target.CopySnapshot(ctx, &ec2.CopySnapshotInput{
		SourceRegion:     aws.String(s.region),
		SourceSnapshotId: aws.String(snapshotID),
		Description:      aws.String(description),
	})
	if err != nil {
		return "", apiError("CopySnapshot", err)
	}
	copyID := aws.ToString(out.SnapshotId)

	if err := s.waitCompleted(ctx, target, copyID); err != nil {
		return "", err
	}
	return copyID, nil
}

func (s *SnapshotOrchestrator) waitCompleted(ctx context.Context, client EC2API, snapshotID string) error {
	waiter := ec2.NewSnapshotCompletedWaiter(client)
	err := waiter.Wait(ctx, &ec2.DescribeSnapshotsInput{
		SnapshotIds: []string{snapshotID},
	}, s.opts.WaitTimeout)
	if err != nil {
		return waitError("SnapshotCompleted", snapshotID, err)
	}
	return nil
}
