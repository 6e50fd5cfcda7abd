package aws

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younsl/snapshot-profiler/internal/errs"
	"github.com/younsl/snapshot-profiler/pkg/aws/awstest"
	"github.com/younsl/snapshot-profiler/pkg/utils"
)

func newTestOrchestrator(fake *awstest.FakeEC2, fastRestore bool) (*SnapshotOrchestrator, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return NewSnapshotOrchestrator(fake, "us-east-1", SnapshotOptions{
		WaitTimeout: time.Minute,
		FastRestore: fastRestore,
		RunID:       "run-1",
		Logger:      logger,
	}), hook
}

func TestCreateAndWait(t *testing.T) {
	fake := awstest.NewFakeEC2("i-1", "vol-1")
	s, hook := newTestOrchestrator(fake, true)

	rec, err := s.CreateAndWait(context.Background(), SnapshotRequest{VolumeID: "vol-1", Number: 2, Label: "aws-snapshot-profiler-12345"})
	require.NoError(t, err)

	assert.Equal(t, 2, rec.Number)
	assert.NotEmpty(t, rec.SnapshotID)
	assert.Equal(t, "vol-1", rec.VolumeID)
	assert.Greater(t, rec.ElapsedSeconds, 0.0)
	assert.True(t, rec.FastRestoreEnabled)
	assert.Empty(t, hook.AllEntries())

	require.Len(t, fake.CreateSnapshotCalls, 1)
	call := fake.CreateSnapshotCalls[0]
	assert.Equal(t, "vol-1", aws.ToString(call.VolumeId))
	assert.Equal(t, "Benchmark snapshot 2 (aws-snapshot-profiler-12345)", aws.ToString(call.Description))
	require.Len(t, call.TagSpecifications, 1)
	assert.Equal(t, "run-1", utils.GetTagValue(call.TagSpecifications[0].Tags, utils.TagRunID))
	assert.Equal(t, "aws-snapshot-profiler-12345-2", utils.GetTagValue(call.TagSpecifications[0].Tags, utils.TagName))

	require.Len(t, fake.FastRestoreCalls, 1)
	assert.Equal(t, []string{"us-east-1a"}, fake.FastRestoreCalls[0].AvailabilityZones)
	assert.Equal(t, []string{rec.SnapshotID}, fake.FastRestoreCalls[0].SourceSnapshotIds)
}

func TestCreateAndWaitSwallowsFastRestoreError(t *testing.T) {
	fake := awstest.NewFakeEC2("i-1", "vol-1")
	fake.FastRestoreErr = awstest.APIError("UnauthorizedOperation", "not allowed")
	s, hook := newTestOrchestrator(fake, true)

	rec, err := s.CreateAndWait(context.Background(), SnapshotRequest{VolumeID: "vol-1", Number: 1, Label: "bench"})
	require.NoError(t, err)
	assert.False(t, rec.FastRestoreEnabled)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.WarnLevel, entry.Level)
	assert.Equal(t, rec.SnapshotID, entry.Data["snapshot"])
	assert.Equal(t, errs.OptionalFeatureFailure, entry.Data["kind"])
}

func TestCreateAndWaitSwallowsUnsuccessfulFastRestore(t *testing.T) {
	fake := awstest.NewFakeEC2("i-1", "vol-1")
	fake.FastRestoreFailZone = "us-east-1a"
	s, hook := newTestOrchestrator(fake, true)

	rec, err := s.CreateAndWait(context.Background(), SnapshotRequest{VolumeID: "vol-1", Number: 1, Label: "bench"})
	require.NoError(t, err)
	assert.False(t, rec.FastRestoreEnabled)
	require.Len(t, hook.AllEntries(), 1)
	assert.Contains(t, hook.LastEntry().Message, "not supported in us-east-1a")
}

func TestCreateAndWaitWithoutFastRestore(t *testing.T) {
	fake := awstest.NewFakeEC2("i-1", "vol-1")
	s, _ := newTestOrchestrator(fake, false)

	rec, err := s.CreateAndWait(context.Background(), SnapshotRequest{VolumeID: "vol-1", Number: 1, Label: "bench"})
	require.NoError(t, err)
	assert.False(t, rec.FastRestoreEnabled)
	assert.Empty(t, fake.FastRestoreCalls)
}

func TestCreateAndWaitCreateError(t *testing.T) {
	fake := awstest.NewFakeEC2("i-1", "vol-1")
	fake.CreateSnapshotErr = awstest.APIError("SnapshotCreationPerVolumeRateExceeded", "slow down")
	s, _ := newTestOrchestrator(fake, true)

	_, err := s.CreateAndWait(context.Background(), SnapshotRequest{VolumeID: "vol-1", Number: 1, Label: "bench"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ProviderAPIError))
	assert.Contains(t, err.Error(), "SnapshotCreationPerVolumeRateExceeded")
	assert.Empty(t, fake.FastRestoreCalls)
}

func TestCreateAndWaitTimesOut(t *testing.T) {
	fake := awstest.NewFakeEC2("i-1", "vol-1")
	fake.SnapshotState = types.SnapshotStatePending
	logger, _ := test.NewNullLogger()
	s := NewSnapshotOrchestrator(fake, "us-east-1", SnapshotOptions{
		WaitTimeout: 50 * time.Millisecond,
		FastRestore: true,
		Logger:      logger,
	})

	_, err := s.CreateAndWait(context.Background(), SnapshotRequest{VolumeID: "vol-1", Number: 1, Label: "bench"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.WaiterTimeout))
	assert.Empty(t, fake.FastRestoreCalls)
}

func TestCreateAndWaitSnapshotErrorState(t *testing.T) {
	fake := awstest.NewFakeEC2("i-1", "vol-1")
	fake.SnapshotState = types.SnapshotStateError
	s, _ := newTestOrchestrator(fake, true)

	_, err := s.CreateAndWait(context.Background(), SnapshotRequest{VolumeID: "vol-1", Number: 1, Label: "bench"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ResourceFailed))
	assert.Contains(t, err.Error(), "failure state")
}

func TestCreateAndWaitCanceled(t *testing.T) {
	fake := awstest.NewFakeEC2("i-1", "vol-1")
	fake.SnapshotState = types.SnapshotStatePending
	s, _ := newTestOrchestrator(fake, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CreateAndWait(ctx, SnapshotRequest{VolumeID: "vol-1", Number: 1, Label: "bench"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Canceled))
	assert.Empty(t, fake.FastRestoreCalls)
}

func TestCopyToRegion(t *testing.T) {
	source := awstest.NewFakeEC2("i-1", "vol-1")
	target := awstest.NewFakeEC2("", "")
	s, _ := newTestOrchestrator(source, false)

	copyID, err := s.CopyToRegion(context.Background(), target, "snap-src", "copy")
	require.NoError(t, err)
	assert.NotEmpty(t, copyID)

	require.Len(t, target.CopySnapshotCalls, 1)
	assert.Equal(t, "us-east-1", aws.ToString(target.CopySnapshotCalls[0].SourceRegion))
	assert.Equal(t, "snap-src", aws.ToString(target.CopySnapshotCalls[0].SourceSnapshotId))
	assert.Empty(t, source.CopySnapshotCalls)
}
