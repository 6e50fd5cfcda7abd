// Package awstest provides an in-memory EC2 API for tests.
package awstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
)

// FakeEC2 records requests and answers them from its fields.
// Snapshots and images reach their ready state on the first poll unless
// SnapshotState or ImageState say otherwise.
type FakeEC2 struct {
	mu sync.Mutex

	Reservations  []types.Reservation
	Volumes       []types.Volume
	Regions       []string
	SnapshotState types.SnapshotState
	ImageState    types.ImageState

	DescribeInstancesErr error
	DescribeVolumesErr   error
	CreateSnapshotErr    error
	CopySnapshotErr      error
	FastRestoreErr       error
	FastRestoreFailZone  string
	RegisterImageErr     error

	CreateSnapshotCalls []*ec2.CreateSnapshotInput
	CopySnapshotCalls   []*ec2.CopySnapshotInput
	FastRestoreCalls    []*ec2.EnableFastSnapshotRestoresInput
	RegisterImageCalls  []*ec2.RegisterImageInput
	DescribeCalls       int

	seq int
}

// NewFakeEC2 returns a fake describing one instance with one EBS volume
func NewFakeEC2(instanceID, volumeID string) *FakeEC2 {
	return &FakeEC2{
		Reservations: []types.Reservation{{
			Instances: []types.Instance{{
				InstanceId: aws.String(instanceID),
				BlockDeviceMappings: []types.InstanceBlockDeviceMapping{{
					DeviceName: aws.String("/dev/xvda"),
					Ebs:        &types.EbsInstanceBlockDevice{VolumeId: aws.String(volumeID)},
				}},
			}},
		}},
		Volumes: []types.Volume{{
			VolumeId:         aws.String(volumeID),
			Size:             aws.Int32(8),
			VolumeType:       types.VolumeTypeGp3,
			State:            types.VolumeStateInUse,
			AvailabilityZone: aws.String("us-east-1a"),
			Iops:             aws.Int32(3000),
		}},
		SnapshotState: types.SnapshotStateCompleted,
		ImageState:    types.ImageStateAvailable,
	}
}

// APIError builds a service error the way the SDK surfaces them
func APIError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message}
}

func (f *FakeEC2) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%017d", prefix, f.seq)
}

func (f *FakeEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DescribeInstancesErr != nil {
		return nil, f.DescribeInstancesErr
	}
	return &ec2.DescribeInstancesOutput{Reservations: f.Reservations}, nil
}

func (f *FakeEC2) DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DescribeVolumesErr != nil {
		return nil, f.DescribeVolumesErr
	}
	out := &ec2.DescribeVolumesOutput{}
	for _, v := range f.Volumes {
		for _, id := range params.VolumeIds {
			if aws.ToString(v.VolumeId) == id {
				out.Volumes = append(out.Volumes, v)
			}
		}
	}
	return out, nil
}

func (f *FakeEC2) DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &ec2.DescribeRegionsOutput{}
	for _, r := range f.Regions {
		out.Regions = append(out.Regions, types.Region{RegionName: aws.String(r)})
	}
	return out, nil
}

func (f *FakeEC2) CreateSnapshot(ctx context.Context, params *ec2.CreateSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateSnapshotCalls = append(f.CreateSnapshotCalls, params)
	if f.CreateSnapshotErr != nil {
		return nil, f.CreateSnapshotErr
	}
	return &ec2.CreateSnapshotOutput{
		SnapshotId: aws.String(f.nextID("snap")),
		VolumeId:   params.VolumeId,
		State:      types.SnapshotStatePending,
	}, nil
}

func (f *FakeEC2) CopySnapshot(ctx context.Context, params *ec2.CopySnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CopySnapshotOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CopySnapshotCalls = append(f.CopySnapshotCalls, params)
	if f.CopySnapshotErr != nil {
		return nil, f.CopySnapshotErr
	}
	return &ec2.CopySnapshotOutput{SnapshotId: aws.String(f.nextID("snap"))}, nil
}

func (f *FakeEC2) DescribeSnapshots(ctx context.Context, params *ec2.DescribeSnapshotsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DescribeCalls++
	out := &ec2.DescribeSnapshotsOutput{}
	for _, id := range params.SnapshotIds {
		out.Snapshots = append(out.Snapshots, types.Snapshot{
			SnapshotId: aws.String(id),
			State:      f.SnapshotState,
		})
	}
	return out, nil
}

func (f *FakeEC2) EnableFastSnapshotRestores(ctx context.Context, params *ec2.EnableFastSnapshotRestoresInput, optFns ...func(*ec2.Options)) (*ec2.EnableFastSnapshotRestoresOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FastRestoreCalls = append(f.FastRestoreCalls, params)
	if f.FastRestoreErr != nil {
		return nil, f.FastRestoreErr
	}

	out := &ec2.EnableFastSnapshotRestoresOutput{}
	for _, id := range params.SourceSnapshotIds {
		for _, zone := range params.AvailabilityZones {
			if zone == f.FastRestoreFailZone {
				out.Unsuccessful = append(out.Unsuccessful, types.EnableFastSnapshotRestoreErrorItem{
					SnapshotId: aws.String(id),
					FastSnapshotRestoreStateErrors: []types.EnableFastSnapshotRestoreStateErrorItem{{
						AvailabilityZone: aws.String(zone),
						Error: &types.EnableFastSnapshotRestoreStateError{
							Code:    aws.String("InvalidParameterValue"),
							Message: aws.String("fast snapshot restore is not supported in " + zone),
						},
					}},
				})
				continue
			}
			out.Successful = append(out.Successful, types.EnableFastSnapshotRestoreSuccessItem{
				SnapshotId:       aws.String(id),
				AvailabilityZone: aws.String(zone),
				State:            types.FastSnapshotRestoreStateCodeEnabling,
			})
		}
	}
	return out, nil
}

func (f *FakeEC2) RegisterImage(ctx context.Context, params *ec2.RegisterImageInput, optFns ...func(*ec2.Options)) (*ec2.RegisterImageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RegisterImageCalls = append(f.RegisterImageCalls, params)
	if f.RegisterImageErr != nil {
		return nil, f.RegisterImageErr
	}
	return &ec2.RegisterImageOutput{ImageId: aws.String(f.nextID("ami"))}, nil
}

func (f *FakeEC2) DescribeImages(ctx context.Context, params *ec2.DescribeImagesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DescribeCalls++
	out := &ec2.DescribeImagesOutput{}
	for _, id := range params.ImageIds {
		out.Images = append(out.Images, types.Image{
			ImageId: aws.String(id),
			State:   f.ImageState,
		})
	}
	return out, nil
}
