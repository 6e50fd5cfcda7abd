package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/younsl/snapshot-profiler/internal/errs"
	"github.com/younsl/snapshot-profiler/internal/models"
)

// DescribeVolume returns size, type and placement of the benchmarked volume
func DescribeVolume(ctx context.Context, client EC2API, volumeID string) (models.VolumeInfo, error) {
	result, err := client.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{
		VolumeIds: []string{volumeID},
	})
	if err != nil {
		return models.VolumeInfo{}, apiError("DescribeVolumes", err)
	}
	if len(result.Volumes) == 0 {
		return models.VolumeInfo{}, errs.New(errs.ProviderAPIError, "DescribeVolumes", "volume "+volumeID+" not found")
	}

	volume := result.Volumes[0]
	return models.VolumeInfo{
		VolumeID:         aws.ToString(volume.VolumeId),
		Size:             int(aws.ToInt32(volume.Size)),
		VolumeType:       string(volume.VolumeType),
		State:            string(volume.State),
		AvailabilityZone: aws.ToString(volume.AvailabilityZone),
		Iops:             int(aws.ToInt32(volume.Iops)),
		Encrypted:        aws.ToBool(volume.Encrypted),
	}, nil
}
