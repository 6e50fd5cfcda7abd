package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	log "github.com/sirupsen/logrus"
	"github.com/younsl/snapshot-profiler/internal/errs"
	"github.com/younsl/snapshot-profiler/internal/models"
	"github.com/younsl/snapshot-profiler/pkg/utils"
)

// AMI registration constants
const (
	AmiArchitecture       = types.ArchitectureValuesX8664
	AmiRootDeviceName     = "/dev/sda1"
	AmiVirtualizationType = "hvm"
	AmiVolumeType         = types.VolumeTypeGp3

	// AutoCopyRegion selects the first other region DescribeRegions returns
	AutoCopyRegion = "auto"
)

// ImageOptions configures an ImageBuilder
type ImageOptions struct {
	WaitTimeout time.Duration
	CopyRegion  string // Empty registers the image in the source region
	RunID       string
	Logger      log.FieldLogger
	Now         func() time.Time
}

// ImageBuilder registers an AMI from a snapshot and times it until available
type ImageBuilder struct {
	client    EC2API
	region    string
	factory   ClientFactory
	snapshots *SnapshotOrchestrator
	opts      ImageOptions
}

// NewImageBuilder creates an ImageBuilder.
// factory and snapshots are only used when opts.CopyRegion is set.
func NewImageBuilder(client EC2API, region string, factory ClientFactory, snapshots *SnapshotOrchestrator, opts ImageOptions) *ImageBuilder {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ImageBuilder{
		client:    client,
		region:    region,
		factory:   factory,
		snapshots: snapshots,
		opts:      opts,
	}
}

// Build registers an image whose root device is the snapshot and waits for it
// to become available. With a copy region configured, the snapshot is first
// copied there and the image is registered in that region.
func (b *ImageBuilder) Build(ctx context.Context, snapshotID, label string) (models.ImageRecord, error) {
	client, region := b.client, b.region

	if b.opts.CopyRegion != "" {
		target, err := b.copyTarget(ctx)
		if err != nil {
			return models.ImageRecord{}, err
		}
		targetClient, err := b.factory(ctx, target)
		if err != nil {
			return models.ImageRecord{}, errs.Wrap(errs.ProviderAPIError, "CopySnapshot", "create client for "+target, err)
		}

		b.opts.Logger.WithFields(log.Fields{"snapshot": snapshotID, "region": target}).Info("copying snapshot")
		copyID, err := b.snapshots.CopyToRegion(ctx, targetClient, snapshotID, "Copied benchmark snapshot")
		if err != nil {
			return models.ImageRecord{}, err
		}
		b.opts.Logger.WithFields(log.Fields{"snapshot": copyID, "region": target}).Debug("snapshot copy completed")

		client, region, snapshotID = targetClient, target, copyID
	}

	return b.register(ctx, client, region, snapshotID, label)
}

func (b *ImageBuilder) register(ctx context.Context, client EC2API, region, snapshotID, label string) (models.ImageRecord, error) {
	name := fmt.Sprintf("%s-ami-%d", label, b.opts.Now().Unix())
	start := time.Now()

	out, err := client.RegisterImage(ctx, &ec2.RegisterImageInput{
		Name:               aws.String(name),
		Architecture:       AmiArchitecture,
		RootDeviceName:     aws.String(AmiRootDeviceName),
		VirtualizationType: aws.String(AmiVirtualizationType),
		EnaSupport:         aws.Bool(true),
		BlockDeviceMappings: []types.BlockDeviceMapping{{
			DeviceName: aws.String(AmiRootDeviceName),
			Ebs: &types.EbsBlockDevice{
				SnapshotId:          aws.String(snapshotID),
				VolumeType:          AmiVolumeType,
				DeleteOnTermination: aws.Bool(true),
			},
		}},
		TagSpecifications: utils.TagSpecification(types.ResourceTypeImage, map[string]string{
			utils.TagName:  name,
			utils.TagRunID: b.opts.RunID,
		}),
	})
	if err != nil {
		return models.ImageRecord{}, apiError("RegisterImage", err)
	}
	imageID := aws.ToString(out.ImageId)

	waiter := ec2.NewImageAvailableWaiter(client)
	err = waiter.Wait(ctx, &ec2.DescribeImagesInput{
		ImageIds: []string{imageID},
	}, b.opts.WaitTimeout)
	if err != nil {
		return models.ImageRecord{}, waitError("ImageAvailable", imageID, err)
	}

	return models.ImageRecord{
		ImageID:        imageID,
		Name:           name,
		SnapshotID:     snapshotID,
		Region:         region,
		ElapsedSeconds: utils.ElapsedSeconds(start),
	}, nil
}

func (b *ImageBuilder) copyTarget(ctx context.Context) (string, error) {
	if b.opts.CopyRegion != AutoCopyRegion {
		return b.opts.CopyRegion, nil
	}

	out, err := b.client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return "", apiError("DescribeRegions", err)
	}
	for _, r := range out.Regions {
		if name := aws.ToString(r.RegionName); name != "" && name != b.region {
			return name, nil
		}
	}
	return "", errs.New(errs.ProviderAPIError, "DescribeRegions", "no region other than "+b.region+" is available")
}
