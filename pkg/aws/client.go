package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"github.com/younsl/snapshot-profiler/internal/errs"
)

// EC2API is the subset of the EC2 client the benchmark calls.
// *ec2.Client satisfies it; tests use an in-memory fake.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
	CreateSnapshot(ctx context.Context, params *ec2.CreateSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error)
	CopySnapshot(ctx context.Context, params *ec2.CopySnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CopySnapshotOutput, error)
	DescribeSnapshots(ctx context.Context, params *ec2.DescribeSnapshotsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error)
	EnableFastSnapshotRestores(ctx context.Context, params *ec2.EnableFastSnapshotRestoresInput, optFns ...func(*ec2.Options)) (*ec2.EnableFastSnapshotRestoresOutput, error)
	RegisterImage(ctx context.Context, params *ec2.RegisterImageInput, optFns ...func(*ec2.Options)) (*ec2.RegisterImageOutput, error)
	DescribeImages(ctx context.Context, params *ec2.DescribeImagesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error)
}

// ClientFactory returns an EC2API bound to region
type ClientFactory func(ctx context.Context, region string) (EC2API, error)

// LoadConfig loads the shared AWS configuration.
// Without a region from the flags, environment or shared config, the region is
// read from the instance metadata service at md's endpoint; failing that means
// the tool is not running on an EC2 instance.
func LoadConfig(ctx context.Context, region, profile string, md MetadataOptions) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithEC2IMDSRegion(func(o *config.UseEC2IMDSRegion) {
			o.Client = NewIMDSClient(md)
		}),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		var opErr *smithy.OperationError
		if errors.As(err, &opErr) && opErr.Service() == imds.ServiceID {
			return aws.Config{}, errs.Wrap(errs.MetadataUnavailable, "GetRegion", errNotOnInstance, err)
		}
		return aws.Config{}, errors.Wrap(err, "error loading AWS config")
	}
	if cfg.Region == "" {
		return aws.Config{}, errs.New(errs.MetadataUnavailable, "GetRegion", errNotOnInstance)
	}
	return cfg, nil
}

// NewEC2Client creates an EC2 client from cfg
func NewEC2Client(cfg aws.Config) *ec2.Client {
	return ec2.NewFromConfig(cfg)
}

// NewClientFactory returns a ClientFactory deriving per-region clients from cfg
func NewClientFactory(cfg aws.Config) ClientFactory {
	return func(ctx context.Context, region string) (EC2API, error) {
		return ec2.NewFromConfig(cfg, func(o *ec2.Options) {
			o.Region = region
		}), nil
	}
}

// apiError classifies a failed EC2 call as a ProviderAPIError, keeping the service error code when present
func apiError(op string, err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return errs.Wrap(errs.ProviderAPIError, op, fmt.Sprintf("%s (%s)", ae.ErrorMessage(), ae.ErrorCode()), nil)
	}
	return errs.Wrap(errs.ProviderAPIError, op, "request failed", err)
}

// waiterFailureState is the error text SDK waiters return when the resource
// reaches a terminal failure state.
const waiterFailureState = "waiter state transitioned to Failure"

// waitError classifies a failed waiter. Service errors stay ProviderAPIError;
// only an exhausted budget is a WaiterTimeout.
func waitError(waiter, id string, err error) error {
	var ae smithy.APIError
	switch {
	case errors.As(err, &ae):
		return apiError(waiter, err)
	case errors.Is(err, context.Canceled):
		return errs.Wrap(errs.Canceled, waiter, fmt.Sprintf("interrupted while waiting for %s", id), err)
	case strings.Contains(err.Error(), waiterFailureState):
		return errs.Wrap(errs.ResourceFailed, waiter, fmt.Sprintf("%s entered a failure state", id), err)
	}
	return errs.Wrap(errs.WaiterTimeout, waiter, fmt.Sprintf("%s did not become ready", id), err)
}
