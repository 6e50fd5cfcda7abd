package aws

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/pkg/errors"
	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"
	"github.com/younsl/snapshot-profiler/internal/errs"
	"github.com/younsl/snapshot-profiler/internal/models"
)

const (
	tokenPath      = "/latest/api/token"
	instanceIDPath = "/latest/meta-data/instance-id"

	tokenTTLHeader = "X-aws-ec2-metadata-token-ttl-seconds"
	tokenHeader    = "X-aws-ec2-metadata-token"

	// tokenTTL is the session token lifetime requested from the metadata service.
	tokenTTL = 6 * time.Hour

	// DefaultMetadataTimeout bounds each metadata request.
	DefaultMetadataTimeout = 5 * time.Second
)

// errNotOnInstance is returned when the metadata service cannot identify the instance
const errNotOnInstance = "could not retrieve the instance ID from the EC2 metadata service; " +
	"this tool must run on the EC2 instance whose volume is being benchmarked"

// MetadataOptions configures the metadata endpoints
type MetadataOptions struct {
	Endpoint string
	Timeout  time.Duration
	Logger   log.FieldLogger
}

func (o MetadataOptions) withDefaults() MetadataOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultMetadataTimeout
	}
	if o.Logger == nil {
		o.Logger = log.StandardLogger()
	}
	o.Endpoint = strings.TrimSuffix(o.Endpoint, "/")
	return o
}

// NewIMDSClient returns an SDK metadata client bound to the configured
// endpoint that makes a single attempt per request.
func NewIMDSClient(opts MetadataOptions) *imds.Client {
	opts = opts.withDefaults()
	imdsOpts := imds.Options{
		Retryer:    aws.NopRetryer{},
		HTTPClient: &http.Client{Timeout: opts.Timeout},
	}
	if opts.Endpoint != "" {
		imdsOpts.Endpoint = opts.Endpoint
	}
	return imds.New(imdsOpts)
}

// MetadataResolver determines the running instance and its primary volume
type MetadataResolver struct {
	ec2      EC2API
	region   string
	endpoint string
	timeout  time.Duration
	http     *pester.Client
	log      log.FieldLogger
}

// NewMetadataResolver creates a MetadataResolver.
// Both metadata protocols share a single-attempt client so each is tried
// exactly once and in a fixed order.
func NewMetadataResolver(client EC2API, region string, opts MetadataOptions) *MetadataResolver {
	opts = opts.withDefaults()
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "http://169.254.169.254"
	}

	httpClient := pester.NewExtendedClient(&http.Client{Timeout: opts.Timeout})
	httpClient.Concurrency = 1
	httpClient.MaxRetries = 1
	httpClient.LogHook = func(e pester.ErrEntry) {
		opts.Logger.Debugf("metadata request failed: %+v", e)
	}

	return &MetadataResolver{
		ec2:      client,
		region:   region,
		endpoint: endpoint,
		timeout:  opts.Timeout,
		http:     httpClient,
		log:      opts.Logger,
	}
}

// Resolve returns the instance ID, the primary volume and the region.
// Volume details are informational; failing to describe the volume is logged
// and leaves RunContext.Volume empty.
func (r *MetadataResolver) Resolve(ctx context.Context) (models.RunContext, error) {
	instanceID, err := r.InstanceID(ctx)
	if err != nil {
		return models.RunContext{}, err
	}

	volumeID, err := r.RootVolumeID(ctx, instanceID)
	if err != nil {
		return models.RunContext{}, err
	}

	volume, err := DescribeVolume(ctx, r.ec2, volumeID)
	if err != nil {
		r.log.WithFields(log.Fields{
			"volume": volumeID,
			"kind":   errs.KindOf(err),
		}).Warnf("could not describe volume: %v", err)
		volume = models.VolumeInfo{}
	}

	return models.RunContext{
		InstanceID: instanceID,
		VolumeID:   volumeID,
		Region:     r.region,
		Volume:     volume,
	}, nil
}

// InstanceID fetches the instance ID with a session token, falling back to an
// unauthenticated request when the token protocol fails or returns nothing.
func (r *MetadataResolver) InstanceID(ctx context.Context) (string, error) {
	id, tokenErr := r.tokenInstanceID(ctx)
	if tokenErr == nil && id != "" {
		return id, nil
	}
	r.log.WithError(tokenErr).Debug("token metadata request failed, falling back to unauthenticated request")

	id, legacyErr := r.legacyInstanceID(ctx)
	if legacyErr == nil && id != "" {
		return id, nil
	}

	cause := legacyErr
	if cause == nil {
		cause = tokenErr
	}
	return "", errs.Wrap(errs.MetadataUnavailable, "", errNotOnInstance, cause)
}

func (r *MetadataResolver) tokenInstanceID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	token, err := r.request(ctx, http.MethodPut, tokenPath, tokenTTLHeader, strconv.Itoa(int(tokenTTL/time.Second)))
	if err != nil {
		return "", errors.Wrap(err, "session token request")
	}
	if token == "" {
		return "", errors.New("metadata service returned an empty session token")
	}
	return r.request(ctx, http.MethodGet, instanceIDPath, tokenHeader, token)
}

func (r *MetadataResolver) legacyInstanceID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.request(ctx, http.MethodGet, instanceIDPath, "", "")
}

// request performs one metadata call and returns the trimmed body
func (r *MetadataResolver) request(ctx context.Context, method, path, header, value string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.endpoint+path, nil)
	if err != nil {
		return "", errors.Wrap(err, "build metadata request")
	}
	if header != "" {
		req.Header.Set(header, value)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "%s %s", method, path)
	}
	if resp == nil {
		return "", errors.Errorf("%s %s returned no response", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("%s %s returned %s", method, path, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	return strings.TrimSpace(string(body)), nil
}

// RootVolumeID returns the volume of the first block device mapping of the
// first instance in the first reservation. Multi-volume instances are not
// inspected further.
func (r *MetadataResolver) RootVolumeID(ctx context.Context, instanceID string) (string, error) {
	out, err := r.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return "", apiError("DescribeInstances", err)
	}

	const op = "DescribeInstances"
	switch {
	case len(out.Reservations) == 0:
		return "", errs.New(errs.ProviderAPIError, op, "no reservations returned for "+instanceID)
	case len(out.Reservations[0].Instances) == 0:
		return "", errs.New(errs.ProviderAPIError, op, "no instances returned for "+instanceID)
	case len(out.Reservations[0].Instances[0].BlockDeviceMappings) == 0:
		return "", errs.New(errs.ProviderAPIError, op, "instance "+instanceID+" has no block device mappings")
	}

	mapping := out.Reservations[0].Instances[0].BlockDeviceMappings[0]
	if mapping.Ebs == nil || aws.ToString(mapping.Ebs.VolumeId) == "" {
		return "", errs.New(errs.ProviderAPIError, op, "first block device of "+instanceID+" is not an EBS volume")
	}
	return aws.ToString(mapping.Ebs.VolumeId), nil
}
