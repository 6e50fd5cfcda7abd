package utils

import (
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// Tag keys applied to resources created by a benchmark run
const (
	TagName     = "Name"
	TagRunID    = "snapshot-profiler:run-id"
	TagSequence = "snapshot-profiler:sequence"
)

// GetTagValue returns the value of a tag with the given key
func GetTagValue(tags []types.Tag, key string) string {
	for _, tag := range tags {
		if tag.Key != nil && *tag.Key == key {
			if tag.Value != nil {
				return *tag.Value
			}
			return ""
		}
	}
	return ""
}

// ConvertToEC2Tags converts a map of tags to a slice of EC2 tags sorted by key.
// Empty values are dropped.
func ConvertToEC2Tags(tags map[string]string) []types.Tag {
	keys := make([]string, 0, len(tags))
	for k, v := range tags {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		result = append(result, types.Tag{
			Key:   aws.String(k),
			Value: aws.String(tags[k]),
		})
	}
	return result
}

// TagSpecification wraps tags for a resource type, or returns nil when there are none
func TagSpecification(resource types.ResourceType, tags map[string]string) []types.TagSpecification {
	ec2Tags := ConvertToEC2Tags(tags)
	if len(ec2Tags) == 0 {
		return nil
	}
	return []types.TagSpecification{{
		ResourceType: resource,
		Tags:         ec2Tags,
	}}
}
