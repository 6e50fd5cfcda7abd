package models

import "time"

// VolumeInfo represents the EBS volume being benchmarked
type VolumeInfo struct {
	VolumeID         string
	Size             int // GiB
	VolumeType       string
	State            string
	AvailabilityZone string
	Iops             int
	Encrypted        bool
}

// SnapshotRecord represents the timing of a single benchmark snapshot
type SnapshotRecord struct {
	Number             int
	SnapshotID         string
	VolumeID           string
	Label              string
	ElapsedSeconds     float64
	FastRestoreEnabled bool
	CompletedAt        time.Time
}
