package models

// ImageRecord represents the timing of the AMI built from the final snapshot
type ImageRecord struct {
	ImageID        string
	Name           string
	SnapshotID     string // Snapshot the root device was registered from
	Region         string
	ElapsedSeconds float64
}
