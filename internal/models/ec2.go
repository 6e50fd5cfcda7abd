package models

// RunContext identifies the instance and volume a benchmark run targets.
// It is resolved once at startup and never modified afterwards.
type RunContext struct {
	InstanceID string
	VolumeID   string
	Region     string
	RunID      string     // Tagged onto every resource the run creates
	Volume     VolumeInfo // Zero value when the volume could not be described
}
