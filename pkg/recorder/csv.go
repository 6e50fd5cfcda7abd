// Package recorder appends benchmark timings to CSV files.
//
// Files are opened, appended to and closed on every write; nothing is held
// open across a run and there is no locking between processes.
package recorder

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/younsl/snapshot-profiler/internal/models"
)

var (
	// SnapshotHeader is written at the top of a new snapshot results file.
	SnapshotHeader = []string{"snapshot_number", "elapsed_time"}
	// ImageHeader is written at the top of a new image results file.
	ImageHeader = []string{"ami_id", "elapsed_time"}
)

// Append writes row to the CSV file at path, writing header first when the
// file does not exist yet.
func Append(path string, header, row []string) error {
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(header); err != nil {
			f.Close()
			return errors.Wrapf(err, "write header to %s", path)
		}
	}
	if err := w.Write(row); err != nil {
		f.Close()
		return errors.Wrapf(err, "write row to %s", path)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.Wrapf(err, "flush %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// AppendSnapshot records one snapshot timing.
func AppendSnapshot(path string, rec models.SnapshotRecord) error {
	return Append(path, SnapshotHeader, []string{
		strconv.Itoa(rec.Number),
		formatSeconds(rec.ElapsedSeconds),
	})
}

// AppendImage records the image timing.
func AppendImage(path string, rec models.ImageRecord) error {
	return Append(path, ImageHeader, []string{
		rec.ImageID,
		formatSeconds(rec.ElapsedSeconds),
	})
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
