package formatter

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/younsl/snapshot-profiler/internal/models"
)

// MAX_LABEL_WIDTH defines the maximum width for the Label column
const MAX_LABEL_WIDTH = 32

// PrintSnapshotsTable prints one row per benchmark snapshot
func PrintSnapshotsTable(w io.Writer, records []models.SnapshotRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No snapshots were created.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSNAPSHOT ID\tLABEL\tELAPSED\tFAST RESTORE\tCOMPLETED")
	for _, rec := range records {
		fsr := "no"
		if rec.FastRestoreEnabled {
			fsr = "enabling"
		}
		completed := "-"
		if !rec.CompletedAt.IsZero() {
			completed = humanize.Time(rec.CompletedAt)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2fs\t%s\t%s\n",
			rec.Number,
			rec.SnapshotID,
			Truncate(rec.Label, MAX_LABEL_WIDTH),
			rec.ElapsedSeconds,
			fsr,
			completed,
		)
	}
	tw.Flush()
}

// PrintImageTable prints the AMI built at the end of the run
func PrintImageTable(w io.Writer, image models.ImageRecord) {
	if image.ImageID == "" {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "AMI ID\tNAME\tREGION\tSOURCE SNAPSHOT\tELAPSED")
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2fs\n",
		image.ImageID,
		image.Name,
		image.Region,
		image.SnapshotID,
		image.ElapsedSeconds,
	)
	tw.Flush()
}

// PrintSnapshotSummary prints aggregate snapshot timings
func PrintSnapshotSummary(w io.Writer, records []models.SnapshotRecord, sizeGB int) {
	if len(records) == 0 {
		return
	}
	stats := ComputeSnapshotStats(records)

	fmt.Fprintf(w, "\n## Snapshot timing (%s written before each snapshot)\n",
		humanize.IBytes(uint64(sizeGB)<<30))
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "COUNT\tMIN\tMEAN\tMAX\tP95")
	fmt.Fprintf(tw, "%d\t%.2fs\t%.2fs\t%.2fs\t%.2fs\n",
		stats.Count,
		stats.Min.Seconds(),
		stats.Mean.Seconds(),
		stats.Max.Seconds(),
		stats.P95.Seconds(),
	)
	tw.Flush()
}
