package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/younsl/snapshot-profiler/internal/config"
	"github.com/younsl/snapshot-profiler/internal/logging"
	"github.com/younsl/snapshot-profiler/internal/version"
	"github.com/younsl/snapshot-profiler/pkg/aws"
	"github.com/younsl/snapshot-profiler/pkg/benchmark"
	"github.com/younsl/snapshot-profiler/pkg/datagen"
	"github.com/younsl/snapshot-profiler/pkg/formatter"
	"github.com/younsl/snapshot-profiler/pkg/utils"
)

// spinnerIndicator shows a spinner while a snapshot or AMI waiter blocks
type spinnerIndicator struct {
	s *spinner.Spinner
}

func (i *spinnerIndicator) Start(message string) {
	i.s = spinner.New(spinner.CharSets[9], 200*time.Millisecond)
	i.s.Suffix = message
	i.s.Start()
}

func (i *spinnerIndicator) Stop(final string) {
	if i.s == nil {
		return
	}
	i.s.FinalMSG = final
	i.s.Stop()
	i.s = nil
}

func main() {
	os.Exit(execute(newRootCmd(), os.Stdout))
}

// execute runs cmd and reports a failure on out, returning the process exit code
func execute(cmd *cobra.Command, out io.Writer) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var showVersion bool
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:   "snapshot-profiler",
		Short: "Benchmark EBS snapshot and AMI creation latency",
		Long: `snapshot-profiler fills this instance's root volume with random data,
snapshots it repeatedly while timing completion, and registers an AMI
from the final snapshot. Timings are appended to CSV files.

It must run on the EC2 instance whose volume is being benchmarked.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Println(version.Get())
				return nil
			}

			cfg, err := buildConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	f := rootCmd.Flags()
	f.BoolVarP(&showVersion, "version", "v", false, "Show version information")
	f.String("config", "", "YAML file with default settings (flags take precedence)")
	f.IntP("num-snapshots", "n", defaults.NumSnapshots, "Number of snapshots to create")
	f.StringP("output", "o", defaults.Output, "Output CSV filename for snapshot timings")
	f.IntP("size", "s", defaults.SizeGB, "Random file size in GB written before each snapshot")
	f.StringP("ami-csv", "a", defaults.AMICSV, "Output CSV filename for the AMI timing")
	f.StringP("region", "r", "", "AWS region (default: from AWS config or instance metadata)")
	f.StringP("profile", "p", "", "AWS shared config profile")
	f.Duration("wait-timeout", defaults.WaitTimeout, "Maximum time to wait for each snapshot or AMI")
	f.Bool("no-fast-restore", false, "Skip enabling fast snapshot restore")
	f.String("copy-region", "", `Copy the final snapshot to this region before creating the AMI ("auto" picks one)`)
	f.String("data-dir", defaults.DataDir, "Directory for the random data files")
	f.String("imds-endpoint", defaults.IMDSEndpoint, "Instance metadata service endpoint")
	f.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")

	return rootCmd
}

// buildConfig layers defaults, the optional YAML file and explicitly set flags
func buildConfig(cmd *cobra.Command) (config.Config, error) {
	f := cmd.Flags()
	cfg := config.Default()

	configPath, err := f.GetString("config")
	if err != nil {
		return cfg, err
	}
	if configPath != "" {
		if err := config.LoadFile(configPath, &cfg); err != nil {
			return cfg, err
		}
	}

	ints := map[string]*int{
		"num-snapshots": &cfg.NumSnapshots,
		"size":          &cfg.SizeGB,
	}
	strs := map[string]*string{
		"output":        &cfg.Output,
		"ami-csv":       &cfg.AMICSV,
		"region":        &cfg.Region,
		"profile":       &cfg.Profile,
		"copy-region":   &cfg.CopyRegion,
		"data-dir":      &cfg.DataDir,
		"imds-endpoint": &cfg.IMDSEndpoint,
		"log-level":     &cfg.LogLevel,
	}

	for name, dst := range ints {
		if f.Changed(name) {
			if *dst, err = f.GetInt(name); err != nil {
				return cfg, err
			}
		}
	}
	for name, dst := range strs {
		if f.Changed(name) {
			if *dst, err = f.GetString(name); err != nil {
				return cfg, err
			}
		}
	}
	if f.Changed("wait-timeout") {
		if cfg.WaitTimeout, err = f.GetDuration("wait-timeout"); err != nil {
			return cfg, err
		}
	}
	if f.Changed("no-fast-restore") {
		skip, err := f.GetBool("no-fast-restore")
		if err != nil {
			return cfg, err
		}
		cfg.FastRestore = !skip
	}

	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config) error {
	logger := logging.New(cfg.LogLevel)
	runID := uuid.NewString()

	if cfg.Region != "" && !utils.IsKnownRegion(cfg.Region) {
		fmt.Printf("Warning: region '%s' is not in the known region list\n", cfg.Region)
	}

	metadataOpts := aws.MetadataOptions{
		Endpoint: cfg.IMDSEndpoint,
		Timeout:  cfg.MetadataTimeout,
		Logger:   logger,
	}
	awsCfg, err := aws.LoadConfig(ctx, cfg.Region, cfg.Profile, metadataOpts)
	if err != nil {
		return err
	}
	region := awsCfg.Region
	client := aws.NewEC2Client(awsCfg)

	fmt.Printf("Starting snapshot benchmark in %s (%s) ...\n", region, utils.GetRegionDescriptiveName(region))
	logger.WithFields(log.Fields{"run_id": runID, "region": region}).Debug("benchmark configured")

	snapshots := aws.NewSnapshotOrchestrator(client, region, aws.SnapshotOptions{
		WaitTimeout: cfg.WaitTimeout,
		FastRestore: cfg.FastRestore,
		RunID:       runID,
		Logger:      logger,
	})
	images := aws.NewImageBuilder(client, region, aws.NewClientFactory(awsCfg), snapshots, aws.ImageOptions{
		WaitTimeout: cfg.WaitTimeout,
		CopyRegion:  cfg.CopyRegion,
		RunID:       runID,
		Logger:      logger,
	})
	generator := datagen.New(cfg.DataDir, cfg.FilePrefix)
	generator.Logger = logger

	runner := &benchmark.Runner{
		Resolver:  aws.NewMetadataResolver(client, region, metadataOpts),
		Generator: generator,
		Snapshots: snapshots,
		Images:    images,
		Options: benchmark.Options{
			NumSnapshots: cfg.NumSnapshots,
			SizeGB:       cfg.SizeGB,
			SnapshotCSV:  cfg.Output,
			ImageCSV:     cfg.AMICSV,
			RunID:        runID,
		},
		Logger:    logger,
		Indicator: &spinnerIndicator{},
		Out:       os.Stdout,
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		if summary != nil && len(summary.Snapshots) > 0 {
			fmt.Printf("%d snapshot(s) were recorded to %s before the failure\n", len(summary.Snapshots), cfg.Output)
		}
		return err
	}

	fmt.Println()
	formatter.PrintSnapshotsTable(os.Stdout, summary.Snapshots)
	fmt.Println()
	formatter.PrintImageTable(os.Stdout, summary.Image)
	formatter.PrintSnapshotSummary(os.Stdout, summary.Snapshots, cfg.SizeGB)

	fmt.Println("\nProcess completed successfully!")
	fmt.Printf("Created %d snapshots\n", cfg.NumSnapshots)
	fmt.Printf("Results saved to %s and %s\n", cfg.Output, cfg.AMICSV)
	return nil
}
