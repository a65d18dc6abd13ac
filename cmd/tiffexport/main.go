// Command tiffexport is the CLI entrypoint for exporting detector frames
// from run record documents to TIFF files.
//
// It loads configuration (defaults, optional HCL file, flags), then runs
// one of the export, find or check commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backmassage/tiffexport/internal/check"
	"github.com/backmassage/tiffexport/internal/config"
	"github.com/backmassage/tiffexport/internal/display"
	"github.com/backmassage/tiffexport/internal/logging"
	"github.com/backmassage/tiffexport/internal/pipeline"
)

// commit is injected at build time via -ldflags.
var commit = "unknown"

// errReported means the failure was already written to the log.
var errReported = errors.New("reported")

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "tiffexport: %v\n", err)
		}
		return 1
	}
	return 0
}

// app carries the flag bindings shared by every subcommand.
type app struct {
	flags *config.Flags
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "tiffexport",
		Short: "Export detector frames from run records to TIFF files",
		Long: `Export detector frames from run records to TIFF files.

Output names come from a template such as
  scan{scan_id:05d}_{N:03d}<-T{e.data[cs700]:03.1f}>.tiff
where {...} fields are evaluated against each event and <...> segments
are dropped when a field they reference is missing.

A record whose output already exists, by exact name or by a file with the
same extension whose mtime lies within the window of the record time, is
skipped unless --overwrite is given.`,
		Version:       fmt.Sprintf("%s (%s)", config.Version(), commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.flags = config.BindFlags(root.PersistentFlags())

	root.AddCommand(a.newExportCmd(), a.newFindCmd(), a.newCheckCmd())
	return root
}

// setup is the bootstrap phase: the logger doesn't exist yet, so errors
// are returned for run to print on stderr. Once NewLogger succeeds, all
// output goes through the logger.
func (a *app) setup(records string) (*config.Config, *logging.Logger, error) {
	cfg, err := a.flags.Load()
	if err != nil {
		return nil, nil, err
	}
	cfg.RecordsPath = records
	log, err := logging.NewLogger(&cfg)
	if err != nil {
		return nil, nil, err
	}
	display.PrintBanner()
	log.Debug(cfg.Verbose, "tiffexport v%s (%s)", config.Version(), commit)
	if cfg.ConfigFile != "" {
		log.Debug(cfg.Verbose, "Config file: %s", cfg.ConfigFile)
	}
	return &cfg, log, nil
}

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <records.json|dir>",
		Short: "Write a TIFF for every selected record not yet on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := a.setup(args[0])
			if err != nil {
				return err
			}
			defer log.Close()

			// Fail fast on an unusable prefix before touching any record.
			if err := check.Preflight(cfg); err != nil {
				log.Error("%v", err)
				return errReported
			}

			ctx, stop := interruptContext(log)
			defer stop()

			if _, err := pipeline.Run(ctx, cfg, log); err != nil {
				log.Error("%v", err)
				return errReported
			}
			return nil
		},
	}
}

func (a *app) newFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <records.json|dir>",
		Short: "List records whose outputs already exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := a.setup(args[0])
			if err != nil {
				return err
			}
			defer log.Close()

			ctx, stop := interruptContext(log)
			defer stop()

			if _, err := pipeline.Find(ctx, cfg, log); err != nil {
				log.Error("%v", err)
				return errReported
			}
			return nil
		},
	}
}

func (a *app) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Render the template and check the output prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := a.setup("")
			if err != nil {
				return err
			}
			defer log.Close()
			check.RunCheck(cfg, log)
			return nil
		},
	}
}

// interruptContext cancels on SIGINT/SIGTERM so a pass can stop between
// records without leaving partial output.
func interruptContext(log *logging.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Received interrupt, finishing current record…")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
