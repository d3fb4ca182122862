package main

import (
	"fmt"
	"io"
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bitdrift/crashreport/internal/crashreport"
	"github.com/bitdrift/crashreport/internal/errorutil"
	"github.com/bitdrift/crashreport/internal/goruntime"
	"github.com/bitdrift/crashreport/internal/reportnotice"
	"github.com/bitdrift/crashreport/internal/reportreader"
)

func newInspectCommand() *cobra.Command {
	var threadsOnly bool
	cmd := &cobra.Command{
		Use:   "inspect <report>",
		Short: "Decode a report and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, result, err := reportreader.ReadReport(args[0])
			if err != nil {
				return fmt.Errorf("could not read report %s: %w", args[0], err)
			}
			switch result {
			case reportreader.ReportDoesNotExist:
				return fmt.Errorf("%w at %s", errorutil.ErrNoReport, args[0])
			case reportreader.PartialSuccess:
				log.Warn().Str("path", args[0]).Msg("report is incomplete")
			}
			var v any = report
			if threadsOnly {
				named, err := reportreader.NamedThreads(report)
				if err != nil {
					return err
				}
				v = named
			}
			return writeJSON(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().BoolVar(&threadsOnly, "threads", false, "print only the named threads and their stacks")
	return cmd
}

func newEnhanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enhance <report> <metrickit.json>",
		Short: "Add thread names from a report to a MetricKit crash diagnostic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cache reportreader.Cache
			result, err := cache.Load(args[0])
			if err != nil {
				return fmt.Errorf("could not read report %s: %w", args[0], err)
			}
			if result == reportreader.ReportDoesNotExist {
				return fmt.Errorf("%w at %s", errorutil.ErrNoReport, args[0])
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			metricKit, err := reportreader.DecodeMetricKit(data)
			if err != nil {
				return err
			}
			enhanced, ok, err := cache.Enhance(metricKit)
			if err != nil {
				return err
			}
			if !ok {
				log.Warn().Msg("report does not describe this diagnostic, leaving it unchanged")
				enhanced = metricKit
			}
			return writeJSON(cmd.OutOrStdout(), enhanced)
		},
	}
}

func newArchiveCommand(e *environment) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "archive <report>",
		Short: "Upload a report to the archive and announce it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openArchive(ctx, e.config.ReportsBucket)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := archiveReport(ctx, a, args[0])
			if err != nil {
				return err
			}
			if len(e.config.NoticesKafkaBrokers) > 0 {
				p := reportnotice.NewPublisher(e.config.NoticesKafkaBrokers, e.config.NoticesKafkaTopic)
				defer p.Close()
				if err := p.Publish(ctx, n); err != nil {
					return err
				}
			}
			if remove {
				if err := os.Remove(args[0]); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), n.ObjectName)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "delete the local report once archived")
	return cmd
}

func newFetchCommand(e *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <object> <report>",
		Short: "Download an archived report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openArchive(ctx, e.config.ReportsBucket)
			if err != nil {
				return err
			}
			defer a.close()

			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := fetchReport(ctx, a, args[0], f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
}

func newSelftestCommand() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "selftest <path>",
		Short: "Write a report of this process and read it back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return selftest(cmd.OutOrStdout(), args[0], debug)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "also print the report in its readable form")
	return cmd
}

func selftest(out io.Writer, path string, debug bool) error {
	template := crashreport.Snapshot{
		Exception: crashreport.Exception{Signal: goruntime.SignalAbort},
		Metadata: crashreport.Metadata{
			AppVersion:       release,
			BundleIdentifier: "io.bitdrift.crashreport",
		},
	}
	symbolicator, err := goruntime.NewSymbolicator()
	if err != nil {
		log.Warn().Err(err).Msg("frames will not be symbolicated")
	} else {
		template.Symbolicator = symbolicator
	}

	s := goruntime.Snapshot(&template, 0)
	if debug {
		if err := crashreport.WriteDebug(s, out); err != nil {
			return err
		}
	}
	if err := crashreport.NewHandler(path).Handle(s); err != nil {
		return err
	}

	report, result, err := reportreader.ReadReport(path)
	if err != nil {
		return err
	}
	if result != reportreader.Success {
		return fmt.Errorf("report at %s read back as %v", path, result)
	}
	threads, _ := report["threads"].([]any)
	fmt.Fprintf(out, "wrote %s with %d threads\n", path, len(threads))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := gojson.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
