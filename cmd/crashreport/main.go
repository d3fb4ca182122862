// Command crashreport reads crash reports and moves them to the archive.
package main

import (
	"context"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bitdrift/crashreport/internal/logutil"
)

var release string

type environment struct {
	config ServiceConfig
}

func newRootCommand(e *environment) *cobra.Command {
	root := &cobra.Command{
		Use:           "crashreport",
		Short:         "Work with binary crash reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			e.config = config
			if err := logutil.ConfigureLogger(config.LogLevel); err != nil {
				return err
			}
			return sentry.Init(sentry.ClientOptions{
				Dsn:         config.SentryDSN,
				Environment: config.Environment,
				Release:     release,
			})
		},
	}
	root.AddCommand(
		newInspectCommand(),
		newEnhanceCommand(),
		newArchiveCommand(e),
		newFetchCommand(e),
		newSelftestCommand(),
	)
	return root
}

func main() {
	var e environment
	err := newRootCommand(&e).ExecuteContext(context.Background())
	if err != nil {
		sentry.CaptureException(err)
		sentry.Flush(5 * time.Second)
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
	sentry.Flush(5 * time.Second)
}
