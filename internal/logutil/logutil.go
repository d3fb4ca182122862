package logutil

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cloud.google.com/go/compute/metadata"
)

// ConfigureLogger sets up the global logger. Events below level are dropped.
// On GCE events carry a severity field; on a terminal they are rendered for
// humans; anywhere else they are written as JSON lines to stderr.
func ConfigureLogger(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	configure(os.Stderr, lvl, metadata.OnGCE(), isatty.IsTerminal(os.Stderr.Fd()))
	return nil
}

// ParseLevel accepts zerolog level names. An empty name means info.
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

func configure(out io.Writer, lvl zerolog.Level, onGCE, terminal bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	l := zerolog.New(out).With().Timestamp().Caller().Stack().Logger()
	switch {
	case onGCE:
		l = l.Hook(ErrorHook{})
	case terminal:
		l = l.Output(zerolog.ConsoleWriter{Out: out})
	}
	log.Logger = l.Sample(LevelSampler{Level: lvl})
}

type ErrorHook struct{}

func (h ErrorHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	e.Str("severity", level.String())
}
