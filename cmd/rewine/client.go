package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jrsteele09/rewine-client/app"
	"github.com/jrsteele09/rewine-client/expiry"
	"github.com/jrsteele09/rewine-client/internal/config"
	"github.com/jrsteele09/rewine-client/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// cliConfig lets the --api-url flag win over the environment.
type cliConfig struct {
	config.Config
	apiURL string
}

func (c cliConfig) GetAPIBaseURL() string {
	if c.apiURL != "" {
		return strings.TrimSuffix(c.apiURL, "/")
	}
	return c.Config.GetAPIBaseURL()
}

func getConfig(c *cli.Context) config.Config {
	return cliConfig{Config: config.New(), apiURL: c.String(flagAPIURL)}
}

func setupLogging(c *cli.Context) error {
	level, err := zerolog.ParseLevel(config.New().GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if c.Bool(flagDebug) {
		level = zerolog.DebugLevel
	}
	// The CLI talks to the user on stdout; only warnings are worth interleaving.
	if level < zerolog.WarnLevel && !c.Bool(flagDebug) {
		level = zerolog.WarnLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	return nil
}

// stderrNotifier prints session notices where they do not mix with command output.
var stderrNotifier = expiry.NotifierFunc(func(level expiry.Level, message string) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", level, message)
})

func getApp(c *cli.Context) (*app.App, error) {
	a, err := app.New(getConfig(c),
		app.WithNotifier(stderrNotifier),
		app.WithMetrics(metrics.New()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error creating rewine client")
	}
	return a, nil
}
