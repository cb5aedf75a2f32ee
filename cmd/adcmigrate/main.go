/*
This command resolves the applications of saved application delivery
controller configurations, and writes them as JSON or YAML.

For the list of command line options, run:

	adcmigrate -help

Example:

	adcmigrate -format yaml -type cs -emit-diagnostics ns.conf

For details about the resolved applications, please see the documentation
of the root adcmigrate package.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/adcmigrate"
	"github.com/zalando/adcmigrate/config"
	"github.com/zalando/adcmigrate/diag"
	"github.com/zalando/adcmigrate/input"
	"github.com/zalando/adcmigrate/logging"
	"github.com/zalando/adcmigrate/metrics"
	"github.com/zalando/adcmigrate/otel"
)

var (
	version string
	commit  string
)

var errDangling = errors.New("references to missing objects found")

func initLog(cfg *config.Config) (func(), error) {
	o := logging.Options{
		ApplicationLogPrefix:      cfg.ApplicationLogPrefix,
		ApplicationLogJSONEnabled: cfg.ApplicationLogJSONEnabled,
		ApplicationLogLevel:       cfg.ApplicationLogLevelString,
	}

	closeLog := func() {}
	if cfg.ApplicationLog != "" {
		f, err := os.OpenFile(cfg.ApplicationLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open application log: %w", err)
		}

		o.ApplicationLogOutput = f
		closeLog = func() { f.Close() }
	}

	if err := logging.Init(o); err != nil {
		closeLog()
		return nil, err
	}

	return closeLog, nil
}

func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}

	return f, f.Close, nil
}

func run(ctx context.Context, cfg *config.Config, stdout io.Writer) (err error) {
	closeLog, err := initLog(cfg)
	if err != nil {
		return err
	}

	defer closeLog()

	if cfg.EnableOpenTelemetry {
		shutdown, err := otel.Init(ctx, &otel.Options{ServiceVersion: version})
		if err != nil {
			return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}

		defer func() {
			if serr := shutdown(context.Background()); serr != nil {
				log.Errorf("Failed to shut down OpenTelemetry: %v", serr)
			}
		}()
	}

	o := cfg.ToOptions()
	if cfg.MetricsFile != "" {
		p := metrics.NewPrometheus(cfg.ToMetricsOptions())
		o.Metrics = p
		defer func() {
			if werr := p.WriteToTextfile(cfg.MetricsFile); werr != nil {
				err = errors.Join(err, fmt.Errorf("failed to write metrics: %w", werr))
			}
		}()
	}

	text, err := input.ReadAll(ctx, cfg.Inputs, cfg.ToInputOptions())
	if err != nil {
		return err
	}

	res, err := adcmigrate.Run(ctx, text, o)
	if err != nil {
		return err
	}

	log.Infof(
		"Resolved %d applications from %d lines, %d diagnostics",
		len(res.Apps), res.Stats.Lines, len(res.Diagnostics),
	)

	w, closeOutput, err := openOutput(cfg.Output, stdout)
	if err != nil {
		return err
	}

	if err := write(w, newDocument(res, cfg), cfg.Format); err != nil {
		closeOutput()
		return err
	}

	if err := closeOutput(); err != nil {
		return err
	}

	if cfg.FailOnDangling {
		for _, e := range res.Diagnostics {
			if e.Kind == diag.DanglingReference {
				return errDangling
			}
		}
	}

	return nil
}

func main() {
	cfg := config.NewConfig()
	if err := cfg.Parse(); err != nil {
		log.Fatalf("Error processing config: %s", err)
	}

	if cfg.PrintVersion {
		fmt.Printf(
			"adcmigrate version %s (commit: %s)\n",
			version, commit,
		)

		return
	}

	if err := run(context.Background(), cfg, os.Stdout); err != nil {
		log.Fatal(err)
	}
}
