package config

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/zalando/adcmigrate"
	"github.com/zalando/adcmigrate/adc"
	"github.com/zalando/adcmigrate/grammar"
	"github.com/zalando/adcmigrate/input"
	"github.com/zalando/adcmigrate/metrics"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type Config struct {
	ConfigFile string
	Flags      *flag.FlagSet

	// input:
	Inputs        multiFlag     `yaml:"input"`
	InputEncoding string        `yaml:"input-encoding"`
	InputTimeout  time.Duration `yaml:"input-timeout"`
	InputRetries  uint          `yaml:"input-retries"`
	Version       string        `yaml:"ns-version"`

	// output:
	Output          string    `yaml:"output"`
	Format          string    `yaml:"format"`
	Types           multiFlag `yaml:"type"`
	EmitModel       bool      `yaml:"emit-model"`
	EmitStats       bool      `yaml:"emit-stats"`
	EmitDiagnostics bool      `yaml:"emit-diagnostics"`
	FailOnDangling  bool      `yaml:"fail-on-dangling"`
	PrintVersion    bool      `yaml:"version"`

	// logging:
	ApplicationLog            string    `yaml:"application-log"`
	ApplicationLogLevel       log.Level `yaml:"-"`
	ApplicationLogLevelString string    `yaml:"application-log-level"`
	ApplicationLogPrefix      string    `yaml:"application-log-prefix"`
	ApplicationLogJSONEnabled bool      `yaml:"application-log-json-enabled"`

	// metrics and tracing:
	MetricsFile                  string    `yaml:"metrics-file"`
	MetricsPrefix                string    `yaml:"metrics-prefix"`
	EnableRuntimeMetrics         bool      `yaml:"runtime-metrics"`
	HistogramMetricBucketsString string    `yaml:"histogram-metric-buckets"`
	HistogramMetricBuckets       []float64 `yaml:"-"`
	EnableOpenTelemetry          bool      `yaml:"enable-open-telemetry"`
}

func NewConfig() *Config {
	cfg := new(Config)

	flag := flag.NewFlagSet("", flag.ExitOnError)
	flag.StringVar(&cfg.ConfigFile, "config-file", "", "if provided the flags will be loaded/overwritten by the values on the file (yaml)")

	// input:
	flag.Var(&cfg.Inputs, "input", "saved configuration to read, a file, an http(s) URL or - for stdin. Can be repeated, the sources are read in order. Positional arguments are read as inputs, too")
	flag.StringVar(&cfg.InputEncoding, "input-encoding", "UTF8", "encoding of the inputs, e.g. UTF8, ISO8859_1 or Windows1252")
	flag.DurationVar(&cfg.InputTimeout, "input-timeout", 30*time.Second, "timeout for downloading remote inputs")
	flag.UintVar(&cfg.InputRetries, "input-retries", 3, "number of tries downloading remote inputs, connection errors and 5xx responses are retried")
	flag.StringVar(&cfg.Version, "ns-version", "", "firmware version of the saved configuration, selects the grammar. When not set, it is read from the #NS header of the configuration, and "+grammar.DefaultVersion+" is used when there is none")

	// output:
	flag.StringVar(&cfg.Output, "output", "", "output file for the applications. When not set, stdout is used")
	flag.StringVar(&cfg.Format, "format", FormatJSON, "output format, json or yaml")
	flag.Var(&cfg.Types, "type", "only emit applications of this type, cs, lb or gslb. Can be repeated")
	flag.BoolVar(&cfg.EmitModel, "emit-model", false, "include the parsed object model in the output")
	flag.BoolVar(&cfg.EmitStats, "emit-stats", false, "include the statistics of the run in the output")
	flag.BoolVar(&cfg.EmitDiagnostics, "emit-diagnostics", false, "include the diagnostics of the run in the output")
	flag.BoolVar(&cfg.FailOnDangling, "fail-on-dangling", false, "exit with an error when a reference points to a missing object")
	flag.BoolVar(&cfg.PrintVersion, "version", false, "print the version and exit")

	// logging:
	flag.StringVar(&cfg.ApplicationLog, "application-log", "", "output file for the application log. When not set, /dev/stderr is used")
	flag.StringVar(&cfg.ApplicationLogLevelString, "application-log-level", "INFO", "log level for application logs, possible values: PANIC, FATAL, ERROR, WARN, INFO, DEBUG")
	flag.StringVar(&cfg.ApplicationLogPrefix, "application-log-prefix", "", "prefix for each log entry")
	flag.BoolVar(&cfg.ApplicationLogJSONEnabled, "application-log-json-enabled", false, "when this flag is set, log in JSON format is used")

	// metrics and tracing:
	flag.StringVar(&cfg.MetricsFile, "metrics-file", "", "when set, the metrics of the run are written into this file in the Prometheus text format")
	flag.StringVar(&cfg.MetricsPrefix, "metrics-prefix", "adcmigrate.", "allows setting a custom path prefix for the metrics")
	flag.BoolVar(&cfg.EnableRuntimeMetrics, "runtime-metrics", false, "enables reporting the Go runtime and process metrics")
	flag.StringVar(&cfg.HistogramMetricBucketsString, "histogram-metric-buckets", "", "use custom buckets for the stage duration histogram, e.g. .001,.01,.1,1")
	flag.BoolVar(&cfg.EnableOpenTelemetry, "enable-open-telemetry", false, "enables tracing of the run stages, configured by the OTEL_* environment variables")

	cfg.Flags = flag
	return cfg
}

func validate(c *Config) error {
	_, err := log.ParseLevel(c.ApplicationLogLevelString)
	if err != nil {
		return err
	}

	switch c.Format {
	case FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("invalid output format: %q", c.Format)
	}

	for _, t := range c.Types {
		switch adc.Type(t) {
		case adc.CS, adc.LB, adc.GSLB:
		default:
			return fmt.Errorf("invalid application type: %q", t)
		}
	}

	_, err = input.Encoding(c.InputEncoding)
	if err != nil {
		return err
	}

	_, err = c.parseHistogramBuckets(c.HistogramMetricBucketsString, prometheus.DefBuckets)
	return err
}

func (c *Config) Parse() error {
	return c.ParseArgs(os.Args[0], os.Args[1:])
}

func (c *Config) ParseArgs(progname string, args []string) error {
	c.Flags.Init(progname, flag.ExitOnError)
	err := c.Flags.Parse(args)
	if err != nil {
		return err
	}

	// positional arguments are inputs
	positional := c.Flags.Args()

	if c.ConfigFile != "" {
		yamlFile, err := os.ReadFile(c.ConfigFile)
		if err != nil {
			return fmt.Errorf("invalid config file: %w", err)
		}

		err = yaml.Unmarshal(yamlFile, c)
		if err != nil {
			return fmt.Errorf("unmarshalling config file error: %w", err)
		}

		// the file may have replaced the repeated flags
		inputs, types := c.Inputs, c.Types
		c.Inputs, c.Types = nil, nil

		err = c.Flags.Parse(args)
		if err != nil {
			return err
		}

		if len(c.Inputs) == 0 {
			c.Inputs = inputs
		}

		if len(c.Types) == 0 {
			c.Types = types
		}
	}

	c.Inputs = append(c.Inputs, positional...)

	if err := validate(c); err != nil {
		return err
	}

	c.ApplicationLogLevel, _ = log.ParseLevel(c.ApplicationLogLevelString)
	c.HistogramMetricBuckets, _ = c.parseHistogramBuckets(c.HistogramMetricBucketsString, prometheus.DefBuckets)

	return nil
}

// ToOptions returns the options of a run.
func (c *Config) ToOptions() adcmigrate.Options {
	var types []adc.Type
	for _, t := range c.Types {
		types = append(types, adc.Type(t))
	}

	return adcmigrate.Options{
		Version: c.Version,
		Types:   types,
	}
}

// ToInputOptions returns the options of reading the inputs.
func (c *Config) ToInputOptions() input.Options {
	return input.Options{
		Encoding: c.InputEncoding,
		Timeout:  c.InputTimeout,
		MaxTries: c.InputRetries,
	}
}

// ToMetricsOptions returns the options of the Prometheus backend.
func (c *Config) ToMetricsOptions() metrics.Options {
	return metrics.Options{
		Prefix:               c.MetricsPrefix,
		HistogramBuckets:     c.HistogramMetricBuckets,
		EnableRuntimeMetrics: c.EnableRuntimeMetrics,
	}
}

func (c *Config) parseHistogramBuckets(bucketString string, defaultBuckets []float64) ([]float64, error) {
	if bucketString == "" {
		return defaultBuckets, nil
	}

	var result []float64
	thresholds := strings.Split(bucketString, ",")
	for _, v := range thresholds {
		bucket, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse histogram-metric-buckets: %w", err)
		}
		result = append(result, bucket)
	}
	sort.Float64s(result)
	return result, nil
}
