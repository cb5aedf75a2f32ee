package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

type prefixFormatter struct {
	prefix    string
	formatter logrus.Formatter
}

// Init options for logging.
type Options struct {

	// Prefix for application log entries.
	ApplicationLogPrefix string

	// Output for the application log entries, when nil,
	// os.Stderr is used.
	ApplicationLogOutput io.Writer

	// When set, log in JSON format is used.
	ApplicationLogJSONEnabled bool

	// Level of the application log. When empty, the current level of
	// the standard logger is kept.
	ApplicationLogLevel string
}

func (f *prefixFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b, err := f.formatter.Format(e)
	if err != nil {
		return nil, err
	}

	return append([]byte(f.prefix), b...), nil
}

func initApplicationLog(prefix string, output io.Writer, jsonEnabled bool) {
	var formatter logrus.Formatter = &logrus.TextFormatter{}
	if jsonEnabled {
		formatter = &logrus.JSONFormatter{}
	}

	if prefix != "" {
		formatter = &prefixFormatter{prefix, formatter}
	}

	logrus.SetFormatter(formatter)
	if output != nil {
		logrus.SetOutput(output)
	}
}

// Init initializes logging. It fails only when the level is invalid.
func Init(o Options) error {
	if o.ApplicationLogLevel != "" {
		l, err := logrus.ParseLevel(o.ApplicationLogLevel)
		if err != nil {
			return err
		}

		logrus.SetLevel(l)
	}

	if o.ApplicationLogPrefix != "" || o.ApplicationLogOutput != nil || o.ApplicationLogJSONEnabled {
		initApplicationLog(o.ApplicationLogPrefix, o.ApplicationLogOutput, o.ApplicationLogJSONEnabled)
	}

	return nil
}
