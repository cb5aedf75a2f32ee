/*
Package metrics implements collection of the statistics of configuration
runs.

The collected metrics include the number of objects found per kind, the
number of resolved applications per type, the time spent with ingesting,
digesting and linking, the number of diagnostics entries per kind, and the
outcome of the processed lines.

The Prometheus backend can serve the current values over HTTP, or write them
into a file for the textfile collector of the node exporter, which fits
the short lived command line runs better.
*/
package metrics

import "time"

// Metrics receives the statistics of a run.
type Metrics interface {
	SetObjects(kind string, n int)
	SetApps(appType string, n int)
	MeasureStage(stage string, start time.Time)
	IncDiagnostics(kind string, n int)
	AddLines(result string, n int)
	IncRuns(result string)
}

type void struct{}

// Void discards all metrics.
var Void Metrics = void{}

func (void) SetObjects(string, int) {}
func (void) SetApps(string, int) {}
func (void) MeasureStage(string, time.Time) {}
func (void) IncDiagnostics(string, int) {}
func (void) AddLines(string, int) {}
func (void) IncRuns(string) {}
