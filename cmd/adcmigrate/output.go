package main

import (
	"encoding/json"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"github.com/zalando/adcmigrate"
	"github.com/zalando/adcmigrate/adc"
	"github.com/zalando/adcmigrate/config"
	"github.com/zalando/adcmigrate/diag"
	"github.com/zalando/adcmigrate/objects"
)

// document is the written output. The model, the statistics and the
// diagnostics are optional.
type document struct {
	Apps        []*adc.App        `json:"apps"`
	Model       *objects.Model    `json:"model,omitempty"`
	Stats       *adcmigrate.Stats `json:"stats,omitempty"`
	Diagnostics []diag.Entry      `json:"diagnostics,omitempty"`
}

func newDocument(res *adcmigrate.Result, cfg *config.Config) *document {
	d := &document{Apps: res.Apps}
	if d.Apps == nil {
		d.Apps = []*adc.App{}
	}

	if cfg.EmitModel {
		d.Model = res.Model
	}

	if cfg.EmitStats {
		d.Stats = &res.Stats
	}

	if cfg.EmitDiagnostics {
		d.Diagnostics = res.Diagnostics
	}

	return d
}

func write(w io.Writer, d *document, format string) error {
	var (
		b   []byte
		err error
	)

	switch format {
	case config.FormatYAML:
		b, err = yaml.Marshal(d)
	case config.FormatJSON:
		b, err = json.MarshalIndent(d, "", "  ")
		b = append(b, '\n')
	default:
		return fmt.Errorf("unsupported output format: %q", format)
	}

	if err != nil {
		return err
	}

	_, err = w.Write(b)
	return err
}
