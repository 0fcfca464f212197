package printers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/overdue"
	"github.com/harrisonrobin/roadmap/pkg/progress"
	"github.com/harrisonrobin/roadmap/pkg/timeline"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Report is the exported view of one roadmap state.
type Report struct {
	GeneratedAt time.Time         `json:"generatedAt" yaml:"generatedAt"`
	Chart       timeline.Chart    `json:"chart" yaml:"chart"`
	Progress    progress.Progress `json:"progress" yaml:"progress"`
	Overdue     []overdue.Entry   `json:"overdue" yaml:"overdue"`
	Ticks       []model.TickRow   `json:"ticks" yaml:"ticks"`
}

// Export encodes r as JSON or YAML.
func Export(w io.Writer, format string, r Report) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q (want json or yaml)", format)
}
