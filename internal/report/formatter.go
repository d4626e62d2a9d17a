// Package report renders deployment state documents for human or machine
// consumption.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/netbuilder/internal/state"
)

// Formatter renders a deployment record into one output format.
type Formatter interface {
	Format(st *state.DeploymentState) (string, error)
}

// FormatType selects the output format.
type FormatType string

const (
	// FormatJSON outputs the record as indented JSON.
	FormatJSON FormatType = "json"
	// FormatYAML outputs the record as YAML.
	FormatYAML FormatType = "yaml"
	// FormatText outputs a human-readable summary.
	FormatText FormatType = "text"
)

// NewFormatter creates a formatter for the given format.
func NewFormatter(format FormatType) (Formatter, error) {
	switch format {
	case FormatJSON:
		return &jsonFormatter{}, nil
	case FormatYAML:
		return &yamlFormatter{}, nil
	case FormatText:
		return &textFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

type jsonFormatter struct{}

func (f *jsonFormatter) Format(st *state.DeploymentState) (string, error) {
	if st == nil {
		return "", fmt.Errorf("cannot format nil state")
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal state to JSON: %v", err)
	}
	return string(data), nil
}

type yamlFormatter struct{}

func (f *yamlFormatter) Format(st *state.DeploymentState) (string, error) {
	if st == nil {
		return "", fmt.Errorf("cannot format nil state")
	}
	data, err := yaml.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state to YAML: %v", err)
	}
	return string(data), nil
}

type textFormatter struct{}

func (f *textFormatter) Format(st *state.DeploymentState) (string, error) {
	if st == nil {
		return "No deployment state available\n", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Topology: %s\n", st.Topology))
	sb.WriteString(fmt.Sprintf("Region:   %s\n", st.Region))
	sb.WriteString(fmt.Sprintf("Run:      %s\n", st.RunID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", st.Status))
	if st.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", st.Error))
	}
	sb.WriteString(fmt.Sprintf("Started:  %s\n", st.CreatedAt.Format("2006-01-02 15:04:05 MST")))
	if !st.FinishedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Finished: %s\n", st.FinishedAt.Format("2006-01-02 15:04:05 MST")))
	}

	if len(st.Resources) == 0 {
		sb.WriteString("\nNo resources recorded.\n")
		return sb.String(), nil
	}

	sb.WriteString(fmt.Sprintf("\nResources (%d, %d remaining):\n\n", len(st.Resources), st.Remaining()))
	for i, res := range st.Resources {
		marker := " "
		if res.Deleted {
			marker = "x"
		}
		sb.WriteString(fmt.Sprintf("%2d. [%s] %-22s %-24s %s\n",
			i+1, marker, res.Kind, res.LogicalName, res.RemoteID))
	}
	return sb.String(), nil
}
