package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-ffsp/internal/display"
)

// FormatOutput writes the response in the requested format
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatTable lays the view out with the display field lists
func formatTable(out io.Writer, response *Response) error {
	v := response.view
	if v == nil || v.Snapshot == nil {
		return fmt.Errorf("table output needs a loaded snapshot")
	}
	snap := v.Snapshot

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Generation:\t%s\n", response.Generation)
	fmt.Fprintf(w, "Loaded:\t%s\n\n", response.LoadedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(w, "SUPERBLOCK")
	writeRows(w, display.Rows(display.SuperblockFields, snap.Superblock()))

	fmt.Fprintln(w, "\nMETRICS")
	if m, ok := snap.Metrics(); ok {
		writeRows(w, display.Rows(display.MetricsFields, m))
	} else {
		fmt.Fprintf(w, "  %s\tunavailable\n", display.AnomalyMark)
	}

	fmt.Fprintln(w, "\nERASEBLOCKS")
	writeTable(w, display.Header(display.EraseblockColumns), len(snap.Eraseblocks()), func(i int) []string {
		return display.Values(display.EraseblockColumns, snap.Eraseblocks()[i])
	})

	if v.Eraseblock != nil {
		fmt.Fprintf(w, "\nERASEBLOCK %d\n", v.Eraseblock.ID)
		writeRows(w, display.Rows(display.EraseblockFields, v.Eraseblock))
		fmt.Fprintln(w, "\nCLUSTERS")
		writeTable(w, display.Header(display.ClusterColumns), len(v.Clusters), func(i int) []string {
			return display.Values(display.ClusterColumns, v.Clusters[i])
		})
	}

	if v.Cluster != nil {
		fmt.Fprintf(w, "\nCLUSTER %d\n", v.Cluster.ID)
		writeRows(w, display.Rows(display.ClusterFields, v.Cluster))
		fmt.Fprintln(w, "\nINODES")
		writeTable(w, display.Header(display.InodeColumns), len(v.Inodes), func(i int) []string {
			return display.Values(display.InodeColumns, v.Inodes[i])
		})
	}
	if response.Selection.Error != "" {
		fmt.Fprintf(w, "\n%s %s\n", display.AnomalyMark, response.Selection.Error)
	}

	anomalies := append(snap.Anomalies(), v.Anomalies()...)
	if len(anomalies) > 0 {
		fmt.Fprintln(w, "\nANOMALIES")
		writeTable(w, display.Header(display.AnomalyColumns), len(anomalies), func(i int) []string {
			return display.Values(display.AnomalyColumns, anomalies[i])
		})
	}

	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\n%s\n", FormatSummary(response))
	return err
}

func writeRows(w io.Writer, rows []display.Row) {
	for _, r := range rows {
		fmt.Fprintf(w, "  %s\t%s\n", r.Label, r.Value)
	}
}

func writeTable(w io.Writer, header []string, n int, row func(int) []string) {
	if n == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(header, "\t"))
	for i := 0; i < n; i++ {
		fmt.Fprintf(w, "  %s\n", strings.Join(row(i), "\t"))
	}
}

// formatJSON formats the response as JSON
func formatJSON(w io.Writer, response *Response) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// formatYAML formats the response as YAML
func formatYAML(w io.Writer, response *Response) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(response)
}

// FormatSummary provides a one line summary for verbose output
func FormatSummary(response *Response) string {
	summary := fmt.Sprintf("%d eraseblock", len(response.Eraseblocks))
	if len(response.Eraseblocks) != 1 {
		summary += "s"
	}
	if n := len(response.Anomalies); n > 0 {
		summary += fmt.Sprintf(", %d anomal", n)
		if n == 1 {
			summary += "y"
		} else {
			summary += "ies"
		}
	}
	if response.Selection.Kind != "none" && response.Selection.Kind != "" {
		summary += ", selected " + response.Selection.Kind
	}
	if response.LoadTime > 0 {
		summary += fmt.Sprintf(" in %v", response.LoadTime)
	}
	return summary
}
