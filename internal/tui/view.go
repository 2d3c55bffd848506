package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/deploymenttheory/go-ffsp/internal/display"
	"github.com/deploymenttheory/go-ffsp/internal/navigator"
)

// Styles
var (
	accentColor = lipgloss.Color("#7aa2f7")
	errorColor  = lipgloss.Color("#f7768e")
	dimColor    = lipgloss.Color("#565f89")
	textColor   = lipgloss.Color("#c0caf5")

	titleStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimColor).
			Padding(0, 1)

	focusedPaneStyle = paneStyle.
				BorderForeground(accentColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	valueStyle = lipgloss.NewStyle().
			Foreground(textColor)

	cursorStyle = lipgloss.NewStyle().
			Reverse(true)

	anomalyStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	statusStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Background(lipgloss.Color("#24283b")).
			Padding(0, 1)

	statusErrorStyle = statusStyle.
				Foreground(errorColor)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	title := titleStyle.Render("ffsp inspector")
	if m.opts.Title != "" {
		title += labelStyle.Render("  " + m.opts.Title)
	}

	if m.view.Snapshot == nil {
		body := "Loading snapshot..."
		if m.lastErr != nil {
			body = anomalyStyle.Render(m.lastErr.Error())
		}
		return lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", m.statusBar())
	}

	listHeight := max(m.height-8, 5)

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderSummary(),
		m.renderEraseblocks(listHeight-len(display.SuperblockFields)-len(display.MetricsFields)-4),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderClusters(listHeight/2),
		m.renderInodes(listHeight/2),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		m.statusBar(),
		labelStyle.Render("↑/↓ move  enter select  esc back  tab pane  r reload  q quit"),
	)
}

func (m Model) renderSummary() string {
	snap := m.view.Snapshot
	var b strings.Builder
	b.WriteString(headerStyle.Render("SUPERBLOCK") + "\n")
	writeRows(&b, display.Rows(display.SuperblockFields, snap.Superblock()))
	b.WriteString(headerStyle.Render("METRICS") + "\n")
	if metrics, ok := snap.Metrics(); ok {
		writeRows(&b, display.Rows(display.MetricsFields, metrics))
	} else {
		b.WriteString(anomalyStyle.Render(display.AnomalyMark+" unavailable") + "\n")
	}
	return paneStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func writeRows(b *strings.Builder, rows []display.Row) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r.Label))
	}
	for _, r := range rows {
		fmt.Fprintf(b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-*s", width, r.Label)), valueStyle.Render(r.Value))
	}
}

func (m Model) renderEraseblocks(height int) string {
	entries := m.view.Snapshot.Eraseblocks()
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = display.Values(display.EraseblockColumns, e)
	}
	widths := columnWidths(display.Header(display.EraseblockColumns), rows)

	selected := -1
	if m.view.State.Kind != navigator.NoSelection {
		for i, e := range entries {
			if e.ID == m.view.State.Eraseblock {
				selected = i
			}
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("  "+formatRow(display.Header(display.EraseblockColumns), widths)))
	from, to := window(m.cursor[paneEraseblocks], len(entries), height)
	for i := from; i < to; i++ {
		line := formatRow(rows[i], widths)
		if style, ok := display.EntryStyle(entries[i]); ok {
			line = style.Render(line)
		} else {
			line = anomalyStyle.Render(line)
		}
		b.WriteString("\n" + m.decorate(paneEraseblocks, i, i == selected, line))
	}
	return m.frame(paneEraseblocks, fmt.Sprintf("ERASEBLOCKS (%d)", len(entries)), b.String())
}

func (m Model) renderClusters(height int) string {
	v := m.view
	if v.Eraseblock == nil {
		return m.frame(paneClusters, "CLUSTERS", labelStyle.Render("select an eraseblock"))
	}

	var b strings.Builder
	b.WriteString(v.Eraseblock.Style.Render(fmt.Sprintf(" eraseblock %d  %s ", v.Eraseblock.ID, v.Eraseblock.Style.Role)))
	b.WriteString("\n")
	writeRows(&b, display.Rows(display.EraseblockFields, v.Eraseblock)[2:])

	switch {
	case v.Clusters == nil && v.Loading:
		b.WriteString(labelStyle.Render("loading..."))
	case v.Clusters == nil:
		b.WriteString(anomalyStyle.Render(errText(v.Err)))
	default:
		rows := make([][]string, len(v.Clusters))
		for i, c := range v.Clusters {
			rows[i] = display.Values(display.ClusterColumns, c)
		}
		widths := columnWidths(display.Header(display.ClusterColumns), rows)
		b.WriteString(headerStyle.Render("  "+formatRow(display.Header(display.ClusterColumns), widths)))
		from, to := window(m.cursor[paneClusters], len(rows), height)
		for i := from; i < to; i++ {
			line := formatRow(rows[i], widths)
			if v.Clusters[i].Anomaly != nil {
				line = anomalyStyle.Render(line)
			}
			picked := v.State.Kind == navigator.ClusterSelected && v.Clusters[i].ID == v.State.Cluster
			b.WriteString("\n" + m.decorate(paneClusters, i, picked, line))
		}
	}
	return m.frame(paneClusters, fmt.Sprintf("CLUSTERS (%d)", len(v.Eraseblock.ClusterIDs)), b.String())
}

func (m Model) renderInodes(height int) string {
	v := m.view
	if v.State.Kind != navigator.ClusterSelected {
		return m.frame(paneInodes, "INODES", labelStyle.Render("select a cluster"))
	}

	var b strings.Builder
	switch {
	case v.Cluster == nil && v.Loading:
		b.WriteString(labelStyle.Render("loading..."))
	case v.Cluster == nil:
		b.WriteString(anomalyStyle.Render(fmt.Sprintf("cluster %d unreadable: %s", v.State.Cluster, errText(v.Err))))
	default:
		writeRows(&b, display.Rows(display.ClusterFields, v.Cluster))
		rows := make([][]string, len(v.Inodes))
		for i, ino := range v.Inodes {
			rows[i] = display.Values(display.InodeColumns, ino)
		}
		widths := columnWidths(display.Header(display.InodeColumns), rows)
		b.WriteString(headerStyle.Render("  "+formatRow(display.Header(display.InodeColumns), widths)))
		from, to := window(m.cursor[paneInodes], len(rows), height)
		for i := from; i < to; i++ {
			line := formatRow(rows[i], widths)
			if v.Inodes[i].Anomaly != nil {
				line = anomalyStyle.Render(line)
			}
			b.WriteString("\n" + m.decorate(paneInodes, i, false, line))
		}
		if m.focus == paneInodes && len(v.Inodes) > 0 {
			if ino := v.Inodes[m.cursor[paneInodes]].Inode; ino != nil {
				b.WriteString("\n\n")
				writeRows(&b, display.Rows(display.InodeFields, ino))
			}
		}
	}
	return m.frame(paneInodes, fmt.Sprintf("INODES (%d)", len(v.Inodes)), strings.TrimRight(b.String(), "\n"))
}

func (m Model) statusBar() string {
	indicator := "?"
	if m.opts.Status != nil {
		indicator = m.mount.Indicator()
	}
	parts := []string{"[" + indicator + "]"}

	if snap := m.view.Snapshot; snap != nil {
		parts = append(parts,
			"gen "+snap.Generation.String()[:8],
			snap.LoadedAt.Format("15:04:05"),
		)
		if n := len(snap.Anomalies()) + len(m.view.Anomalies()); n > 0 {
			parts = append(parts, fmt.Sprintf("%d anomalies", n))
		}
	}
	parts = append(parts, m.view.State.String())
	if m.reloading {
		parts = append(parts, "reloading...")
	}

	bar := strings.Join(parts, " | ")
	if m.lastErr != nil {
		return statusErrorStyle.Render(bar + " | " + m.lastErr.Error())
	}
	return statusStyle.Render(bar)
}

func (m Model) frame(p pane, title, body string) string {
	style := paneStyle
	if m.focus == p {
		style = focusedPaneStyle
	}
	return style.Render(headerStyle.Render(title) + "\n" + body)
}

// decorate marks the cursor row of the focused pane and the picked row.
func (m Model) decorate(p pane, i int, picked bool, line string) string {
	marker := "  "
	if picked {
		marker = "> "
	}
	if m.focus == p && m.cursor[p] == i {
		return cursorStyle.Render(marker + line)
	}
	return marker + line
}

func errText(err error) string {
	if err == nil {
		return "unavailable"
	}
	return err.Error()
}

func columnWidths(header []string, rows [][]string) []int {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i, c := range r {
			widths[i] = max(widths[i], len(c))
		}
	}
	return widths
}

func formatRow(cells []string, widths []int) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = fmt.Sprintf("%-*s", widths[i], c)
	}
	return strings.Join(out, "  ")
}

// window returns the visible row range of a list of n rows keeping cursor
// on screen.
func window(cursor, n, height int) (int, int) {
	height = max(height, 1)
	if n <= height {
		return 0, n
	}
	from := max(cursor-height/2, 0)
	if from+height > n {
		from = n - height
	}
	return from, from + height
}
