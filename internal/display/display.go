// Package display declares how each record type is presented. The TUI and the
// table formatter both walk these field lists instead of laying out records
// themselves.
package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/deploymenttheory/go-ffsp/internal/classify"
	"github.com/deploymenttheory/go-ffsp/internal/model"
	"github.com/deploymenttheory/go-ffsp/internal/navigator"
)

// AnomalyMark prefixes values of items that could not be fully read.
const AnomalyMark = "!"

// Field is one labelled value of a record.
type Field[T any] struct {
	Label string
	Value func(T) string
}

// Row is a rendered label/value pair.
type Row struct {
	Label string
	Value string
}

// Rows applies fields to rec in order.
func Rows[T any](fields []Field[T], rec T) []Row {
	rows := make([]Row, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, Row{Label: f.Label, Value: f.Value(rec)})
	}
	return rows
}

// Header returns the labels of fields, for tabular layouts.
func Header[T any](fields []Field[T]) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Label
	}
	return out
}

// Values returns the values of fields for rec, for tabular layouts.
func Values[T any](fields []Field[T], rec T) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Value(rec)
	}
	return out
}

func num(n uint64) string { return strconv.FormatUint(n, 10) }

func hex(n uint64) string { return fmt.Sprintf("0x%x", n) }

func timestamp(t time.Time) string {
	if t.IsZero() || t.Unix() == 0 && t.Nanosecond() == 0 {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05.000000000")
}

func validClusters(e *model.Eraseblock) string {
	if e.ValidCountMismatch() {
		return AnomalyMark + num(e.ValidClusters)
	}
	return num(e.ValidClusters)
}

// SuperblockFields are shown in the superblock pane.
var SuperblockFields = []Field[*model.Superblock]{
	{"fd", func(s *model.Superblock) string { return num(s.FD) }},
	{"fsid", func(s *model.Superblock) string { return s.FSIDString() }},
	{"flags", func(s *model.Superblock) string { return hex(s.Flags) }},
	{"neraseblocks", func(s *model.Superblock) string { return num(s.NumEraseblocks) }},
	{"nino", func(s *model.Superblock) string { return num(s.NumInodes) }},
	{"blocksize", func(s *model.Superblock) string { return num(s.BlockSize) }},
	{"clustersize", func(s *model.Superblock) string { return num(s.ClusterSize) }},
	{"erasesize", func(s *model.Superblock) string { return num(s.EraseSize) }},
	{"ninoopen", func(s *model.Superblock) string { return num(s.NumInodesOpen) }},
	{"neraseopen", func(s *model.Superblock) string { return num(s.NumEraseblocksOpen) }},
	{"nerasereserve", func(s *model.Superblock) string { return num(s.NumEraseReserve) }},
	{"nerasewrites", func(s *model.Superblock) string { return num(s.NumEraseWrites) }},
}

// MetricsFields are shown below the superblock.
var MetricsFields = []Field[*model.Metrics]{
	{"read_raw", func(m *model.Metrics) string { return num(m.ReadRaw) }},
	{"write_raw", func(m *model.Metrics) string { return num(m.WriteRaw) }},
	{"fuse_read", func(m *model.Metrics) string { return num(m.FuseRead) }},
	{"fuse_write", func(m *model.Metrics) string { return num(m.FuseWrite) }},
	{"gc_read", func(m *model.Metrics) string { return num(m.GCRead) }},
	{"gc_write", func(m *model.Metrics) string { return num(m.GCWrite) }},
	{"errors", func(m *model.Metrics) string { return num(m.Errors) }},
}

// EraseblockFields describe a single eraseblock summary.
var EraseblockFields = []Field[*model.Eraseblock]{
	{"id", func(e *model.Eraseblock) string { return num(e.ID) }},
	{"type", func(e *model.Eraseblock) string { return string(e.Style.Role) }},
	{"lastwrite", func(e *model.Eraseblock) string { return num(e.LastWrite) }},
	{"cvalid", validClusters},
	{"writeops", func(e *model.Eraseblock) string { return num(e.WriteOps) }},
	{"clusters", func(e *model.Eraseblock) string { return strconv.Itoa(len(e.ClusterIDs)) }},
}

// ClusterFields describe a single cluster.
var ClusterFields = []Field[*model.Cluster]{
	{"id", func(c *model.Cluster) string { return num(c.ID) }},
	{"offset", func(c *model.Cluster) string { return hex(c.Offset) }},
	{"inodes", func(c *model.Cluster) string { return strconv.Itoa(len(c.InodeIDs)) }},
}

// InodeFields describe a single inode.
var InodeFields = []Field[*model.Inode]{
	{"no", func(i *model.Inode) string { return num(i.No) }},
	{"size", func(i *model.Inode) string { return num(i.Size) }},
	{"layout", func(i *model.Inode) string { return i.Layout.String() }},
	{"nlink", func(i *model.Inode) string { return num(i.NLink) }},
	{"mode", func(i *model.Inode) string { return i.ModeString() }},
	{"uid", func(i *model.Inode) string { return num(i.UID) }},
	{"gid", func(i *model.Inode) string { return num(i.GID) }},
	{"rdev", func(i *model.Inode) string { return num(i.Rdev) }},
	{"atime", func(i *model.Inode) string { return timestamp(i.Atime) }},
	{"ctime", func(i *model.Inode) string { return timestamp(i.Ctime) }},
	{"mtime", func(i *model.Inode) string { return timestamp(i.Mtime) }},
}

func anomalyText(a *model.Anomaly) string {
	if a == nil {
		return ""
	}
	return AnomalyMark + string(a.Kind)
}

// EraseblockColumns lay out the eraseblock list. Unreadable entries keep
// their row with the anomaly in place of the values.
var EraseblockColumns = []Field[model.EraseblockEntry]{
	{"ID", func(e model.EraseblockEntry) string { return num(e.ID) }},
	{"TYPE", func(e model.EraseblockEntry) string {
		if e.Eraseblock == nil {
			return anomalyText(e.Anomaly)
		}
		return string(e.Eraseblock.Style.Role)
	}},
	{"CVALID", func(e model.EraseblockEntry) string {
		if e.Eraseblock == nil {
			return "-"
		}
		return validClusters(e.Eraseblock)
	}},
	{"CLUSTERS", func(e model.EraseblockEntry) string {
		if e.Eraseblock == nil {
			return "-"
		}
		return strconv.Itoa(len(e.Eraseblock.ClusterIDs))
	}},
	{"WRITEOPS", func(e model.EraseblockEntry) string {
		if e.Eraseblock == nil {
			return "-"
		}
		return num(e.Eraseblock.WriteOps)
	}},
	{"LASTWRITE", func(e model.EraseblockEntry) string {
		if e.Eraseblock == nil {
			return "-"
		}
		return num(e.Eraseblock.LastWrite)
	}},
}

// EntryStyle returns the colours of an eraseblock list row, false for
// unreadable entries.
func EntryStyle(e model.EraseblockEntry) (classify.Style, bool) {
	if e.Eraseblock == nil {
		return classify.Style{}, false
	}
	return e.Eraseblock.Style, true
}

// ClusterColumns lay out the clusters of the selected eraseblock.
var ClusterColumns = []Field[navigator.ClusterEntry]{
	{"ID", func(c navigator.ClusterEntry) string { return num(c.ID) }},
	{"OFFSET", func(c navigator.ClusterEntry) string {
		if c.Cluster == nil {
			return anomalyText(c.Anomaly)
		}
		return hex(c.Cluster.Offset)
	}},
	{"INODES", func(c navigator.ClusterEntry) string {
		if c.Cluster == nil {
			return "-"
		}
		return strconv.Itoa(len(c.Cluster.InodeIDs))
	}},
}

// InodeColumns lay out the inodes of the selected cluster.
var InodeColumns = []Field[navigator.InodeEntry]{
	{"NO", func(i navigator.InodeEntry) string { return num(i.ID) }},
	{"MODE", func(i navigator.InodeEntry) string {
		if i.Inode == nil {
			return anomalyText(i.Anomaly)
		}
		return i.Inode.ModeString()
	}},
	{"SIZE", func(i navigator.InodeEntry) string {
		if i.Inode == nil {
			return "-"
		}
		return num(i.Inode.Size)
	}},
	{"LAYOUT", func(i navigator.InodeEntry) string {
		if i.Inode == nil {
			return "-"
		}
		return i.Inode.Layout.String()
	}},
	{"NLINK", func(i navigator.InodeEntry) string {
		if i.Inode == nil {
			return "-"
		}
		return num(i.Inode.NLink)
	}},
	{"MTIME", func(i navigator.InodeEntry) string {
		if i.Inode == nil {
			return "-"
		}
		return timestamp(i.Inode.Mtime)
	}},
}

// AnomalyColumns lay out the anomaly list.
var AnomalyColumns = []Field[model.Anomaly]{
	{"LEVEL", func(a model.Anomaly) string { return string(a.Level) }},
	{"ID", func(a model.Anomaly) string {
		if a.Level == model.LevelMetrics {
			return "-"
		}
		return num(a.ID)
	}},
	{"KIND", func(a model.Anomaly) string { return string(a.Kind) }},
	{"DETAIL", func(a model.Anomaly) string { return a.Detail }},
}

// WriteRows writes label/value rows aligned on the label column.
func WriteRows(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.Label, r.Value)
	}
	return tw.Flush()
}

// WriteTable writes recs as an aligned table with a header line.
func WriteTable[T any](w io.Writer, fields []Field[T], recs []T) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(Header(fields), "\t"))
	for _, rec := range recs {
		fmt.Fprintln(tw, strings.Join(Values(fields, rec), "\t"))
	}
	return tw.Flush()
}
