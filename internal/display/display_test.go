package display

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-ffsp/internal/classify"
	"github.com/deploymenttheory/go-ffsp/internal/dumptest"
	"github.com/deploymenttheory/go-ffsp/internal/model"
	"github.com/deploymenttheory/go-ffsp/internal/navigator"
	"github.com/deploymenttheory/go-ffsp/internal/reload"
)

func loaded(t *testing.T, tree *dumptest.Tree) *reload.Controller {
	t.Helper()
	logger, _ := test.NewNullLogger()
	c, err := reload.New(tree.Reader(), navigator.New(logger), reload.Options{Workers: 2, Log: logger})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	_, err = c.Reload(context.Background())
	require.NoError(t, err)
	return c
}

func tree() *dumptest.Tree {
	return dumptest.New().
		Super(0, 1, 2).
		Metrics(1, 2, 3, 4, 5, 6, 7).
		Eraseblock(0, 0x00, 10).
		EraseblockValid(1, 0x04, 5, 20, 21).
		Cluster(10, 0).
		Cluster(20, 65536, 2).
		Inode(2, 10, 0o100644)
}

func TestSuperblockRows(t *testing.T) {
	c := loaded(t, tree())

	rows := Rows(SuperblockFields, c.Snapshot().Superblock())
	require.Len(t, rows, 12)
	assert.Equal(t, Row{Label: "fd", Value: "3"}, rows[0])
	assert.Equal(t, Row{Label: "fsid", Value: "FFSP"}, rows[1])
	assert.Equal(t, Row{Label: "flags", Value: "0x0"}, rows[2])
	assert.Equal(t, "nerasewrites", rows[11].Label)

	m, ok := c.Snapshot().Metrics()
	require.True(t, ok)
	mrows := Rows(MetricsFields, m)
	assert.Equal(t, Row{Label: "errors", Value: "7"}, mrows[6])
}

func TestEraseblockColumnsMarkAnomalies(t *testing.T) {
	c := loaded(t, tree())
	entries := c.Snapshot().Eraseblocks()
	require.Len(t, entries, 3)

	assert.Equal(t, []string{"ID", "TYPE", "CVALID", "CLUSTERS", "WRITEOPS", "LASTWRITE"}, Header(EraseblockColumns))
	assert.Equal(t, []string{"0", "super", "1", "1", "1", "0"}, Values(EraseblockColumns, entries[0]))
	assert.Equal(t, []string{"1", "file_inode", "!5", "2", "1", "0"}, Values(EraseblockColumns, entries[1]))
	assert.Equal(t, []string{"2", "!missing", "-", "-", "-", "-"}, Values(EraseblockColumns, entries[2]))

	style, ok := EntryStyle(entries[0])
	require.True(t, ok)
	assert.Equal(t, classify.RoleSuper, style.Role)
	_, ok = EntryStyle(entries[2])
	assert.False(t, ok)
}

func TestBranchColumns(t *testing.T) {
	c := loaded(t, tree())
	nav := c.Navigator()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, nav, EraseblockPicked{ID: 1}))
	v := nav.Current()
	require.Len(t, v.Clusters, 2)
	assert.Equal(t, []string{"20", "0x10000", "1"}, Values(ClusterColumns, v.Clusters[0]))
	assert.Equal(t, []string{"21", "!missing", "-"}, Values(ClusterColumns, v.Clusters[1]))

	require.NoError(t, Apply(ctx, nav, ClusterPicked{ID: 20}))
	v = nav.Current()
	require.Len(t, v.Inodes, 1)
	vals := Values(InodeColumns, v.Inodes[0])
	assert.Equal(t, "2", vals[0])
	assert.Equal(t, "-rw-r--r--", vals[1])
	assert.Equal(t, "embedded", vals[3])

	rows := Rows(InodeFields, v.Inodes[0].Inode)
	assert.Equal(t, "mtime", rows[10].Label)
	assert.Equal(t, "2023-11-14 22:13:22.000000000", rows[10].Value)

	require.NoError(t, Apply(ctx, nav, SelectionCleared{}))
	assert.Equal(t, navigator.NoSelection, nav.State().Kind)
}

func TestApplyInvalidSelection(t *testing.T) {
	c := loaded(t, tree())
	err := Apply(context.Background(), c.Navigator(), EraseblockPicked{ID: 99})
	assert.ErrorIs(t, err, navigator.ErrInvalidSelection)
}

func TestAnomalyColumns(t *testing.T) {
	a := model.Anomaly{Level: model.LevelMetrics, Kind: model.AnomalyMissing, Detail: "gone"}
	assert.Equal(t, []string{"metrics", "-", "missing", "gone"}, Values(AnomalyColumns, a))
}

func TestWriteTable(t *testing.T) {
	c := loaded(t, tree())

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, EraseblockColumns, c.Snapshot().Eraseblocks()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[3], "!missing")

	buf.Reset()
	require.NoError(t, WriteRows(&buf, []Row{{"fd", "3"}, {"nerasewrites", "5"}}))
	assert.Equal(t, "fd            3\nnerasewrites  5\n", buf.String())
}
