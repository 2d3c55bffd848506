package mcptools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-ffsp/internal/dump"
	"github.com/deploymenttheory/go-ffsp/internal/dumptest"
	"github.com/deploymenttheory/go-ffsp/internal/navigator"
	"github.com/deploymenttheory/go-ffsp/internal/reload"
)

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newTools(t *testing.T, tree *dumptest.Tree) *Tools {
	t.Helper()
	logger, _ := test.NewNullLogger()
	ctrl, err := reload.New(tree.Reader(), navigator.New(logger), reload.Options{Workers: 2, Log: logger})
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)
	return New(ctrl)
}

func toolTree() *dumptest.Tree {
	return dumptest.New().
		Super(0, 1).
		Metrics(5, 6).
		Eraseblock(0, 0x00, 10).
		Eraseblock(1, 0x02, 20).
		Cluster(10, 0).
		Cluster(20, 4096, 8).
		Inode(8, 512, 0o040755)
}

func call(t *testing.T, h handler, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestQueryToolsLoadOnDemand(t *testing.T) {
	tools := newTools(t, toolTree())

	out, isErr := call(t, tools.handleSuperblock, nil)
	require.False(t, isErr)
	assert.Contains(t, out, "FFSP")
	assert.Contains(t, out, "clustersize")

	out, isErr = call(t, tools.handleMetrics, nil)
	require.False(t, isErr)
	assert.Contains(t, out, "write_raw")

	out, isErr = call(t, tools.handleEraseblocks, nil)
	require.False(t, isErr)
	assert.Contains(t, out, "dentry_clin")
}

func TestSelectionTools(t *testing.T) {
	tools := newTools(t, toolTree())

	out, isErr := call(t, tools.handleSelectEraseblock, map[string]any{"id": float64(1)})
	require.False(t, isErr, out)
	assert.Contains(t, out, "selection: eraseblock 1")
	assert.Contains(t, out, "0x1000")

	out, isErr = call(t, tools.handleSelectCluster, map[string]any{"id": float64(20)})
	require.False(t, isErr, out)
	assert.Contains(t, out, "selection: eraseblock 1 / cluster 20")
	assert.Contains(t, out, "drwxr-xr-x")

	out, isErr = call(t, tools.handleSelection, nil)
	require.False(t, isErr)
	assert.Contains(t, out, "cluster 20")

	out, isErr = call(t, tools.handleClearSelection, nil)
	require.False(t, isErr)
	assert.Equal(t, "selection: no selection\n", out)
}

func TestSelectionToolErrors(t *testing.T) {
	tools := newTools(t, toolTree())

	_, isErr := call(t, tools.handleSelectEraseblock, map[string]any{})
	assert.True(t, isErr, "id is required")

	_, isErr = call(t, tools.handleSelectEraseblock, map[string]any{"id": float64(-1)})
	assert.True(t, isErr)

	out, isErr := call(t, tools.handleSelectEraseblock, map[string]any{"id": float64(7)})
	assert.True(t, isErr)
	assert.Contains(t, out, "invalid selection")

	out, isErr = call(t, tools.handleSelectCluster, map[string]any{"id": float64(10)})
	assert.True(t, isErr)
	assert.Contains(t, out, "no eraseblock selected")
}

func TestReloadTool(t *testing.T) {
	tree := toolTree()
	tools := newTools(t, tree)

	out, isErr := call(t, tools.handleReload, nil)
	require.False(t, isErr)
	assert.Contains(t, out, "2 eraseblocks, 0 anomalies")

	tree.Remove(dump.EraseblockPath(1))
	out, isErr = call(t, tools.handleReload, nil)
	require.False(t, isErr)
	assert.Contains(t, out, "1 anomalies")
	assert.Contains(t, out, "missing")

	tree.Remove(dump.SuperPath())
	out, isErr = call(t, tools.handleReload, nil)
	assert.True(t, isErr)
	assert.Contains(t, out, "superblock")
}

func TestNewServer(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctrl, err := reload.New(toolTree().Reader(), navigator.New(logger), reload.Options{Log: logger})
	require.NoError(t, err)
	defer ctrl.Close()
	assert.NotNil(t, NewServer(ctrl, "test"))
}
