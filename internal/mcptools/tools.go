// Package mcptools exposes the reload controller and the navigator as MCP
// tools. Every tool answers with a plain text table.
package mcptools

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/deploymenttheory/go-ffsp/internal/display"
	"github.com/deploymenttheory/go-ffsp/internal/model"
	"github.com/deploymenttheory/go-ffsp/internal/navigator"
	"github.com/deploymenttheory/go-ffsp/internal/reload"
)

// Tools serves one reload controller.
type Tools struct {
	ctrl *reload.Controller
	nav  *navigator.Navigator
}

// New returns the tool set for ctrl.
func New(ctrl *reload.Controller) *Tools {
	return &Tools{ctrl: ctrl, nav: ctrl.Navigator()}
}

// NewServer returns an MCP server with every tool registered.
func NewServer(ctrl *reload.Controller, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"ffsp-inspect",
		version,
		server.WithToolCapabilities(false),
	)
	New(ctrl).Register(s)
	return s
}

// Register adds the tools to s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("reload",
		mcp.WithDescription("Reread the debug dump tree and re-resolve the selection"),
	), t.handleReload)

	s.AddTool(mcp.NewTool("superblock",
		mcp.WithDescription("Show the superblock of the current snapshot"),
	), t.handleSuperblock)

	s.AddTool(mcp.NewTool("metrics",
		mcp.WithDescription("Show the driver I/O counters"),
	), t.handleMetrics)

	s.AddTool(mcp.NewTool("eraseblocks",
		mcp.WithDescription("List every eraseblock with its type and cluster counts"),
	), t.handleEraseblocks)

	s.AddTool(mcp.NewTool("select_eraseblock",
		mcp.WithDescription("Select an eraseblock and list its clusters"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Eraseblock id as listed by the superblock"),
		),
	), t.handleSelectEraseblock)

	s.AddTool(mcp.NewTool("select_cluster",
		mcp.WithDescription("Select a cluster of the selected eraseblock and list its inodes"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Cluster id listed by the selected eraseblock"),
		),
	), t.handleSelectCluster)

	s.AddTool(mcp.NewTool("clear_selection",
		mcp.WithDescription("Drop the selection"),
	), t.handleClearSelection)

	s.AddTool(mcp.NewTool("selection",
		mcp.WithDescription("Show the current selection and its loaded branch"),
	), t.handleSelection)
}

// snapshot returns the current snapshot, loading the first one on demand.
func (t *Tools) snapshot(ctx context.Context) (*model.Snapshot, error) {
	if snap := t.ctrl.Snapshot(); snap != nil {
		return snap, nil
	}
	return t.ctrl.Reload(ctx)
}

func (t *Tools) handleReload(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := t.ctrl.Reload(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "generation %s: %d eraseblocks, %d anomalies\n",
		snap.Generation, len(snap.Eraseblocks()), len(snap.Anomalies()))
	fmt.Fprintf(&buf, "selection: %s\n", t.nav.State())
	if anomalies := snap.Anomalies(); len(anomalies) > 0 {
		buf.WriteString("\n")
		display.WriteTable(&buf, display.AnomalyColumns, anomalies)
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (t *Tools) handleSuperblock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := t.snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var buf bytes.Buffer
	display.WriteRows(&buf, display.Rows(display.SuperblockFields, snap.Superblock()))
	return mcp.NewToolResultText(buf.String()), nil
}

func (t *Tools) handleMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := t.snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, ok := snap.Metrics()
	if !ok {
		return mcp.NewToolResultError("metrics are unavailable in this snapshot"), nil
	}
	var buf bytes.Buffer
	display.WriteRows(&buf, display.Rows(display.MetricsFields, m))
	return mcp.NewToolResultText(buf.String()), nil
}

func (t *Tools) handleEraseblocks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := t.snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var buf bytes.Buffer
	display.WriteTable(&buf, display.EraseblockColumns, snap.Eraseblocks())
	return mcp.NewToolResultText(buf.String()), nil
}

func (t *Tools) handleSelectEraseblock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := t.snapshot(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := display.Apply(ctx, t.nav, display.EraseblockPicked{ID: id}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(t.describeSelection()), nil
}

func (t *Tools) handleSelectCluster(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := display.Apply(ctx, t.nav, display.ClusterPicked{ID: id}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(t.describeSelection()), nil
}

func (t *Tools) handleClearSelection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := display.Apply(ctx, t.nav, display.SelectionCleared{}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(t.describeSelection()), nil
}

func (t *Tools) handleSelection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(t.describeSelection()), nil
}

func requireID(request mcp.CallToolRequest) (uint64, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return 0, err
	}
	if id < 0 {
		return 0, fmt.Errorf("id must not be negative")
	}
	return uint64(id), nil
}

// describeSelection renders the selection and the branch loaded for it.
func (t *Tools) describeSelection() string {
	v := t.nav.Current()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "selection: %s\n", v.State)

	if v.Eraseblock != nil {
		buf.WriteString("\n")
		display.WriteRows(&buf, display.Rows(display.EraseblockFields, v.Eraseblock))
		if v.Clusters != nil {
			buf.WriteString("\n")
			display.WriteTable(&buf, display.ClusterColumns, v.Clusters)
		}
	}
	if v.State.Kind == navigator.ClusterSelected {
		buf.WriteString("\n")
		if v.Cluster == nil {
			fmt.Fprintf(&buf, "%s cluster %d unreadable: %v\n", display.AnomalyMark, v.State.Cluster, v.Err)
		} else {
			display.WriteRows(&buf, display.Rows(display.ClusterFields, v.Cluster))
			buf.WriteString("\n")
			display.WriteTable(&buf, display.InodeColumns, v.Inodes)
		}
	}
	return buf.String()
}
