package inspect

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-ffsp/internal/dumptest"
	"github.com/deploymenttheory/go-ffsp/pkg/app"
)

func testContext() *app.Context {
	ctx := app.NewContext()
	ctx.SetLogOutput(io.Discard)
	return ctx
}

func debugDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".FFSP")
	tree := dumptest.New().
		Super(0, 1, 2).
		Metrics(1, 2, 3, 4, 5, 6, 0).
		Eraseblock(0, 0x00, 10).
		Eraseblock(1, 0x08, 20, 21).
		Cluster(10, 0).
		Cluster(20, 65536, 5).
		Cluster(21, 69632).
		Inode(5, 42, 0o100644)
	require.NoError(t, tree.WriteDir(dir))
	return dir
}

func TestHandle(t *testing.T) {
	dir := debugDir(t)

	tests := []struct {
		name     string
		request  *Request
		timeout  time.Duration
		wantCode string
		validate func(*testing.T, *Response)
	}{
		{
			name:    "top level",
			request: &Request{DebugDir: dir},
			validate: func(t *testing.T, resp *Response) {
				assert.NotEmpty(t, resp.Generation)
				assert.Equal(t, "FFSP", resp.Superblock.FSID)
				require.NotNil(t, resp.Metrics)
				assert.Equal(t, uint64(6), resp.Metrics.GCWrite)
				require.Len(t, resp.Eraseblocks, 3)
				assert.Equal(t, "file_clin", resp.Eraseblocks[1].Role)
				assert.Contains(t, resp.Eraseblocks[2].Anomaly, "missing")
				assert.Equal(t, "none", resp.Selection.Kind)
				assert.Empty(t, resp.Clusters)
				require.Len(t, resp.Anomalies, 1)
			},
		},
		{
			name: "eraseblock",
			request: &Request{DebugDir: dir, Target: app.Target{
				Eraseblock: 1, HasEraseblock: true,
			}},
			validate: func(t *testing.T, resp *Response) {
				assert.Equal(t, "eraseblock", resp.Selection.Kind)
				require.Len(t, resp.Clusters, 2)
				assert.Equal(t, []uint64{5}, resp.Clusters[0].Inodes)
				assert.Equal(t, []uint64{}, resp.Clusters[1].Inodes)
			},
		},
		{
			name: "cluster",
			request: &Request{DebugDir: dir, Target: app.Target{
				Eraseblock: 1, HasEraseblock: true, Cluster: 20, HasCluster: true,
			}},
			validate: func(t *testing.T, resp *Response) {
				assert.Equal(t, uint64(20), resp.Selection.Cluster)
				require.Len(t, resp.Inodes, 1)
				assert.Equal(t, "-rw-r--r--", resp.Inodes[0].Mode)
				assert.Equal(t, uint64(42), resp.Inodes[0].Size)
			},
		},
		{
			name: "unreadable eraseblock",
			request: &Request{DebugDir: dir, Target: app.Target{
				Eraseblock: 2, HasEraseblock: true,
			}},
			wantCode: app.ErrCodeInvalidSelection,
		},
		{
			name: "cluster of another eraseblock",
			request: &Request{DebugDir: dir, Target: app.Target{
				Eraseblock: 0, HasEraseblock: true, Cluster: 20, HasCluster: true,
			}},
			wantCode: app.ErrCodeInvalidSelection,
		},
		{
			name:     "not mounted",
			request:  &Request{DebugDir: filepath.Join(dir, "absent")},
			wantCode: app.ErrCodeNotMounted,
		},
		{
			name:     "missing debug dir",
			request:  &Request{},
			wantCode: app.ErrCodeInvalidInput,
		},
		{
			name:     "load exceeds timeout",
			request:  &Request{DebugDir: dir},
			timeout:  time.Nanosecond,
			wantCode: app.ErrCodeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext()
			if tt.timeout > 0 {
				ctx.DefaultTimeout = tt.timeout
			}
			resp, err := Handle(ctx, tt.request)
			if tt.wantCode != "" {
				var ce *app.CommonError
				require.True(t, errors.As(err, &ce), "got %v", err)
				assert.Equal(t, tt.wantCode, ce.Code)
				return
			}
			require.NoError(t, err)
			tt.validate(t, resp)
		})
	}
}

func TestHandleReportsProgress(t *testing.T) {
	ctx := testContext()
	var steps []int
	ctx.SetProgress(func(message string, percent int) {
		steps = append(steps, percent)
	})

	_, err := Handle(ctx, &Request{DebugDir: debugDir(t)})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 60, 100}, steps)
}

func TestHandleWithoutTimeout(t *testing.T) {
	ctx := testContext()
	ctx.DefaultTimeout = 0

	resp, err := Handle(ctx, &Request{DebugDir: debugDir(t)})
	require.NoError(t, err)
	assert.Len(t, resp.Eraseblocks, 3)
}

func TestFormatOutput(t *testing.T) {
	resp, err := Handle(testContext(), &Request{
		DebugDir: debugDir(t),
		Target:   app.Target{Eraseblock: 1, HasEraseblock: true, Cluster: 20, HasCluster: true},
	})
	require.NoError(t, err)

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, FormatOutput(&buf, resp, "table"))
		out := buf.String()
		for _, want := range []string{"SUPERBLOCK", "fsid", "FFSP", "ERASEBLOCKS", "file_clin", "!missing", "CLUSTER 20", "INODES", "ANOMALIES"} {
			assert.Contains(t, out, want)
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, FormatOutput(&buf, resp, "json"))
		var decoded Response
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, resp.Generation, decoded.Generation)
		assert.Len(t, decoded.Eraseblocks, 3)
		assert.Nil(t, decoded.View())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, FormatOutput(&buf, resp, "yaml"))
		var decoded map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, resp.Generation, decoded["generation"])
		assert.Contains(t, buf.String(), "clustersize: 4096")
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.Error(t, FormatOutput(io.Discard, resp, "xml"))
	})

	t.Run("table without view", func(t *testing.T) {
		assert.Error(t, FormatOutput(io.Discard, &Response{}, "table"))
	})
}

func TestFormatSummary(t *testing.T) {
	resp := &Response{
		Eraseblocks: make([]EraseblockInfo, 3),
		Anomalies:   make([]AnomalyInfo, 1),
		Selection:   SelectionInfo{Kind: "cluster"},
	}
	assert.Equal(t, "3 eraseblocks, 1 anomaly, selected cluster", FormatSummary(resp))
}

func TestHandleRaw(t *testing.T) {
	dir := debugDir(t)

	out, err := HandleRaw(testContext(), &RawRequest{DebugDir: dir, Document: "super"})
	require.NoError(t, err)
	assert.True(t, strings.Index(out, `"fd"`) < strings.Index(out, `"eraseblocks"`), "key order kept")

	out, err = HandleRaw(testContext(), &RawRequest{DebugDir: dir, Document: "cluster 20"})
	require.NoError(t, err)
	assert.Contains(t, out, `"offset": 65536`)

	_, err = HandleRaw(testContext(), &RawRequest{DebugDir: dir, Document: "inode 99"})
	var ce *app.CommonError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, app.ErrCodeNotMounted, ce.Code)

	_, err = HandleRaw(testContext(), &RawRequest{DebugDir: dir, Document: "../etc/passwd"})
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, app.ErrCodeInvalidInput, ce.Code)
}

func TestResolveDocument(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"super", "super", false},
		{"metrics", "metrics", false},
		{"eraseblocks.d/3", "eraseblocks.d/3", false},
		{"eraseblock 3", "eraseblocks.d/3", false},
		{"eb:3", "eraseblocks.d/3", false},
		{"cluster 12", "clusters.d/12", false},
		{"inode:7", "inodes.d/7", false},
		{"inodes.d/x", "", true},
		{"volume 1", "", true},
		{"eraseblock x", "", true},
		{"../super", "", true},
		{"other", "", true},
		{"tmp/1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ResolveDocument(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&Request{DebugDir: "/x", Workers: -1}).Validate())
	assert.Error(t, (&Request{DebugDir: "/x", Target: app.Target{HasCluster: true}}).Validate())
	assert.NoError(t, (&Request{DebugDir: "/x", Workers: 4}).Validate())
	assert.Error(t, (&RawRequest{DebugDir: "/x"}).Validate())
}
