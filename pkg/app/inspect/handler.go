package inspect

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/deploymenttheory/go-ffsp/internal/dump"
	"github.com/deploymenttheory/go-ffsp/internal/navigator"
	"github.com/deploymenttheory/go-ffsp/internal/reload"
	"github.com/deploymenttheory/go-ffsp/internal/types"
	"github.com/deploymenttheory/go-ffsp/pkg/app"
)

// Handle loads one snapshot of the debug tree and walks down to the
// requested target
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	// 1. Validate request
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reader := dump.NewReader(req.DebugDir)
	if !reader.Exists() {
		return nil, app.NewError(app.ErrCodeNotMounted,
			fmt.Sprintf("debug directory %s not found, is the file system mounted?", req.DebugDir), nil)
	}

	ctx.Log(fmt.Sprintf("Inspecting debug tree: %s", req.DebugDir))
	ctx.Progress("Reading superblock...", 10)

	// 2. Load the snapshot
	if ctx.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = ctx.WithTimeout(ctx.DefaultTimeout)
		defer cancel()
	}

	nav := navigator.New(ctx.Logger)
	ctrl, err := reload.New(reader, nav, reload.Options{Workers: req.Workers, Log: ctx.Logger})
	if err != nil {
		return nil, err
	}
	defer ctrl.Close()

	if _, err := ctrl.Reload(ctx); err != nil {
		return nil, app.FromCore("failed to load snapshot", err)
	}
	ctx.Progress("Resolving selection...", 60)

	// 3. Walk down to the target
	if req.Target.HasEraseblock {
		if err := nav.SelectEraseblock(ctx, req.Target.Eraseblock); err != nil {
			return nil, app.FromCore("cannot select "+req.Target.String(), err)
		}
	}
	if req.Target.HasCluster {
		if err := nav.SelectCluster(ctx, req.Target.Cluster); err != nil {
			return nil, app.FromCore("cannot select "+req.Target.String(), err)
		}
	}

	response := FromView(nav.Current())
	response.DebugDir = req.DebugDir
	response.LoadTime = time.Since(startTime)

	ctx.Progress("Complete", 100)
	ctx.Log(fmt.Sprintf("Inspection completed: %d eraseblocks, %d anomalies in %v",
		len(response.Eraseblocks), len(response.Anomalies), response.LoadTime))

	return response, nil
}

// HandleRaw returns one dump document pretty printed in its original key
// order
func HandleRaw(ctx *app.Context, req *RawRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	doc, err := ResolveDocument(req.Document)
	if err != nil {
		return "", app.NewError(app.ErrCodeInvalidInput, "invalid document", err)
	}

	ctx.Log(fmt.Sprintf("Reading %s from %s", doc, req.DebugDir))
	rec, err := dump.NewReader(req.DebugDir).Read(doc)
	if err != nil {
		return "", app.FromCore("cannot read "+doc, err)
	}
	out, err := rec.Pretty()
	if err != nil {
		return "", fmt.Errorf("failed to format %s: %w", doc, err)
	}
	return out, nil
}

// ResolveDocument accepts a path below the debug directory ("super",
// "eraseblocks.d/3") or a level and id ("eraseblock 3", "inode:7").
func ResolveDocument(name string) (string, error) {
	name = strings.TrimSpace(name)
	fields := strings.FieldsFunc(name, func(r rune) bool { return r == ' ' || r == ':' })
	if len(fields) == 2 {
		id, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid id %q", fields[1])
		}
		switch fields[0] {
		case "eraseblock", "eb":
			return dump.EraseblockPath(id), nil
		case "cluster":
			return dump.ClusterPath(id), nil
		case "inode":
			return dump.InodePath(id), nil
		default:
			return "", fmt.Errorf("unknown level %q", fields[0])
		}
	}

	clean := path.Clean(name)
	if !fs.ValidPath(clean) || clean == "." {
		return "", fmt.Errorf("invalid document path %q", name)
	}
	switch dir := path.Dir(clean); dir {
	case ".":
		if clean != types.SuperDocument && clean != types.MetricsDocument {
			return "", fmt.Errorf("unknown document %q", name)
		}
	case types.EraseblocksDirName, types.ClustersDirName, types.InodesDirName:
		if _, err := strconv.ParseUint(path.Base(clean), 10, 64); err != nil {
			return "", fmt.Errorf("invalid id in %q", name)
		}
	default:
		return "", fmt.Errorf("unknown document directory %q", dir)
	}
	return clean, nil
}
