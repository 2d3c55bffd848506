package inspect

import (
	"time"

	"github.com/deploymenttheory/go-ffsp/internal/model"
	"github.com/deploymenttheory/go-ffsp/internal/navigator"
	"github.com/deploymenttheory/go-ffsp/pkg/app"
)

// Request represents an inspection request
type Request struct {
	DebugDir string
	Target   app.Target
	Workers  int
}

// RawRequest asks for one dump document verbatim
type RawRequest struct {
	DebugDir string
	Document string
}

// Response represents one inspected snapshot and the branch selected in it
type Response struct {
	Generation  string           `json:"generation" yaml:"generation"`
	LoadedAt    time.Time        `json:"loaded_at" yaml:"loaded_at"`
	DebugDir    string           `json:"debug_dir,omitempty" yaml:"debug_dir,omitempty"`
	Superblock  SuperblockInfo   `json:"superblock" yaml:"superblock"`
	Metrics     *MetricsInfo     `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Eraseblocks []EraseblockInfo `json:"eraseblocks" yaml:"eraseblocks"`
	Selection   SelectionInfo    `json:"selection" yaml:"selection"`
	Clusters    []ClusterInfo    `json:"clusters,omitempty" yaml:"clusters,omitempty"`
	Inodes      []InodeInfo      `json:"inodes,omitempty" yaml:"inodes,omitempty"`
	Anomalies   []AnomalyInfo    `json:"anomalies,omitempty" yaml:"anomalies,omitempty"`
	LoadTime    time.Duration    `json:"load_time" yaml:"load_time"`

	view *navigator.View
}

// View returns the navigator view the response was built from, nil for
// responses decoded from an export.
func (r *Response) View() *navigator.View {
	return r.view
}

// SuperblockInfo mirrors the superblock document
type SuperblockInfo struct {
	FD                 uint64   `json:"fd" yaml:"fd"`
	FSID               string   `json:"fsid" yaml:"fsid"`
	Flags              uint64   `json:"flags" yaml:"flags"`
	NumEraseblocks     uint64   `json:"neraseblocks" yaml:"neraseblocks"`
	NumInodes          uint64   `json:"nino" yaml:"nino"`
	BlockSize          uint64   `json:"blocksize" yaml:"blocksize"`
	ClusterSize        uint64   `json:"clustersize" yaml:"clustersize"`
	EraseSize          uint64   `json:"erasesize" yaml:"erasesize"`
	NumInodesOpen      uint64   `json:"ninoopen" yaml:"ninoopen"`
	NumEraseblocksOpen uint64   `json:"neraseopen" yaml:"neraseopen"`
	NumEraseReserve    uint64   `json:"nerasereserve" yaml:"nerasereserve"`
	NumEraseWrites     uint64   `json:"nerasewrites" yaml:"nerasewrites"`
	EraseblockIDs      []uint64 `json:"eraseblocks" yaml:"eraseblocks"`
}

// MetricsInfo mirrors the metrics document
type MetricsInfo struct {
	ReadRaw   uint64 `json:"read_raw" yaml:"read_raw"`
	WriteRaw  uint64 `json:"write_raw" yaml:"write_raw"`
	FuseRead  uint64 `json:"fuse_read" yaml:"fuse_read"`
	FuseWrite uint64 `json:"fuse_write" yaml:"fuse_write"`
	GCRead    uint64 `json:"gc_read" yaml:"gc_read"`
	GCWrite   uint64 `json:"gc_write" yaml:"gc_write"`
	Errors    uint64 `json:"errors" yaml:"errors"`
}

// EraseblockInfo is one eraseblock summary. Role is empty and Anomaly set
// when the summary could not be read.
type EraseblockInfo struct {
	ID            uint64   `json:"id" yaml:"id"`
	Type          uint8    `json:"type" yaml:"type"`
	Role          string   `json:"role,omitempty" yaml:"role,omitempty"`
	LastWrite     uint64   `json:"lastwrite" yaml:"lastwrite"`
	ValidClusters uint64   `json:"cvalid" yaml:"cvalid"`
	WriteOps      uint64   `json:"writeops" yaml:"writeops"`
	Clusters      []uint64 `json:"clusters" yaml:"clusters"`
	Anomaly       string   `json:"anomaly,omitempty" yaml:"anomaly,omitempty"`
}

// SelectionInfo describes the selected branch
type SelectionInfo struct {
	Kind       string `json:"kind" yaml:"kind"`
	Eraseblock uint64 `json:"eraseblock,omitempty" yaml:"eraseblock,omitempty"`
	Cluster    uint64 `json:"cluster,omitempty" yaml:"cluster,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ClusterInfo is one cluster of the selected eraseblock
type ClusterInfo struct {
	ID      uint64   `json:"id" yaml:"id"`
	Offset  uint64   `json:"offset" yaml:"offset"`
	Inodes  []uint64 `json:"inodes" yaml:"inodes"`
	Anomaly string   `json:"anomaly,omitempty" yaml:"anomaly,omitempty"`
}

// InodeInfo is one inode of the selected cluster
type InodeInfo struct {
	No      uint64    `json:"no" yaml:"no"`
	Size    uint64    `json:"size" yaml:"size"`
	Layout  string    `json:"layout" yaml:"layout"`
	NLink   uint64    `json:"nlink" yaml:"nlink"`
	Mode    string    `json:"mode" yaml:"mode"`
	UID     uint64    `json:"uid" yaml:"uid"`
	GID     uint64    `json:"gid" yaml:"gid"`
	Rdev    uint64    `json:"rdev" yaml:"rdev"`
	Atime   time.Time `json:"atime" yaml:"atime"`
	Ctime   time.Time `json:"ctime" yaml:"ctime"`
	Mtime   time.Time `json:"mtime" yaml:"mtime"`
	Anomaly string    `json:"anomaly,omitempty" yaml:"anomaly,omitempty"`
}

// AnomalyInfo is one non-fatal problem found while loading
type AnomalyInfo struct {
	Level  string `json:"level" yaml:"level"`
	ID     uint64 `json:"id" yaml:"id"`
	Kind   string `json:"kind" yaml:"kind"`
	Detail string `json:"detail" yaml:"detail"`
}

// FromView converts a navigator view into a response
func FromView(v *navigator.View) *Response {
	resp := &Response{view: v}
	snap := v.Snapshot
	if snap == nil {
		resp.Selection = SelectionInfo{Kind: v.State.Kind.String()}
		return resp
	}

	resp.Generation = snap.Generation.String()
	resp.LoadedAt = snap.LoadedAt
	resp.Superblock = superblockInfo(snap.Superblock())
	if m, ok := snap.Metrics(); ok {
		resp.Metrics = &MetricsInfo{
			ReadRaw:   m.ReadRaw,
			WriteRaw:  m.WriteRaw,
			FuseRead:  m.FuseRead,
			FuseWrite: m.FuseWrite,
			GCRead:    m.GCRead,
			GCWrite:   m.GCWrite,
			Errors:    m.Errors,
		}
	}

	resp.Eraseblocks = make([]EraseblockInfo, 0, len(snap.Eraseblocks()))
	for _, e := range snap.Eraseblocks() {
		resp.Eraseblocks = append(resp.Eraseblocks, eraseblockInfo(e))
	}

	resp.Selection = SelectionInfo{Kind: v.State.Kind.String()}
	if v.State.Kind != navigator.NoSelection {
		resp.Selection.Eraseblock = v.State.Eraseblock
	}
	if v.State.Kind == navigator.ClusterSelected {
		resp.Selection.Cluster = v.State.Cluster
	}
	if v.Err != nil {
		resp.Selection.Error = v.Err.Error()
	}

	for _, c := range v.Clusters {
		info := ClusterInfo{ID: c.ID, Inodes: []uint64{}}
		if c.Cluster != nil {
			info.Offset = c.Cluster.Offset
			info.Inodes = c.Cluster.InodeIDs
		}
		if c.Anomaly != nil {
			info.Anomaly = c.Anomaly.String()
		}
		resp.Clusters = append(resp.Clusters, info)
	}
	for _, i := range v.Inodes {
		resp.Inodes = append(resp.Inodes, inodeInfo(i))
	}

	for _, a := range append(snap.Anomalies(), v.Anomalies()...) {
		resp.Anomalies = append(resp.Anomalies, AnomalyInfo{
			Level:  string(a.Level),
			ID:     a.ID,
			Kind:   string(a.Kind),
			Detail: a.Detail,
		})
	}
	return resp
}

func superblockInfo(sb *model.Superblock) SuperblockInfo {
	return SuperblockInfo{
		FD:                 sb.FD,
		FSID:               sb.FSIDString(),
		Flags:              sb.Flags,
		NumEraseblocks:     sb.NumEraseblocks,
		NumInodes:          sb.NumInodes,
		BlockSize:          sb.BlockSize,
		ClusterSize:        sb.ClusterSize,
		EraseSize:          sb.EraseSize,
		NumInodesOpen:      sb.NumInodesOpen,
		NumEraseblocksOpen: sb.NumEraseblocksOpen,
		NumEraseReserve:    sb.NumEraseReserve,
		NumEraseWrites:     sb.NumEraseWrites,
		EraseblockIDs:      sb.EraseblockIDs,
	}
}

func eraseblockInfo(e model.EraseblockEntry) EraseblockInfo {
	info := EraseblockInfo{ID: e.ID, Clusters: []uint64{}}
	if eb := e.Eraseblock; eb != nil {
		info.Type = uint8(eb.Type)
		info.Role = string(eb.Style.Role)
		info.LastWrite = eb.LastWrite
		info.ValidClusters = eb.ValidClusters
		info.WriteOps = eb.WriteOps
		info.Clusters = eb.ClusterIDs
	}
	if e.Anomaly != nil {
		info.Anomaly = e.Anomaly.String()
	}
	return info
}

func inodeInfo(i navigator.InodeEntry) InodeInfo {
	info := InodeInfo{No: i.ID}
	if ino := i.Inode; ino != nil {
		info.Size = ino.Size
		info.Layout = ino.Layout.String()
		info.NLink = ino.NLink
		info.Mode = ino.ModeString()
		info.UID = ino.UID
		info.GID = ino.GID
		info.Rdev = ino.Rdev
		info.Atime = ino.Atime
		info.Ctime = ino.Ctime
		info.Mtime = ino.Mtime
	}
	if i.Anomaly != nil {
		info.Anomaly = i.Anomaly.String()
	}
	return info
}
