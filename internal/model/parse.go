package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/deploymenttheory/go-ffsp/internal/classify"
	"github.com/deploymenttheory/go-ffsp/internal/dump"
	"github.com/deploymenttheory/go-ffsp/internal/types"
)

// Source is anything that can load a dump document by path.
type Source interface {
	Read(name string) (*dump.Record, error)
}

// fields collects the first error while reading several fields in a row.
type fields struct {
	rec *dump.Record
	err error
}

func (f *fields) uint(key string) uint64 {
	if f.err != nil {
		return 0
	}
	v, err := f.rec.Uint(key)
	if err != nil {
		f.err = err
	}
	return v
}

func (f *fields) list(key string) ([]uint64, bool) {
	if f.err != nil {
		return nil, false
	}
	v, present, err := f.rec.UintList(key)
	if err != nil {
		f.err = err
	}
	return v, present
}

func (f *fields) timespec(key string) time.Time {
	if f.err != nil {
		return time.Time{}
	}
	raw, ok := f.rec.Get(key)
	if !ok || raw == nil {
		return time.Time{}
	}
	if num, isNum := raw.(json.Number); isNum {
		sec, err := strconv.ParseInt(num.String(), 10, 64)
		if err != nil {
			f.err = fmt.Errorf("%w: field %q: %v", dump.ErrMalformed, key, err)
			return time.Time{}
		}
		return time.Unix(sec, 0).UTC()
	}
	ts, _, err := f.rec.Child(key)
	if err != nil {
		f.err = err
		return time.Time{}
	}
	sec, err := ts.Uint("sec")
	if err != nil {
		f.err = err
		return time.Time{}
	}
	nsec, err := ts.Uint("nsec")
	if err != nil {
		f.err = err
		return time.Time{}
	}
	if sec > math.MaxInt64 || nsec >= uint64(time.Second) {
		f.err = fmt.Errorf("%w: field %q out of range", dump.ErrMalformed, key)
		return time.Time{}
	}
	return time.Unix(int64(sec), int64(nsec)).UTC()
}

// ParseSuperblock converts the "super" document. When the document carries no
// eraseblock list the ids are 0..neraseblocks-1, matching the driver's usage
// table order.
func ParseSuperblock(rec *dump.Record) (*Superblock, error) {
	f := &fields{rec: rec}
	sb := &Superblock{
		FD:                 f.uint("fd"),
		Flags:              f.uint("flags"),
		NumEraseblocks:     f.uint("neraseblocks"),
		NumInodes:          f.uint("nino"),
		BlockSize:          f.uint("blocksize"),
		ClusterSize:        f.uint("clustersize"),
		EraseSize:          f.uint("erasesize"),
		NumInodesOpen:      f.uint("ninoopen"),
		NumEraseblocksOpen: f.uint("neraseopen"),
		NumEraseReserve:    f.uint("nerasereserve"),
		NumEraseWrites:     f.uint("nerasewrites"),
		Raw:                rec,
	}
	fsid := f.uint("fsid")
	ids, present := f.list("eraseblocks")
	if f.err != nil {
		return nil, fmt.Errorf("failed to parse superblock: %w", f.err)
	}
	if fsid > math.MaxUint32 {
		return nil, fmt.Errorf("failed to parse superblock: %w: fsid 0x%x exceeds 32 bits", dump.ErrMalformed, fsid)
	}
	sb.FSID = uint32(fsid)

	if !present {
		ids = make([]uint64, sb.NumEraseblocks)
		for i := range ids {
			ids[i] = uint64(i)
		}
	}
	if uint64(len(ids)) != sb.NumEraseblocks {
		return nil, fmt.Errorf("failed to parse superblock: %w: neraseblocks is %d but %d ids are listed",
			dump.ErrMalformed, sb.NumEraseblocks, len(ids))
	}
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("failed to parse superblock: %w: eraseblock %d listed twice", dump.ErrMalformed, id)
		}
		seen[id] = struct{}{}
	}
	sb.EraseblockIDs = ids
	return sb, nil
}

// ParseMetrics converts the "metrics" document.
func ParseMetrics(rec *dump.Record) (*Metrics, error) {
	f := &fields{rec: rec}
	m := &Metrics{
		ReadRaw:   f.uint("read_raw"),
		WriteRaw:  f.uint("write_raw"),
		FuseRead:  f.uint("fuse_read"),
		FuseWrite: f.uint("fuse_write"),
		GCRead:    f.uint("gc_read"),
		GCWrite:   f.uint("gc_write"),
		Errors:    f.uint("errors"),
	}
	if f.err != nil {
		return nil, fmt.Errorf("failed to parse metrics: %w", f.err)
	}
	return m, nil
}

// checkID verifies that an "id" field, if present, names the expected item.
func checkID(f *fields, key string, want uint64) {
	if f.err != nil || !f.rec.Has(key) {
		return
	}
	if got := f.uint(key); f.err == nil && got != want {
		f.err = fmt.Errorf("%w: document claims %s %d", dump.ErrMalformed, key, got)
	}
}

// ParseEraseblock converts an "eraseblocks.d/<id>" document. Unknown type
// codes fail with classify.ErrUnknownEraseblockType.
func ParseEraseblock(rec *dump.Record, id uint64) (*Eraseblock, error) {
	f := &fields{rec: rec}
	checkID(f, "id", id)
	code := f.uint("type")
	eb := &Eraseblock{
		ID:            id,
		LastWrite:     f.uint("lastwrite"),
		ValidClusters: f.uint("cvalid"),
		WriteOps:      f.uint("writeops"),
		Raw:           rec,
	}
	eb.ClusterIDs, _ = f.list("clusters")
	if f.err != nil {
		return nil, fmt.Errorf("failed to parse eraseblock %d: %w", id, f.err)
	}
	if !rec.Has("type") {
		return nil, fmt.Errorf("failed to parse eraseblock %d: %w: missing type", id, dump.ErrMalformed)
	}

	style, err := classify.Classify(code)
	if err != nil {
		return nil, fmt.Errorf("failed to classify eraseblock %d: %w", id, err)
	}
	eb.Type = types.EraseblockType(code)
	eb.Style = style
	if eb.ClusterIDs == nil {
		eb.ClusterIDs = []uint64{}
	}
	return eb, nil
}

// ParseCluster converts a "clusters.d/<id>" document. A missing "inodes" key
// and an empty list are both the empty case.
func ParseCluster(rec *dump.Record, id uint64) (*Cluster, error) {
	f := &fields{rec: rec}
	checkID(f, "id", id)
	cl := &Cluster{
		ID:     id,
		Offset: f.uint("offset"),
		Raw:    rec,
	}
	cl.InodeIDs, _ = f.list("inodes")
	if f.err != nil {
		return nil, fmt.Errorf("failed to parse cluster %d: %w", id, f.err)
	}
	if cl.InodeIDs == nil {
		cl.InodeIDs = []uint64{}
	}
	return cl, nil
}

// ParseInode converts an "inodes.d/<id>" document.
func ParseInode(rec *dump.Record, id uint64) (*Inode, error) {
	f := &fields{rec: rec}
	checkID(f, "no", id)
	ino := &Inode{
		No:     id,
		Size:   f.uint("size"),
		Layout: types.DataLayout(f.uint("flags")),
		NLink:  f.uint("nlink"),
		Mode:   f.uint("mode"),
		UID:    f.uint("uid"),
		GID:    f.uint("gid"),
		Rdev:   f.uint("rdev"),
		Atime:  f.timespec("atime"),
		Ctime:  f.timespec("ctime"),
		Mtime:  f.timespec("mtime"),
		Raw:    rec,
	}
	if f.err != nil {
		return nil, fmt.Errorf("failed to parse inode %d: %w", id, f.err)
	}
	return ino, nil
}

// LoadSuperblock reads and parses the superblock document.
func LoadSuperblock(src Source) (*Superblock, error) {
	rec, err := src.Read(dump.SuperPath())
	if err != nil {
		return nil, err
	}
	return ParseSuperblock(rec)
}

// LoadMetrics reads and parses the metrics document.
func LoadMetrics(src Source) (*Metrics, error) {
	rec, err := src.Read(dump.MetricsPath())
	if err != nil {
		return nil, err
	}
	return ParseMetrics(rec)
}

// LoadEraseblock reads and parses one eraseblock summary.
func LoadEraseblock(src Source, id uint64) (*Eraseblock, error) {
	rec, err := src.Read(dump.EraseblockPath(id))
	if err != nil {
		return nil, err
	}
	return ParseEraseblock(rec, id)
}

// LoadCluster reads and parses one cluster document.
func LoadCluster(src Source, id uint64) (*Cluster, error) {
	rec, err := src.Read(dump.ClusterPath(id))
	if err != nil {
		return nil, err
	}
	return ParseCluster(rec, id)
}

// LoadInode reads and parses one inode document.
func LoadInode(src Source, id uint64) (*Inode, error) {
	rec, err := src.Read(dump.InodePath(id))
	if err != nil {
		return nil, err
	}
	return ParseInode(rec, id)
}

// IsFatal reports whether err must abort a whole reload rather than mark a
// single item unreadable.
func IsFatal(err error) bool {
	return errors.Is(err, dump.ErrAccessDenied)
}
