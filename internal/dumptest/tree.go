// Package dumptest builds ffsp debug dump trees in memory for tests.
package dumptest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing/fstest"

	"github.com/deploymenttheory/go-ffsp/internal/dump"
	"github.com/deploymenttheory/go-ffsp/internal/types"
)

// Tree is a mutable in-memory dump tree. Readers created from FS observe
// later mutations, the same way a live debug directory would.
type Tree struct {
	fs fstest.MapFS
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{fs: fstest.MapFS{}}
}

// FS returns the backing file system.
func (t *Tree) FS() fstest.MapFS {
	return t.fs
}

// Reader returns a dump reader over the tree.
func (t *Tree) Reader() *dump.Reader {
	return dump.NewFSReader(t.fs)
}

// Raw stores data verbatim at path.
func (t *Tree) Raw(path, data string) *Tree {
	t.fs[path] = &fstest.MapFile{Data: []byte(data), Mode: 0o444}
	return t
}

// Remove deletes path from the tree.
func (t *Tree) Remove(path string) *Tree {
	delete(t.fs, path)
	return t
}

func (t *Tree) put(path string, doc string) *Tree {
	return t.Raw(path, doc)
}

// Super writes a superblock listing ids.
func (t *Tree) Super(ids ...uint64) *Tree {
	list, _ := json.Marshal(nonNil(ids))
	return t.put(dump.SuperPath(), fmt.Sprintf(
		`{"fd":3,"fsid":%d,"flags":0,"neraseblocks":%d,"nino":128,"blocksize":4096,`+
			`"clustersize":4096,"erasesize":65536,"ninoopen":100,"neraseopen":5,"nerasereserve":3,`+
			`"nerasewrites":5,"eraseblocks":%s}`, types.FileSystemID, len(ids), list))
}

// Metrics writes a metrics document with the given counters in driver order.
func (t *Tree) Metrics(counters ...uint64) *Tree {
	c := make([]uint64, 7)
	copy(c, counters)
	return t.put(dump.MetricsPath(), fmt.Sprintf(
		`{"read_raw":%d,"write_raw":%d,"fuse_read":%d,"fuse_write":%d,"gc_read":%d,"gc_write":%d,"errors":%d}`,
		c[0], c[1], c[2], c[3], c[4], c[5], c[6]))
}

// Eraseblock writes an eraseblock summary whose cvalid equals the number of
// listed clusters.
func (t *Tree) Eraseblock(id uint64, typ uint8, clusters ...uint64) *Tree {
	return t.EraseblockValid(id, typ, uint64(len(clusters)), clusters...)
}

// EraseblockValid writes an eraseblock summary with an explicit cvalid.
func (t *Tree) EraseblockValid(id uint64, typ uint8, cvalid uint64, clusters ...uint64) *Tree {
	list, _ := json.Marshal(nonNil(clusters))
	return t.put(dump.EraseblockPath(id), fmt.Sprintf(
		`{"id":%d,"type":%d,"lastwrite":0,"cvalid":%d,"writeops":1,"clusters":%s}`,
		id, typ, cvalid, list))
}

// Cluster writes a cluster document. With no inodes the "inodes" key is
// omitted entirely.
func (t *Tree) Cluster(id, offset uint64, inodes ...uint64) *Tree {
	if len(inodes) == 0 {
		return t.put(dump.ClusterPath(id), fmt.Sprintf(`{"id":%d,"offset":%d}`, id, offset))
	}
	list, _ := json.Marshal(inodes)
	return t.put(dump.ClusterPath(id), fmt.Sprintf(`{"id":%d,"offset":%d,"inodes":%s}`, id, offset, list))
}

// Inode writes an inode document.
func (t *Tree) Inode(no, size, mode uint64) *Tree {
	return t.put(dump.InodePath(no), fmt.Sprintf(
		`{"no":%d,"size":%d,"flags":1,"nlink":1,"mode":%d,"uid":1000,"gid":1000,"rdev":0,`+
			`"atime":{"sec":1700000000,"nsec":0},"ctime":{"sec":1700000001,"nsec":5},"mtime":{"sec":1700000002,"nsec":0}}`,
		no, size, mode))
}

// WriteDir materialises the tree below dir.
func (t *Tree) WriteDir(dir string) error {
	for name, f := range t.fs {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, f.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func nonNil(ids []uint64) []uint64 {
	if ids == nil {
		return []uint64{}
	}
	return ids
}
