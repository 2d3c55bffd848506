// Package model holds the typed, immutable records parsed from the ffsp debug
// dump tree and the snapshot that ties them together.
//
// A record is never modified after it is parsed. Every reload produces a new
// Snapshot with new records, so a reference held across a reload keeps
// describing the tree as it was when it was read.
package model

import (
	"fmt"
	"time"
	"unicode"

	"github.com/deploymenttheory/go-ffsp/internal/classify"
	"github.com/deploymenttheory/go-ffsp/internal/dump"
	"github.com/deploymenttheory/go-ffsp/internal/types"
)

// Superblock is the root of the dump tree.
type Superblock struct {
	FD                 uint64
	FSID               uint32
	Flags              uint64
	NumEraseblocks     uint64
	NumInodes          uint64
	BlockSize          uint64
	ClusterSize        uint64
	EraseSize          uint64
	NumInodesOpen      uint64
	NumEraseblocksOpen uint64
	NumEraseReserve    uint64
	NumEraseWrites     uint64

	// EraseblockIDs is the ordered list of eraseblocks the driver enumerates.
	EraseblockIDs []uint64

	Raw *dump.Record
}

// FSIDString renders the fsid as its four ASCII characters when printable.
func (s *Superblock) FSIDString() string {
	b := []byte{byte(s.FSID >> 24), byte(s.FSID >> 16), byte(s.FSID >> 8), byte(s.FSID)}
	for _, c := range b {
		if c > unicode.MaxASCII || !unicode.IsPrint(rune(c)) {
			return fmt.Sprintf("0x%08x", s.FSID)
		}
	}
	return string(b)
}

// ClustersPerEraseblock returns how many clusters fit into one eraseblock.
func (s *Superblock) ClustersPerEraseblock() uint64 {
	if s.ClusterSize == 0 {
		return 0
	}
	return s.EraseSize / s.ClusterSize
}

// Metrics are the driver's I/O counters.
type Metrics struct {
	ReadRaw   uint64
	WriteRaw  uint64
	FuseRead  uint64
	FuseWrite uint64
	GCRead    uint64
	GCWrite   uint64
	Errors    uint64
}

// Eraseblock is the summary of one eraseblock.
type Eraseblock struct {
	ID            uint64
	Type          types.EraseblockType
	Style         classify.Style
	LastWrite     uint64
	ValidClusters uint64
	WriteOps      uint64
	ClusterIDs    []uint64

	Raw *dump.Record
}

// HasCluster reports whether id is listed in the eraseblock.
func (e *Eraseblock) HasCluster(id uint64) bool {
	for _, c := range e.ClusterIDs {
		if c == id {
			return true
		}
	}
	return false
}

// ValidCountMismatch reports whether cvalid claims more clusters than the
// eraseblock lists.
func (e *Eraseblock) ValidCountMismatch() bool {
	return e.ValidClusters > uint64(len(e.ClusterIDs))
}

// Cluster is one cluster document.
type Cluster struct {
	ID     uint64
	Offset uint64

	// InodeIDs is empty when the document has no inodes, whether the key is
	// absent or an empty list.
	InodeIDs []uint64

	Raw *dump.Record
}

// Inode is one inode document.
type Inode struct {
	No     uint64
	Size   uint64
	Layout types.DataLayout
	NLink  uint64
	Mode   uint64
	UID    uint64
	GID    uint64
	Rdev   uint64
	Atime  time.Time
	Ctime  time.Time
	Mtime  time.Time

	Raw *dump.Record
}

// ModeString renders the POSIX mode bits in ls(1) style.
func (i *Inode) ModeString() string {
	const rwx = "rwxrwxrwx"
	out := []byte("----------")
	switch i.Mode & 0o170000 {
	case 0o040000:
		out[0] = 'd'
	case 0o120000:
		out[0] = 'l'
	case 0o020000:
		out[0] = 'c'
	case 0o060000:
		out[0] = 'b'
	case 0o010000:
		out[0] = 'p'
	case 0o140000:
		out[0] = 's'
	}
	for bit := 0; bit < 9; bit++ {
		if i.Mode&(1<<uint(8-bit)) != 0 {
			out[bit+1] = rwx[bit]
		}
	}
	return string(out)
}
