package types

// FFSP Constants
// Values mirror the definitions exported by the ffsp driver headers.

// FileSystemID is the fsid written by mkfs.ffsp ("FFSP" in ASCII, big-endian).
const FileSystemID uint32 = 0x46465350

// EraseblockType is the role tag of an eraseblock.
// The driver stores it as a single byte in the eraseblock usage table.
type EraseblockType uint8

const (
	// EbTypeSuper marks the eraseblock holding the superblock, the eraseblock
	// usage table and the inode map.
	EbTypeSuper EraseblockType = 0x00

	// EbTypeDentryInode marks an eraseblock holding directory inodes with
	// embedded dentries.
	EbTypeDentryInode EraseblockType = 0x01

	// EbTypeDentryClin marks an eraseblock holding cluster indirect data of
	// directories.
	EbTypeDentryClin EraseblockType = 0x02

	// EbTypeFileInode marks an eraseblock holding file inodes with embedded data.
	EbTypeFileInode EraseblockType = 0x04

	// EbTypeFileClin marks an eraseblock holding cluster indirect data of files.
	EbTypeFileClin EraseblockType = 0x08

	// EbTypeEbin marks an eraseblock used as erase block indirect storage.
	EbTypeEbin EraseblockType = 0x10

	// EbTypeEmpty marks a free eraseblock.
	EbTypeEmpty EraseblockType = 0x20
)

// KnownEraseblockTypes lists every type code the inspector understands,
// in the order the driver defines them.
var KnownEraseblockTypes = []EraseblockType{
	EbTypeSuper,
	EbTypeDentryInode,
	EbTypeDentryClin,
	EbTypeFileInode,
	EbTypeFileClin,
	EbTypeEbin,
	EbTypeEmpty,
}

// DataLayout describes where an inode keeps its data.
type DataLayout uint32

const (
	// DataEmbedded means the data follows the inode inside the same cluster.
	DataEmbedded DataLayout = 0x01

	// DataClusterIndirect means the inode holds a list of cluster ids.
	DataClusterIndirect DataLayout = 0x02

	// DataEraseblockIndirect means the inode holds a list of eraseblock ids.
	DataEraseblockIndirect DataLayout = 0x04
)

// String returns the short layout name used in listings.
func (l DataLayout) String() string {
	switch l & (DataEmbedded | DataClusterIndirect | DataEraseblockIndirect) {
	case DataEmbedded:
		return "embedded"
	case DataClusterIndirect:
		return "clin"
	case DataEraseblockIndirect:
		return "ebin"
	default:
		return "unknown"
	}
}

// Debug dump tree layout, relative to the debug directory.
const (
	SuperDocument      = "super"
	MetricsDocument    = "metrics"
	EraseblocksDirName = "eraseblocks.d"
	ClustersDirName    = "clusters.d"
	InodesDirName      = "inodes.d"

	// DebugDirName is the name of the dump tree below the mountpoint.
	DebugDirName = ".FFSP"
)
