package dump

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"

	"github.com/deploymenttheory/go-ffsp/internal/types"
)

var (
	// ErrNotFound is returned when a dump document does not exist. This is the
	// normal case for an unmounted file system or an id reclaimed since it
	// was enumerated.
	ErrNotFound = errors.New("dump document not found")

	// ErrMalformed is returned when a document is not a JSON object of the
	// expected shape.
	ErrMalformed = errors.New("malformed dump document")

	// ErrAccessDenied is returned when the document cannot be read due to
	// permissions.
	ErrAccessDenied = errors.New("access to dump document denied")
)

// DocumentError ties a read failure to the document it happened on.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Reader loads documents from one debug directory. It never writes.
type Reader struct {
	fsys fs.FS
	root string
}

// NewReader opens the dump tree rooted at dir.
func NewReader(dir string) *Reader {
	return &Reader{fsys: os.DirFS(dir), root: dir}
}

// NewFSReader reads the dump tree from an arbitrary file system.
func NewFSReader(fsys fs.FS) *Reader {
	return &Reader{fsys: fsys}
}

// Root returns the directory the reader was opened on, if any.
func (r *Reader) Root() string {
	return r.root
}

// Read loads and parses the document at name, e.g. "super" or
// "clusters.d/10".
func (r *Reader) Read(name string) (*Record, error) {
	data, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return nil, &DocumentError{Path: name, Err: classifyIOError(err)}
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return nil, &DocumentError{Path: name, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return rec, nil
}

// Exists reports whether the dump tree currently has a superblock document.
func (r *Reader) Exists() bool {
	_, err := fs.Stat(r.fsys, types.SuperDocument)
	return err == nil
}

func classifyIOError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	case errors.Is(err, fs.ErrInvalid):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return err
	}
}

// SuperPath returns the superblock document path.
func SuperPath() string { return types.SuperDocument }

// MetricsPath returns the metrics document path.
func MetricsPath() string { return types.MetricsDocument }

// EraseblockPath returns the document path of eraseblock id.
func EraseblockPath(id uint64) string {
	return path.Join(types.EraseblocksDirName, strconv.FormatUint(id, 10))
}

// ClusterPath returns the document path of cluster id.
func ClusterPath(id uint64) string {
	return path.Join(types.ClustersDirName, strconv.FormatUint(id, 10))
}

// InodePath returns the document path of inode number id.
func InodePath(id uint64) string {
	return path.Join(types.InodesDirName, strconv.FormatUint(id, 10))
}
