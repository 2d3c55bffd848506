// Package runner wraps the external commands used around the inspector:
// creating the container file, mkfs.ffsp, mount.ffsp and fusermount.
// The inspector core never depends on it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/sirupsen/logrus"
)

var (
	// ErrPrecondition is returned when a command is refused before it runs.
	ErrPrecondition = errors.New("precondition not met")

	// ErrCommandFailed is returned when a command exits non-zero.
	ErrCommandFailed = errors.New("command failed")
)

// Result is the outcome of one command.
type Result struct {
	Argv     []string
	ExitCode int
	Output   string
}

// ExecFunc runs argv and reports its exit code and combined output. The error
// is reserved for commands that could not be started.
type ExecFunc func(ctx context.Context, argv []string) (Result, error)

// PartitionsFunc lists mounted file systems.
type PartitionsFunc func(ctx context.Context, all bool) ([]disk.PartitionStat, error)

// Runner runs external commands.
type Runner struct {
	exec       ExecFunc
	lookPath   func(string) (string, error)
	partitions PartitionsFunc
	log        logrus.FieldLogger
}

// Option customises a Runner.
type Option func(*Runner)

// WithExec replaces the command executor.
func WithExec(fn ExecFunc) Option {
	return func(r *Runner) { r.exec = fn }
}

// WithLookPath replaces the executable lookup.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(r *Runner) { r.lookPath = fn }
}

// WithPartitions replaces the mount table source.
func WithPartitions(fn PartitionsFunc) Option {
	return func(r *Runner) { r.partitions = fn }
}

// New returns a runner backed by os/exec and the system mount table.
func New(log logrus.FieldLogger, opts ...Option) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Runner{
		exec:       execCommand,
		lookPath:   exec.LookPath,
		partitions: disk.PartitionsWithContext,
		log:        log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func execCommand(ctx context.Context, argv []string) (Result, error) {
	res := Result{Argv: argv}
	if len(argv) == 0 {
		return res, fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	res.Output = string(out)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		return res, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
}

// Run executes argv. A non-zero exit is reported in the result, not as an
// error.
func (r *Runner) Run(ctx context.Context, argv []string) (Result, error) {
	r.log.WithField("argv", strings.Join(argv, " ")).Debug("running command")
	res, err := r.exec(ctx, argv)
	if err != nil {
		return res, err
	}
	r.log.WithFields(logrus.Fields{"command": argv[0], "exit": res.ExitCode}).Info("command finished")
	return res, nil
}

// runChecked runs argv and turns a non-zero exit into ErrCommandFailed.
func (r *Runner) runChecked(ctx context.Context, argv []string) (Result, error) {
	res, err := r.Run(ctx, argv)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		return res, fmt.Errorf("%w: %s returned %d: %s", ErrCommandFailed, argv[0], res.ExitCode, strings.TrimSpace(res.Output))
	}
	return res, nil
}

// Geometry are the mkfs.ffsp parameters.
type Geometry struct {
	ClusterSize        uint64
	EraseSize          uint64
	OpenInodes         int
	OpenEraseblocks    int
	ReserveEraseblocks int
	WriteEraseblocks   int
}

// Validate checks that the geometry is usable by mkfs.ffsp.
func (g Geometry) Validate() error {
	if g.ClusterSize == 0 || g.EraseSize == 0 {
		return fmt.Errorf("%w: cluster and erase size must be set", ErrPrecondition)
	}
	if g.EraseSize%g.ClusterSize != 0 {
		return fmt.Errorf("%w: erase size %d is not a multiple of cluster size %d", ErrPrecondition, g.EraseSize, g.ClusterSize)
	}
	if g.OpenInodes < 0 || g.OpenEraseblocks < 0 || g.ReserveEraseblocks < 0 || g.WriteEraseblocks < 0 {
		return fmt.Errorf("%w: counts cannot be negative", ErrPrecondition)
	}
	return nil
}

// CreateContainerArgv returns the dd command creating a zeroed container.
func CreateContainerArgv(path string, size uint64) []string {
	return []string{"dd", "if=/dev/zero", "of=" + path, "bs=" + strconv.FormatUint(size, 10), "count=1"}
}

// MkfsArgv returns the mkfs.ffsp command line.
func MkfsArgv(mkfs, container string, g Geometry) []string {
	return []string{
		mkfs,
		"--clustersize=" + strconv.FormatUint(g.ClusterSize, 10),
		"--erasesize=" + strconv.FormatUint(g.EraseSize, 10),
		"--open-ino=" + strconv.Itoa(g.OpenInodes),
		"--open-eb=" + strconv.Itoa(g.OpenEraseblocks),
		"--reserve-eb=" + strconv.Itoa(g.ReserveEraseblocks),
		"--write-eb=" + strconv.Itoa(g.WriteEraseblocks),
		container,
	}
}

// MountOptions are the mount.ffsp parameters.
type MountOptions struct {
	MountBinary  string
	Container    string
	Mountpoint   string
	Debug        bool
	SingleThread bool
}

// MountArgv returns the mount.ffsp command line.
func MountArgv(o MountOptions) []string {
	argv := []string{o.MountBinary}
	if o.Debug {
		argv = append(argv, "-d")
	}
	if o.SingleThread {
		argv = append(argv, "-s")
	}
	return append(argv, o.Container, o.Mountpoint)
}

// UnmountArgv returns the FUSE unmount command line.
func UnmountArgv(mountpoint string) []string {
	return []string{"fusermount", "-u", mountpoint}
}

// CreateContainer writes a zeroed container file of size bytes.
func (r *Runner) CreateContainer(ctx context.Context, status MountStatus, path string, size uint64) (Result, error) {
	if status.Mounted() {
		return Result{}, fmt.Errorf("%w: %s is mounted", ErrPrecondition, status.Mountpoint)
	}
	if size == 0 {
		return Result{}, fmt.Errorf("%w: container size must be positive", ErrPrecondition)
	}
	return r.runChecked(ctx, CreateContainerArgv(path, size))
}

// Mkfs formats the container.
func (r *Runner) Mkfs(ctx context.Context, status MountStatus, mkfs, container string, g Geometry) (Result, error) {
	if status.Mounted() {
		return Result{}, fmt.Errorf("%w: %s is mounted", ErrPrecondition, status.Mountpoint)
	}
	if err := r.checkBinary(mkfs); err != nil {
		return Result{}, err
	}
	if err := checkFile(container); err != nil {
		return Result{}, err
	}
	if err := g.Validate(); err != nil {
		return Result{}, err
	}
	return r.runChecked(ctx, MkfsArgv(mkfs, container, g))
}

// Mount mounts the container.
func (r *Runner) Mount(ctx context.Context, status MountStatus, o MountOptions) (Result, error) {
	if status.Mounted() {
		return Result{}, fmt.Errorf("%w: %s is already mounted", ErrPrecondition, status.Mountpoint)
	}
	if err := r.checkBinary(o.MountBinary); err != nil {
		return Result{}, err
	}
	if err := checkFile(o.Container); err != nil {
		return Result{}, err
	}
	info, err := os.Stat(o.Mountpoint)
	if err != nil || !info.IsDir() {
		return Result{}, fmt.Errorf("%w: invalid mount point directory %s", ErrPrecondition, o.Mountpoint)
	}
	return r.runChecked(ctx, MountArgv(o))
}

// Unmount unmounts the file system at mountpoint.
func (r *Runner) Unmount(ctx context.Context, status MountStatus) (Result, error) {
	if !status.Mounted() {
		return Result{}, fmt.Errorf("%w: %s is not mounted", ErrPrecondition, status.Mountpoint)
	}
	return r.runChecked(ctx, UnmountArgv(status.Mountpoint))
}

func (r *Runner) checkBinary(path string) error {
	if strings.ContainsRune(path, os.PathSeparator) {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: invalid path %s", ErrPrecondition, path)
		}
		return nil
	}
	if _, err := r.lookPath(path); err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrPrecondition, path)
	}
	return nil
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: invalid file system container path %s", ErrPrecondition, path)
	}
	return nil
}
