package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// MountStatus describes whether an ffsp file system is mounted.
type MountStatus struct {
	Mountpoint      string
	DebugDir        string
	DebugDirPresent bool
	InMountTable    bool
	Device          string
	Fstype          string
}

// Mounted reports whether either the debug tree or the mount table says so.
func (s MountStatus) Mounted() bool {
	return s.DebugDirPresent || s.InMountTable
}

// Indicator is the one-character mount indicator shown in status bars.
func (s MountStatus) Indicator() string {
	if s.Mounted() {
		return "/"
	}
	return "X"
}

// Status checks the debug directory and the mount table. Only an ffsp mount
// at the mount point counts; a mount table that cannot be read only leaves
// InMountTable false.
func (r *Runner) Status(ctx context.Context, mountpoint, debugDir string) MountStatus {
	status := MountStatus{
		Mountpoint: filepath.Clean(mountpoint),
		DebugDir:   debugDir,
	}
	if _, err := os.Stat(debugDir); err == nil {
		status.DebugDirPresent = true
	}

	parts, err := r.partitions(ctx, true)
	if err != nil {
		r.log.WithError(err).Debug("mount table unavailable")
		return status
	}
	for _, p := range parts {
		if filepath.Clean(p.Mountpoint) == status.Mountpoint && isFFSPFstype(p.Fstype) {
			status.InMountTable = true
			status.Device = p.Device
			status.Fstype = p.Fstype
			break
		}
	}
	return status
}

// isFFSPFstype accepts the types mount.ffsp shows up as in the mount table:
// "fuse", "fuse.<name>" or anything naming ffsp.
func isFFSPFstype(fstype string) bool {
	fstype = strings.ToLower(fstype)
	return fstype == "fuse" || strings.HasPrefix(fstype, "fuse.") || strings.Contains(fstype, "ffsp")
}
