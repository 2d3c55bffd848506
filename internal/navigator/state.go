package navigator

import (
	"fmt"

	"github.com/deploymenttheory/go-ffsp/internal/model"
)

// Kind is the selection depth.
type Kind int

const (
	NoSelection Kind = iota
	EraseblockSelected
	ClusterSelected
)

func (k Kind) String() string {
	switch k {
	case NoSelection:
		return "none"
	case EraseblockSelected:
		return "eraseblock"
	case ClusterSelected:
		return "cluster"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// State is the current selection. Eraseblock is meaningful from
// EraseblockSelected on, Cluster only in ClusterSelected.
type State struct {
	Kind       Kind
	Eraseblock uint64
	Cluster    uint64
}

// None is the empty selection.
var None = State{Kind: NoSelection}

// OnEraseblock returns the state selecting eraseblock id.
func OnEraseblock(id uint64) State {
	return State{Kind: EraseblockSelected, Eraseblock: id}
}

// OnCluster returns the state selecting cluster cl of eraseblock eb.
func OnCluster(eb, cl uint64) State {
	return State{Kind: ClusterSelected, Eraseblock: eb, Cluster: cl}
}

func (s State) String() string {
	switch s.Kind {
	case EraseblockSelected:
		return fmt.Sprintf("eraseblock %d", s.Eraseblock)
	case ClusterSelected:
		return fmt.Sprintf("eraseblock %d / cluster %d", s.Eraseblock, s.Cluster)
	default:
		return "no selection"
	}
}

// ClusterEntry is one row of the cluster list of the selected eraseblock.
type ClusterEntry struct {
	ID      uint64
	Cluster *model.Cluster
	Anomaly *model.Anomaly
}

// InodeEntry is one row of the inode list of the selected cluster.
type InodeEntry struct {
	ID      uint64
	Inode   *model.Inode
	Anomaly *model.Anomaly
}

// View is a consistent picture of the snapshot, the selection and the
// branch loaded for it. A View is never modified once published.
type View struct {
	Snapshot *model.Snapshot
	State    State

	// Eraseblock is the selected eraseblock summary.
	Eraseblock *model.Eraseblock
	// Clusters is nil until the cluster list of Eraseblock has been loaded.
	Clusters []ClusterEntry

	// Cluster is the selected cluster body, nil if it could not be read.
	Cluster *model.Cluster
	// Inodes is nil until the inode list of Cluster has been loaded.
	Inodes []InodeEntry

	// Loading is set while a lazy load for State is in flight.
	Loading bool
	// Err is the last lazy load failure for State, if any.
	Err error
}

// Anomalies returns the per-item problems in the loaded branch.
func (v *View) Anomalies() []model.Anomaly {
	var out []model.Anomaly
	for _, c := range v.Clusters {
		if c.Anomaly != nil {
			out = append(out, *c.Anomaly)
		}
	}
	for _, i := range v.Inodes {
		if i.Anomaly != nil {
			out = append(out, *i.Anomaly)
		}
	}
	return out
}

func (v *View) clusterIDs() []uint64 {
	if v.Eraseblock == nil {
		return nil
	}
	return v.Eraseblock.ClusterIDs
}

func (v *View) inodeIDs() []uint64 {
	if v.Cluster == nil {
		return nil
	}
	return v.Cluster.InodeIDs
}
