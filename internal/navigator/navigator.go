// Package navigator implements the selection state machine over a snapshot:
// no selection, an eraseblock, or a cluster within that eraseblock.
//
// Every transition publishes a new View. Lazy loads of the next level run
// outside the lock and are tagged with the transition's sequence number; a
// result whose sequence has been superseded is dropped, so loads never apply
// out of order.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-ffsp/internal/model"
)

// ErrInvalidSelection is returned for a selection that does not exist in the
// current snapshot. The state is left unchanged.
var ErrInvalidSelection = errors.New("invalid selection")

// Navigator tracks the selection against the current snapshot.
type Navigator struct {
	log logrus.FieldLogger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc

	view atomic.Pointer[View]
}

// New returns a navigator without a snapshot.
func New(log logrus.FieldLogger) *Navigator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	n := &Navigator{log: log}
	n.view.Store(&View{State: None})
	return n
}

// Current returns the latest published view.
func (n *Navigator) Current() *View {
	return n.view.Load()
}

// State returns the current selection.
func (n *Navigator) State() State {
	return n.Current().State
}

// publish installs next and starts a new load generation. Callers hold n.mu.
func (n *Navigator) publish(ctx context.Context, next *View) (context.Context, uint64) {
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.seq++
	n.view.Store(next)
	if !next.Loading {
		return nil, n.seq
	}
	loadCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	return loadCtx, n.seq
}

// complete applies a finished load if seq is still current.
func (n *Navigator) complete(seq uint64, apply func(next *View)) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.seq != seq {
		return false
	}
	next := *n.view.Load()
	apply(&next)
	next.Loading = false
	n.view.Store(&next)
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	return true
}

// SelectEraseblock selects eraseblock id and loads its clusters. Selecting the
// already selected eraseblock is a no-op unless its cluster load failed.
func (n *Navigator) SelectEraseblock(ctx context.Context, id uint64) error {
	n.mu.Lock()
	cur := n.view.Load()
	snap := cur.Snapshot
	if snap == nil {
		n.mu.Unlock()
		return fmt.Errorf("%w: no snapshot loaded", ErrInvalidSelection)
	}
	eb, err := snap.Eraseblock(id)
	if err != nil {
		n.mu.Unlock()
		return fmt.Errorf("%w: eraseblock %d: %v", ErrInvalidSelection, id, err)
	}
	if cur.State == OnEraseblock(id) && (cur.Clusters != nil || cur.Loading) {
		n.mu.Unlock()
		return nil
	}

	// Moving up from one of this eraseblock's clusters keeps the loaded list.
	if cur.State.Kind == ClusterSelected && cur.State.Eraseblock == id && cur.Clusters != nil {
		snap.Release(nil, cur.inodeIDs())
		n.publish(ctx, &View{Snapshot: snap, State: OnEraseblock(id), Eraseblock: eb, Clusters: cur.Clusters})
		n.mu.Unlock()
		return nil
	}

	snap.Release(cur.clusterIDs(), cur.inodeIDs())
	loadCtx, seq := n.publish(ctx, &View{Snapshot: snap, State: OnEraseblock(id), Eraseblock: eb, Loading: true})
	n.mu.Unlock()

	clusters, err := loadClusters(loadCtx, snap, eb.ClusterIDs)
	return n.finishLoad(ctx, seq, load{level: "eraseblock", id: id, snap: snap, clusters: eb.ClusterIDs}, err, func(next *View) {
		next.Clusters = clusters
	})
}

// SelectCluster selects cluster id of the selected eraseblock, rereads it and
// loads its inodes.
func (n *Navigator) SelectCluster(ctx context.Context, id uint64) error {
	n.mu.Lock()
	cur := n.view.Load()
	if cur.State.Kind == NoSelection || cur.Eraseblock == nil {
		n.mu.Unlock()
		return fmt.Errorf("%w: cluster %d: no eraseblock selected", ErrInvalidSelection, id)
	}
	if !cur.Eraseblock.HasCluster(id) {
		n.mu.Unlock()
		return fmt.Errorf("%w: cluster %d does not belong to eraseblock %d", ErrInvalidSelection, id, cur.Eraseblock.ID)
	}
	if cur.State == OnCluster(cur.Eraseblock.ID, id) && (cur.Inodes != nil || cur.Loading) {
		n.mu.Unlock()
		return nil
	}

	snap := cur.Snapshot
	snap.Release([]uint64{id}, cur.inodeIDs())
	loadCtx, seq := n.publish(ctx, &View{
		Snapshot:   snap,
		State:      OnCluster(cur.Eraseblock.ID, id),
		Eraseblock: cur.Eraseblock,
		Clusters:   cur.Clusters,
		Loading:    true,
	})
	n.mu.Unlock()

	// The eraseblock's own load was cancelled if it had not finished yet.
	var clusters []ClusterEntry
	var err error
	l := load{level: "cluster", id: id, snap: snap, clusters: []uint64{id}}
	if cur.Clusters == nil {
		l.clusters = cur.Eraseblock.ClusterIDs
		clusters, err = loadClusters(loadCtx, snap, cur.Eraseblock.ClusterIDs)
	}
	var cl *model.Cluster
	var inodes []InodeEntry
	var clErr error
	if err == nil {
		cl, inodes, clErr, err = loadCluster(loadCtx, snap, id)
	}
	if cl != nil {
		l.inodes = cl.InodeIDs
	}
	return n.finishLoad(ctx, seq, l, err, func(next *View) {
		if clusters != nil {
			next.Clusters = clusters
		}
		next.Cluster = cl
		next.Inodes = inodes
		next.Err = clErr
		if cl != nil {
			next.Clusters = replaceCluster(next.Clusters, cl)
		}
	})
}

// ClearSelection drops the selection and the loaded branch.
func (n *Navigator) ClearSelection() {
	n.mu.Lock()
	defer n.mu.Unlock()
	cur := n.view.Load()
	if cur.Snapshot != nil {
		cur.Snapshot.Release(cur.clusterIDs(), cur.inodeIDs())
	}
	n.publish(context.Background(), &View{Snapshot: cur.Snapshot, State: None})
}

// load names the branch a lazy load reads and the cache entries it may fill.
type load struct {
	level    string
	id       uint64
	snap     *model.Snapshot
	clusters []uint64
	inodes   []uint64
}

// finishLoad publishes a lazy load result or reports why it was dropped.
func (n *Navigator) finishLoad(ctx context.Context, seq uint64, l load, loadErr error, apply func(*View)) error {
	if loadErr != nil && ctx.Err() == nil {
		// The load context was cancelled by a newer transition.
		n.log.WithFields(logrus.Fields{l.level: l.id}).Debug("discarding superseded load")
		n.discard(l)
		return nil
	}
	applied := n.complete(seq, func(next *View) {
		if loadErr != nil {
			next.Err = loadErr
			return
		}
		apply(next)
	})
	if !applied {
		n.log.WithFields(logrus.Fields{l.level: l.id}).Debug("discarding stale load")
		n.discard(l)
		return nil
	}
	return loadErr
}

// discard drops the cache entries filled by a dropped load, except those the
// current view still shows.
func (n *Navigator) discard(l load) {
	n.mu.Lock()
	defer n.mu.Unlock()
	cur := n.view.Load()
	if cur.Snapshot != l.snap {
		l.snap.Release(l.clusters, l.inodes)
		return
	}
	l.snap.Release(without(l.clusters, cur.clusterIDs()), without(l.inodes, cur.inodeIDs()))
}

func without(ids, keep []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(keep, id) {
			out = append(out, id)
		}
	}
	return out
}

// Install publishes snap and re-resolves the selection against it. An
// eraseblock that is no longer listed, or no longer readable, collapses the
// selection to none; a cluster no longer listed by its eraseblock collapses
// it to the eraseblock. The branch is loaded before the swap, so observers
// move from the old view to the fully resolved new one in one step.
func (n *Navigator) Install(ctx context.Context, snap *model.Snapshot) (State, error) {
	for {
		n.mu.Lock()
		prev := n.view.Load().State
		seq := n.seq
		if n.cancel != nil {
			n.cancel()
			n.cancel = nil
		}
		n.mu.Unlock()

		next, err := resolve(ctx, snap, prev)
		if err != nil {
			return prev, err
		}

		n.mu.Lock()
		if n.seq != seq {
			// The selection moved while resolving; resolve it again.
			n.mu.Unlock()
			continue
		}
		n.seq++
		n.view.Store(next)
		n.mu.Unlock()

		if next.State != prev {
			n.log.WithFields(logrus.Fields{
				"generation": snap.Generation.String(),
				"from":       prev.String(),
				"to":         next.State.String(),
			}).Info("selection collapsed by reload")
		}
		return next.State, nil
	}
}

// resolve builds the view for prev against snap.
func resolve(ctx context.Context, snap *model.Snapshot, prev State) (*View, error) {
	v := &View{Snapshot: snap, State: None}
	if prev.Kind == NoSelection {
		return v, nil
	}

	eb, err := snap.Eraseblock(prev.Eraseblock)
	if err != nil {
		return v, nil
	}
	v.State = OnEraseblock(eb.ID)
	v.Eraseblock = eb

	clusters, err := loadClusters(ctx, snap, eb.ClusterIDs)
	if err != nil {
		return nil, err
	}
	v.Clusters = clusters

	if prev.Kind != ClusterSelected || !eb.HasCluster(prev.Cluster) {
		return v, nil
	}
	cl, inodes, clErr, err := loadCluster(ctx, snap, prev.Cluster)
	if err != nil {
		return nil, err
	}
	v.State = OnCluster(eb.ID, prev.Cluster)
	v.Cluster = cl
	v.Inodes = inodes
	v.Err = clErr
	return v, nil
}

// loadClusters reads every listed cluster. Per-item failures become anomalies;
// only context cancellation is returned as an error.
func loadClusters(ctx context.Context, snap *model.Snapshot, ids []uint64) ([]ClusterEntry, error) {
	out := make([]ClusterEntry, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cl, err := snap.Cluster(id)
		if err != nil {
			a := model.NewReadAnomaly(model.LevelCluster, id, err)
			out = append(out, ClusterEntry{ID: id, Anomaly: &a})
			continue
		}
		out = append(out, ClusterEntry{ID: id, Cluster: cl})
	}
	return out, nil
}

// loadCluster reads cluster id and its inodes. clErr reports an unreadable
// cluster body, in which case the inode list is empty. A cancelled inode load
// still returns the cluster so its cache entries can be dropped.
func loadCluster(ctx context.Context, snap *model.Snapshot, id uint64) (cl *model.Cluster, inodes []InodeEntry, clErr, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	cl, clErr = snap.Cluster(id)
	if clErr != nil {
		return nil, []InodeEntry{}, clErr, nil
	}

	inodes = make([]InodeEntry, 0, len(cl.InodeIDs))
	for _, no := range cl.InodeIDs {
		if err := ctx.Err(); err != nil {
			return cl, nil, nil, err
		}
		ino, err := snap.Inode(no)
		if err != nil {
			a := model.NewReadAnomaly(model.LevelInode, no, err)
			inodes = append(inodes, InodeEntry{ID: no, Anomaly: &a})
			continue
		}
		inodes = append(inodes, InodeEntry{ID: no, Inode: ino})
	}
	return cl, inodes, nil, nil
}

func replaceCluster(entries []ClusterEntry, cl *model.Cluster) []ClusterEntry {
	if entries == nil {
		return nil
	}
	out := make([]ClusterEntry, len(entries))
	copy(out, entries)
	for i := range out {
		if out[i].ID == cl.ID {
			out[i] = ClusterEntry{ID: cl.ID, Cluster: cl}
		}
	}
	return out
}
