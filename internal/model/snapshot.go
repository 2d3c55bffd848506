package model

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotListed is returned for an eraseblock id the superblock does not list.
var ErrNotListed = errors.New("eraseblock not listed in superblock")

// EraseblockEntry is one row of the eraseblock table. Exactly one of
// Eraseblock and Anomaly is set, unless the eraseblock is readable but carries
// a cvalid mismatch, in which case both are.
type EraseblockEntry struct {
	ID         uint64
	Eraseblock *Eraseblock
	Anomaly    *Anomaly
}

// Readable reports whether the entry has a parsed eraseblock.
func (e EraseblockEntry) Readable() bool {
	return e.Eraseblock != nil
}

// Snapshot is one fully resolved read of the dump tree. Superblock, metrics
// and eraseblock summaries are loaded eagerly; cluster and inode bodies are
// read on first access and cached until released.
type Snapshot struct {
	Generation uuid.UUID
	LoadedAt   time.Time

	src       Source
	super     *Superblock
	metrics   *Metrics
	entries   []EraseblockEntry
	index     map[uint64]int
	anomalies []Anomaly

	mu       sync.Mutex
	clusters map[uint64]*Cluster
	inodes   map[uint64]*Inode
}

// NewSnapshot assembles a snapshot. entries must follow sb.EraseblockIDs.
// metrics may be nil when the metrics document was unreadable.
func NewSnapshot(src Source, sb *Superblock, metrics *Metrics, entries []EraseblockEntry, anomalies []Anomaly) *Snapshot {
	s := &Snapshot{
		Generation: uuid.New(),
		LoadedAt:   time.Now(),
		src:        src,
		super:      sb,
		metrics:    metrics,
		entries:    entries,
		index:      make(map[uint64]int, len(entries)),
		anomalies:  anomalies,
		clusters:   make(map[uint64]*Cluster),
		inodes:     make(map[uint64]*Inode),
	}
	if s.entries == nil {
		s.entries = []EraseblockEntry{}
	}
	for i, e := range entries {
		s.index[e.ID] = i
	}
	return s
}

// Superblock returns the snapshot's superblock.
func (s *Snapshot) Superblock() *Superblock {
	return s.super
}

// Metrics returns the I/O counters, or false when they could not be read.
func (s *Snapshot) Metrics() (*Metrics, bool) {
	return s.metrics, s.metrics != nil
}

// Eraseblocks returns every eraseblock entry in superblock order.
func (s *Snapshot) Eraseblocks() []EraseblockEntry {
	out := make([]EraseblockEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Anomalies returns the problems recorded while the snapshot was built.
func (s *Snapshot) Anomalies() []Anomaly {
	out := make([]Anomaly, len(s.anomalies))
	copy(out, s.anomalies)
	return out
}

// Lists reports whether the superblock enumerates eraseblock id.
func (s *Snapshot) Lists(id uint64) bool {
	_, ok := s.index[id]
	return ok
}

// Eraseblock returns the summary of eraseblock id. It fails with ErrNotListed
// for ids the superblock does not enumerate and with the recorded read error
// for listed but unreadable ones.
func (s *Snapshot) Eraseblock(id uint64) (*Eraseblock, error) {
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotListed, id)
	}
	entry := s.entries[i]
	if entry.Eraseblock == nil {
		if entry.Anomaly != nil && entry.Anomaly.Err != nil {
			return nil, entry.Anomaly.Err
		}
		return nil, fmt.Errorf("eraseblock %d is unreadable", id)
	}
	return entry.Eraseblock, nil
}

// Cluster returns cluster id, reading it from the dump tree on first use.
func (s *Snapshot) Cluster(id uint64) (*Cluster, error) {
	s.mu.Lock()
	cl, ok := s.clusters[id]
	s.mu.Unlock()
	if ok {
		return cl, nil
	}

	cl, err := LoadCluster(s.src, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if cached, raced := s.clusters[id]; raced {
		cl = cached
	} else {
		s.clusters[id] = cl
	}
	s.mu.Unlock()
	return cl, nil
}

// Inode returns inode id, reading it from the dump tree on first use.
func (s *Snapshot) Inode(id uint64) (*Inode, error) {
	s.mu.Lock()
	ino, ok := s.inodes[id]
	s.mu.Unlock()
	if ok {
		return ino, nil
	}

	ino, err := LoadInode(s.src, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if cached, raced := s.inodes[id]; raced {
		ino = cached
	} else {
		s.inodes[id] = ino
	}
	s.mu.Unlock()
	return ino, nil
}

// Release drops cached cluster and inode bodies. They are read again on the
// next access.
func (s *Snapshot) Release(clusterIDs, inodeIDs []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range clusterIDs {
		delete(s.clusters, id)
	}
	for _, id := range inodeIDs {
		delete(s.inodes, id)
	}
}

// Cached returns how many cluster and inode bodies are currently held.
func (s *Snapshot) Cached() (clusters, inodes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clusters), len(s.inodes)
}
