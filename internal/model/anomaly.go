package model

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-ffsp/internal/classify"
	"github.com/deploymenttheory/go-ffsp/internal/dump"
)

// Level names the hierarchy level an anomaly belongs to.
type Level string

const (
	LevelMetrics    Level = "metrics"
	LevelEraseblock Level = "eraseblock"
	LevelCluster    Level = "cluster"
	LevelInode      Level = "inode"
)

// AnomalyKind classifies what is wrong with an item.
type AnomalyKind string

const (
	// AnomalyMissing means the document vanished between enumeration and fetch.
	AnomalyMissing AnomalyKind = "missing"
	// AnomalyMalformed means the document could not be parsed.
	AnomalyMalformed AnomalyKind = "malformed"
	// AnomalyUnknownType means the eraseblock type code is not known.
	AnomalyUnknownType AnomalyKind = "unknown-type"
	// AnomalyValidCount means cvalid exceeds the listed cluster count.
	AnomalyValidCount AnomalyKind = "cvalid-mismatch"
	// AnomalyUnreadable covers any other read failure.
	AnomalyUnreadable AnomalyKind = "unreadable"
)

// Anomaly is a non-fatal problem with a single item of the dump tree.
type Anomaly struct {
	Level  Level
	ID     uint64
	Kind   AnomalyKind
	Detail string
	Err    error
}

func (a Anomaly) String() string {
	if a.Level == LevelMetrics {
		return fmt.Sprintf("%s: %s: %s", a.Level, a.Kind, a.Detail)
	}
	return fmt.Sprintf("%s %d: %s: %s", a.Level, a.ID, a.Kind, a.Detail)
}

// Blocking reports whether the item could not be displayed at all.
func (a Anomaly) Blocking() bool {
	return a.Kind != AnomalyValidCount
}

// NewReadAnomaly turns an item read/parse failure into an anomaly.
func NewReadAnomaly(level Level, id uint64, err error) Anomaly {
	kind := AnomalyUnreadable
	switch {
	case errors.Is(err, dump.ErrNotFound):
		kind = AnomalyMissing
	case errors.Is(err, classify.ErrUnknownEraseblockType):
		kind = AnomalyUnknownType
	case errors.Is(err, dump.ErrMalformed):
		kind = AnomalyMalformed
	}
	return Anomaly{Level: level, ID: id, Kind: kind, Detail: err.Error(), Err: err}
}

// NewValidCountAnomaly records an eraseblock whose cvalid exceeds its list.
func NewValidCountAnomaly(eb *Eraseblock) Anomaly {
	return Anomaly{
		Level:  LevelEraseblock,
		ID:     eb.ID,
		Kind:   AnomalyValidCount,
		Detail: fmt.Sprintf("cvalid %d exceeds %d listed clusters", eb.ValidClusters, len(eb.ClusterIDs)),
	}
}
