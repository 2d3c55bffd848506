// Package reload rebuilds the snapshot from the debug dump tree and hands it
// to the navigator.
package reload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/deploymenttheory/go-ffsp/internal/model"
	"github.com/deploymenttheory/go-ffsp/internal/navigator"
)

// DefaultWorkers is the number of eraseblock summaries read in parallel.
const DefaultWorkers = 8

// ReloadError is a failure that aborted a whole reload. The previous
// snapshot stays current.
type ReloadError struct {
	Stage string
	Err   error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("reload failed reading %s: %v", e.Stage, e.Err)
}

func (e *ReloadError) Unwrap() error {
	return e.Err
}

// Options configure a Controller.
type Options struct {
	Workers int
	Log     logrus.FieldLogger
}

// Controller owns reloads. At most one reload runs at a time; callers that
// arrive while one is in flight share its result.
type Controller struct {
	src  model.Source
	nav  *navigator.Navigator
	log  logrus.FieldLogger
	pool *ants.Pool

	group singleflight.Group

	mu       sync.RWMutex
	lastErr  error
	lastLoad time.Time
}

// New creates a controller reading from src and publishing into nav.
func New(src model.Source, nav *navigator.Navigator, opts Options) (*Controller, error) {
	if src == nil {
		return nil, fmt.Errorf("dump source cannot be nil")
	}
	if nav == nil {
		return nil, fmt.Errorf("navigator cannot be nil")
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create reload worker pool: %w", err)
	}

	return &Controller{
		src:  src,
		nav:  nav,
		log:  opts.Log,
		pool: pool,
	}, nil
}

// Close releases the worker pool.
func (c *Controller) Close() {
	c.pool.Release()
}

// Navigator returns the navigator the controller publishes into.
func (c *Controller) Navigator() *navigator.Navigator {
	return c.nav
}

// Snapshot returns the current snapshot, nil before the first successful
// reload.
func (c *Controller) Snapshot() *model.Snapshot {
	return c.nav.Current().Snapshot
}

// LastError returns the error of the most recent reload, nil if it succeeded.
func (c *Controller) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// LastLoad returns when the current snapshot was installed.
func (c *Controller) LastLoad() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastLoad
}

// Reload rereads the dump tree, installs the new snapshot and re-resolves the
// selection. A request arriving while a reload is in flight joins it.
func (c *Controller) Reload(ctx context.Context) (*model.Snapshot, error) {
	v, err, shared := c.group.Do("reload", func() (any, error) {
		return c.reload(ctx)
	})
	if shared {
		c.log.Debug("reload request coalesced into in-flight reload")
	}

	c.mu.Lock()
	c.lastErr = err
	if err == nil {
		c.lastLoad = time.Now()
	}
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return v.(*model.Snapshot), nil
}

func (c *Controller) reload(ctx context.Context) (*model.Snapshot, error) {
	start := time.Now()

	sb, err := model.LoadSuperblock(c.src)
	if err != nil {
		return nil, &ReloadError{Stage: "superblock", Err: err}
	}

	var anomalies []model.Anomaly
	metrics, err := model.LoadMetrics(c.src)
	if err != nil {
		if model.IsFatal(err) {
			return nil, &ReloadError{Stage: "metrics", Err: err}
		}
		anomalies = append(anomalies, model.NewReadAnomaly(model.LevelMetrics, 0, err))
		metrics = nil
	}

	entries, err := c.loadEraseblocks(ctx, sb.EraseblockIDs)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Anomaly != nil {
			anomalies = append(anomalies, *e.Anomaly)
		}
	}

	snap := model.NewSnapshot(c.src, sb, metrics, entries, anomalies)
	log := c.log.WithField("generation", snap.Generation.String())
	for _, a := range anomalies {
		log.WithFields(logrus.Fields{
			"level": string(a.Level),
			"id":    a.ID,
			"kind":  string(a.Kind),
		}).Warn(a.Detail)
	}

	state, err := c.nav.Install(ctx, snap)
	if err != nil {
		return nil, &ReloadError{Stage: "selection", Err: err}
	}

	log.WithFields(logrus.Fields{
		"eraseblocks": len(entries),
		"anomalies":   len(anomalies),
		"selection":   state.String(),
		"elapsed":     time.Since(start),
	}).Info("snapshot reloaded")
	return snap, nil
}

// loadEraseblocks reads every eraseblock summary on the worker pool. Per-id
// failures become anomalies; access denied aborts the reload.
func (c *Controller) loadEraseblocks(ctx context.Context, ids []uint64) ([]model.EraseblockEntry, error) {
	entries := make([]model.EraseblockEntry, len(ids))

	var (
		wg       sync.WaitGroup
		fatalMu  sync.Mutex
		fatalErr error
	)
	setFatal := func(err error) {
		fatalMu.Lock()
		if fatalErr == nil {
			fatalErr = err
		}
		fatalMu.Unlock()
	}

	for i, id := range ids {
		wg.Add(1)
		err := c.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			entries[i] = c.loadEraseblock(id, setFatal)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, &ReloadError{Stage: "eraseblocks", Err: err}
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, &ReloadError{Stage: "eraseblocks", Err: err}
	}
	if fatalErr != nil {
		return nil, &ReloadError{Stage: "eraseblocks", Err: fatalErr}
	}
	return entries, nil
}

func (c *Controller) loadEraseblock(id uint64, setFatal func(error)) model.EraseblockEntry {
	eb, err := model.LoadEraseblock(c.src, id)
	if err != nil {
		if model.IsFatal(err) {
			setFatal(err)
		}
		a := model.NewReadAnomaly(model.LevelEraseblock, id, err)
		return model.EraseblockEntry{ID: id, Anomaly: &a}
	}

	entry := model.EraseblockEntry{ID: id, Eraseblock: eb}
	if eb.ValidCountMismatch() {
		a := model.NewValidCountAnomaly(eb)
		entry.Anomaly = &a
	}
	return entry
}

// IsReloadError reports whether err aborted a whole reload.
func IsReloadError(err error) bool {
	var re *ReloadError
	return errors.As(err, &re)
}
