package display

import (
	"context"
	"fmt"

	"github.com/deploymenttheory/go-ffsp/internal/navigator"
)

// Event is a user action on the display surface.
type Event interface {
	event()
}

// EraseblockPicked selects an eraseblock.
type EraseblockPicked struct{ ID uint64 }

// ClusterPicked selects a cluster of the selected eraseblock.
type ClusterPicked struct{ ID uint64 }

// SelectionCleared returns to the top of the hierarchy.
type SelectionCleared struct{}

func (EraseblockPicked) event() {}
func (ClusterPicked) event()    {}
func (SelectionCleared) event() {}

// Apply feeds ev to the navigator.
func Apply(ctx context.Context, nav *navigator.Navigator, ev Event) error {
	switch e := ev.(type) {
	case EraseblockPicked:
		return nav.SelectEraseblock(ctx, e.ID)
	case ClusterPicked:
		return nav.SelectCluster(ctx, e.ID)
	case SelectionCleared:
		nav.ClearSelection()
		return nil
	default:
		return fmt.Errorf("unsupported display event %T", ev)
	}
}
