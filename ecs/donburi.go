package ecs

import (
	"slices"

	"github.com/phanxgames/labeler"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// TreeEventType is the Donburi event type for tree change events.
var TreeEventType = events.NewEventType[labeler.ChangeEvent]()

type donburiListener struct {
	world donburi.World
}

// NewDonburiListener returns a tree Listener that publishes every change
// event to TreeEventType in world. Events are queued by Donburi and delivered
// by ProcessEvents.
func NewDonburiListener(world donburi.World) labeler.Listener {
	return &donburiListener{world: world}
}

func (l *donburiListener) TreeChanged(ev labeler.ChangeEvent) {
	ev.Path = slices.Clone(ev.Path)
	ev.Nodes = slices.Clone(ev.Nodes)
	TreeEventType.Publish(l.world, ev)
}
