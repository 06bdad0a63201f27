// Package ecs provides ECS adapters for mullion.
package ecs

import (
	"github.com/phanxgames/mullion"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// WindowAction is one resolved hit action: the window whose region was
// pressed and the action string the region carries.
type WindowAction struct {
	Window uint64
	Action string
}

// WindowActionType is the Donburi event type for resolved hit actions.
// Subscribe to this in your ECS systems to react to clicks on interactive
// scene regions.
var WindowActionType = events.NewEventType[WindowAction]()

type donburiSink struct {
	world donburi.World
}

// NewDonburiSink creates an ActionSink backed by a Donburi world. Every
// action the compositor resolves is published to WindowActionType and can
// be consumed with events.Subscribe and ProcessEvents.
func NewDonburiSink(world donburi.World) mullion.ActionSink {
	return &donburiSink{world: world}
}

func (s *donburiSink) HandleAction(windowID uint64, action string) {
	WindowActionType.Publish(s.world, WindowAction{Window: windowID, Action: action})
}
