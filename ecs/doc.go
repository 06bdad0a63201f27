// Package ecs provides ECS adapters for mullion's action dispatch.
//
// The primary adapter is [NewDonburiSink], which bridges resolved hit
// actions (clicks on interactive scene regions) into a [Donburi] world as
// typed events. Subscribe to [WindowActionType] in your ECS systems to
// receive them.
//
// Usage:
//
//	sink := ecs.NewDonburiSink(world)
//	compositor.SetActionSink(sink)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
