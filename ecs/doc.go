// Package ecs provides ECS adapters for labeler trees.
//
// [NewDonburiListener] bridges tree change events (inserted, removed,
// changed, reset) into a [Donburi] world as typed events. Subscribe to
// [TreeEventType] in your ECS systems to receive them.
//
// Usage:
//
//	sub := tree.Subscribe(ecs.NewDonburiListener(world))
//	defer sub.Remove()
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
