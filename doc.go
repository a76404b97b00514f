// Package labeler is the editing core of an image-annotation tool built on
// [Ebitengine].
//
// Annotations live in a [Tree] of three levels: a Root, one Image node per
// picture, and the Annotation nodes of each Image. Every node carries a
// [Record], a string-keyed map of typed values. Polygons are stored as two
// semicolon-separated coordinate lists under "xn" and "yn".
//
// # Quick start
//
// The simplest way to get started is [Run], which opens a window and drives
// an [Editor]:
//
//	editor, err := labeler.NewEditor(labeler.DefaultConfig(), nil, loader)
//	if err != nil { ... }
//	_ = editor.LoadJSON(data)
//	labeler.Run(editor, labeler.RunConfig{Title: "labeler"})
//
// For full control, implement [ebiten.Game] yourself and call
// [Editor.Update] and [Editor.Draw] directly.
//
// # Tree and scene
//
// All mutations go through the Tree, which sets its dirty flag and emits a
// [ChangeEvent] to subscribed [Listener]s. [SceneSync] subscribes to the
// displayed Image and keeps the [Canvas] items in step: inserted
// annotations get an item from the [ItemFactory], removed ones lose theirs,
// and changed Records refresh their item. Edits made on the canvas flow back
// through Tree.Update.
//
// # Tools
//
// Drawing tools are [Inserter] state machines: [PolylineInserter],
// [FreehandInserter] and [FreehandEraser]. A [LabelTable] maps each
// annotation class to the item that displays it, the inserter that draws it
// and the default attributes of new annotations; hotkeys from the table
// start insertion for a class.
//
// # Scripting
//
// Canvas input can be injected with [Canvas.InjectClick], [Canvas.InjectDrag]
// and friends, or replayed from a JSON [GestureScript]. [Canvas.Snapshot]
// writes the next rendered frame to a PNG.
//
// Image decoding lives in labeler/imageload and a Donburi adapter for tree
// events in labeler/ecs.
//
// [Ebitengine]: https://ebitengine.org
package labeler
