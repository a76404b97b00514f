package labeler

import "slices"

// CallbackHandle allows removing a registered callback.
type CallbackHandle struct {
	id     uint32
	remove func(id uint32)
}

// Remove unregisters the callback so it no longer fires. Safe to call more
// than once and from inside the callback.
func (h CallbackHandle) Remove() {
	if h.remove != nil {
		h.remove(h.id)
	}
}

type callback[F any] struct {
	id uint32
	fn F
}

// callbacks is an ordered handler registry.
type callbacks[F any] struct {
	list   []callback[F]
	nextID uint32
}

func (c *callbacks[F]) add(fn F) CallbackHandle {
	c.nextID++
	c.list = append(c.list, callback[F]{id: c.nextID, fn: fn})
	return CallbackHandle{id: c.nextID, remove: c.removeID}
}

func (c *callbacks[F]) removeID(id uint32) {
	c.list = slices.DeleteFunc(c.list, func(cb callback[F]) bool { return cb.id == id })
}

// snapshot returns the current handlers so callbacks may unregister while
// the caller iterates.
func (c *callbacks[F]) snapshot() []F {
	out := make([]F, len(c.list))
	for i, cb := range c.list {
		out[i] = cb.fn
	}
	return out
}

func (c *callbacks[F]) len() int { return len(c.list) }
