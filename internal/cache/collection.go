package cache

import (
	"context"
)

// Collection caches a list of entities and offers local reducers that keep
// it consistent with a confirmed mutation without a re-fetch.
type Collection[T any] struct {
	*Entity[[]T]
	id func(T) string
}

// NewCollection creates an idle list cache keyed by id.
func NewCollection[T any](name string, id func(T) string) *Collection[T] {
	c := &Collection[T]{Entity: NewEntity[[]T](name), id: id}
	c.WithClone(func(items []T) []T {
		return append([]T(nil), items...)
	})
	return c
}

// FetchAll replaces the list with the result of fn.
func (c *Collection[T]) FetchAll(ctx context.Context, fn func(ctx context.Context) ([]T, error)) ([]T, error) {
	return c.Fetch(ctx, fn)
}

// Items returns a copy of the cached list.
func (c *Collection[T]) Items() []T {
	return c.Value()
}

// Find returns the cached entity with the given id.
func (c *Collection[T]) Find(id string) (T, bool) {
	for _, item := range c.Value() {
		if c.id(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// ApplyCreate inserts item at the front of the list. An entity already
// cached under the same id is replaced in place.
func (c *Collection[T]) ApplyCreate(item T) {
	id := c.id(item)
	c.Update(func(items []T) []T {
		for i := range items {
			if c.id(items[i]) == id {
				out := append([]T(nil), items...)
				out[i] = item
				return out
			}
		}
		return append([]T{item}, items...)
	})
}

// ApplyUpdate replaces the entity with the same id. Unknown ids are ignored.
func (c *Collection[T]) ApplyUpdate(item T) {
	id := c.id(item)
	c.Update(func(items []T) []T {
		out := append([]T(nil), items...)
		for i := range out {
			if c.id(out[i]) == id {
				out[i] = item
			}
		}
		return out
	})
}

// ApplyDelete removes every entity with the given id.
func (c *Collection[T]) ApplyDelete(id string) {
	c.Update(func(items []T) []T {
		out := make([]T, 0, len(items))
		for _, item := range items {
			if c.id(item) != id {
				out = append(out, item)
			}
		}
		return out
	})
}
