// Package objectstore defines the server-side store of opaque,
// variable-length objects addressed by store-assigned identifiers. One
// object may be marked "priority": it is the volume directory and is
// addressed by a flag rather than an identifier.
package objectstore

type Store interface {
	// Format removes every object, including the priority object.
	Format() error

	// Create stores data under a newly assigned identifier. When priority is
	// set the new object becomes the store's priority object.
	Create(data []byte, priority bool) (uint32, error)

	// Read returns an object's contents. When priority is set the priority
	// object is resolved regardless of id.
	Read(id uint32, priority bool) ([]byte, error)

	// Update replaces an object's contents, keeping its identifier. When
	// priority is set the priority object is resolved regardless of id.
	Update(id uint32, data []byte, priority bool) error

	// Delete removes an object.
	Delete(id uint32) error

	// Close flushes any backing state. The store may be reopened afterwards.
	Close() error
}
