// Package storage keeps uploaded assets in a remote object store.
//
// Every asset is identified by a Descriptor: the namespace it was stored
// under plus its local identifier. The pair is all that is needed to derive
// its URL or delete it, so callers persist both and hand them back unchanged.
// The backend is swapped by changing the concrete Backend injected at
// startup; the MinIO implementation works with any S3-compatible provider.
package storage

import (
	"context"
	"io"
)

// Adapter stores, locates and deletes assets. The namespace travels with
// every call, either as a parameter or inside the descriptor.
type Adapter interface {
	// Store uploads an asset under namespace and returns its descriptor.
	Store(ctx context.Context, namespace string, up Upload) (Descriptor, error)
	// URLFor derives the public URL of an asset, optionally transformed by v.
	URLFor(d Descriptor, v *Variant) (string, error)
	// Delete removes an asset. Deleting a missing asset is not an error.
	Delete(ctx context.Context, d Descriptor) error
}

// Backend is the raw object store the adapter writes to.
type Backend interface {
	// Put streams data to the store under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Remove deletes the object at key and succeeds if it is already gone.
	Remove(ctx context.Context, key string) error
}

// Upload is the content handed to Store.
type Upload struct {
	Body        io.Reader
	Size        int64
	Filename    string
	ContentType string
	// ID requests a deterministic local identifier, e.g. the owning record's
	// id. Retrying a Store with the same ID overwrites instead of duplicating.
	// When empty a collision-free identifier is generated.
	ID string
}

// Descriptor is the durable identity of a stored asset.
type Descriptor struct {
	Namespace string   `json:"namespace"`
	LocalID   string   `json:"localId"`
	Variant   *Variant `json:"variant,omitempty"`
}

// Key is the object key of the asset in the backend.
func (d Descriptor) Key() string {
	return ObjectKey(d.Namespace, d.LocalID)
}

// ObjectKey is the only place namespace and local id are combined.
func ObjectKey(namespace, localID string) string {
	return namespace + "/" + localID
}
