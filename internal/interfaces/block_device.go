// Package interfaces collects the small set of contracts the topology
// walker and the verify/reconstruct/newfs drivers are built against, so
// that a driver never depends on the concrete device or decode
// implementation directly.
package interfaces

import "github.com/hammer2fs/go-hammer2/internal/types"

// BlockDevice is the synchronous, single-descriptor block I/O contract the
// rest of the core is built on: aligned, radix-aware reads and writes
// against a HAMMER2 volume.
type BlockDevice interface {
	// ReadMedia reads the data a blockref refers to, honoring its radix
	// encoding. It returns the decoded bytes, whose length is the
	// blockref's physical size; an empty
	// blockref (BytesOf() == 0) returns a nil slice and no error.
	ReadMedia(bref *types.BlockRefT) ([]byte, error)

	// WriteMedia read-modify-writes buf into the aligned window a
	// blockref's DataOff describes, then fsyncs.
	WriteMedia(bref *types.BlockRefT, buf []byte) error

	// ReadAt reads exactly length bytes at offset, with no alignment
	// requirement on the caller's part -- used for volume-header
	// replicas, which live at fixed zone-start offsets rather than
	// behind a blockref.
	ReadAt(offset int64, length int) ([]byte, error)

	// WriteAt writes buf at offset and fsyncs.
	WriteAt(offset int64, buf []byte) error

	// Size returns the total usable size of the volume in bytes.
	Size() int64

	// ReadOnly reports whether this device rejects WriteMedia/WriteAt.
	ReadOnly() bool

	// Close releases the underlying file descriptor.
	Close() error
}
