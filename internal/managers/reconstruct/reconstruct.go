// Package reconstruct implements the rewrite-checksums driver: for a
// possibly-corrupt volume, it recomputes checksums bottom-up and, when
// forced, rewrites them into the media so a volume whose data is intact
// but whose checksums have drifted becomes mountable again. Grounded on
// the same manager-wraps-reader shape as internal/managers/fsck, adapted
// for an RMW write path instead of read-only diagnosis.
package reconstruct

import (
	"bytes"
	"fmt"

	"github.com/hammer2fs/go-hammer2/internal/checksum"
	"github.com/hammer2fs/go-hammer2/internal/interfaces"
	"github.com/hammer2fs/go-hammer2/internal/types"
	"github.com/hammer2fs/go-hammer2/internal/walk"
)

// Config holds the reconstruct flags from spec.md §6.2.
type Config struct {
	// Force performs RMW writes for every mismatch; without it the run is
	// a dry run that only reports what would change.
	Force bool
}

// Change describes one parent blockref whose recorded check-code did not
// match its child's media, in the diagnostic format spec.md §4.5.2
// documents: depth, parent type, child index, child data_off, child
// methods, child type.
type Change struct {
	Depth      int
	ParentType uint8
	ChildIndex int
	DataOff    uint64
	Methods    uint8
	ChildType  uint8

	// Applied is true if -f was set and the parent was rewritten.
	Applied bool
	// Unsupported is true for a SHA-192 child: the source aborts rather
	// than recompute, and this implementation preserves that by leaving
	// the node untouched and reporting it as such.
	Unsupported bool
}

// ReplicaResult is the outcome of reconstructing one volume-header replica.
type ReplicaResult struct {
	Index       int
	Changes     []Change
	HeaderWrote bool
}

// Result is the outcome of a full reconstruct run.
type Result struct {
	Replicas []ReplicaResult
}

// Clean reports whether no replica needed any change -- used for the exit
// code and for the "reconstruct idempotence" testable property.
func (res *Result) Clean() bool {
	for _, r := range res.Replicas {
		if len(r.Changes) != 0 {
			return false
		}
	}
	return true
}

// Run reconstructs every replica present on dev in index order, per
// spec.md §5's ordering guarantee: each replica's body is fully patched and
// fsynced before its header CRCs are rewritten, and before moving on to the
// next replica.
func Run(dev interfaces.BlockDevice, cfg Config) (*Result, error) {
	res := &Result{}
	for i := 0; i < types.MaxVolHdrs; i++ {
		off := types.VolumeHeaderOffset(i)
		if off+types.VolumeBytes > dev.Size() {
			break
		}
		rr, err := reconstructReplica(dev, i, cfg)
		if err != nil {
			return nil, fmt.Errorf("reconstruct replica %d: %w", i, err)
		}
		res.Replicas = append(res.Replicas, *rr)
	}
	return res, nil
}

func reconstructReplica(dev interfaces.BlockDevice, idx int, cfg Config) (*ReplicaResult, error) {
	off := types.VolumeHeaderOffset(idx)
	raw, err := dev.ReadAt(off, types.VolumeBytes)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	vh, err := types.DecodeVolumeHeader(raw)
	if err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}

	rr := &ReplicaResult{Index: idx}
	w := walk.New(dev)

	fv := newPatchVisitor(dev, cfg)
	fv.bindHeader(vh)
	if err := w.WalkFreemapRoot(vh, fv); err != nil {
		return nil, fmt.Errorf("walk freemap root: %w", err)
	}
	rr.Changes = append(rr.Changes, fv.changes...)

	vv := newPatchVisitor(dev, cfg)
	vv.bindHeader(vh)
	if err := w.WalkVolumeRoot(vh, vv); err != nil {
		return nil, fmt.Errorf("walk volume root: %w", err)
	}
	rr.Changes = append(rr.Changes, vv.changes...)

	if !cfg.Force {
		return rr, nil
	}

	// Header CRCs are recomputed and written only after the body has been
	// made self-consistent, per spec.md §5. vh may carry in-memory patches
	// from either visitor (a mismatch directly under a pseudo-root is
	// patched into vh's resident blocksets rather than through WriteMedia),
	// so the header is fully re-derived from vh rather than re-read. A
	// re-derived header identical to what's already on disk is not written
	// again: a second -f run over a consistent volume issues zero writes.
	patched := types.EncodeVolumeHeader(vh)
	checksum.RecomputeVolumeCrcs(patched)
	if bytes.Equal(patched, raw) {
		return rr, nil
	}
	if err := dev.WriteAt(off, patched); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	rr.HeaderWrote = true
	return rr, nil
}
